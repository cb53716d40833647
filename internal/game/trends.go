package game

import (
	"fmt"
	"math"
	mathrand "math/rand"
	"strconv"
	"strings"
)

var trendTypes = []TrendType{TrendRising, TrendFalling, TrendHot, TrendStable}

var trendLabels = map[TrendType]string{
	TrendRising:  "Rising wave",
	TrendFalling: "Listener slump",
	TrendHot:     "Hot streak",
	TrendStable:  "Steady rotation",
}

// TrendMultiplier is the growth multiplier one trend applies to each of its platforms.
func TrendMultiplier(t MarketTrend) float64 {
	impact := float64(min(max(t.ImpactFactor, 1), 10))
	switch t.Type {
	case TrendRising:
		return 1 + 0.03*impact
	case TrendFalling:
		return math.Max(0.7, 1-0.03*impact)
	case TrendHot:
		return 1 + 0.05*impact
	case TrendStable:
		return 1 + 0.01*impact
	default:
		return 1
	}
}

// TrendActive reports whether t still applies at week.
func TrendActive(t MarketTrend, week int) bool {
	return week >= t.StartWeek && week < t.StartWeek+t.Duration
}

// TrendEffect multiplies the multipliers of every active trend affecting platform.
func TrendEffect(trends []MarketTrend, platform string) float64 {
	effect := 1.0
	for _, t := range trends {
		for _, name := range t.AffectedPlatforms {
			if strings.EqualFold(name, platform) {
				effect *= TrendMultiplier(t)
				break
			}
		}
	}
	return effect
}

// AgeTrends moves every trend whose duration has elapsed by week into the
// history list and returns the expired ones.
func (s *GameState) AgeTrends(week int) []MarketTrend {
	var expired []MarketTrend
	active := s.ActiveTrends[:0]
	for _, t := range s.ActiveTrends {
		if week >= t.StartWeek+t.Duration {
			expired = append(expired, t)
			continue
		}
		active = append(active, t)
	}
	s.ActiveTrends = active
	s.TrendHistory = append(s.TrendHistory, expired...)
	return expired
}

// GenerateTrend builds a new trend starting at week over the given platforms.
func GenerateTrend(week int, platforms []string, rnd *mathrand.Rand) MarketTrend {
	kind := trendTypes[rnd.Intn(len(trendTypes))]
	impact := 1 + rnd.Intn(10)
	duration := 2 + rnd.Intn(7)

	count := 1 + rnd.Intn(3)
	if count > len(platforms) {
		count = len(platforms)
	}
	affected := make([]string, 0, count)
	for _, i := range rnd.Perm(len(platforms))[:count] {
		affected = append(affected, platforms[i])
	}

	name := fmt.Sprintf("%s on %s", trendLabels[kind], strings.Join(affected, ", "))
	return MarketTrend{
		ID:                derivedID("trend", strconv.Itoa(week), name),
		Name:              name,
		Type:              kind,
		AffectedPlatforms: affected,
		ImpactFactor:      impact,
		StartWeek:         week,
		Duration:          duration,
	}
}

// applyTrendEffect scales an allocation by a platform's trend effect. A
// positive allocation never rounds down to zero.
func applyTrendEffect(streams int64, effect float64) int64 {
	if streams <= 0 {
		return 0
	}
	if effect <= 0 || math.IsNaN(effect) {
		effect = 1
	}
	v := int64(math.Round(float64(streams) * effect))
	if v < 1 {
		v = 1
	}
	return v
}
