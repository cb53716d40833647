package game

import (
	"math"
	mathrand "math/rand"
)

// guaranteedActiveWeeks is indexed by tier.
var guaranteedActiveWeeks = [...]int{0, 4, 6, 8, 12, 16}

// A normal song is only re-rolled once it has held its classification this long.
const classificationCooldown = 4

var performanceWindow = map[PerformanceType]int{
	PerformanceViral:    4,
	PerformanceComeback: 3,
	PerformanceFlop:     3,
}

// SongAge is the number of weeks since release, 0 for unreleased songs.
func SongAge(song Song, week int) int {
	if !song.Released {
		return 0
	}
	age := week - song.ReleaseWeek
	if age < 0 {
		return 0
	}
	return age
}

func GuaranteedActiveWeeks(tier int) int {
	return guaranteedActiveWeeks[clampTier(tier)]
}

func performanceOf(song Song) PerformanceType {
	switch song.PerformanceType {
	case PerformanceViral, PerformanceFlop, PerformanceComeback:
		return song.PerformanceType
	default:
		return PerformanceNormal
	}
}

// ClassifyPerformance decides the song's classification for week. It always
// consumes exactly two draws from rnd so the stream stays aligned across
// branches.
func ClassifyPerformance(song Song, week, reputation int, rnd *mathrand.Rand) PerformanceType {
	breakoutRoll := rnd.Float64()
	flopRoll := rnd.Float64()

	current := performanceOf(song)
	held := week - song.PerformanceStatusWeek
	if current != PerformanceNormal {
		if held >= performanceWindow[current] {
			return PerformanceNormal
		}
		return current
	}
	if held < classificationCooldown {
		return PerformanceNormal
	}

	age := SongAge(song, week)
	viral, comeback := breakoutChances(song.Tier, reputation, age)
	if breakoutRoll < viral {
		return PerformanceViral
	}
	if breakoutRoll < viral+comeback {
		return PerformanceComeback
	}
	if flopRoll < flopChance(song.Tier, reputation, age) {
		return PerformanceFlop
	}
	return PerformanceNormal
}

func breakoutChances(tier, reputation, age int) (viral, comeback float64) {
	tier = clampTier(tier)
	reputation = clampStat(reputation)
	freshness := math.Max(0.25, 1-float64(age)*0.04)
	viral = (0.01 + 0.012*float64(tier-1) + float64(reputation)*0.0005) * freshness
	if age >= 12 {
		comeback = 0.004 + 0.003*float64(tier) + float64(reputation)*0.0002
	}
	return viral, comeback
}

func flopChance(tier, reputation, age int) float64 {
	if age > 10 {
		return 0
	}
	tier = clampTier(tier)
	reputation = clampStat(reputation)
	return math.Max(0, 0.10-0.018*float64(tier)-float64(reputation)*0.0005)
}

// StaysActive reports whether a released song keeps accruing growth after
// this week's computation.
func StaysActive(song Song, week int, growth int64) bool {
	if !song.Released || !song.IsActive {
		return false
	}
	perf := performanceOf(song)
	if perf == PerformanceViral || perf == PerformanceComeback || clampTier(song.Tier) >= 3 {
		return true
	}
	if SongAge(song, week) <= GuaranteedActiveWeeks(song.Tier) {
		return true
	}
	return growth > 0 || song.Hype > 0
}
