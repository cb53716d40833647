package game

import (
	"math"
	mathrand "math/rand"
)

// tierBaseStreams is the weekly stream base of a brand new song, by tier.
var tierBaseStreams = [...]float64{0, 800, 3_000, 12_000, 40_000, 120_000}

const (
	momentumRate = 0.03
	// momentumCap bounds momentum as a multiple of the tier base.
	momentumCap = 3.0
)

type GrowthInput struct {
	Tier        int
	Age         int
	Performance PerformanceType
	Hype        int64
	Streams     int64
}

func GrowthInputFor(song Song, week int) GrowthInput {
	return GrowthInput{
		Tier:        song.Tier,
		Age:         SongAge(song, week),
		Performance: performanceOf(song),
		Hype:        song.Hype,
		Streams:     song.Streams,
	}
}

func DecayFactor(age int, perWeek float64) float64 {
	if age < 0 {
		age = 0
	}
	return math.Max(0.1, 1-float64(age)*perWeek)
}

// PerformanceMultiplier maps a classification and a roll in [0,1) onto its
// growth multiplier range.
func PerformanceMultiplier(perf PerformanceType, roll float64) float64 {
	switch perf {
	case PerformanceViral:
		return 2.5 + 0.5*roll
	case PerformanceComeback:
		return 2.0 + 0.5*roll
	case PerformanceFlop:
		return 0.2 + 0.3*roll
	default:
		return 1.0
	}
}

// jitterSpan is ±40% for tier 1 narrowing to ±20% for tier 5.
func jitterSpan(tier int) float64 {
	return 0.40 - 0.05*float64(clampTier(tier)-1)
}

// CalculateGrowth returns the raw weekly stream delta for a song. It always
// consumes exactly two draws from rnd.
func CalculateGrowth(in GrowthInput, tuning Tuning, rnd *mathrand.Rand) int64 {
	jitterRoll := rnd.Float64()
	perfRoll := rnd.Float64()
	tuning = tuning.normalized()

	tier := clampTier(in.Tier)
	decay := DecayFactor(in.Age, tuning.DecayPerWeek)
	base := tierBaseStreams[tier] * decay

	streams := in.Streams
	if streams < 0 {
		streams = 0
	}
	momentum := math.Min(float64(streams)*momentumRate*decay, tierBaseStreams[tier]*momentumCap)

	raw := (base + momentum) * PerformanceMultiplier(in.Performance, perfRoll)
	raw *= 1 + (jitterRoll*2-1)*jitterSpan(tier)
	if raw < float64(tuning.MinAudibleGrowth) {
		raw = 0
	}
	if in.Hype > 0 {
		raw += float64(in.Hype) * float64(tuning.HypeStreamsPerPoint)
	}
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0
	}
	return int64(math.Round(raw))
}

// consumeHype halves the remaining hype; it reaches zero in a handful of weeks.
func consumeHype(hype int64) int64 {
	if hype <= 1 {
		return 0
	}
	return hype / 2
}
