package game

import (
	"math"
	mathrand "math/rand"
	"sort"
)

type Allocation struct {
	Platform string `json:"platform"`
	Streams  int64  `json:"streams"`
}

const (
	viralPlatformBoost    = 1.6
	comebackPlatformBoost = 1.3
)

// ReleaseTargets canonicalizes and dedupes a song's release platforms,
// returning them in catalog order plus any names the catalog does not know.
func ReleaseTargets(platforms []string) (known []string, unknown []string) {
	seen := make(map[int]bool, len(platforms))
	idx := make([]int, 0, len(platforms))
	for _, name := range platforms {
		i := catalogIndex(name)
		if i < 0 {
			unknown = append(unknown, name)
			continue
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		idx = append(idx, i)
	}
	sort.Ints(idx)
	known = make([]string, 0, len(idx))
	for _, i := range idx {
		known = append(known, platformCatalog[i].Name)
	}
	return known, unknown
}

// PlatformBias is the stable per-(song, platform) listener skew in [0.75, 1.25).
func PlatformBias(songID, platform string) float64 {
	return 0.75 + 0.5*hashUnit(songID, platform)
}

// ViralPlatforms picks the one or two platforms a viral song concentrates on.
// The choice depends only on the song id and the candidate set.
func ViralPlatforms(songID string, platforms []string) []string {
	if len(platforms) == 0 {
		return nil
	}
	ranked := append([]string(nil), platforms...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return stableHash(songID, ranked[i], "viral") < stableHash(songID, ranked[j], "viral")
	})
	count := 1 + int(stableHash(songID, "viral-count")%2)
	if count > len(ranked) {
		count = len(ranked)
	}
	return ranked[:count]
}

// Distribute splits a song's weekly growth across its release platforms.
// platforms must already be canonical and deduplicated (see ReleaseTargets).
// The allocations sum to growth exactly, are never negative, and it always
// consumes exactly len(platforms) draws from rnd.
func Distribute(songID string, growth int64, platforms []string, perf PerformanceType, jitter float64, rnd *mathrand.Rand) []Allocation {
	n := len(platforms)
	if n == 0 {
		return nil
	}
	out := make([]Allocation, n)
	rolls := make([]float64, n)
	for i, name := range platforms {
		out[i].Platform = name
		rolls[i] = rnd.Float64()
	}
	if growth <= 0 {
		return out
	}
	if jitter <= 0 || jitter >= 1 {
		jitter = DefaultTuning().DistributionJitter
	}

	weights := make([]float64, n)
	for i, name := range platforms {
		share := MarketShare(name)
		if share <= 0 {
			share = 1 / float64(len(platformCatalog))
		}
		weights[i] = share * PlatformBias(songID, name) * (1 + (rolls[i]*2-1)*jitter)
	}
	applyPerformanceBonus(weights, songID, platforms, perf)

	floor := distributionFloor(growth, n)
	exact := floorWeighted(weights, float64(growth), float64(floor))
	values := largestRemainder(exact, growth)
	separateAllocations(values, floor)
	for i := range out {
		out[i].Streams = values[i]
	}
	return out
}

func applyPerformanceBonus(weights []float64, songID string, platforms []string, perf PerformanceType) {
	switch perf {
	case PerformanceViral:
		for _, hot := range ViralPlatforms(songID, platforms) {
			for i, name := range platforms {
				if name == hot {
					weights[i] *= viralPlatformBoost
				}
			}
		}
	case PerformanceComeback:
		best, bestBias := -1, 0.0
		for i, name := range platforms {
			if b := PlatformBias(songID, name); best < 0 || b > bestBias {
				best, bestBias = i, b
			}
		}
		if best >= 0 {
			weights[best] *= comebackPlatformBoost
		}
	case PerformanceFlop:
		// A flop has no loyal pocket of listeners; pull weights back toward the raw share.
		for i, name := range platforms {
			weights[i] = (weights[i] + MarketShare(name)) / 2
		}
	}
}

// distributionFloor is 1% of growth, at least one stream, relaxed when the
// growth is too small to give every platform that much.
func distributionFloor(growth int64, n int) int64 {
	if n <= 0 || growth <= 0 {
		return 0
	}
	floor := int64(math.Ceil(float64(growth) * 0.01))
	if floor < 1 {
		floor = 1
	}
	if floor*int64(n) > growth {
		floor = growth / int64(n)
	}
	return floor
}

// floorWeighted splits total by weights while holding every share at or
// above floor. Platforms pinned to the floor are removed from the weighted
// pool and the rest is re-split until stable.
func floorWeighted(weights []float64, total, floor float64) []float64 {
	n := len(weights)
	out := make([]float64, n)
	pinned := make([]bool, n)
	for range n {
		var pool float64
		pinnedCount := 0
		for i, w := range weights {
			if pinned[i] {
				pinnedCount++
				continue
			}
			if w > 0 {
				pool += w
			}
		}
		remaining := total - floor*float64(pinnedCount)
		changed := false
		for i, w := range weights {
			if pinned[i] {
				out[i] = floor
				continue
			}
			v := 0.0
			if pool > 0 && w > 0 {
				v = remaining * w / pool
			} else if free := n - pinnedCount; free > 0 {
				v = remaining / float64(free)
			}
			if v < floor {
				pinned[i] = true
				changed = true
			}
			out[i] = v
		}
		if !changed {
			return out
		}
	}
	for i := range out {
		if pinned[i] {
			out[i] = floor
		}
	}
	return out
}

// largestRemainder rounds exact shares to integers summing to total.
// Ties go to the earlier index.
func largestRemainder(exact []float64, total int64) []int64 {
	n := len(exact)
	out := make([]int64, n)
	var assigned int64
	for i, v := range exact {
		if v < 0 || math.IsNaN(v) {
			v = 0
		}
		out[i] = int64(math.Floor(v))
		assigned += out[i]
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		fa := exact[order[a]] - math.Floor(exact[order[a]])
		fb := exact[order[b]] - math.Floor(exact[order[b]])
		return fa > fb
	})
	for k := 0; assigned < total && n > 0; k++ {
		out[order[k%n]]++
		assigned++
	}
	for k := n - 1; assigned > total && n > 0; k-- {
		i := order[(k%n+n)%n]
		if out[i] > 0 {
			out[i]--
			assigned--
		}
	}
	return out
}

// separateAllocations makes every value distinct while keeping the sum and
// keeping each value at or above minVal. Sorted ascending, each collision is
// raised by one past its neighbour; the surplus is then taken back from the
// top down without closing any gap. If the total is too small to hold n
// distinct values the input is left as is.
func separateAllocations(values []int64, minVal int64) {
	n := len(values)
	if n < 2 {
		return
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})
	original := append([]int64(nil), values...)

	var surplus int64
	for k := 1; k < n; k++ {
		prev := values[order[k-1]]
		if cur := values[order[k]]; cur <= prev {
			values[order[k]] = prev + 1
			surplus += prev + 1 - cur
		}
	}
	for k := n - 1; k >= 0 && surplus > 0; k-- {
		lower := minVal
		if k > 0 {
			lower = values[order[k-1]] + 1
		}
		room := values[order[k]] - lower
		if room <= 0 {
			continue
		}
		take := min(room, surplus)
		values[order[k]] -= take
		surplus -= take
	}
	if surplus > 0 {
		copy(values, original)
	}
}

// SeparatePlatformTotals returns per-platform increments that make the
// totals of platforms that grew this week distinct from every other
// platform total. Platforms that did not grow are fixed points. Growing
// platforms are visited in ascending (total, index) order and bumped by one
// until free, so the outcome is reproducible.
func SeparatePlatformTotals(totals []int64, grew []bool) []int64 {
	bumps := make([]int64, len(totals))
	taken := make(map[int64]bool, len(totals))
	var growing []int
	for i, total := range totals {
		if grew[i] {
			growing = append(growing, i)
			continue
		}
		taken[total] = true
	}
	sort.SliceStable(growing, func(a, b int) bool {
		return totals[growing[a]] < totals[growing[b]]
	})
	for _, i := range growing {
		v := totals[i]
		for taken[v] {
			v++
		}
		taken[v] = true
		bumps[i] = v - totals[i]
	}
	return bumps
}

// ListenerRatio is the streams-per-listener ratio for a platform carrying total streams.
func ListenerRatio(total int64) float64 {
	switch {
	case total < 1_000_000:
		return 3
	case total < 100_000_000:
		return 5
	default:
		scale := math.Log10(float64(total)/1e8) / 2
		return 8 + 7*math.Min(1, math.Max(0, scale))
	}
}

// NextListeners estimates monthly listeners from the last four weeks of
// activity (approximated by weekly*4) and limits how fast it can move.
func NextListeners(prev, total, weekly int64, maxDrop float64) int64 {
	if prev < 0 {
		prev = 0
	}
	if weekly < 0 {
		weekly = 0
	}
	target := int64(float64(weekly*4) / ListenerRatio(total))
	if target > total {
		target = total
	}
	if target < prev {
		floor := prev - int64(float64(prev)*maxDrop)
		if target < floor {
			target = floor
		}
	} else if ceiling := prev*2 + 1_000; target > ceiling {
		target = ceiling
	}
	if target < 0 {
		return 0
	}
	return target
}
