package game

import (
	"fmt"
	mathrand "math/rand"
	"testing"
)

func sumAllocations(allocs []Allocation) int64 {
	var total int64
	for _, a := range allocs {
		total += a.Streams
	}
	return total
}

func TestDistributeConservesGrowth(t *testing.T) {
	all, _ := ReleaseTargets([]string{"Streamify", "Tunevault", "ClipTube", "Soundwave", "PrimeBeats", "HiFiHaus"})
	perfs := []PerformanceType{PerformanceNormal, PerformanceViral, PerformanceFlop, PerformanceComeback}
	rnd := mathrand.New(mathrand.NewSource(11))
	for i := 0; i < 3000; i++ {
		n := 1 + rnd.Intn(len(all))
		platforms := all[:n]
		growth := int64(rnd.Intn(2_000_000))
		if i%7 == 0 {
			growth = int64(rnd.Intn(12))
		}
		songID := fmt.Sprintf("song-%d", i%37)
		allocs := Distribute(songID, growth, platforms, perfs[i%len(perfs)], 0.3, rnd)
		if len(allocs) != n {
			t.Fatalf("got %d allocations want %d", len(allocs), n)
		}
		if got := sumAllocations(allocs); got != growth {
			t.Fatalf("iteration %d: sum=%d growth=%d allocs=%v", i, got, growth, allocs)
		}
		for _, a := range allocs {
			if a.Streams < 0 {
				t.Fatalf("negative allocation %v", allocs)
			}
		}
	}
}

func TestDistributeFloorAndDistinct(t *testing.T) {
	platforms, _ := ReleaseTargets([]string{"Streamify", "Tunevault", "ClipTube", "Soundwave", "PrimeBeats", "HiFiHaus"})
	for seed := int64(0); seed < 200; seed++ {
		growth := int64(10_000 + seed*137)
		allocs := Distribute("floor-song", growth, platforms, PerformanceViral, 0.3, mathrand.New(mathrand.NewSource(seed)))
		floor := distributionFloor(growth, len(platforms))
		seen := map[int64]bool{}
		for _, a := range allocs {
			if a.Streams < floor {
				t.Fatalf("seed=%d %s got %d below floor %d", seed, a.Platform, a.Streams, floor)
			}
			if seen[a.Streams] {
				t.Fatalf("seed=%d duplicate allocation %d in %v", seed, a.Streams, allocs)
			}
			seen[a.Streams] = true
		}
	}
}

func TestDistributeZeroGrowth(t *testing.T) {
	allocs := Distribute("s", 0, corePlatforms, PerformanceNormal, 0.3, mathrand.New(mathrand.NewSource(1)))
	for _, a := range allocs {
		if a.Streams != 0 {
			t.Fatalf("expected zero allocations, got %v", allocs)
		}
	}
}

func TestDistributeConsumesFixedDraws(t *testing.T) {
	a := mathrand.New(mathrand.NewSource(5))
	b := mathrand.New(mathrand.NewSource(5))
	Distribute("x", 0, corePlatforms, PerformanceNormal, 0.3, a)
	Distribute("y", 50_000, corePlatforms, PerformanceViral, 0.3, b)
	if a.Float64() != b.Float64() {
		t.Fatalf("distribution consumed a different number of draws")
	}
}

func TestPlatformBiasIsStable(t *testing.T) {
	for _, p := range corePlatforms {
		first := PlatformBias("song-1", p)
		if first < 0.75 || first >= 1.25 {
			t.Fatalf("bias %f out of range", first)
		}
		if again := PlatformBias("song-1", p); again != first {
			t.Fatalf("bias changed between calls: %f vs %f", first, again)
		}
	}
	if PlatformBias("song-1", "Streamify") == PlatformBias("song-2", "Streamify") {
		t.Fatalf("expected different songs to skew differently")
	}
}

func TestViralPlatformsDeterministic(t *testing.T) {
	first := ViralPlatforms("hit", corePlatforms)
	if len(first) < 1 || len(first) > 2 {
		t.Fatalf("expected 1-2 viral platforms, got %v", first)
	}
	for i := 0; i < 10; i++ {
		again := ViralPlatforms("hit", corePlatforms)
		if fmt.Sprint(again) != fmt.Sprint(first) {
			t.Fatalf("viral platforms changed: %v vs %v", first, again)
		}
	}
}

func TestReleaseTargets(t *testing.T) {
	known, unknown := ReleaseTargets([]string{"cliptube", "Streamify", "Nowhere", "STREAMIFY"})
	if fmt.Sprint(known) != "[Streamify ClipTube]" {
		t.Fatalf("known = %v", known)
	}
	if fmt.Sprint(unknown) != "[Nowhere]" {
		t.Fatalf("unknown = %v", unknown)
	}
}

func TestSeparateAllocations(t *testing.T) {
	tests := []struct {
		name   string
		in     []int64
		minVal int64
	}{
		{"pair tie", []int64{50, 50, 100}, 1},
		{"all tied", []int64{40, 40, 40, 40}, 1},
		{"tie at top", []int64{10, 70, 70}, 1},
		{"already distinct", []int64{1, 2, 3}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			values := append([]int64(nil), tc.in...)
			var want int64
			for _, v := range tc.in {
				want += v
			}
			separateAllocations(values, tc.minVal)
			var got int64
			seen := map[int64]bool{}
			for _, v := range values {
				got += v
				if v < tc.minVal {
					t.Fatalf("value %d below min", v)
				}
				if seen[v] {
					t.Fatalf("duplicate %d in %v", v, values)
				}
				seen[v] = true
			}
			if got != want {
				t.Fatalf("sum changed %d -> %d", want, got)
			}
		})
	}
}

func TestSeparateAllocationsTooSmallLeavesInput(t *testing.T) {
	values := []int64{0, 1, 0}
	separateAllocations(values, 0)
	if fmt.Sprint(values) != "[0 1 0]" {
		t.Fatalf("expected input untouched, got %v", values)
	}
}

func TestSeparatePlatformTotals(t *testing.T) {
	totals := []int64{100, 100, 101, 0, 0}
	grew := []bool{true, true, false, false, false}
	bumps := SeparatePlatformTotals(totals, grew)
	final := map[int64]int{}
	for i, v := range totals {
		final[v+bumps[i]]++
	}
	for i := range totals {
		if grew[i] && final[totals[i]+bumps[i]] != 1 {
			t.Fatalf("platform %d total %d not unique (bumps %v)", i, totals[i]+bumps[i], bumps)
		}
		if !grew[i] && bumps[i] != 0 {
			t.Fatalf("non-growing platform %d was bumped", i)
		}
	}
	if bumps[0] != 0 || bumps[1] != 2 {
		t.Fatalf("expected deterministic bumps [0 2 ...], got %v", bumps)
	}
}

func TestListenerRatioTiers(t *testing.T) {
	if got := ListenerRatio(500_000); got != 3 {
		t.Fatalf("early ratio %f", got)
	}
	if got := ListenerRatio(50_000_000); got != 5 {
		t.Fatalf("mid ratio %f", got)
	}
	if got := ListenerRatio(100_000_000); got != 8 {
		t.Fatalf("scale ratio start %f", got)
	}
	if got := ListenerRatio(100_000_000_000); got != 15 {
		t.Fatalf("scale ratio cap %f", got)
	}
}

func TestNextListenersBoundedDecay(t *testing.T) {
	got := NextListeners(100_000, 50_000_000, 0, 0.10)
	if got != 90_000 {
		t.Fatalf("expected 10%% max drop to 90000, got %d", got)
	}
	got = NextListeners(0, 300, 300, 0.10)
	if got != 300 {
		t.Fatalf("listeners must not exceed total streams, got %d", got)
	}
	got = NextListeners(10, 10_000_000, 5_000_000, 0.10)
	if got != 1_020 {
		t.Fatalf("expected rise capped at 2x+1000, got %d", got)
	}
}
