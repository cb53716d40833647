package game

import (
	mathrand "math/rand"
	"testing"
)

func TestTrendMultiplier(t *testing.T) {
	tests := []struct {
		kind   TrendType
		impact int
		want   float64
	}{
		{TrendRising, 5, 1.15},
		{TrendFalling, 5, 0.85},
		{TrendFalling, 10, 0.7},
		{TrendHot, 10, 1.5},
		{TrendStable, 3, 1.03},
		{TrendType("unknown"), 5, 1},
	}
	for _, tc := range tests {
		got := TrendMultiplier(MarketTrend{Type: tc.kind, ImpactFactor: tc.impact})
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("%s impact=%d got=%f want=%f", tc.kind, tc.impact, got, tc.want)
		}
	}
}

func TestTrendEffectDefaultsToOne(t *testing.T) {
	if got := TrendEffect(nil, "Streamify"); got != 1 {
		t.Fatalf("expected 1.0 with no trends, got %f", got)
	}
}

func TestTrendEffectMultipliesOverlappingTrends(t *testing.T) {
	trends := []MarketTrend{
		{Type: TrendRising, ImpactFactor: 10, AffectedPlatforms: []string{"Streamify", "ClipTube"}},
		{Type: TrendHot, ImpactFactor: 2, AffectedPlatforms: []string{"Streamify"}},
	}
	got := TrendEffect(trends, "Streamify")
	want := 1.3 * 1.1
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("got %f want %f", got, want)
	}
	if got := TrendEffect(trends, "Tunevault"); got != 1 {
		t.Fatalf("unaffected platform got %f", got)
	}
}

func TestTrendExpiry(t *testing.T) {
	s := NewGameState("x")
	s.ActiveTrends = []MarketTrend{{
		ID:                "t1",
		Type:              TrendHot,
		ImpactFactor:      10,
		AffectedPlatforms: []string{"Streamify"},
		StartWeek:         10,
		Duration:          4,
	}}
	for week := 10; week <= 13; week++ {
		if expired := s.AgeTrends(week); len(expired) != 0 {
			t.Fatalf("week %d: trend expired early", week)
		}
		if TrendEffect(s.ActiveTrends, "Streamify") == 1 {
			t.Fatalf("week %d: trend should still apply", week)
		}
	}
	expired := s.AgeTrends(14)
	if len(expired) != 1 || expired[0].ID != "t1" {
		t.Fatalf("week 14: expected t1 to expire, got %v", expired)
	}
	if len(s.ActiveTrends) != 0 || len(s.TrendHistory) != 1 {
		t.Fatalf("expected trend moved to history, active=%d history=%d", len(s.ActiveTrends), len(s.TrendHistory))
	}
	if got := TrendEffect(s.ActiveTrends, "Streamify"); got != 1 {
		t.Fatalf("expired trend still applies: %f", got)
	}
}

func TestGenerateTrendBounds(t *testing.T) {
	names := make([]string, 0, len(platformCatalog))
	for _, p := range platformCatalog {
		names = append(names, p.Name)
	}
	rnd := mathrand.New(mathrand.NewSource(99))
	for i := 0; i < 500; i++ {
		tr := GenerateTrend(7, names, rnd)
		if tr.ImpactFactor < 1 || tr.ImpactFactor > 10 {
			t.Fatalf("impact %d", tr.ImpactFactor)
		}
		if tr.Duration < 2 || tr.Duration > 8 {
			t.Fatalf("duration %d", tr.Duration)
		}
		if n := len(tr.AffectedPlatforms); n < 1 || n > 3 {
			t.Fatalf("affected %d", n)
		}
		seen := map[string]bool{}
		for _, p := range tr.AffectedPlatforms {
			if seen[p] {
				t.Fatalf("duplicate platform %s", p)
			}
			seen[p] = true
		}
		if tr.StartWeek != 7 || tr.ID == "" {
			t.Fatalf("bad trend %+v", tr)
		}
	}
}

func TestApplyTrendEffectKeepsPositive(t *testing.T) {
	if got := applyTrendEffect(1, 0.7); got != 1 {
		t.Fatalf("got %d", got)
	}
	if got := applyTrendEffect(0, 1.5); got != 0 {
		t.Fatalf("got %d", got)
	}
	if got := applyTrendEffect(1000, 1.5); got != 1500 {
		t.Fatalf("got %d", got)
	}
}
