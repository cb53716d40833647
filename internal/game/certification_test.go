package game

import (
	mathrand "math/rand"
	"testing"
)

func TestCareerLevelFor(t *testing.T) {
	tests := []struct {
		total int64
		want  int
	}{
		{0, 1},
		{99_999, 1},
		{100_000, 2},
		{999_999, 2},
		{1_000_000, 3},
		{10_000_000, 4},
		{9_999_999_999, 9},
		{10_000_000_000, 10},
		{50_000_000_000, 10},
	}
	for _, tc := range tests {
		if got := CareerLevelFor(tc.total); got != tc.want {
			t.Fatalf("total=%d got=%d want=%d", tc.total, got, tc.want)
		}
	}
	if CareerLevelName(3) != "Rising Star" {
		t.Fatalf("level 3 name = %q", CareerLevelName(3))
	}
}

func TestRatchetCareerLevel(t *testing.T) {
	if got := RatchetCareerLevel(5, 10); got != 5 {
		t.Fatalf("level dropped to %d", got)
	}
	if got := RatchetCareerLevel(2, 1_000_000); got != 3 {
		t.Fatalf("level did not rise: %d", got)
	}
}

func countCerts(s *GameState, entityID string, kind CertificationType) int {
	n := 0
	for _, c := range s.Certifications {
		if c.EntityID == entityID && c.Type == kind {
			n++
		}
	}
	return n
}

func TestCertificationThresholds(t *testing.T) {
	s := stateWith(20, releasedSong("below", 3, 499_999, 1, corePlatforms))
	if issued := s.EvaluateCertifications(); len(issued) != 0 {
		t.Fatalf("expected no certification below 500k, got %v", issued)
	}

	s.Songs[0].Streams = 500_000
	issued := s.EvaluateCertifications()
	if len(issued) != 1 || issued[0].Type != CertGold {
		t.Fatalf("expected one gold, got %v", issued)
	}
	if again := s.EvaluateCertifications(); len(again) != 0 {
		t.Fatalf("re-evaluation issued duplicates: %v", again)
	}

	s.Songs[0].Streams = 10_000_000
	issued = s.EvaluateCertifications()
	if len(issued) != 6 {
		t.Fatalf("expected platinum through diamond (6), got %d", len(issued))
	}
	if countCerts(s, "below", CertGold) != 1 || countCerts(s, "below", CertDiamond) != 1 {
		t.Fatalf("unexpected certification ledger: %v", s.Certifications)
	}
}

func TestCertificationSkipsUnreleased(t *testing.T) {
	song := releasedSong("demo", 3, 2_000_000, 1, corePlatforms)
	song.Released = false
	s := stateWith(5, song)
	if issued := s.EvaluateCertifications(); len(issued) != 0 {
		t.Fatalf("unreleased song certified: %v", issued)
	}
}

func TestAlbumCertification(t *testing.T) {
	s := stateWith(30,
		releasedSong("a", 3, 300_000, 1, corePlatforms),
		releasedSong("b", 3, 300_000, 1, corePlatforms),
	)
	s.Albums = []Album{{ID: "alb", Title: "Debut", SongIDs: []string{"a", "b", "ghost"}, Released: true, ReleaseWeek: 1}}
	s.refreshAlbums(quietLogger())
	if s.Albums[0].Streams != 600_000 {
		t.Fatalf("album streams %d", s.Albums[0].Streams)
	}
	s.EvaluateCertifications()
	if countCerts(s, "alb", CertGold) != 1 {
		t.Fatalf("album not certified gold")
	}
	if countCerts(s, "a", CertGold) != 0 {
		t.Fatalf("song certified below threshold")
	}
}

func TestAwardsOnlyOnShowWeeks(t *testing.T) {
	s := stateWith(7, releasedSong("hit", 5, 9_000_000, 2, corePlatforms))
	if got := s.EvaluateAwards(mathrand.New(mathrand.NewSource(1)), 0.3); len(got) != 0 {
		t.Fatalf("awards outside show week: %v", got)
	}
	if _, ok := AwardShowAt(6); !ok {
		t.Fatalf("expected a show in week 6")
	}
	if _, ok := AwardShowAt(6 + WeeksPerYear); !ok {
		t.Fatalf("expected the show to repeat the next year")
	}
}

func TestAwardsEligibilityAndIdempotency(t *testing.T) {
	stale := releasedSong("old", 5, 9_000_000, 1, corePlatforms)
	fresh := releasedSong("new", 5, 9_000_000, 58, corePlatforms)
	s := stateWith(58, stale, fresh)
	// week 58 is week 6 of year 2
	s.Stats.Reputation = 100

	nominated := 0
	for seed := int64(0); seed < 40 && nominated == 0; seed++ {
		trial := s.Clone()
		awards := trial.EvaluateAwards(mathrand.New(mathrand.NewSource(seed)), 0.3)
		for _, a := range awards {
			if a.EntityID == "old" {
				t.Fatalf("song released 57 weeks ago was nominated")
			}
			if a.Year != 2 || a.Show != "Grammy Awards" {
				t.Fatalf("unexpected award %+v", a)
			}
		}
		if len(awards) > 0 {
			nominated++
			if again := trial.EvaluateAwards(mathrand.New(mathrand.NewSource(seed)), 0.3); len(again) != 0 {
				t.Fatalf("category awarded twice in one year: %v", again)
			}
		}
	}
	if nominated == 0 {
		t.Fatalf("expected at least one nomination across seeds")
	}
}

func TestAwardWinProbability(t *testing.T) {
	wins, total := 0, 0
	for seed := int64(0); seed < 4000; seed++ {
		s := stateWith(6, releasedSong("hit", 5, 9_000_000, 1, corePlatforms))
		s.Stats.Reputation = 100
		for _, a := range s.EvaluateAwards(mathrand.New(mathrand.NewSource(seed)), 0.3) {
			total++
			if a.Won {
				wins++
			}
		}
	}
	if total == 0 {
		t.Fatalf("no nominations")
	}
	rate := float64(wins) / float64(total)
	if rate < 0.25 || rate > 0.35 {
		t.Fatalf("win rate %.3f far from 0.30", rate)
	}
}
