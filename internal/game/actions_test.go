package game

import (
	"encoding/json"
	"errors"
	"testing"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

func TestCreateSongChargesCost(t *testing.T) {
	s := NewGameState("A")
	song, err := s.CreateSong(CreateSongInput{Title: "  First Light ", Tier: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if song.Title != "First Light" || song.Released || song.ID == "" {
		t.Fatalf("unexpected song %+v", song)
	}
	if want := StarterWealthMicros - 500*MicrosPerDollar; s.Stats.WealthMicros != want {
		t.Fatalf("wealth %d want %d", s.Stats.WealthMicros, want)
	}
}

func TestRejectedActionsLeaveStateUntouched(t *testing.T) {
	base := NewGameState("A")
	demo, err := base.CreateSong(CreateSongInput{Title: "Demo", Tier: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		name string
		run  func(*GameState) error
		want error
	}{
		{"tier too high", func(s *GameState) error {
			_, err := s.CreateSong(CreateSongInput{Title: "X", Tier: 6})
			return err
		}, ErrInvalidTier},
		{"cannot afford", func(s *GameState) error {
			_, err := s.CreateSong(CreateSongInput{Title: "X", Tier: 5})
			return err
		}, ErrInsufficientFunds},
		{"blocked title", func(s *GameState) error {
			_, err := s.CreateSong(CreateSongInput{Title: "admin song", Tier: 1})
			return err
		}, ErrInvalidName},
		{"unknown platform", func(s *GameState) error {
			_, err := s.ReleaseSong(ReleaseInput{ID: demo.ID, Platforms: []string{"Streamify", "Nowhere"}})
			return err
		}, ErrUnknownPlatform},
		{"locked platform", func(s *GameState) error {
			_, err := s.ReleaseSong(ReleaseInput{ID: demo.ID, Platforms: []string{"HiFiHaus"}})
			return err
		}, ErrPlatformLocked},
		{"no platforms", func(s *GameState) error {
			_, err := s.ReleaseSong(ReleaseInput{ID: demo.ID})
			return err
		}, ErrNoPlatforms},
		{"missing song", func(s *GameState) error {
			_, err := s.ReleaseSong(ReleaseInput{ID: "nope", Platforms: corePlatforms})
			return err
		}, ErrSongNotFound},
		{"promote unreleased", func(s *GameState) error {
			_, err := s.PromoteSong(PromoteInput{SongID: demo.ID, Type: "radio", BudgetMicros: MicrosPerDollar})
			return err
		}, ErrNotReleased},
		{"promote bad type", func(s *GameState) error {
			_, err := s.PromoteSong(PromoteInput{SongID: demo.ID, Type: "blimp", BudgetMicros: MicrosPerDollar})
			return err
		}, ErrInvalidPromotion},
		{"promote zero budget", func(s *GameState) error {
			_, err := s.PromoteSong(PromoteInput{SongID: demo.ID, Type: "radio"})
			return err
		}, ErrInvalidBudget},
		{"album too small", func(s *GameState) error {
			_, err := s.CreateAlbum(CreateAlbumInput{Title: "EP", SongIDs: []string{demo.ID, demo.ID}})
			return err
		}, ErrAlbumTrackCount},
		{"release missing album", func(s *GameState) error {
			_, err := s.ReleaseAlbum(ReleaseInput{ID: "nope", Platforms: corePlatforms})
			return err
		}, ErrAlbumNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := base.Clone()
			before := mustJSON(t, s)
			err := tc.run(s)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v want %v", err, tc.want)
			}
			if after := mustJSON(t, s); after != before {
				t.Fatalf("rejected action mutated state")
			}
		})
	}
}

func TestReleaseSongAddsHypeOnce(t *testing.T) {
	s := NewGameState("A")
	song, _ := s.CreateSong(CreateSongInput{Title: "Out Now", Tier: 1})
	released, err := s.ReleaseSong(ReleaseInput{ID: song.ID, Platforms: []string{"streamify", "ClipTube"}})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !released.Released || !released.IsActive || released.ReleaseWeek != 0 {
		t.Fatalf("unexpected release %+v", released)
	}
	if released.Hype != int64(s.Stats.FanLoyalty)*releaseHypePerLoyalty {
		t.Fatalf("hype %d", released.Hype)
	}
	if len(released.ReleasePlatforms) != 2 || released.ReleasePlatforms[0] != "Streamify" {
		t.Fatalf("platforms not canonicalised: %v", released.ReleasePlatforms)
	}
	if _, err := s.ReleaseSong(ReleaseInput{ID: song.ID, Platforms: corePlatforms}); !errors.Is(err, ErrAlreadyReleased) {
		t.Fatalf("second release: %v", err)
	}
}

func TestPromoteSong(t *testing.T) {
	s := stateWith(4, catalogSong("a", 2, 1_000, 1))
	wealth := s.Stats.WealthMicros
	song, err := s.PromoteSong(PromoteInput{SongID: "a", Type: "Radio", BudgetMicros: 100 * MicrosPerDollar})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if song.Hype < 95 || song.Hype > 96 {
		t.Fatalf("hype %d", song.Hype)
	}
	if s.Stats.WealthMicros != wealth-100*MicrosPerDollar {
		t.Fatalf("budget not charged")
	}

	if _, err := s.PromoteSong(PromoteInput{SongID: "a", Type: "tour", BudgetMicros: MicrosPerDollar}); !errors.Is(err, ErrPromotionLocked) {
		t.Fatalf("tour should require career level 3, got %v", err)
	}

	s.Songs[0].IsActive = false
	if _, err := s.PromoteSong(PromoteInput{SongID: "a", Type: "social", BudgetMicros: MicrosPerDollar}); !errors.Is(err, ErrSongInactive) {
		t.Fatalf("inactive promote: %v", err)
	}
}

func TestAddFeature(t *testing.T) {
	s := NewGameState("A")
	song, _ := s.CreateSong(CreateSongInput{Title: "Duet", Tier: 1})
	if _, err := s.AddFeature(FeatureInput{SongID: song.ID, Artist: "Nova Ray", FeeMicros: 100 * MicrosPerDollar}); err != nil {
		t.Fatalf("feature: %v", err)
	}
	if _, err := s.AddFeature(FeatureInput{SongID: song.ID, Artist: "nova ray"}); !errors.Is(err, ErrDuplicateFeature) {
		t.Fatalf("duplicate feature: %v", err)
	}
	got, _ := s.Song(song.ID)
	if len(got.Featuring) != 1 || got.Hype < 109 || got.Hype > 110 {
		t.Fatalf("unexpected song %+v", got)
	}

	if _, err := s.ReleaseSong(ReleaseInput{ID: song.ID, Platforms: corePlatforms}); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := s.AddFeature(FeatureInput{SongID: song.ID, Artist: "Late Guest"}); !errors.Is(err, ErrFeatureAfterRelease) {
		t.Fatalf("feature after release: %v", err)
	}
}

func TestAlbumLifecycle(t *testing.T) {
	s := NewGameState("A")
	var ids []string
	for _, title := range []string{"One", "Two", "Three"} {
		song, err := s.CreateSong(CreateSongInput{Title: title, Tier: 1})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, song.ID)
	}
	if _, err := s.ReleaseSong(ReleaseInput{ID: ids[0], Platforms: corePlatforms}); err != nil {
		t.Fatalf("release single: %v", err)
	}
	singleHype := s.Songs[0].Hype

	album, err := s.CreateAlbum(CreateAlbumInput{Title: "Trilogy", SongIDs: ids})
	if err != nil {
		t.Fatalf("create album: %v", err)
	}
	if _, err := s.CreateAlbum(CreateAlbumInput{Title: "Again", SongIDs: ids}); !errors.Is(err, ErrSongInAlbum) {
		t.Fatalf("reused tracks: %v", err)
	}

	released, err := s.ReleaseAlbum(ReleaseInput{ID: album.ID, Platforms: corePlatforms})
	if err != nil {
		t.Fatalf("release album: %v", err)
	}
	if !released.Released {
		t.Fatalf("album not released")
	}
	for _, id := range ids {
		song, _ := s.Song(id)
		if !song.Released || song.AlbumID != album.ID {
			t.Fatalf("track %s not released with album: %+v", id, song)
		}
	}
	if s.Songs[0].Hype != singleHype+albumReleaseHype {
		t.Fatalf("single hype %d want %d", s.Songs[0].Hype, singleHype+albumReleaseHype)
	}
	if _, err := s.ReleaseAlbum(ReleaseInput{ID: album.ID, Platforms: corePlatforms}); !errors.Is(err, ErrAlreadyReleased) {
		t.Fatalf("double album release: %v", err)
	}
}

func TestDrainNotifications(t *testing.T) {
	s := NewGameState("A")
	song, _ := s.CreateSong(CreateSongInput{Title: "Ping", Tier: 1})
	s.ReleaseSong(ReleaseInput{ID: song.ID, Platforms: corePlatforms})
	drained := s.DrainNotifications()
	if len(drained) != 1 || drained[0].Kind != NoticeRelease {
		t.Fatalf("drained %v", drained)
	}
	if len(s.DrainNotifications()) != 0 {
		t.Fatalf("notifications not cleared")
	}
}
