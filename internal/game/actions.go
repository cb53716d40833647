package game

import (
	"fmt"
	"slices"
	"strings"
)

// songCostMicros is the production cost of a song, by tier.
var songCostMicros = [...]int64{
	0,
	100 * MicrosPerDollar,
	500 * MicrosPerDollar,
	2_000 * MicrosPerDollar,
	8_000 * MicrosPerDollar,
	25_000 * MicrosPerDollar,
}

const (
	AlbumCostMicros = int64(1_500) * MicrosPerDollar

	minAlbumTracks = 3
	maxAlbumTracks = 20

	releaseHypePerLoyalty = 5
	albumReleaseHype      = 200
)

type promotionSpec struct {
	HypePerDollar float64
	MinLevel      int
	Marketing     int
}

var promotionCatalog = map[string]promotionSpec{
	"social":   {HypePerDollar: 0.5, MinLevel: 1, Marketing: 1},
	"radio":    {HypePerDollar: 0.8, MinLevel: 1, Marketing: 2},
	"playlist": {HypePerDollar: 1.0, MinLevel: 2, Marketing: 2},
	"tour":     {HypePerDollar: 1.5, MinLevel: 3, Marketing: 3},
}

func SongCostMicros(tier int) (int64, error) {
	if tier < MinTier || tier > MaxTier {
		return 0, ErrInvalidTier
	}
	return songCostMicros[tier], nil
}

func (s *GameState) spend(amount int64) error {
	if amount < 0 {
		return ErrInvalidBudget
	}
	if amount > s.Stats.WealthMicros {
		return ErrInsufficientFunds
	}
	s.Stats.WealthMicros -= amount
	return nil
}

// resolveReleasePlatforms validates a release request against the catalog
// and the platforms unlocked for this career.
func (s *GameState) resolveReleasePlatforms(requested []string) ([]string, error) {
	known, unknown := ReleaseTargets(requested)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, strings.Join(unknown, ", "))
	}
	if len(known) == 0 {
		return nil, ErrNoPlatforms
	}
	for _, name := range known {
		idx := s.platformIndex(name)
		if idx < 0 || !s.Platforms[idx].IsUnlocked {
			return nil, fmt.Errorf("%w: %s", ErrPlatformLocked, name)
		}
	}
	return known, nil
}

// CreateSong records a new unreleased song and pays its production cost.
func (s *GameState) CreateSong(in CreateSongInput) (Song, error) {
	if err := validateEntityName(in.Title); err != nil {
		return Song{}, err
	}
	cost, err := SongCostMicros(in.Tier)
	if err != nil {
		return Song{}, err
	}
	if err := s.spend(cost); err != nil {
		return Song{}, err
	}
	song := Song{
		ID:                    newID(),
		Title:                 strings.TrimSpace(in.Title),
		Tier:                  in.Tier,
		CreatedWeek:           s.Week,
		PerformanceType:       PerformanceNormal,
		PerformanceStatusWeek: s.Week,
		ReleasePlatforms:      []string{},
		PlatformStreams:       map[string]int64{},
		Featuring:             []string{},
	}
	s.Songs = append(s.Songs, song)
	s.Stats.Creativity = clampStat(s.Stats.Creativity + 1)
	return song, nil
}

// ReleaseSong puts an unreleased song out on the requested platforms.
func (s *GameState) ReleaseSong(in ReleaseInput) (Song, error) {
	idx := s.songIndex(in.ID)
	if idx < 0 {
		return Song{}, ErrSongNotFound
	}
	if s.Songs[idx].Released {
		return Song{}, ErrAlreadyReleased
	}
	platforms, err := s.resolveReleasePlatforms(in.Platforms)
	if err != nil {
		return Song{}, err
	}
	s.releaseSong(idx, platforms, int64(s.Stats.FanLoyalty)*releaseHypePerLoyalty)
	return s.Songs[idx], nil
}

func (s *GameState) releaseSong(idx int, platforms []string, hype int64) {
	song := &s.Songs[idx]
	song.Released = true
	song.IsActive = true
	song.ReleaseWeek = s.Week
	song.ReleasePlatforms = slices.Clone(platforms)
	song.PerformanceType = PerformanceNormal
	song.PerformanceStatusWeek = s.Week
	song.Hype += hype
	if song.PlatformStreams == nil {
		song.PlatformStreams = map[string]int64{}
	}
	s.notify(NoticeRelease, song.ID, fmt.Sprintf("%q is out on %s", song.Title, strings.Join(platforms, ", ")))
}

// PromoteSong converts budget into hype for an active released song.
func (s *GameState) PromoteSong(in PromoteInput) (Song, error) {
	kind := strings.ToLower(strings.TrimSpace(in.Type))
	spec, ok := promotionCatalog[kind]
	if !ok {
		return Song{}, ErrInvalidPromotion
	}
	if in.BudgetMicros <= 0 {
		return Song{}, ErrInvalidBudget
	}
	idx := s.songIndex(in.SongID)
	if idx < 0 {
		return Song{}, ErrSongNotFound
	}
	song := &s.Songs[idx]
	if !song.Released {
		return Song{}, ErrNotReleased
	}
	if !song.IsActive {
		return Song{}, ErrSongInactive
	}
	if s.Stats.CareerLevel < spec.MinLevel {
		return Song{}, fmt.Errorf("%w: %s unlocks at career level %d", ErrPromotionLocked, kind, spec.MinLevel)
	}
	if err := s.spend(in.BudgetMicros); err != nil {
		return Song{}, err
	}
	boost := 1 + float64(s.Stats.Marketing)/100
	song.Hype += int64(MicrosToDollars(in.BudgetMicros) * spec.HypePerDollar * boost)
	s.Stats.Marketing = clampStat(s.Stats.Marketing + spec.Marketing)
	return *song, nil
}

// AddFeature adds a featured artist to an unreleased song.
func (s *GameState) AddFeature(in FeatureInput) (Song, error) {
	if err := validateEntityName(in.Artist); err != nil {
		return Song{}, err
	}
	if in.FeeMicros < 0 {
		return Song{}, ErrInvalidBudget
	}
	idx := s.songIndex(in.SongID)
	if idx < 0 {
		return Song{}, ErrSongNotFound
	}
	song := &s.Songs[idx]
	if song.Released {
		return Song{}, ErrFeatureAfterRelease
	}
	artist := strings.TrimSpace(in.Artist)
	for _, existing := range song.Featuring {
		if strings.EqualFold(existing, artist) {
			return Song{}, ErrDuplicateFeature
		}
	}
	if err := s.spend(in.FeeMicros); err != nil {
		return Song{}, err
	}
	song.Featuring = append(song.Featuring, artist)
	song.Hype += 50 + int64(MicrosToDollars(in.FeeMicros)*0.6)
	s.Stats.Networking = clampStat(s.Stats.Networking + 2)
	return *song, nil
}

// CreateAlbum groups existing songs that are not on another album.
func (s *GameState) CreateAlbum(in CreateAlbumInput) (Album, error) {
	if err := validateEntityName(in.Title); err != nil {
		return Album{}, err
	}
	ids := make([]string, 0, len(in.SongIDs))
	for _, id := range in.SongIDs {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) < minAlbumTracks || len(ids) > maxAlbumTracks {
		return Album{}, ErrAlbumTrackCount
	}
	for _, id := range ids {
		idx := s.songIndex(id)
		if idx < 0 {
			return Album{}, fmt.Errorf("%w: %s", ErrSongNotFound, id)
		}
		if s.Songs[idx].AlbumID != "" {
			return Album{}, fmt.Errorf("%w: %s", ErrSongInAlbum, id)
		}
	}
	if err := s.spend(AlbumCostMicros); err != nil {
		return Album{}, err
	}
	album := Album{
		ID:               newID(),
		Title:            strings.TrimSpace(in.Title),
		SongIDs:          ids,
		CreatedWeek:      s.Week,
		ReleasePlatforms: []string{},
	}
	for _, id := range ids {
		s.Songs[s.songIndex(id)].AlbumID = album.ID
	}
	s.Albums = append(s.Albums, album)
	return album, nil
}

// ReleaseAlbum releases the album and any of its tracks still unreleased.
func (s *GameState) ReleaseAlbum(in ReleaseInput) (Album, error) {
	idx := s.albumIndex(in.ID)
	if idx < 0 {
		return Album{}, ErrAlbumNotFound
	}
	if s.Albums[idx].Released {
		return Album{}, ErrAlreadyReleased
	}
	platforms, err := s.resolveReleasePlatforms(in.Platforms)
	if err != nil {
		return Album{}, err
	}
	album := &s.Albums[idx]
	album.Released = true
	album.ReleaseWeek = s.Week
	album.ReleasePlatforms = slices.Clone(platforms)
	for _, id := range album.SongIDs {
		si := s.songIndex(id)
		if si < 0 {
			continue
		}
		if !s.Songs[si].Released {
			s.releaseSong(si, platforms, albumReleaseHype)
			continue
		}
		if s.Songs[si].IsActive {
			s.Songs[si].Hype += albumReleaseHype
		}
	}
	s.notify(NoticeRelease, album.ID, fmt.Sprintf("album %q is out", album.Title))
	return *album, nil
}

// DrainNotifications removes and returns every pending notification.
func (s *GameState) DrainNotifications() []Notification {
	out := s.Notifications
	s.Notifications = []Notification{}
	return out
}
