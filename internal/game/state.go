package game

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// NewGameState returns a fresh career at week 0. The first AdvanceWeek
// produces week 1.
func NewGameState(artistName string) *GameState {
	artistName = strings.TrimSpace(artistName)
	if artistName == "" {
		artistName = "New Artist"
	}
	return &GameState{
		ArtistName: artistName,
		Week:       0,
		Stats: PlayerStats{
			CareerLevel:  1,
			WealthMicros: StarterWealthMicros,
			Reputation:   10,
			Creativity:   50,
			Marketing:    20,
			Networking:   10,
			FanLoyalty:   20,
		},
		Songs:            []Song{},
		Albums:           []Album{},
		Platforms:        NewPlatforms(1),
		ActiveTrends:     []MarketTrend{},
		TrendHistory:     []MarketTrend{},
		WeeklyStats:      []WeeklyStats{},
		Certifications:   []Certification{},
		Awards:           []Award{},
		Notifications:    []Notification{},
		ProcessedActions: []string{},
	}
}

// Clone returns a deep copy that shares no slices or maps with s.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	out.Songs = slices.Clone(s.Songs)
	for i := range out.Songs {
		out.Songs[i].ReleasePlatforms = slices.Clone(s.Songs[i].ReleasePlatforms)
		out.Songs[i].Featuring = slices.Clone(s.Songs[i].Featuring)
		out.Songs[i].PlatformStreams = maps.Clone(s.Songs[i].PlatformStreams)
	}
	out.Albums = slices.Clone(s.Albums)
	for i := range out.Albums {
		out.Albums[i].SongIDs = slices.Clone(s.Albums[i].SongIDs)
		out.Albums[i].ReleasePlatforms = slices.Clone(s.Albums[i].ReleasePlatforms)
	}
	out.Platforms = slices.Clone(s.Platforms)
	out.ActiveTrends = cloneTrends(s.ActiveTrends)
	out.TrendHistory = cloneTrends(s.TrendHistory)
	out.WeeklyStats = slices.Clone(s.WeeklyStats)
	for i := range out.WeeklyStats {
		out.WeeklyStats[i].PlatformNewStreams = maps.Clone(s.WeeklyStats[i].PlatformNewStreams)
	}
	out.Certifications = slices.Clone(s.Certifications)
	out.Awards = slices.Clone(s.Awards)
	out.Notifications = slices.Clone(s.Notifications)
	out.ProcessedActions = slices.Clone(s.ProcessedActions)
	return &out
}

func cloneTrends(in []MarketTrend) []MarketTrend {
	out := slices.Clone(in)
	for i := range out {
		out[i].AffectedPlatforms = slices.Clone(in[i].AffectedPlatforms)
	}
	return out
}

func (s *GameState) songIndex(id string) int {
	for i := range s.Songs {
		if s.Songs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *GameState) albumIndex(id string) int {
	for i := range s.Albums {
		if s.Albums[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *GameState) platformIndex(name string) int {
	for i := range s.Platforms {
		if strings.EqualFold(s.Platforms[i].Name, name) {
			return i
		}
	}
	return -1
}

// Song returns a copy of the song with the given id.
func (s *GameState) Song(id string) (Song, bool) {
	idx := s.songIndex(id)
	if idx < 0 {
		return Song{}, false
	}
	return s.Songs[idx], true
}

// SongStreamTotal sums Song.Streams over every released song.
func (s *GameState) SongStreamTotal() int64 {
	var total int64
	for _, song := range s.Songs {
		if song.Released && song.Streams > 0 {
			total += song.Streams
		}
	}
	return total
}

// PlatformStreamTotal sums StreamingPlatform.TotalStreams.
func (s *GameState) PlatformStreamTotal() int64 {
	var total int64
	for _, p := range s.Platforms {
		if p.TotalStreams > 0 {
			total += p.TotalStreams
		}
	}
	return total
}

func (s *GameState) unlockedPlatformNames() []string {
	out := make([]string, 0, len(s.Platforms))
	for _, p := range s.Platforms {
		if p.IsUnlocked {
			out = append(out, p.Name)
		}
	}
	return out
}

func (s *GameState) notify(kind NotificationKind, entityID, message string) Notification {
	id := derivedID("notification",
		strconv.FormatInt(s.Revision, 10),
		strconv.Itoa(s.Week),
		strconv.Itoa(len(s.Notifications)),
		string(kind),
		entityID,
	)
	n := Notification{
		ID:       id,
		Week:     s.Week,
		Kind:     kind,
		Message:  message,
		EntityID: entityID,
	}
	s.Notifications = append(s.Notifications, n)
	return n
}

func (s *GameState) rememberAction(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}
	if slices.Contains(s.ProcessedActions, key) {
		return false
	}
	s.ProcessedActions = append(s.ProcessedActions, key)
	if len(s.ProcessedActions) > maxRememberedActions {
		s.ProcessedActions = slices.Clone(s.ProcessedActions[len(s.ProcessedActions)-maxRememberedActions:])
	}
	return true
}
