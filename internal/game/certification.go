package game

import (
	"fmt"
	"math"
	mathrand "math/rand"
	"strconv"
)

type certificationThreshold struct {
	Type    CertificationType
	Streams int64
}

var certificationThresholds = []certificationThreshold{
	{Type: CertGold, Streams: 500_000},
	{Type: CertPlatinum, Streams: 1_000_000},
	{Type: CertPlatinum2x, Streams: 2_000_000},
	{Type: CertPlatinum3x, Streams: 3_000_000},
	{Type: CertPlatinum4x, Streams: 4_000_000},
	{Type: CertPlatinum5x, Streams: 5_000_000},
	{Type: CertDiamond, Streams: 10_000_000},
}

type certKey struct {
	kind EntityKind
	id   string
	cert CertificationType
}

// certifiable is a song or album as the evaluators see it.
type certifiable struct {
	Kind        EntityKind
	ID          string
	Title       string
	Streams     int64
	ReleaseWeek int
	Tier        int
}

func (s *GameState) certifiables() []certifiable {
	out := make([]certifiable, 0, len(s.Songs)+len(s.Albums))
	for _, song := range s.Songs {
		if !song.Released {
			continue
		}
		out = append(out, certifiable{
			Kind:        EntitySong,
			ID:          song.ID,
			Title:       song.Title,
			Streams:     song.Streams,
			ReleaseWeek: song.ReleaseWeek,
			Tier:        clampTier(song.Tier),
		})
	}
	for _, album := range s.Albums {
		if !album.Released {
			continue
		}
		out = append(out, certifiable{
			Kind:        EntityAlbum,
			ID:          album.ID,
			Title:       album.Title,
			Streams:     album.Streams,
			ReleaseWeek: album.ReleaseWeek,
			Tier:        s.albumTier(album),
		})
	}
	return out
}

func (s *GameState) albumTier(album Album) int {
	var sum, n int
	for _, id := range album.SongIDs {
		if i := s.songIndex(id); i >= 0 {
			sum += clampTier(s.Songs[i].Tier)
			n++
		}
	}
	if n == 0 {
		return MinTier
	}
	return clampTier(int(math.Round(float64(sum) / float64(n))))
}

// EvaluateCertifications issues every certification a released song or
// album has reached and does not hold yet. Running it again without new
// streams issues nothing.
func (s *GameState) EvaluateCertifications() []Certification {
	held := make(map[certKey]bool, len(s.Certifications))
	for _, c := range s.Certifications {
		held[certKey{c.EntityKind, c.EntityID, c.Type}] = true
	}
	var issued []Certification
	for _, e := range s.certifiables() {
		for _, th := range certificationThresholds {
			if e.Streams < th.Streams {
				break
			}
			key := certKey{e.Kind, e.ID, th.Type}
			if held[key] {
				continue
			}
			held[key] = true
			c := Certification{
				ID:         derivedID("certification", string(e.Kind), e.ID, string(th.Type)),
				EntityKind: e.Kind,
				EntityID:   e.ID,
				Title:      e.Title,
				Type:       th.Type,
				Week:       s.Week,
				Streams:    e.Streams,
			}
			s.Certifications = append(s.Certifications, c)
			issued = append(issued, c)
			s.notify(NoticeCertification, e.ID, fmt.Sprintf("%q is certified %s", e.Title, th.Type))
		}
	}
	return issued
}

type awardCategory struct {
	Name       string
	Kind       EntityKind
	MinStreams int64
}

type awardShow struct {
	WeekOfYear int
	Name       string
	Categories []awardCategory
}

var awardCalendar = []awardShow{
	{WeekOfYear: 6, Name: "Grammy Awards", Categories: []awardCategory{
		{Name: "Record of the Year", Kind: EntitySong, MinStreams: 2_000_000},
		{Name: "Album of the Year", Kind: EntityAlbum, MinStreams: 5_000_000},
	}},
	{WeekOfYear: 20, Name: "Billboard Music Awards", Categories: []awardCategory{
		{Name: "Top Streaming Song", Kind: EntitySong, MinStreams: 1_000_000},
		{Name: "Top Album", Kind: EntityAlbum, MinStreams: 3_000_000},
	}},
	{WeekOfYear: 35, Name: "MTV Video Music Awards", Categories: []awardCategory{
		{Name: "Song of the Summer", Kind: EntitySong, MinStreams: 750_000},
	}},
	{WeekOfYear: 47, Name: "American Music Awards", Categories: []awardCategory{
		{Name: "Favorite Song", Kind: EntitySong, MinStreams: 1_000_000},
		{Name: "Favorite Album", Kind: EntityAlbum, MinStreams: 3_000_000},
	}},
}

// AwardShowAt returns the show held on week, if any.
func AwardShowAt(week int) (string, bool) {
	show, ok := awardShowAt(week)
	return show.Name, ok
}

func awardShowAt(week int) (awardShow, bool) {
	woy := WeekOfYear(week)
	for _, show := range awardCalendar {
		if show.WeekOfYear == woy {
			return show, true
		}
	}
	return awardShow{}, false
}

func nominationChance(reputation int, streams, minStreams int64) float64 {
	ratio := float64(streams) / float64(max(minStreams, 1))
	chance := 0.15 + float64(clampStat(reputation))/200 + math.Log10(math.Max(ratio, 1))*0.2
	return math.Min(0.85, chance)
}

// EvaluateAwards runs the award show scheduled for the current week. Each
// category nominates at most one entity per year, chosen by a draw weighted
// on streams and tier, and a nominee wins with winChance. It always draws
// three values per category that has eligible entries.
func (s *GameState) EvaluateAwards(rnd *mathrand.Rand, winChance float64) []Award {
	show, ok := awardShowAt(s.Week)
	if !ok {
		return nil
	}
	year := YearOf(s.Week)
	entities := s.certifiables()

	var out []Award
	for _, cat := range show.Categories {
		if s.hasAward(show.Name, cat.Name, year) {
			continue
		}
		var eligible []certifiable
		var weights []float64
		var total float64
		for _, e := range entities {
			if e.Kind != cat.Kind || e.Streams < cat.MinStreams {
				continue
			}
			age := s.Week - e.ReleaseWeek
			if age < 0 || age >= WeeksPerYear {
				continue
			}
			w := float64(e.Streams) * float64(e.Tier)
			eligible = append(eligible, e)
			weights = append(weights, w)
			total += w
		}
		if len(eligible) == 0 || total <= 0 {
			continue
		}

		nominateRoll, pickRoll, winRoll := rnd.Float64(), rnd.Float64(), rnd.Float64()
		pick := eligible[len(eligible)-1]
		cursor := pickRoll * total
		for i, w := range weights {
			if cursor < w {
				pick = eligible[i]
				break
			}
			cursor -= w
		}
		if nominateRoll >= nominationChance(s.Stats.Reputation, pick.Streams, cat.MinStreams) {
			continue
		}

		award := Award{
			ID:         derivedID("award", show.Name, cat.Name, strconv.Itoa(year)),
			Show:       show.Name,
			Category:   cat.Name,
			EntityKind: pick.Kind,
			EntityID:   pick.ID,
			Title:      pick.Title,
			Year:       year,
			Week:       s.Week,
			Streams:    pick.Streams,
			Won:        winRoll < winChance,
		}
		s.Awards = append(s.Awards, award)
		out = append(out, award)

		s.Stats.Reputation = clampStat(s.Stats.Reputation + 3)
		s.notify(NoticeNomination, pick.ID, fmt.Sprintf("%q nominated for %s at the %s", pick.Title, cat.Name, show.Name))
		if award.Won {
			s.Stats.Reputation = clampStat(s.Stats.Reputation + 10)
			s.Stats.FanLoyalty = clampStat(s.Stats.FanLoyalty + 5)
			s.notify(NoticeAwardWin, pick.ID, fmt.Sprintf("%q won %s at the %s", pick.Title, cat.Name, show.Name))
		}
	}
	return out
}

func (s *GameState) hasAward(show, category string, year int) bool {
	for _, a := range s.Awards {
		if a.Show == show && a.Category == category && a.Year == year {
			return true
		}
	}
	return false
}
