package game

import (
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"slices"
	"time"
)

// Engine computes one week of the career from the previous one. It holds
// no game state and no randomness between calls.
type Engine struct {
	log    *slog.Logger
	tuning Tuning
	now    func() time.Time
}

func NewEngine(tuning Tuning, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		log:    logger,
		tuning: tuning.normalized(),
		now:    time.Now,
	}
}

func (e *Engine) Tuning() Tuning {
	return e.tuning
}

func (e *Engine) tickSeed(week int) int64 {
	if e.tuning.Seed != 0 {
		return e.tuning.Seed ^ int64(stableHash("week", fmt.Sprint(week)))
	}
	return e.now().UnixNano()
}

// songGrowth is CalculateGrowth; tests swap it to fail a single song.
var songGrowth = CalculateGrowth

// tick carries the working state of one AdvanceWeek call.
type tick struct {
	eng   *Engine
	state *GameState
	seed  int64
	rnd   *mathrand.Rand

	effects      []float64
	weekly       []int64
	contributor  []int
	contribAlloc []int64
}

// songResult is everything computed for one song before it is committed.
type songResult struct {
	perf        PerformanceType
	growth      int64
	allocations []Allocation
}

// AdvanceWeek returns the state for the following week together with the
// notifications it produced. prev is never modified; a nil prev starts a
// new career.
func (e *Engine) AdvanceWeek(prev *GameState) (*GameState, []Notification) {
	next := prev.Clone()
	if next == nil {
		next = NewGameState("")
	}
	e.normalize(next)
	next.Week++

	t := &tick{
		eng:   e,
		state: next,
		seed:  e.tickSeed(next.Week),
	}
	t.rnd = mathrand.New(mathrand.NewSource(t.seed))
	noticeStart := len(next.Notifications)

	previousTotals := make(map[string]int64, len(next.Platforms))
	for _, p := range next.Platforms {
		previousTotals[p.Name] = p.TotalStreams
	}
	previousLevel := next.Stats.CareerLevel

	t.ageTrends()
	t.maybeGenerateTrend()
	t.prepareEffects()

	for i := range next.Songs {
		t.advanceSong(i)
	}
	t.separateTotals()
	t.updateListeners()

	report := SettleRevenue(previousTotals, next.Platforms)
	next.applyRevenue(report)
	next.refreshAlbums(e.log)

	recon := ReconcileStreams(next)
	if recon.Drift != 0 {
		e.log.Warn("stream measurement paths disagree",
			"week", next.Week,
			"song_total", recon.SongTotal,
			"platform_total", recon.PlatformTotal,
			"drift", recon.Drift,
		)
	}
	t.advanceCareer(recon.Total)

	certs := next.EvaluateCertifications()
	if len(certs) > 0 {
		next.Stats.Reputation = clampStat(next.Stats.Reputation + 2*len(certs))
	}
	next.EvaluateAwards(t.rnd, e.tuning.AwardWinChance)
	t.driftStats(report.NewStreams)

	next.WeeklyStats = append(next.WeeklyStats, WeeklyStats{
		Week:                next.Week,
		TotalStreams:        recon.Total,
		NewStreams:          report.NewStreams,
		RevenueMicros:       report.RevenueMicros,
		WealthMicros:        next.Stats.WealthMicros,
		CareerLevel:         next.Stats.CareerLevel,
		ActiveSongs:         next.activeSongCount(),
		TotalListeners:      next.totalListeners(),
		PlatformNewStreams:  report.PlatformNewStreams,
		PlatformTotalDrift:  recon.Drift,
		ActiveTrendCount:    len(next.ActiveTrends),
		CertificationsAdded: len(certs),
	})

	e.log.Debug("week advanced",
		"week", next.Week,
		"new_streams", report.NewStreams,
		"revenue_micros", report.RevenueMicros,
		"career_level", next.Stats.CareerLevel,
		"level_before", previousLevel,
	)
	return next, slices.Clone(next.Notifications[noticeStart:])
}

// normalize repairs fields an older or hand-edited save may lack so the
// tick can treat every entity uniformly.
func (e *Engine) normalize(s *GameState) {
	if s.Stats.CareerLevel < 1 {
		s.Stats.CareerLevel = 1
	}
	s.Stats.Reputation = clampStat(s.Stats.Reputation)
	s.Stats.Creativity = clampStat(s.Stats.Creativity)
	s.Stats.Marketing = clampStat(s.Stats.Marketing)
	s.Stats.Networking = clampStat(s.Stats.Networking)
	s.Stats.FanLoyalty = clampStat(s.Stats.FanLoyalty)

	for _, spec := range platformCatalog {
		if s.platformIndex(spec.Name) < 0 {
			e.log.Warn("platform missing from state, restoring", "platform", spec.Name)
			s.Platforms = append(s.Platforms, StreamingPlatform{
				Name:       spec.Name,
				IsUnlocked: s.Stats.CareerLevel >= spec.UnlockLevel,
			})
		}
	}
	for i := range s.Songs {
		song := &s.Songs[i]
		if song.Tier < MinTier || song.Tier > MaxTier {
			e.log.Warn("song tier out of range, clamping", "song_id", song.ID, "tier", song.Tier)
			song.Tier = clampTier(song.Tier)
		}
		if song.Streams < 0 {
			song.Streams = 0
		}
		if song.Hype < 0 {
			song.Hype = 0
		}
		song.PerformanceType = performanceOf(*song)
		if song.PlatformStreams == nil {
			song.PlatformStreams = map[string]int64{}
		}
	}
}

func (t *tick) ageTrends() {
	for _, trend := range t.state.AgeTrends(t.state.Week) {
		t.state.notify(NoticeTrendEnded, trend.ID, fmt.Sprintf("%s has ended", trend.Name))
	}
}

func (t *tick) maybeGenerateTrend() {
	roll := t.rnd.Float64()
	if roll >= t.eng.tuning.TrendChance || len(t.state.ActiveTrends) >= t.eng.tuning.MaxActiveTrends {
		return
	}
	names := make([]string, 0, len(platformCatalog))
	for _, spec := range platformCatalog {
		names = append(names, spec.Name)
	}
	trend := GenerateTrend(t.state.Week, names, t.rnd)
	t.state.ActiveTrends = append(t.state.ActiveTrends, trend)
	t.state.notify(NoticeTrendStarted, trend.ID, fmt.Sprintf("%s for %d weeks", trend.Name, trend.Duration))
}

func (t *tick) prepareEffects() {
	n := len(t.state.Platforms)
	t.effects = make([]float64, n)
	t.weekly = make([]int64, n)
	t.contributor = make([]int, n)
	t.contribAlloc = make([]int64, n)
	for i, p := range t.state.Platforms {
		t.effects[i] = TrendEffect(t.state.ActiveTrends, p.Name)
		t.contributor[i] = -1
	}
}

func (t *tick) advanceSong(i int) {
	song := &t.state.Songs[i]
	if !song.Released || !song.IsActive {
		song.LastWeekStreams = 0
		return
	}
	res, ok := t.computeSong(*song)
	if !ok {
		song.LastWeekStreams = 0
		return
	}
	t.commitSong(i, res)
}

// computeSong runs the pure part of a song's week. A panic here is logged
// and the song simply sits the week out.
func (t *tick) computeSong(song Song) (res songResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t.eng.log.Error("song tick failed", "song_id", song.ID, "week", t.state.Week, "panic", r)
			ok = false
		}
	}()

	rnd := entityRand(t.seed, song.ID)
	res.perf = ClassifyPerformance(song, t.state.Week, t.state.Stats.Reputation, rnd)
	if res.perf != song.PerformanceType {
		song.PerformanceType = res.perf
		song.PerformanceStatusWeek = t.state.Week
	}
	res.growth = songGrowth(GrowthInputFor(song, t.state.Week), t.eng.tuning, rnd)

	targets, unknown := ReleaseTargets(song.ReleasePlatforms)
	if len(unknown) > 0 {
		t.eng.log.Warn("song released on unknown platforms, skipping them", "song_id", song.ID, "platforms", unknown)
	}
	res.allocations = Distribute(song.ID, res.growth, targets, res.perf, t.eng.tuning.DistributionJitter, rnd)
	return res, true
}

func (t *tick) commitSong(i int, res songResult) {
	s := t.state
	song := &s.Songs[i]

	if res.perf != song.PerformanceType {
		song.PerformanceType = res.perf
		song.PerformanceStatusWeek = s.Week
		switch res.perf {
		case PerformanceViral:
			s.Stats.Reputation = clampStat(s.Stats.Reputation + 3)
			s.notify(NoticeSongViral, song.ID, fmt.Sprintf("%q is going viral", song.Title))
		case PerformanceComeback:
			s.Stats.Reputation = clampStat(s.Stats.Reputation + 2)
			s.notify(NoticeSongComeback, song.ID, fmt.Sprintf("%q is making a comeback", song.Title))
		case PerformanceFlop:
			s.Stats.Reputation = clampStat(s.Stats.Reputation - 2)
			s.notify(NoticeSongFlop, song.ID, fmt.Sprintf("%q is underperforming", song.Title))
		}
	}

	var added int64
	for _, a := range res.allocations {
		pi := s.platformIndex(a.Platform)
		if pi < 0 {
			continue
		}
		v := applyTrendEffect(a.Streams, t.effects[pi])
		if v == 0 {
			continue
		}
		song.PlatformStreams[a.Platform] += v
		song.RevenueMicros += PayoutMicros(a.Platform, v)
		s.Platforms[pi].TotalStreams += v
		t.weekly[pi] += v
		if v > t.contribAlloc[pi] {
			t.contribAlloc[pi] = v
			t.contributor[pi] = i
		}
		added += v
	}
	song.Streams += added
	song.LastWeekStreams = added
	song.Hype = consumeHype(song.Hype)

	if !StaysActive(*song, s.Week, res.growth) {
		song.IsActive = false
		s.notify(NoticeSongInactive, song.ID, fmt.Sprintf("%q has dropped out of rotation", song.Title))
	}
}

// separateTotals applies the platform-wide tie break. Each bump is charged
// to the song that contributed most to that platform this week so platform
// totals keep equalling the per-song ledger.
func (t *tick) separateTotals() {
	s := t.state
	totals := make([]int64, len(s.Platforms))
	grew := make([]bool, len(s.Platforms))
	for i, p := range s.Platforms {
		totals[i] = p.TotalStreams
		grew[i] = t.weekly[i] > 0 && t.contributor[i] >= 0
	}
	for pi, bump := range SeparatePlatformTotals(totals, grew) {
		if bump == 0 {
			continue
		}
		song := &s.Songs[t.contributor[pi]]
		name := s.Platforms[pi].Name
		song.PlatformStreams[name] += bump
		song.Streams += bump
		song.LastWeekStreams += bump
		song.RevenueMicros += PayoutMicros(name, bump)
		s.Platforms[pi].TotalStreams += bump
		t.weekly[pi] += bump
	}
}

func (t *tick) updateListeners() {
	for i := range t.state.Platforms {
		p := &t.state.Platforms[i]
		p.Listeners = NextListeners(p.Listeners, p.TotalStreams, t.weekly[i], t.eng.tuning.ListenerMaxDrop)
	}
}

func (t *tick) advanceCareer(total int64) {
	s := t.state
	previous := s.Stats.CareerLevel
	level := RatchetCareerLevel(previous, total)
	if level == previous {
		return
	}
	s.Stats.CareerLevel = level
	s.Stats.Reputation = clampStat(s.Stats.Reputation + 5*(level-previous))
	s.notify(NoticeLevelUp, "", fmt.Sprintf("Career level %d: %s", level, CareerLevelName(level)))
	for i := range s.Platforms {
		p := &s.Platforms[i]
		spec, ok := PlatformSpecFor(p.Name)
		if !ok || p.IsUnlocked || level < spec.UnlockLevel {
			continue
		}
		p.IsUnlocked = true
		s.notify(NoticePlatformUnlock, "", fmt.Sprintf("%s is now available for releases", p.Name))
	}
}

func (t *tick) driftStats(newStreams int64) {
	s := t.state
	active := s.activeSongCount()
	var lastWeek int64
	if n := len(s.WeeklyStats); n > 0 {
		lastWeek = s.WeeklyStats[n-1].NewStreams
	}
	switch {
	case active == 0 && s.releasedSongCount() > 0:
		s.Stats.FanLoyalty = clampStat(s.Stats.FanLoyalty - 1)
	case active > 0 && newStreams > lastWeek:
		s.Stats.FanLoyalty = clampStat(s.Stats.FanLoyalty + 1)
	}
}

// refreshAlbums recomputes album stream counts from their tracks. Tracks
// that no longer exist count as zero.
func (s *GameState) refreshAlbums(log *slog.Logger) {
	for i := range s.Albums {
		album := &s.Albums[i]
		var total int64
		for _, id := range album.SongIDs {
			idx := s.songIndex(id)
			if idx < 0 {
				log.Warn("album references missing song", "album_id", album.ID, "song_id", id)
				continue
			}
			total += s.Songs[idx].Streams
		}
		if total > album.Streams {
			album.Streams = total
		}
	}
}

func (s *GameState) activeSongCount() int {
	n := 0
	for _, song := range s.Songs {
		if song.Released && song.IsActive {
			n++
		}
	}
	return n
}

func (s *GameState) releasedSongCount() int {
	n := 0
	for _, song := range s.Songs {
		if song.Released {
			n++
		}
	}
	return n
}

func (s *GameState) totalListeners() int64 {
	var total int64
	for _, p := range s.Platforms {
		total += p.Listeners
	}
	return total
}
