package game

type RevenueReport struct {
	PlatformNewStreams map[string]int64
	PlatformRevenue    map[string]int64
	NewStreams         int64
	RevenueMicros      int64
}

// SettleRevenue pays out each platform's new streams since previous. New
// streams are current minus previous total, floored at zero.
func SettleRevenue(previous map[string]int64, platforms []StreamingPlatform) RevenueReport {
	report := RevenueReport{
		PlatformNewStreams: make(map[string]int64, len(platforms)),
		PlatformRevenue:    make(map[string]int64, len(platforms)),
	}
	for _, p := range platforms {
		fresh := p.TotalStreams - previous[p.Name]
		if fresh < 0 {
			fresh = 0
		}
		revenue := PayoutMicros(p.Name, fresh)
		report.PlatformNewStreams[p.Name] = fresh
		report.PlatformRevenue[p.Name] = revenue
		report.NewStreams += fresh
		report.RevenueMicros += revenue
	}
	return report
}

// applyRevenue books a settled report onto the platforms and the wallet.
func (s *GameState) applyRevenue(report RevenueReport) {
	for i := range s.Platforms {
		p := &s.Platforms[i]
		p.WeeklyStreams = report.PlatformNewStreams[p.Name]
		p.WeeklyRevenueMicros = report.PlatformRevenue[p.Name]
		p.RevenueMicros += p.WeeklyRevenueMicros
	}
	s.Stats.WealthMicros += report.RevenueMicros
}

type StreamReconciliation struct {
	SongTotal     int64
	PlatformTotal int64
	// Drift is PlatformTotal - SongTotal.
	Drift int64
	// Total is the value career and certification logic consume.
	Total int64
}

// ReconcileStreams compares the per-song and per-platform measurement
// paths. The engine only ever writes platform totals from per-song
// allocations, so drift means the state was produced elsewhere (an old or
// hand-edited save); the larger value is used so progress is never
// under-reported.
func ReconcileStreams(s *GameState) StreamReconciliation {
	r := StreamReconciliation{
		SongTotal:     s.SongStreamTotal(),
		PlatformTotal: s.PlatformStreamTotal(),
	}
	r.Drift = r.PlatformTotal - r.SongTotal
	r.Total = max(r.SongTotal, r.PlatformTotal)
	return r
}
