package game

// Tuning holds the knobs of the weekly engine. Zero values fall back to
// DefaultTuning, so a partially filled YAML file is valid.
type Tuning struct {
	// Seed fixes the tick randomness when non-zero (reproducible runs).
	Seed int64 `yaml:"seed" json:"seed"`

	TrendChance     float64 `yaml:"trend_chance" json:"trend_chance"`
	MaxActiveTrends int     `yaml:"max_active_trends" json:"max_active_trends"`

	AwardWinChance float64 `yaml:"award_win_chance" json:"award_win_chance"`

	DecayPerWeek        float64 `yaml:"decay_per_week" json:"decay_per_week"`
	MinAudibleGrowth    int64   `yaml:"min_audible_growth" json:"min_audible_growth"`
	HypeStreamsPerPoint int64   `yaml:"hype_streams_per_point" json:"hype_streams_per_point"`

	DistributionJitter float64 `yaml:"distribution_jitter" json:"distribution_jitter"`
	ListenerMaxDrop    float64 `yaml:"listener_max_drop" json:"listener_max_drop"`
}

func DefaultTuning() Tuning {
	return Tuning{
		TrendChance:         0.30,
		MaxActiveTrends:     5,
		AwardWinChance:      0.30,
		DecayPerWeek:        0.04,
		MinAudibleGrowth:    100,
		HypeStreamsPerPoint: 40,
		DistributionJitter:  0.30,
		ListenerMaxDrop:     0.10,
	}
}

func (t Tuning) normalized() Tuning {
	def := DefaultTuning()
	if t.TrendChance < 0 || t.TrendChance > 1 {
		t.TrendChance = def.TrendChance
	}
	if t.MaxActiveTrends <= 0 {
		t.MaxActiveTrends = def.MaxActiveTrends
	}
	if t.AwardWinChance <= 0 || t.AwardWinChance > 1 {
		t.AwardWinChance = def.AwardWinChance
	}
	if t.DecayPerWeek <= 0 {
		t.DecayPerWeek = def.DecayPerWeek
	}
	if t.MinAudibleGrowth < 0 {
		t.MinAudibleGrowth = def.MinAudibleGrowth
	}
	if t.HypeStreamsPerPoint <= 0 {
		t.HypeStreamsPerPoint = def.HypeStreamsPerPoint
	}
	if t.DistributionJitter <= 0 || t.DistributionJitter >= 1 {
		t.DistributionJitter = def.DistributionJitter
	}
	if t.ListenerMaxDrop <= 0 || t.ListenerMaxDrop >= 1 {
		t.ListenerMaxDrop = def.ListenerMaxDrop
	}
	return t
}
