package game

type PerformanceType string

const (
	PerformanceNormal   PerformanceType = "normal"
	PerformanceViral    PerformanceType = "viral"
	PerformanceFlop     PerformanceType = "flop"
	PerformanceComeback PerformanceType = "comeback"
)

type Song struct {
	ID                    string           `json:"id"`
	Title                 string           `json:"title"`
	Tier                  int              `json:"tier"`
	CreatedWeek           int              `json:"created_week"`
	Released              bool             `json:"released"`
	ReleaseWeek           int              `json:"release_week"`
	IsActive              bool             `json:"is_active"`
	Streams               int64            `json:"streams"`
	LastWeekStreams       int64            `json:"last_week_streams"`
	PerformanceType       PerformanceType  `json:"performance_type"`
	PerformanceStatusWeek int              `json:"performance_status_week"`
	Hype                  int64            `json:"hype"`
	ReleasePlatforms      []string         `json:"release_platforms"`
	PlatformStreams       map[string]int64 `json:"platform_streams"`
	Featuring             []string         `json:"featuring"`
	AlbumID               string           `json:"album_id"`
	RevenueMicros         int64            `json:"revenue_micros"`
}

type Album struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	SongIDs          []string `json:"song_ids"`
	CreatedWeek      int      `json:"created_week"`
	Released         bool     `json:"released"`
	ReleaseWeek      int      `json:"release_week"`
	ReleasePlatforms []string `json:"release_platforms"`
	Streams          int64    `json:"streams"`
}

type StreamingPlatform struct {
	Name                string `json:"name"`
	TotalStreams        int64  `json:"total_streams"`
	WeeklyStreams       int64  `json:"weekly_streams"`
	Listeners           int64  `json:"listeners"`
	RevenueMicros       int64  `json:"revenue_micros"`
	WeeklyRevenueMicros int64  `json:"weekly_revenue_micros"`
	IsUnlocked          bool   `json:"is_unlocked"`
}

type TrendType string

const (
	TrendRising  TrendType = "rising"
	TrendFalling TrendType = "falling"
	TrendHot     TrendType = "hot"
	TrendStable  TrendType = "stable"
)

type MarketTrend struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Type              TrendType `json:"type"`
	AffectedPlatforms []string  `json:"affected_platforms"`
	ImpactFactor      int       `json:"impact_factor"`
	StartWeek         int       `json:"start_week"`
	Duration          int       `json:"duration"`
}

type PlayerStats struct {
	CareerLevel  int   `json:"career_level"`
	WealthMicros int64 `json:"wealth_micros"`
	Reputation   int   `json:"reputation"`
	Creativity   int   `json:"creativity"`
	Marketing    int   `json:"marketing"`
	Networking   int   `json:"networking"`
	FanLoyalty   int   `json:"fan_loyalty"`
}

// WeeklyStats is appended once per tick and never rewritten.
type WeeklyStats struct {
	Week                int              `json:"week"`
	TotalStreams        int64            `json:"total_streams"`
	NewStreams          int64            `json:"new_streams"`
	RevenueMicros       int64            `json:"revenue_micros"`
	WealthMicros        int64            `json:"wealth_micros"`
	CareerLevel         int              `json:"career_level"`
	ActiveSongs         int              `json:"active_songs"`
	TotalListeners      int64            `json:"total_listeners"`
	PlatformNewStreams  map[string]int64 `json:"platform_new_streams"`
	PlatformTotalDrift  int64            `json:"platform_total_drift"`
	ActiveTrendCount    int              `json:"active_trend_count"`
	CertificationsAdded int              `json:"certifications_added"`
}

type EntityKind string

const (
	EntitySong  EntityKind = "song"
	EntityAlbum EntityKind = "album"
)

type CertificationType string

const (
	CertGold       CertificationType = "gold"
	CertPlatinum   CertificationType = "platinum"
	CertPlatinum2x CertificationType = "2x_platinum"
	CertPlatinum3x CertificationType = "3x_platinum"
	CertPlatinum4x CertificationType = "4x_platinum"
	CertPlatinum5x CertificationType = "5x_platinum"
	CertDiamond    CertificationType = "diamond"
)

type Certification struct {
	ID         string            `json:"id"`
	EntityKind EntityKind        `json:"entity_kind"`
	EntityID   string            `json:"entity_id"`
	Title      string            `json:"title"`
	Type       CertificationType `json:"type"`
	Week       int               `json:"week"`
	Streams    int64             `json:"streams"`
}

type Award struct {
	ID         string     `json:"id"`
	Show       string     `json:"show"`
	Category   string     `json:"category"`
	EntityKind EntityKind `json:"entity_kind"`
	EntityID   string     `json:"entity_id"`
	Title      string     `json:"title"`
	Year       int        `json:"year"`
	Week       int        `json:"week"`
	Streams    int64      `json:"streams"`
	Won        bool       `json:"won"`
}

type NotificationKind string

const (
	NoticeSongViral      NotificationKind = "song_viral"
	NoticeSongComeback   NotificationKind = "song_comeback"
	NoticeSongFlop       NotificationKind = "song_flop"
	NoticeSongInactive   NotificationKind = "song_inactive"
	NoticeLevelUp        NotificationKind = "level_up"
	NoticePlatformUnlock NotificationKind = "platform_unlocked"
	NoticeTrendStarted   NotificationKind = "trend_started"
	NoticeTrendEnded     NotificationKind = "trend_ended"
	NoticeCertification  NotificationKind = "certification"
	NoticeNomination     NotificationKind = "award_nomination"
	NoticeAwardWin       NotificationKind = "award_win"
	NoticeRelease        NotificationKind = "release"
)

// Notification is informational only; nothing in the tick reads it back.
type Notification struct {
	ID       string           `json:"id"`
	Week     int              `json:"week"`
	Kind     NotificationKind `json:"kind"`
	Message  string           `json:"message"`
	EntityID string           `json:"entity_id,omitempty"`
}

// GameState is the whole persisted aggregate. It is versionless and is
// written and read wholesale by a store.
type GameState struct {
	ArtistName       string              `json:"artist_name"`
	Week             int                 `json:"week"`
	Stats            PlayerStats         `json:"stats"`
	Songs            []Song              `json:"songs"`
	Albums           []Album             `json:"albums"`
	Platforms        []StreamingPlatform `json:"platforms"`
	ActiveTrends     []MarketTrend       `json:"active_trends"`
	TrendHistory     []MarketTrend       `json:"trend_history"`
	WeeklyStats      []WeeklyStats       `json:"weekly_stats"`
	Certifications   []Certification     `json:"certifications"`
	Awards           []Award             `json:"awards"`
	Notifications    []Notification      `json:"notifications"`
	ProcessedActions []string            `json:"processed_actions"`
	// Revision counts committed writes. Stores shared between processes
	// refuse a save whose revision does not follow the stored one.
	Revision int64 `json:"revision"`
}

type CreateSongInput struct {
	Title          string
	Tier           int
	IdempotencyKey string
}

type ReleaseInput struct {
	ID             string
	Platforms      []string
	IdempotencyKey string
}

type PromoteInput struct {
	SongID         string
	Type           string
	BudgetMicros   int64
	IdempotencyKey string
}

type FeatureInput struct {
	SongID         string
	Artist         string
	FeeMicros      int64
	IdempotencyKey string
}

type CreateAlbumInput struct {
	Title          string
	SongIDs        []string
	IdempotencyKey string
}
