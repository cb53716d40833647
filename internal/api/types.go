package api

import "stardom/internal/game"

// Money fields in requests are dollars; the game converts them to micros.

type CreateSongRequest struct {
	Title string `json:"title"`
	Tier  int    `json:"tier"`
}

type ReleaseRequest struct {
	Platforms []string `json:"platforms"`
}

type PromoteRequest struct {
	Type   string  `json:"type"`
	Budget float64 `json:"budget"`
}

type FeatureRequest struct {
	Artist string  `json:"artist"`
	Fee    float64 `json:"fee"`
}

type CreateAlbumRequest struct {
	Title   string   `json:"title"`
	SongIDs []string `json:"song_ids"`
}

type PlatformView struct {
	game.StreamingPlatform
	MarketShare     float64 `json:"market_share"`
	PayoutPerStream float64 `json:"payout_per_stream"`
	UnlockLevel     int     `json:"unlock_level"`
}
