package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	MicrosPerDollar = int64(1_000_000)

	StarterWealthMicros = int64(5_000) * MicrosPerDollar

	StatMin = 0
	StatMax = 100

	MinTier = 1
	MaxTier = 5

	WeeksPerYear = 52

	// maxRememberedActions bounds the idempotency key history kept in state.
	maxRememberedActions = 256
)

var (
	ErrSongNotFound         = errors.New("song not found")
	ErrAlbumNotFound        = errors.New("album not found")
	ErrAlreadyReleased      = errors.New("already released")
	ErrNotReleased          = errors.New("song is not released")
	ErrSongInactive         = errors.New("song is no longer active")
	ErrInvalidTier          = errors.New("tier must be between 1 and 5")
	ErrUnknownPlatform      = errors.New("unknown platform")
	ErrPlatformLocked       = errors.New("platform is locked at the current career level")
	ErrNoPlatforms          = errors.New("at least one release platform is required")
	ErrInvalidPromotion     = errors.New("promotion type must be social, radio, playlist or tour")
	ErrInvalidBudget        = errors.New("budget must be > 0")
	ErrPromotionLocked      = errors.New("promotion type is locked at the current career level")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrAlbumTrackCount      = errors.New("album needs between 3 and 20 songs")
	ErrSongInAlbum          = errors.New("song already belongs to an album")
	ErrFeatureAfterRelease  = errors.New("features can only be added before release")
	ErrDuplicateFeature     = errors.New("artist already featured on this song")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
	ErrInvalidName          = errors.New("invalid name")
	ErrStaleSave            = errors.New("saved game changed since it was loaded")
)

var blockedNameFragments = []string{
	"admin",
	"shit",
	"fuck",
	"bitch",
	"nazi",
}

func DollarsToMicros(v float64) int64 {
	return int64(math.Round(v * float64(MicrosPerDollar)))
}

func MicrosToDollars(v int64) float64 {
	return float64(v) / float64(MicrosPerDollar)
}

// WeekOfYear maps an absolute game week (starting at 1) onto 1..52.
func WeekOfYear(week int) int {
	if week < 1 {
		return 1
	}
	return (week-1)%WeeksPerYear + 1
}

// YearOf returns the 1-based game year containing week.
func YearOf(week int) int {
	if week < 1 {
		return 1
	}
	return (week-1)/WeeksPerYear + 1
}

func clampStat(v int) int {
	if v < StatMin {
		return StatMin
	}
	if v > StatMax {
		return StatMax
	}
	return v
}

func clampTier(tier int) int {
	if tier < MinTier {
		return MinTier
	}
	if tier > MaxTier {
		return MaxTier
	}
	return tier
}

func validateEntityName(name string) error {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(clean) > 64 {
		return fmt.Errorf("%w: name too long (max 64 chars)", ErrInvalidName)
	}
	lower := strings.ToLower(clean)
	for _, fragment := range blockedNameFragments {
		if strings.Contains(lower, fragment) {
			return fmt.Errorf("%w: name contains blocked content", ErrInvalidName)
		}
	}
	return nil
}
