package game

import "strings"

// PlatformTableVersion identifies the market share table below. Bump it
// whenever shares or payout rates change so saved weekly stats can be
// compared against the table that produced them.
const PlatformTableVersion = 2

type PlatformSpec struct {
	Name string
	// Share is the platform's slice of any stream growth pool. Shares sum to 1.
	Share float64
	// RateMicros is the payout per stream.
	RateMicros int64
	// UnlockLevel is the career level at which releases may target the platform.
	UnlockLevel int
}

var platformCatalog = []PlatformSpec{
	{Name: "Streamify", Share: 0.30, RateMicros: 3_800, UnlockLevel: 1},
	{Name: "Tunevault", Share: 0.20, RateMicros: 7_000, UnlockLevel: 1},
	{Name: "ClipTube", Share: 0.18, RateMicros: 1_500, UnlockLevel: 1},
	{Name: "Soundwave", Share: 0.12, RateMicros: 2_800, UnlockLevel: 2},
	{Name: "PrimeBeats", Share: 0.12, RateMicros: 4_200, UnlockLevel: 3},
	{Name: "HiFiHaus", Share: 0.08, RateMicros: 12_000, UnlockLevel: 4},
}

// PlatformCatalog returns a copy of the canonical platform table.
func PlatformCatalog() []PlatformSpec {
	out := make([]PlatformSpec, len(platformCatalog))
	copy(out, platformCatalog)
	return out
}

func PlatformSpecFor(name string) (PlatformSpec, bool) {
	idx := catalogIndex(name)
	if idx < 0 {
		return PlatformSpec{}, false
	}
	return platformCatalog[idx], true
}

// CanonicalPlatformName returns the catalog spelling of name.
func CanonicalPlatformName(name string) (string, bool) {
	spec, ok := PlatformSpecFor(name)
	return spec.Name, ok
}

// MarketShare returns the static share for name, or 0 for unknown platforms.
func MarketShare(name string) float64 {
	spec, ok := PlatformSpecFor(name)
	if !ok {
		return 0
	}
	return spec.Share
}

// PayoutMicros converts new streams on a platform into micros.
func PayoutMicros(name string, streams int64) int64 {
	if streams <= 0 {
		return 0
	}
	spec, ok := PlatformSpecFor(name)
	if !ok {
		return 0
	}
	return streams * spec.RateMicros
}

// NewPlatforms builds the platform list for a career at level.
func NewPlatforms(level int) []StreamingPlatform {
	out := make([]StreamingPlatform, 0, len(platformCatalog))
	for _, spec := range platformCatalog {
		out = append(out, StreamingPlatform{
			Name:       spec.Name,
			IsUnlocked: level >= spec.UnlockLevel,
		})
	}
	return out
}

func catalogIndex(name string) int {
	name = strings.TrimSpace(name)
	for i, spec := range platformCatalog {
		if strings.EqualFold(spec.Name, name) {
			return i
		}
	}
	return -1
}
