package game

import (
	mathrand "math/rand"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// newID is for entities the player creates between ticks.
func newID() string {
	return uuid.NewString()
}

// derivedID names an entity created inside a tick. The same inputs always
// give the same id, so a seeded week replays byte for byte.
func derivedID(kind string, parts ...string) string {
	name := kind + "\x00" + strings.Join(parts, "\x00")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("stardom:"+name)).String()
}

// stableHash is identical across runs and processes, unlike map iteration
// or the runtime string hash.
func stableHash(parts ...string) uint64 {
	return xxhash.Sum64String(strings.Join(parts, "\x00"))
}

// hashUnit maps parts onto [0, 1).
func hashUnit(parts ...string) float64 {
	return float64(stableHash(parts...)>>11) / float64(uint64(1)<<53)
}

// entityRand derives an independent stream for one entity within a tick so
// that adding or removing other songs does not shift its draws.
func entityRand(tickSeed int64, id string) *mathrand.Rand {
	return mathrand.New(mathrand.NewSource(tickSeed ^ int64(stableHash(id))))
}
