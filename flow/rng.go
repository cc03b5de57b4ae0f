package flow

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
)

// initRNG seeds a per-run RNG deterministically from runID, so retry
// jitter is reproducible across replays of the same run id (useful for
// debugging a flaky-looking retry sequence without needing to capture
// the actual random draws).
func initRNG(runID string) *rand.Rand {
	sum := sha256.Sum256([]byte(runID))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	return rand.New(rand.NewSource(seed))
}
