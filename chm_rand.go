// chm_rand.go -- randomness source for CHM salt generation
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package mph

import (
	"math/rand"
	"sync"
)

// chmRandSource is the minimal interface the hash family needs from a
// randomness source: a uniform draw in [0, n). CHM never seeds this
// stream itself -- the caller is responsible for seeding it before
// construction.
type chmRandSource interface {
	Intn(n uint64) uint64
}

// process-global stream. Until Seed is called it starts from a fixed
// seed of 1, so it yields the same sequence on every run.
var (
	globalRandMu sync.Mutex
	globalRand   = rand.New(rand.NewSource(1))
)

// Seed reseeds the process-global randomness stream used by builders
// that don't carry their own *rand.Rand in ChmBuilder.Rng. Construction
// must not be run concurrently from multiple goroutines against the
// same stream without external serialization.
func Seed(seed int64) {
	globalRandMu.Lock()
	globalRand = rand.New(rand.NewSource(seed))
	globalRandMu.Unlock()
}

type globalRandSource struct{}

func (globalRandSource) Intn(n uint64) uint64 {
	globalRandMu.Lock()
	v := globalRand.Uint64() % n
	globalRandMu.Unlock()
	return v
}

// localRandSource wraps a caller-supplied *rand.Rand, letting a builder
// thread its own RNG through construction instead of sharing the
// process-global stream.
type localRandSource struct {
	r *rand.Rand
}

func (l localRandSource) Intn(n uint64) uint64 {
	return uint64(l.r.Int63n(int64(n)))
}
