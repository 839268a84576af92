// chm_hash.go -- stateful salted hash function family for CHM
//
// Implements the per-position salted hash described for the
// Czech-Havas-Majewski minimal perfect hash construction: each byte
// position of a key is multiplied by an independent random coefficient
// in [0, m) and the products are summed modulo m.
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

// maxChmKeyLen bounds the key length the int64 hash accumulator can sum
// over without overflow for any modulus up to 2^31 (255 * (2^31-1) *
// maxChmKeyLen must fit in int64).
const maxChmKeyLen = 1 << 24

// chmHash is one of the two independent salted hash functions h1, h2 used
// by CHM. Each instance owns its own salt vector; h1 and h2 share a
// randomness source but never share salt state.
type chmHash struct {
	salt  []uint64
	mod   uint64
	rng   chmRandSource
	stats *ChmStats
}

func newChmHash(rng chmRandSource) *chmHash {
	return &chmHash{rng: rng}
}

// reset drops the salt length to zero and sets the modulus for a fresh
// construction trial. The backing array is kept so repeated trials don't
// reallocate the salt buffer from scratch every time.
func (h *chmHash) reset(m uint64) {
	h.mod = m
	h.salt = h.salt[:0]
}

// extend draws fresh salt values in [0, mod) for positions
// [len(h.salt), n), advancing the salted length.
func (h *chmHash) extend(n int) {
	for len(h.salt) < n {
		if h.stats != nil {
			h.stats.RandCalls++
		}
		h.salt = append(h.salt, h.rng.Intn(h.mod))
	}
}

// hash computes the salted sum for key, drawing new salt as needed.
func (h *chmHash) hash(key []byte) uint64 {
	if h.stats != nil {
		h.stats.HashesComputed++
	}
	h.extend(len(key))
	return h.sum(key)
}

// hashConst computes the salted sum without drawing new salt. It returns
// ok=false if key is longer than any key seen during construction -- no
// inserted key could have had that length, so the caller should treat
// this as a lookup miss rather than extend the salt (which would perturb
// the RNG and break determinism).
func (h *chmHash) hashConst(key []byte) (uint64, bool) {
	if len(key) > len(h.salt) {
		return 0, false
	}
	return h.sum(key), true
}

func (h *chmHash) sum(key []byte) uint64 {
	var acc int64
	for i, b := range key {
		acc += int64(b) * int64(h.salt[i])
	}
	m := int64(h.mod)
	r := acc % m
	if r < 0 {
		r += m
	}
	return uint64(r)
}
