// chm.go -- Czech-Havas-Majewski minimal perfect hash construction
//
// Builds a minimal perfect hash function over a static set of byte-string
// keys: two salted hash functions h1, h2 place each key as an edge in a
// graph of m >= N+1 vertices; if the induced graph is acyclic, vertex
// values can be assigned so that (g[h1(k)] + g[h2(k)]) mod m yields the
// key's unique index in [0, N). Construction retries with fresh salt on
// a cycle and grows m geometrically when retries keep failing.
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
	"bytes"
	"fmt"
	"io"
	"math/rand"
)

// chmKey is one owned key record. buf is always backed by an array with
// one spare trailing byte (left zero) for callers that want to treat it
// as a NUL-terminated C string -- except keys added via AddNoCopy, which
// preserve exactly what the caller supplied.
type chmKey struct {
	buf     []byte
	payload interface{}
	noCopy  bool
}

// Inputs is the ordered collection of keys fed to a ChmBuilder. Insertion
// order determines each key's assigned index. Inputs does not enforce
// uniqueness unless AddSafe is used.
//
// Precondition (not checked by Add): the caller must not insert the same
// key bytes twice. Violating this makes the resulting MPHF undefined --
// two edges sharing a key produce a cycle or a mislabeling.
type Inputs struct {
	keys  []*chmKey
	Stats *ChmStats
}

// NewInputs creates an empty input collector.
func NewInputs() *Inputs {
	return &Inputs{keys: make([]*chmKey, 0, 16)}
}

// Reserve grows the collector's capacity hint to at least n entries. It
// never shrinks.
func (in *Inputs) Reserve(n int) {
	if n <= cap(in.keys) {
		return
	}
	nk := make([]*chmKey, len(in.keys), n)
	copy(nk, in.keys)
	in.keys = nk
	if in.Stats != nil {
		in.Stats.Enabled = true
		in.Stats.InputGrowthEvents++
		in.Stats.InputCapacity = cap(in.keys)
	}
}

// Count returns the number of keys currently held.
func (in *Inputs) Count() int {
	return len(in.keys)
}

// Add appends a copy of key with the given payload. A zero-length key is
// rejected: it emits a warning and the call is a no-op.
func (in *Inputs) Add(key []byte, payload interface{}) error {
	if len(key) == 0 {
		warn("mph: zero-length key ignored")
		return ErrZeroLengthKey
	}
	if len(key) > maxChmKeyLen {
		return ErrKeyTooLarge
	}

	raw := make([]byte, len(key)+1)
	copy(raw, key)
	in.appendGrow(&chmKey{buf: raw[:len(key)], payload: payload})
	return nil
}

// AddSafe scans existing entries for a byte-equal match before adding;
// on a hit it is a no-op, on a miss it behaves like Add. This is O(N) per
// call by design -- a caller convenience, not a fast path.
func (in *Inputs) AddSafe(key []byte, payload interface{}) error {
	for _, k := range in.keys {
		if bytes.Equal(k.buf, key) {
			if in.Stats != nil {
				in.Stats.Enabled = true
				in.Stats.SafeAddHits++
			}
			return nil
		}
	}
	if in.Stats != nil {
		in.Stats.Enabled = true
		in.Stats.SafeAddMisses++
	}
	return in.Add(key, payload)
}

// AddNoCopy takes ownership of key without copying it and without
// guaranteeing a trailing zero byte. The caller must not mutate key
// afterwards.
func (in *Inputs) AddNoCopy(key []byte, payload interface{}) error {
	if len(key) == 0 {
		warn("mph: zero-length key ignored")
		return ErrZeroLengthKey
	}
	if len(key) > maxChmKeyLen {
		return ErrKeyTooLarge
	}
	in.appendGrow(&chmKey{buf: key, payload: payload, noCopy: true})
	return nil
}

func (in *Inputs) appendGrow(k *chmKey) {
	before := cap(in.keys)
	in.keys = append(in.keys, k)
	if in.Stats != nil && cap(in.keys) != before {
		in.Stats.Enabled = true
		in.Stats.InputGrowthEvents++
		in.Stats.InputCapacity = cap(in.keys)
	}
}

// Apply visits every entry in insertion order.
func (in *Inputs) Apply(fn func(key []byte, payload interface{})) {
	for _, k := range in.keys {
		fn(k.buf, k.payload)
	}
}

// Default construction-loop tunables.
const (
	DefaultIterMaxMult = 650
	DefaultGrowEvery   = 5
	DefaultGrowthNum   = 1075
	DefaultGrowthDen   = 1024
)

// ChmBuilder drives the CHM construction loop: it retries with fresh
// salt on a cyclic graph and grows the graph's vertex count when
// retries keep failing, up to IterMaxMult*(N+1) vertices.
type ChmBuilder struct {
	IterMaxMult int
	GrowEvery   int
	GrowthNum   int
	GrowthDen   int

	// Rng, if non-nil, is used instead of the process-global randomness
	// stream -- a cleaner, reproducible alternative for tests.
	Rng *rand.Rand

	// Stats, if non-nil, accumulates construction counters.
	Stats *ChmStats
}

// NewChmBuilder returns a builder configured with sane default
// tunables for the construction loop.
func NewChmBuilder() *ChmBuilder {
	return &ChmBuilder{
		IterMaxMult: DefaultIterMaxMult,
		GrowEvery:   DefaultGrowEvery,
		GrowthNum:   DefaultGrowthNum,
		GrowthDen:   DefaultGrowthDen,
	}
}

func (b *ChmBuilder) rngSource() chmRandSource {
	if b.Rng != nil {
		return localRandSource{b.Rng}
	}
	return globalRandSource{}
}

// Chm is a frozen minimal perfect hash table over a set of byte-string
// keys: the keys themselves (ownership moved from Inputs), the two
// frozen salted hash functions, and the value array g[0..m).
type Chm struct {
	keys []*chmKey
	h1   *chmHash
	h2   *chmHash
	g    []int64
	m    uint64
	n    int
}

// Freeze builds the MPH for the keys currently in in. On success, in's
// keys are moved into the returned table and in is left empty (but still
// usable). On failure, in is untouched.
func (b *ChmBuilder) Freeze(in *Inputs) (*Chm, error) {
	n := in.Count()
	if n == 0 {
		return nil, ErrEmptyInput
	}

	iterMaxMult := b.IterMaxMult
	growEvery := b.GrowEvery
	growthNum := b.GrowthNum
	growthDen := b.GrowthDen
	if iterMaxMult <= 0 {
		iterMaxMult = DefaultIterMaxMult
	}
	if growEvery <= 0 {
		growEvery = DefaultGrowEvery
	}
	if growthNum <= 0 {
		growthNum = DefaultGrowthNum
	}
	if growthDen <= 0 {
		growthDen = DefaultGrowthDen
	}

	rng := b.rngSource()
	h1 := newChmHash(rng)
	h2 := newChmHash(rng)
	h1.stats = b.Stats
	h2.stats = b.Stats

	m := uint64(n + 1)
	graph := newChmGraph(m)
	graph.stats = b.Stats

	scaled := m * uint64(growthDen)
	iterMax := uint64(iterMaxMult) * uint64(n+1)

	iteration := 0
	for {
		if iteration > 0 && iteration%growEvery == 0 {
			scaled = scaled * uint64(growthNum) / uint64(growthDen)
			mNext := scaled / uint64(growthDen)
			if mNext > m {
				m = mNext
				graph.ensureVertices(m)
			}
			if m >= iterMax {
				warn("mph: chm construction gave up after %d iterations (m=%d, n=%d)", iteration, m, n)
				return nil, ErrConstructionExhausted
			}
		}

		iteration++
		if b.Stats != nil {
			b.Stats.Enabled = true
			b.Stats.Iterations++
		}

		graph.wipe()
		h1.reset(m)
		h2.reset(m)

		for i := 0; i < n; i++ {
			key := in.keys[i].buf
			if b.Stats != nil && len(key) > b.Stats.MaxKeyLen {
				b.Stats.MaxKeyLen = len(key)
			}
			a := h1.hash(key)
			c := h2.hash(key)
			graph.biconnect(a, c, i)
		}

		if graph.resolve() {
			break
		}
	}

	if b.Stats != nil {
		b.Stats.FinalGraphSize = m
		b.Stats.MinEdgeCap = cap(graph.verts[0].edges)
		for i := range graph.verts {
			c := cap(graph.verts[i].edges)
			if c < b.Stats.MinEdgeCap {
				b.Stats.MinEdgeCap = c
			}
			if c > b.Stats.MaxEdgeCap {
				b.Stats.MaxEdgeCap = c
			}
		}
	}

	gval := make([]int64, m)
	for i := range graph.verts {
		gval[i] = graph.verts[i].value
	}

	keys := in.keys
	in.keys = nil

	c := &Chm{
		keys: keys,
		h1:   h1,
		h2:   h2,
		g:    gval,
		m:    m,
		n:    n,
	}
	return c, nil
}

// Len returns the number of keys in the table.
func (c *Chm) Len() int {
	return c.n
}

// Find returns the assigned index for key and whether it was found.
func (c *Chm) Find(key []byte) (int, bool) {
	i, _, ok := c.lookup(key)
	return i, ok
}

// Lookup returns the payload stored alongside key, if key was part of
// the original key set.
func (c *Chm) Lookup(key []byte) (interface{}, bool) {
	_, k, ok := c.lookup(key)
	if !ok {
		return nil, false
	}
	return k.payload, true
}

func (c *Chm) lookup(key []byte) (int, *chmKey, bool) {
	r1, ok := c.h1.hashConst(key)
	if !ok {
		return 0, nil, false
	}
	r2, ok := c.h2.hashConst(key)
	if !ok {
		return 0, nil, false
	}

	sum := c.g[r1] + c.g[r2]
	i := sum % int64(c.m)
	if i < 0 {
		i += int64(c.m)
	}
	if i >= int64(c.n) {
		return 0, nil, false
	}

	k := c.keys[i]
	if !bytes.Equal(k.buf, key) {
		return 0, nil, false
	}
	return int(i), k, true
}

// Apply visits every stored key, in assigned-index order.
func (c *Chm) Apply(fn func(key []byte, payload interface{})) {
	for _, k := range c.keys {
		fn(k.buf, k.payload)
	}
}

// Keys returns a slice of the stored key bytes (in assigned-index order)
// and the count.
func (c *Chm) Keys() ([][]byte, int) {
	out := make([][]byte, len(c.keys))
	for i, k := range c.keys {
		out[i] = k.buf
	}
	return out, len(out)
}

// RecycleInputs destroys the table's key ownership and hands it back to
// the caller as a fresh Inputs, in the original insertion order.
func (c *Chm) RecycleInputs() *Inputs {
	in := &Inputs{keys: c.keys}
	c.keys = nil
	c.n = 0
	return in
}

// InputsFromHash returns a copy of the table's keys as a fresh Inputs,
// leaving the table itself intact.
func (c *Chm) InputsFromHash() *Inputs {
	keys := make([]*chmKey, len(c.keys))
	for i, k := range c.keys {
		nk := &chmKey{payload: k.payload}
		if k.noCopy {
			nk.buf = k.buf
			nk.noCopy = true
		} else {
			buf := make([]byte, len(k.buf)+1)
			copy(buf, k.buf)
			nk.buf = buf[:len(k.buf)]
		}
		keys[i] = nk
	}
	return &Inputs{keys: keys}
}

// DumpMeta writes a human-readable summary of the table to w.
func (c *Chm) DumpMeta(w io.Writer) {
	fmt.Fprintf(w, "chm: %d keys, m=%d, salt lengths h1=%d h2=%d\n",
		c.n, c.m, len(c.h1.salt), len(c.h2.salt))
}
