// chm_test.go -- test suite for chm
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
	"math/rand"
	"testing"
)

func TestChmSimple(t *testing.T) {
	assert := newAsserter(t)

	in := NewInputs()
	for i, s := range keyw {
		assert(in.Add([]byte(s), i) == nil, "add %s", s)
	}

	b := NewChmBuilder()
	b.Rng = rand.New(rand.NewSource(42))

	c, err := b.Freeze(in)
	assert(err == nil, "freeze: %s", err)
	assert(c.Len() == len(keyw), "len: exp %d, saw %d", len(keyw), c.Len())

	seen := make(map[int]string)
	for _, s := range keyw {
		i, ok := c.Find([]byte(s))
		assert(ok, "can't find key %s", s)
		assert(i < c.Len(), "key %s mapped to out-of-bounds index %d", s, i)

		x, dup := seen[i]
		assert(!dup, "index %d already mapped to key %q, now also %q", i, x, s)
		seen[i] = s

		p, ok := c.Lookup([]byte(s))
		assert(ok, "lookup miss for %s", s)
		idx := p.(int)
		assert(keyw[idx] == s, "payload mismatch for %s: got %q", s, keyw[idx])
	}
}

func TestChmMissingKey(t *testing.T) {
	assert := newAsserter(t)

	in := NewInputs()
	for _, s := range keyw {
		assert(in.Add([]byte(s), nil) == nil, "add %s", s)
	}

	c, err := NewChmBuilder().Freeze(in)
	assert(err == nil, "freeze: %s", err)

	_, ok := c.Find([]byte("this key was never added"))
	assert(!ok, "found a key that was never added")

	_, ok = c.Find([]byte(""))
	assert(!ok, "found the empty key")
}

func TestChmZeroLengthKeyRejected(t *testing.T) {
	assert := newAsserter(t)

	in := NewInputs()
	err := in.Add(nil, nil)
	assert(err == ErrZeroLengthKey, "expected ErrZeroLengthKey, got %v", err)
	assert(in.Count() == 0, "zero-length add should be a no-op")
}

func TestChmEmptyInputs(t *testing.T) {
	assert := newAsserter(t)

	in := NewInputs()
	_, err := NewChmBuilder().Freeze(in)
	assert(err == ErrEmptyInput, "expected ErrEmptyInput, got %v", err)
}

func TestChmEmbeddedZeroBytes(t *testing.T) {
	assert := newAsserter(t)

	keys := [][]byte{
		{0, 1, 2, 0, 3},
		{0, 0, 1}, // an all-zero key would hash to 0 under h1 and h2 (a self-loop)
		{1, 0, 1},
		[]byte("plain"),
	}

	in := NewInputs()
	for i, k := range keys {
		assert(in.Add(k, i) == nil, "add key %d", i)
	}

	c, err := NewChmBuilder().Freeze(in)
	assert(err == nil, "freeze: %s", err)

	seen := make(map[int]bool)
	for i, k := range keys {
		j, ok := c.Find(k)
		assert(ok, "can't find key %d (%v)", i, k)
		assert(!seen[j], "index %d assigned to more than one embedded-zero key", j)
		seen[j] = true

		p, ok := c.Lookup(k)
		assert(ok, "lookup miss for key %d", i)
		assert(p.(int) == i, "payload mismatch for key %d: got %v", i, p)
	}

	// a key differing only by a dropped embedded zero must not collide
	_, ok := c.Find([]byte{0, 1, 2, 3})
	assert(!ok, "byte-exact check failed to distinguish embedded-zero key")
}

func TestChmAddSafeDuplicate(t *testing.T) {
	assert := newAsserter(t)

	in := NewInputs()
	assert(in.AddSafe([]byte("foo"), 1) == nil, "first add")
	assert(in.AddSafe([]byte("foo"), 2) == nil, "duplicate add")
	assert(in.Count() == 1, "duplicate key must not grow the input set")
	assert(in.Stats == nil, "stats untouched unless enabled")

	in.Stats = &ChmStats{}
	assert(in.AddSafe([]byte("foo"), 3) == nil, "second duplicate add")
	assert(in.Stats.SafeAddHits == 1, "expected one safe-add hit, saw %d", in.Stats.SafeAddHits)
}

func TestChmRecycleInputs(t *testing.T) {
	assert := newAsserter(t)

	in := NewInputs()
	for i, s := range keyw {
		assert(in.Add([]byte(s), i) == nil, "add %s", s)
	}

	c, err := NewChmBuilder().Freeze(in)
	assert(err == nil, "freeze: %s", err)
	assert(in.Count() == 0, "Freeze must empty the Inputs on success")

	in2 := c.RecycleInputs()
	assert(in2.Count() == len(keyw), "recycled input count: exp %d, saw %d", len(keyw), in2.Count())
	assert(c.Len() == 0, "table should be emptied by RecycleInputs")

	c2, err := NewChmBuilder().Freeze(in2)
	assert(err == nil, "re-freeze: %s", err)
	for _, s := range keyw {
		_, ok := c2.Find([]byte(s))
		assert(ok, "can't find recycled key %s", s)
	}
}

func TestChmInputsFromHash(t *testing.T) {
	assert := newAsserter(t)

	in := NewInputs()
	for i, s := range keyw {
		assert(in.Add([]byte(s), i) == nil, "add %s", s)
	}

	c, err := NewChmBuilder().Freeze(in)
	assert(err == nil, "freeze: %s", err)

	in2 := c.InputsFromHash()
	assert(in2.Count() == len(keyw), "copied input count mismatch")
	assert(c.Len() == len(keyw), "InputsFromHash must not disturb the original table")

	for _, s := range keyw {
		_, ok := c.Find([]byte(s))
		assert(ok, "original table broken after InputsFromHash for %s", s)
	}
}

func TestChmDeterministicWithFixedSeed(t *testing.T) {
	assert := newAsserter(t)

	build := func() *Chm {
		in := NewInputs()
		for i, s := range keyw {
			assert(in.Add([]byte(s), i) == nil, "add %s", s)
		}
		b := NewChmBuilder()
		b.Rng = rand.New(rand.NewSource(7))
		c, err := b.Freeze(in)
		assert(err == nil, "freeze: %s", err)
		return c
	}

	c1 := build()
	c2 := build()

	for _, s := range keyw {
		i1, ok1 := c1.Find([]byte(s))
		i2, ok2 := c2.Find([]byte(s))
		assert(ok1 && ok2, "lookup miss for %s", s)
		assert(i1 == i2, "same seed produced different index for %s: %d vs %d", s, i1, i2)
	}
}

func TestChmLargeRandomSet(t *testing.T) {
	assert := newAsserter(t)

	n := 5000
	in := NewInputs()
	seen := make(map[string]bool)
	for len(seen) < n {
		k := []byte(fmt.Sprintf("key-%08x-%08x", rand.Uint32(), rand.Uint32()))
		if seen[string(k)] {
			continue
		}
		seen[string(k)] = true
		assert(in.Add(k, nil) == nil, "add %s", k)
	}

	c, err := NewChmBuilder().Freeze(in)
	assert(err == nil, "freeze: %s", err)
	assert(c.Len() == n, "len: exp %d, saw %d", n, c.Len())

	idx := make([]bool, n)
	for k := range seen {
		i, ok := c.Find([]byte(k))
		assert(ok, "can't find key %s", k)
		assert(!idx[i], "index %d assigned twice", i)
		idx[i] = true
	}
}

func TestChmMarshalRoundTrip(t *testing.T) {
	assert := newAsserter(t)

	in := NewInputs()
	for i, s := range keyw {
		assert(in.Add([]byte(s), i) == nil, "add %s", s)
	}

	c, err := NewChmBuilder().Freeze(in)
	assert(err == nil, "freeze: %s", err)

	var buf bytes.Buffer
	_, err = c.MarshalBinary(&buf)
	assert(err == nil, "marshal: %s", err)

	c2, used, err := newChm(buf.Bytes())
	assert(err == nil, "unmarshal: %s", err)
	assert(used == buf.Len(), "unmarshal consumed %d, expected %d", used, buf.Len())

	for _, s := range keyw {
		r1, ok1 := c.h1.hashConst([]byte(s))
		r2, ok2 := c.h2.hashConst([]byte(s))
		assert(ok1 && ok2, "hashConst miss on original for %s", s)

		x1, xok1 := c2.h1.hashConst([]byte(s))
		x2, xok2 := c2.h2.hashConst([]byte(s))
		assert(xok1 && xok2, "hashConst miss on unmarshalled for %s", s)
		assert(r1 == x1 && r2 == x2, "hash mismatch after round-trip for %s", s)
	}
}

func TestChmStatsEnabled(t *testing.T) {
	assert := newAsserter(t)

	in := NewInputs()
	st := &ChmStats{Enabled: true}
	in.Stats = st
	for i, s := range keyw {
		assert(in.Add([]byte(s), i) == nil, "add %s", s)
	}

	b := NewChmBuilder()
	b.Stats = st
	_, err := b.Freeze(in)
	assert(err == nil, "freeze: %s", err)

	assert(st.Iterations > 0, "expected at least one construction iteration")
	assert(st.HashesComputed > 0, "expected hash calls to be counted")
	assert(st.FinalGraphSize > uint64(len(keyw)), "final graph size should exceed key count")
}
