// chm_db_test.go -- test suite for ChmDBWriter/ChmDBReader
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
	"fmt"
	"math/rand"
	"os"
	"testing"
)

// keep, when true, leaves the test DB files in place after each test.
var keep bool

func TestChmDB(t *testing.T) {
	assert := newAsserter(t)

	fn := fmt.Sprintf("%s/chm%d.db", os.TempDir(), rand.Int())

	wr, err := NewChmDBWriter(fn)
	assert(err == nil, "can't create db %s: %s", fn, err)

	defer func() {
		if keep {
			t.Logf("DB in %s retained after test\n", fn)
		} else {
			os.Remove(fn)
		}
	}()

	kvmap := make(map[string]string)
	for _, s := range keyw {
		err := wr.Add([]byte(s), []byte(s+"-value"))
		assert(err == nil, "can't add key %s: %s", s, err)
		kvmap[s] = s + "-value"
	}

	err = wr.Freeze(nil)
	assert(err == nil, "freeze failed: %s", err)

	rd, err := NewChmDBReader(fn, 10)
	assert(err == nil, "read failed: %s", err)
	defer rd.Close()

	assert(rd.Len() == len(keyw), "len: exp %d, saw %d", len(keyw), rd.Len())

	for k, v := range kvmap {
		s, err := rd.Find([]byte(k))
		assert(err == nil, "can't find key %s: %s", k, err)
		assert(string(s) == v, "key %s: value mismatch; exp %q, saw %q", k, v, string(s))
	}

	for i := 0; i < 10; i++ {
		k := fmt.Sprintf("no-such-key-%d", i)
		v, err := rd.Find([]byte(k))
		assert(err != nil, "whoa: found key %s => %s", k, string(v))
	}
}

func TestChmDBZeroLengthValues(t *testing.T) {
	assert := newAsserter(t)

	fn := fmt.Sprintf("%s/chmkeysonly%d.db", os.TempDir(), rand.Int())

	wr, err := NewChmDBWriter(fn)
	assert(err == nil, "can't create db %s: %s", fn, err)

	defer func() {
		if keep {
			t.Logf("DB in %s retained after test\n", fn)
		} else {
			os.Remove(fn)
		}
	}()

	for _, s := range keyw {
		err := wr.Add([]byte(s), nil)
		assert(err == nil, "can't add key %s: %s", s, err)
	}

	err = wr.Freeze(nil)
	assert(err == nil, "freeze failed: %s", err)

	rd, err := NewChmDBReader(fn, 10)
	assert(err == nil, "read failed: %s", err)
	defer rd.Close()

	for _, s := range keyw {
		v, err := rd.Find([]byte(s))
		assert(err == nil, "can't find key %s: %s", s, err)
		assert(len(v) == 0, "key %s: expected empty value, saw %q", s, string(v))
	}
}

func TestChmDBDuplicateKeyRejected(t *testing.T) {
	assert := newAsserter(t)

	fn := fmt.Sprintf("%s/chmdup%d.db", os.TempDir(), rand.Int())

	wr, err := NewChmDBWriter(fn)
	assert(err == nil, "can't create db %s: %s", fn, err)

	assert(wr.Add([]byte("foo"), []byte("1")) == nil, "first add")
	err = wr.Add([]byte("foo"), []byte("2"))
	assert(err == ErrExists, "expected ErrExists, got %v", err)

	assert(wr.Abort() == nil, "abort failed")
}

func TestChmDBIterFunc(t *testing.T) {
	assert := newAsserter(t)

	fn := fmt.Sprintf("%s/chmiter%d.db", os.TempDir(), rand.Int())

	wr, err := NewChmDBWriter(fn)
	assert(err == nil, "can't create db %s: %s", fn, err)

	defer func() {
		if keep {
			t.Logf("DB in %s retained after test\n", fn)
		} else {
			os.Remove(fn)
		}
	}()

	for _, s := range keyw {
		assert(wr.Add([]byte(s), []byte(s)) == nil, "add %s", s)
	}
	assert(wr.Freeze(nil) == nil, "freeze failed")

	rd, err := NewChmDBReader(fn, 10)
	assert(err == nil, "read failed: %s", err)
	defer rd.Close()

	seen := make(map[string]bool)
	err = rd.IterFunc(func(k, v []byte) error {
		seen[string(k)] = true
		assert(string(k) == string(v), "key/value mismatch during iteration: %q vs %q", k, v)
		return nil
	})
	assert(err == nil, "iterfunc: %s", err)
	assert(len(seen) == len(keyw), "iterated %d records, expected %d", len(seen), len(keyw))
}
