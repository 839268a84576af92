// chm_dbwriter.go -- constant DB built on top of the CHM minimal perfect hash
//
// ChmDBWriter is keyed by the caller's raw byte strings rather than a
// pre-hashed uint64: a lookup must byte-compare the candidate record's
// stored key against the query, so the real key bytes travel all the
// way to disk. The on-disk layout is a 64-byte big-endian header, a
// page-aligned offset table, the marshalled MPH index, and a
// SHA512-256 trailer checksum over the header and everything from the
// offset table onward. The records are not covered by the trailer;
// per-record integrity uses a siphash-2-4 scheme.
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
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/dchest/siphash"
)

const _Magic_Chm = "MPHM"

// chmValue is the record locator stashed as each chmKey's payload while
// the DB is being built; after Freeze(), the frozen Chm's keys carry
// these in assigned-index order, which is exactly the order the offset
// table needs.
type chmValue struct {
	off  uint64
	vlen uint32
}

// ChmDBWriter builds a read-only, byte-keyed constant database backed by
// a CHM minimal perfect hash.
type ChmDBWriter struct {
	fd *os.File
	in *Inputs

	seen map[string]bool

	salt []byte
	off  uint64

	valSize uint64

	fntmp string
	fn    string
	state wstate
}

// NewChmDBWriter prepares file 'fn' to hold a constant DB built using the
// CHM minimal perfect hash function.
func NewChmDBWriter(fn string) (*ChmDBWriter, error) {
	tmp := fmt.Sprintf("%s.tmp.%d", fn, rand32())
	fd, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}

	w := &ChmDBWriter{
		fd:    fd,
		in:    NewInputs(),
		seen:  make(map[string]bool),
		salt:  randbytes(16),
		off:   64,
		fn:    fn,
		fntmp: tmp,
	}

	var z [64]byte
	if _, err := writeAll(fd, z[:]); err != nil {
		return nil, err
	}
	return w, nil
}

// Len returns the number of distinct keys added so far.
func (w *ChmDBWriter) Len() int {
	return w.in.Count()
}

// Filename returns the name of the underlying db.
func (w *ChmDBWriter) Filename() string {
	return w.fn
}

// Add adds a single key/value pair. Records with duplicate keys are
// rejected with ErrExists.
func (w *ChmDBWriter) Add(key, val []byte) error {
	if w.state != _Open {
		return ErrFrozen
	}
	if uint64(len(val)) > uint64(1<<32)-1 {
		return ErrValueTooLarge
	}
	if w.seen[string(key)] {
		return ErrExists
	}

	v := &chmValue{off: w.off}
	if err := w.writeRecord(key, val, v); err != nil {
		return err
	}
	w.valSize += uint64(len(val))

	if err := w.in.Add(key, v); err != nil {
		return err
	}
	w.seen[string(key)] = true
	return nil
}

// AddKeyVals adds a series of key/value pairs; unequal-length inputs use
// only the smaller of the two lengths. Returns the number added.
func (w *ChmDBWriter) AddKeyVals(keys [][]byte, vals [][]byte) (int, error) {
	if w.state != _Open {
		return 0, ErrFrozen
	}

	n := len(keys)
	if len(vals) < n {
		n = len(vals)
	}

	var z int
	for i := 0; i < n; i++ {
		if err := w.Add(keys[i], vals[i]); err != nil {
			return z, err
		}
		z++
	}
	return z, nil
}

// Abort discards the in-progress DB.
func (w *ChmDBWriter) Abort() error {
	if w.state != _Open {
		return ErrFrozen
	}
	return w.abort()
}

func (w *ChmDBWriter) abort() error {
	if err := os.Remove(w.fd.Name()); err != nil {
		return err
	}
	if err := w.fd.Close(); err != nil {
		return err
	}
	w.state = _Aborted
	return nil
}

// writeRecord writes: cksum(8) + keylen(4) + vallen(4) + key + val, and
// fills in v.vlen.
func (w *ChmDBWriter) writeRecord(key, val []byte, v *chmValue) error {
	var kl, vl [4]byte
	be := binary.BigEndian
	be.PutUint32(kl[:], uint32(len(key)))
	be.PutUint32(vl[:], uint32(len(val)))

	var o [8]byte
	be.PutUint64(o[:], v.off)

	h := siphash.New(w.salt)
	h.Write(o[:])
	h.Write(kl[:])
	h.Write(vl[:])
	h.Write(key)
	h.Write(val)

	var c [8]byte
	be.PutUint64(c[:], h.Sum64())

	if _, err := writeAll(w.fd, c[:]); err != nil {
		return err
	}
	if _, err := writeAll(w.fd, kl[:]); err != nil {
		return err
	}
	if _, err := writeAll(w.fd, vl[:]); err != nil {
		return err
	}
	if _, err := writeAll(w.fd, key); err != nil {
		return err
	}
	if len(val) > 0 {
		if _, err := writeAll(w.fd, val); err != nil {
			return err
		}
	}

	v.vlen = uint32(len(val))
	w.off += 8 + 4 + 4 + uint64(len(key)) + uint64(len(val))
	return nil
}

// Freeze builds the CHM, writes the DB and closes it. b may be nil, in
// which case the default construction-loop tunables are used.
func (w *ChmDBWriter) Freeze(b *ChmBuilder) (err error) {
	defer func(e *error) {
		if *e != nil {
			w.abort()
		}
	}(&err)

	if w.state != _Open {
		return ErrFrozen
	}
	if b == nil {
		b = NewChmBuilder()
	}

	c, err := b.Freeze(w.in)
	if err != nil {
		return err
	}

	h := sha512.New512_256()
	tee := io.MultiWriter(w.fd, h)

	pgsz := uint64(os.Getpagesize())
	pgszM1 := pgsz - 1
	offtbl := w.off + pgszM1
	offtbl &= ^pgszM1
	if offtbl > w.off {
		zeroes := make([]byte, offtbl-w.off)
		if _, err = writeAll(w.fd, zeroes); err != nil {
			return err
		}
		w.off = offtbl
	}

	var ehdr [64]byte
	be := binary.BigEndian
	copy(ehdr[:4], _Magic_Chm)
	i := 4
	i += 4 // reserved flags word; CHM DBs always carry key bytes
	i += copy(ehdr[i:], w.salt)
	be.PutUint64(ehdr[i:i+8], uint64(c.Len()))
	i += 8
	be.PutUint64(ehdr[i:i+8], offtbl)

	h.Write(ehdr[:])

	offsets := make([]uint64, c.Len())
	for idx, k := range c.keys {
		v := k.payload.(*chmValue)
		offsets[idx] = v.off
	}

	bs := u64sToByteSlice(offsets)
	if _, err = writeAll(tee, bs); err != nil {
		return err
	}
	w.off += uint64(len(bs))

	align := w.off + 7
	align &= ^uint64(7)
	if align > w.off {
		zeroes := make([]byte, align-w.off)
		if _, err = writeAll(tee, zeroes); err != nil {
			return err
		}
		w.off = align
	}

	var nw int
	nw, err = c.MarshalBinary(tee)
	if err != nil {
		return err
	}
	w.off += uint64(nw)

	cksum := h.Sum(nil)
	if _, err = writeAll(w.fd, cksum[:]); err != nil {
		return err
	}

	w.fd.Seek(0, 0)
	if _, err = writeAll(w.fd, ehdr[:]); err != nil {
		return err
	}
	if err = w.fd.Sync(); err != nil {
		return err
	}
	if err = w.fd.Close(); err != nil {
		return err
	}
	if err = os.Rename(w.fntmp, w.fn); err != nil {
		return err
	}
	w.state = _Frozen
	return nil
}
