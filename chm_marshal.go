// chm_marshal.go -- marshal/unmarshal the CHM index (salts + value table)
//
// Uses a small fixed header followed by the body. This marshals only
// the index (h1, h2 salts and g[]); the key bytes themselves are
// stored separately by ChmDBWriter, since CHM must keep the real key
// bytes around to satisfy the byte-exact lookup check.
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
	"encoding/binary"
	"fmt"
	"io"
)

// chm index header: 5 x 64-bit words
//
//	byte    version
//	byte[7] resv
//	uint64  m
//	uint64  n
//	uint64  h1 salt length
//	uint64  h2 salt length
const _chmHeaderSize = 40

// MarshalBinary encodes the CHM index (not the keys) into a binary form
// suitable for durable storage.
func (c *Chm) MarshalBinary(w io.Writer) (int, error) {
	var x [_chmHeaderSize]byte
	le := binary.LittleEndian

	x[0] = 1
	le.PutUint64(x[8:16], c.m)
	le.PutUint64(x[16:24], uint64(c.n))
	le.PutUint64(x[24:32], uint64(len(c.h1.salt)))
	le.PutUint64(x[32:40], uint64(len(c.h2.salt)))

	wr := newErrWriter(w)
	n, _ := wr.Write(x[:])

	n += writeU64Slice(wr, c.h1.salt)
	n += writeU64Slice(wr, c.h2.salt)

	gv := make([]uint64, len(c.g))
	for i, v := range c.g {
		gv[i] = uint64(v)
	}
	n += writeU64Slice(wr, gv)

	return n, wr.Error()
}

func writeU64Slice(w io.Writer, v []uint64) int {
	bs := u64sToByteSlice(v)
	n, _ := w.Write(bs)
	return n
}

// newChm reads a previously marshalled CHM index from buf (assumed
// memory-mapped) and returns it without any key bytes attached --
// ChmDBReader reads each candidate key from its on-disk record instead.
func newChm(buf []byte) (*Chm, int, error) {
	if len(buf) < _chmHeaderSize {
		return nil, 0, ErrTooSmall
	}

	hdr := buf[:_chmHeaderSize]
	if hdr[0] != 1 {
		return nil, 0, fmt.Errorf("chm: no support to un-marshal version %d", hdr[0])
	}

	le := binary.LittleEndian
	m := le.Uint64(hdr[8:16])
	n := le.Uint64(hdr[16:24])
	h1len := le.Uint64(hdr[24:32])
	h2len := le.Uint64(hdr[32:40])

	buf = buf[_chmHeaderSize:]
	used := _chmHeaderSize

	need := (h1len + h2len + m) * 8
	if uint64(len(buf)) < need {
		return nil, 0, ErrTooSmall
	}

	h1salt := bsToUint64Slice(buf[:h1len*8])
	buf = buf[h1len*8:]
	h2salt := bsToUint64Slice(buf[:h2len*8])
	buf = buf[h2len*8:]
	gu := bsToUint64Slice(buf[:m*8])
	used += int(need)

	g := make([]int64, m)
	for i, v := range gu {
		g[i] = int64(v)
	}

	c := &Chm{
		h1: &chmHash{salt: h1salt, mod: m},
		h2: &chmHash{salt: h2salt, mod: m},
		g:  g,
		m:  m,
		n:  int(n),
	}
	return c, used, nil
}
