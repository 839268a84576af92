// chm_dbreader.go -- read-only access to a ChmDBWriter constant DB
//
// Uses an mmap'd offset table plus an ARC cache for hot records. The
// CHM index carries no key bytes in memory (that would defeat the
// point of a constant DB), so every Find() re-derives the candidate
// index from the two salted hashes and then reads the candidate record
// straight off disk for the byte-exact comparison.
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
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/dchest/siphash"
	"github.com/hashicorp/golang-lru/arc/v2"
	"github.com/opencoff/go-mmap"
)

// ChmDBReader provides read-only lookups against a DB built by
// ChmDBWriter.
type ChmDBReader struct {
	c *Chm

	cache *arc.ARCCache[string, []byte]

	offset []uint64 // one entry per assigned index; native byte order

	nkeys  uint64
	salt   []byte
	offtbl uint64

	mm *mmap.Mapping
	fd *os.File
	fn string
}

// NewChmDBReader opens fn (previously built by ChmDBWriter) and mmaps
// its metadata region. cache sizes the in-memory decoded-record cache;
// <= 0 selects a small default.
func NewChmDBReader(fn string, cache int) (rd *ChmDBReader, err error) {
	fd, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	if cache <= 0 {
		cache = 128
	}

	rd = &ChmDBReader{
		fd: fd,
		fn: fn,
	}

	defer func() {
		if err != nil {
			fd.Close()
		}
	}()

	st, err := fd.Stat()
	if err != nil {
		return nil, fmt.Errorf("%s: can't stat: %w", fn, err)
	}
	if st.Size() < (64 + 32) {
		return nil, fmt.Errorf("%s: file too small to be a valid chm db", fn)
	}

	var hdrb [64]byte
	if _, err = io.ReadFull(fd, hdrb[:]); err != nil {
		return nil, fmt.Errorf("%s: can't read header: %w", fn, err)
	}

	offtbl, err := rd.decodeHeader(hdrb[:], st.Size())
	if err != nil {
		return nil, err
	}

	if err = rd.verifyChecksum(hdrb[:], offtbl, st.Size()); err != nil {
		return nil, err
	}

	offsz := rd.nkeys * 8
	if uint64(st.Size()) < offtbl+offsz {
		return nil, fmt.Errorf("%s: corrupt offset table", fn)
	}

	rd.cache, err = arc.NewARC[string, []byte](cache)
	if err != nil {
		return nil, err
	}

	mmapsz := st.Size() - int64(offtbl) - 32
	mm := mmap.New(fd)
	mapping, err := mm.Map(mmapsz, int64(offtbl), mmap.PROT_READ, mmap.F_READAHEAD)
	if err != nil {
		return nil, fmt.Errorf("%s: can't mmap %d bytes at off %d: %w", fn, mmapsz, offtbl, err)
	}
	rd.mm = mapping

	bs := mapping.Bytes()
	rd.offset = bsToUint64Slice(bs[:offsz])

	c, _, err := newChm(bs[offsz:])
	if err != nil {
		return nil, fmt.Errorf("%s: can't unmarshal chm index: %w", fn, err)
	}
	rd.c = c

	return rd, nil
}

func (rd *ChmDBReader) decodeHeader(b []byte, sz int64) (uint64, error) {
	magic := string(b[:4])
	if magic != _Magic_Chm {
		return 0, fmt.Errorf("%s: bad file magic <%s>", rd.fn, magic)
	}

	be := binary.BigEndian
	i := 4
	i += 4 // reserved flags word

	rd.salt = make([]byte, 16)
	copy(rd.salt, b[i:i+16])
	i += 16

	rd.nkeys = be.Uint64(b[i : i+8])
	i += 8
	rd.offtbl = be.Uint64(b[i : i+8])

	if rd.offtbl < 64 || int64(rd.offtbl) >= sz-32 {
		return 0, fmt.Errorf("%s: corrupt header (bad offset table location)", rd.fn)
	}
	return rd.offtbl, nil
}

func (rd *ChmDBReader) verifyChecksum(hdrb []byte, offtbl uint64, sz int64) error {
	h := sha512.New512_256()
	h.Write(hdrb)

	if _, err := rd.fd.Seek(int64(offtbl), 0); err != nil {
		return err
	}

	remsz := sz - int64(offtbl) - 32
	nw, err := io.CopyN(h, rd.fd, remsz)
	if err != nil {
		return fmt.Errorf("%s: metadata i/o error: %w", rd.fn, err)
	}
	if nw != remsz {
		return fmt.Errorf("%s: partial read verifying checksum: exp %d, saw %d", rd.fn, remsz, nw)
	}

	var expsum [32]byte
	if _, err := rd.fd.Seek(sz-32, 0); err != nil {
		return err
	}
	if _, err := io.ReadFull(rd.fd, expsum[:]); err != nil {
		return fmt.Errorf("%s: checksum i/o error: %w", rd.fn, err)
	}

	csum := h.Sum(nil)
	if subtle.ConstantTimeCompare(csum, expsum[:]) != 1 {
		return fmt.Errorf("%s: checksum failure; exp %#x, saw %#x", rd.fn, expsum[:], csum)
	}
	return nil
}

// Len returns the number of keys in the DB.
func (rd *ChmDBReader) Len() int {
	return int(rd.nkeys)
}

// Close releases the mmap and any open file descriptors.
func (rd *ChmDBReader) Close() {
	if rd.mm != nil {
		rd.mm.Unmap()
	}
	if rd.fd != nil {
		rd.fd.Close()
	}
	if rd.cache != nil {
		rd.cache.Purge()
	}
	rd.c = nil
	rd.fd = nil
	rd.fn = ""
}

// indexFor computes the candidate assigned index for key without
// touching disk. A false return means key definitely isn't in the DB
// (e.g. it's longer than any key seen at construction time).
func (rd *ChmDBReader) indexFor(key []byte) (uint64, bool) {
	r1, ok := rd.c.h1.hashConst(key)
	if !ok {
		return 0, false
	}
	r2, ok := rd.c.h2.hashConst(key)
	if !ok {
		return 0, false
	}

	sum := rd.c.g[r1] + rd.c.g[r2]
	i := sum % int64(rd.c.m)
	if i < 0 {
		i += int64(rd.c.m)
	}
	if i >= int64(rd.c.n) {
		return 0, false
	}
	return uint64(i), true
}

// Find looks up key and returns its stored value. It returns ErrNoKey
// both when the MPH maps key outside the valid range and when the
// candidate record's stored key doesn't byte-match -- a key never
// presented to the DBWriter always looks like one or the other.
func (rd *ChmDBReader) Find(key []byte) ([]byte, error) {
	ks := string(key)
	if v, ok := rd.cache.Get(ks); ok {
		return v, nil
	}

	i, ok := rd.indexFor(key)
	if !ok {
		return nil, ErrNoKey
	}

	off := rd.offset[i]
	k, v, err := rd.readRecordAt(off)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(k, key) {
		return nil, ErrNoKey
	}

	rd.cache.Add(ks, v)
	return v, nil
}

// readRecordAt reads one on-disk record (cksum + keylen + vallen + key +
// val) at byte offset off and verifies its checksum.
func (rd *ChmDBReader) readRecordAt(off uint64) (key, val []byte, err error) {
	if _, err = rd.fd.Seek(int64(off), 0); err != nil {
		return nil, nil, err
	}

	var hdr [16]byte
	if _, err = io.ReadFull(rd.fd, hdr[:]); err != nil {
		return nil, nil, err
	}

	be := binary.BigEndian
	csum := be.Uint64(hdr[:8])
	klen := be.Uint32(hdr[8:12])
	vlen := be.Uint32(hdr[12:16])

	body := make([]byte, klen+vlen)
	if _, err = io.ReadFull(rd.fd, body); err != nil {
		return nil, nil, err
	}

	var o [8]byte
	be.PutUint64(o[:], off)

	h := siphash.New(rd.salt)
	h.Write(o[:])
	h.Write(hdr[8:16])
	h.Write(body)

	if exp := h.Sum64(); exp != csum {
		return nil, nil, fmt.Errorf("%s: corrupted record at off %d (exp %#x, saw %#x)", rd.fn, off, exp, csum)
	}

	key = body[:klen]
	if vlen == 0 {
		return key, nil, nil
	}
	return key, body[klen:], nil
}

// IterFunc visits every record in assigned-index order, stopping at the
// first error fp returns.
func (rd *ChmDBReader) IterFunc(fp func(key, val []byte) error) error {
	for i := uint64(0); i < rd.nkeys; i++ {
		off := rd.offset[i]
		k, v, err := rd.readRecordAt(off)
		if err != nil {
			return err
		}
		if err := fp(k, v); err != nil {
			return err
		}
	}
	return nil
}

// DumpMeta writes a human-readable summary of the DB to w.
func (rd *ChmDBReader) DumpMeta(w io.Writer) {
	fmt.Fprintf(w, "chm-db %s: %d keys, offset-table @ %d\n", rd.fn, rd.nkeys, rd.offtbl)
	rd.c.DumpMeta(w)
}
