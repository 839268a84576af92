// convert.go -- byte-slice <-> fixed-width-int-slice conversions
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

import "encoding/binary"

// u64sToByteSlice encodes a uint64 slice as little-endian bytes, the
// layout ChmDBWriter's offset table and chm's own marshaller mmap back in.
func u64sToByteSlice(v []uint64) []byte {
	b := make([]byte, len(v)*8)
	for i, x := range v {
		binary.LittleEndian.PutUint64(b[i*8:], x)
	}
	return b
}

// bsToUint64Slice is the inverse of u64sToByteSlice.
func bsToUint64Slice(b []byte) []uint64 {
	n := len(b) / 8
	v := make([]uint64, n)
	for i := 0; i < n; i++ {
		v[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	return v
}

