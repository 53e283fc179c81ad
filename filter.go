// filter.go - MPHF-addressed membership filter
//
// A Filter answers approximate set membership with zero false
// negatives: every key in the original build set always returns true;
// keys outside it return true with probability roughly 2^-b, where b
// is the fingerprint width. It differs from a MPHF Dict's own
// fingerprint validation only in scale (dedicated bit width, larger
// checkpoint stride) — same shape of table as fingerprint.go's
// bit-packed arrays, generalized with periodic checkpoints for
// sequential-decode friendliness on very large key sets.
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
	"encoding/binary"
	"io"
)

const filterCheckpointStride = 128

// Filter is a fixed-width bit-packed membership filter over a key set,
// addressed by a fingerprint-free MPHF. It is immutable and safe for
// concurrent read-only use once built or decoded.
type Filter struct {
	mphf *Dict
	bits int // fingerprint width in {6,8,10,12,14,16}
	fp   []byte

	// checkpoints[i] is the cumulative bit offset of slot i*128 into
	// fp; present only to speed random access into a variable-length
	// compressed fingerprint stream, so it is derived rather than
	// persisted (fp here is fixed-width, so it is recomputed trivially
	// from bits, not stored on the wire — see MarshalBinary).
	checkpoints []uint64
}

// BuildFilter builds a Filter over keys with the given fingerprint
// width in bits (one of 6,8,10,12,14,16). validationMode on the
// embedded MPHF is always ValidationNone: the filter's own fingerprint
// array supersedes it.
func BuildFilter(keys []string, bits int) (*Filter, error) {
	if len(keys) == 0 {
		return nil, ErrEmptyKeys
	}
	switch bits {
	case 6, 8, 10, 12, 14, 16:
	default:
		return nil, &DecodeError{Reason: "invalid filter fingerprint width"}
	}

	mphf, err := Build(keys, BuildOptions{ValidationMode: ValidationNone})
	if err != nil {
		return nil, err
	}

	tbl := newFingerprintTable(mphf.Len(), bits)
	mask := uint64(1)<<uint(bits) - 1
	for _, k := range keys {
		slot := mphf.Hash(k)
		v := uint64(strHash32(k, fpSeed)) & mask
		tbl.set(uint32(slot), v)
	}

	f := &Filter{mphf: mphf, bits: bits, fp: tbl.bytes()}
	f.buildCheckpoints()
	return f, nil
}

func (f *Filter) buildCheckpoints() {
	n := f.mphf.Len()
	nck := (n + filterCheckpointStride - 1) / filterCheckpointStride
	f.checkpoints = make([]uint64, nck)
	for i := range f.checkpoints {
		f.checkpoints[i] = uint64(i*filterCheckpointStride) * uint64(f.bits)
	}
}

// Has reports whether x is (probably) a member of the build set. It
// never returns a false negative for a key that was actually built in.
func (f *Filter) Has(x string) bool {
	i := f.mphf.Hash(x)
	if i < 0 {
		return false
	}
	want := uint64(strHash32(x, fpSeed)) & (uint64(1)<<uint(f.bits) - 1)
	got := fingerprintAt(f.fp, f.bits, uint32(i))
	return got == want
}

// MarshalBinary encodes f as an embedded MPHF followed by the bit
// width and the raw fingerprint bytes. Checkpoints are not persisted;
// they are cheap to recompute from bits and mphf.Len() at decode time
// since this filter's fingerprint width is fixed, not variable-length.
func (f *Filter) MarshalBinary(w io.Writer) (int, error) {
	var mphfBuf [4]byte
	body := make([]byte, 0, len(f.fp)+16)

	var dictBuf bytes.Buffer
	if _, err := f.mphf.MarshalBinary(&dictBuf); err != nil {
		return 0, err
	}
	binary.BigEndian.PutUint32(mphfBuf[:], uint32(dictBuf.Len()))
	body = append(body, mphfBuf[:]...)
	body = append(body, dictBuf.Bytes()...)

	var bitsBuf [4]byte
	binary.BigEndian.PutUint32(bitsBuf[:], uint32(f.bits))
	body = append(body, bitsBuf[:]...)
	body = append(body, f.fp...)

	n, err := w.Write(body)
	if err != nil {
		return n, err
	}
	if n != len(body) {
		return n, errShortWrite("Filter.MarshalBinary", n)
	}
	return n, nil
}

// DecodeFilter parses the framing produced by MarshalBinary.
func DecodeFilter(buf []byte) (*Filter, error) {
	mphfLen, err := getU32(buf)
	if err != nil {
		return nil, err
	}
	buf = buf[4:]
	if len(buf) < int(mphfLen) {
		return nil, &DecodeError{Reason: "truncated embedded mphf"}
	}
	mphf, err := DecodeDict(buf[:mphfLen])
	if err != nil {
		return nil, err
	}
	buf = buf[mphfLen:]

	bits, err := getU32(buf)
	if err != nil {
		return nil, err
	}
	buf = buf[4:]

	f := &Filter{mphf: mphf, bits: int(bits), fp: buf}
	f.buildCheckpoints()
	return f, nil
}
