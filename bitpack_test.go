// bitpack_test.go -- test suite for varint/nibble/bit-pack helpers
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

import "testing"

func TestUvarintRoundtrip(t *testing.T) {
	assert := newAsserter(t)

	vals := []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40, ^uint64(0)}
	for _, v := range vals {
		var buf []byte
		buf = putUvarint(buf, v)
		got, n := getUvarint(buf)
		assert(n == len(buf), "getUvarint(%d) consumed %d, want %d", v, n, len(buf))
		assert(got == v, "getUvarint roundtrip: got %d, want %d", got, v)
	}
}

func TestUvarintShortBuffer(t *testing.T) {
	assert := newAsserter(t)

	_, n := getUvarint([]byte{0x80, 0x80})
	assert(n == 0, "expected truncated varint to report n=0")
}

func TestNibblePackRoundtrip(t *testing.T) {
	assert := newAsserter(t)

	counts := []int{0, 1, 15, 3, 7, 15, 2}
	packed, err := packNibbles(counts)
	assert(err == nil, "packNibbles: %s", err)

	got, err := unpackNibbles(packed, len(counts))
	assert(err == nil, "unpackNibbles: %s", err)
	assert(len(got) == len(counts), "length mismatch")
	for i, c := range counts {
		assert(got[i] == c, "nibble[%d]: got %d, want %d", i, got[i], c)
	}
}

func TestNibblePackOverflow(t *testing.T) {
	assert := newAsserter(t)

	_, err := packNibbles([]int{16})
	assert(err != nil, "expected error for out-of-range nibble value")
}

func TestBitWriterReaderRoundtrip(t *testing.T) {
	assert := newAsserter(t)

	vals := []uint64{5, 0, 3, 7, 1, 6, 2, 4}
	w := newBitWriter()
	for _, v := range vals {
		w.writeBits(v, 3)
	}
	r := newBitReader(w.Bytes(), 3)
	for i, want := range vals {
		got := r.at(uint64(i))
		assert(got == want, "bit[%d]: got %d, want %d", i, got, want)
	}
}

func TestBitWidthFor(t *testing.T) {
	assert := newAsserter(t)

	assert(bitWidthFor(0) == 1, "bitWidthFor(0) should be 1")
	assert(bitWidthFor(1) == 1, "bitWidthFor(1) should be 1")
	assert(bitWidthFor(7) == 3, "bitWidthFor(7) should be 3")
	assert(bitWidthFor(8) == 4, "bitWidthFor(8) should be 4")
}

func TestBitmapSetIsSet(t *testing.T) {
	assert := newAsserter(t)

	bm := newBitmap(20)
	bm.set(0)
	bm.set(19)
	bm.set(7)
	for i := 0; i < 20; i++ {
		want := i == 0 || i == 19 || i == 7
		assert(bm.isSet(i) == want, "bit %d: got %v, want %v", i, bm.isSet(i), want)
	}
	bm.reset()
	for i := 0; i < 20; i++ {
		assert(!bm.isSet(i), "bit %d set after reset", i)
	}
}
