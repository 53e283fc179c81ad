// compress_test.go -- test suite for the gzip compression boundary
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
	"context"
	"testing"
)

func TestCompressDecompressRoundtrip(t *testing.T) {
	assert := newAsserter(t)

	d, err := Build(keyw, BuildOptions{ValidationMode: Validation8})
	assert(err == nil, "build failed: %s", err)

	var buf bytes.Buffer
	_, err = d.MarshalBinary(&buf)
	assert(err == nil, "marshal failed: %s", err)

	compressed, err := compressBytes(buf.Bytes())
	assert(err == nil, "compress failed: %s", err)
	assert(len(compressed) > 0, "compressed output is empty")

	raw, err := decompressBytes(compressed)
	assert(err == nil, "decompress failed: %s", err)
	assert(bytes.Equal(raw, buf.Bytes()), "decompressed bytes don't match original")
}

func TestFromCompressedDict(t *testing.T) {
	assert := newAsserter(t)

	d, err := Build(keyw, BuildOptions{})
	assert(err == nil, "build failed: %s", err)

	var buf bytes.Buffer
	_, err = d.MarshalBinary(&buf)
	assert(err == nil, "marshal failed: %s", err)

	compressed, err := compressBytes(buf.Bytes())
	assert(err == nil, "compress failed: %s", err)

	d2, err := FromCompressedDict(context.Background(), compressed)
	assert(err == nil, "FromCompressedDict failed: %s", err)
	assert(d2.Len() == d.Len(), "Len() mismatch after compressed roundtrip")

	for _, s := range keyw {
		assert(d.Hash(s) == d2.Hash(s), "Hash(%q) mismatch after compressed roundtrip", s)
	}
}

func TestFromCompressedDictCanceled(t *testing.T) {
	assert := newAsserter(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FromCompressedDict(ctx, []byte{0x1f, 0x8b})
	assert(err != nil, "expected an error from an already-canceled context")
}
