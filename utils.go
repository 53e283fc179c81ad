// utils.go -- utility functions
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
	"crypto/rand"
	"encoding/binary"
	"io"
)

func randbytes(n int) []byte {
	b := make([]byte, n)

	_, err := io.ReadFull(rand.Reader, b)
	if err != nil {
		panic("can't read crypto/rand")
	}
	return b
}

func rand32() uint32 {
	var b [4]byte

	_, err := io.ReadFull(rand.Reader, b[:])
	if err != nil {
		panic("can't read crypto/rand")
	}

	return binary.BigEndian.Uint32(b[:])
}

func rand64() uint64 {
	var b [8]byte

	_, err := io.ReadFull(rand.Reader, b[:])
	if err != nil {
		panic("can't read crypto/rand")
	}

	return binary.BigEndian.Uint64(b[:])
}

// rand64Seed draws a math/rand seed from crypto/rand, for the Phase 1
// seed0 search in builder.go's bestBucketing. The search doesn't need
// a cryptographic PRNG, just an unpredictable starting point so that
// repeated builds over the same key set don't retrace the same failed
// seed0 candidates.
func rand64Seed() int64 {
	return int64(rand64())
}
