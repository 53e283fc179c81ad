// hash.go - the deterministic string hash kernel
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
	"unicode/utf16"

	"github.com/spaolacci/murmur3"
)

// fpSeed is the fixed seed used to derive validation fingerprints
// throughout the package: MPHF fingerprint slots and filter fingerprints
// alike are H(key, fpSeed).
const fpSeed uint32 = 0x1234ABCD

// strHash32 is the MurmurHash3 x86-32 body, computed over the UTF-16
// code-unit sequence of s (not its UTF-8 bytes). Cross-implementations
// MUST hash the same code-unit sequence bit-for-bit for dictionaries to
// be portable.
//
// murmur3's block processing works on raw 4-byte groups regardless of
// what they represent; packing 2 little-endian UTF-16 code units per
// 4-byte block is exactly what a from-scratch code-unit-at-a-time
// implementation would produce, including MurmurHash3's tail handling
// when the code-unit count is odd (a single leftover code unit becomes
// a 2-byte tail, processed the same way regardless of the byte source).
func strHash32(s string, seed uint32) uint32 {
	units := utf16.Encode([]rune(s))
	b := make([]byte, 2*len(units))
	for i, u := range units {
		b[2*i] = byte(u)
		b[2*i+1] = byte(u >> 8)
	}
	return murmur3.Sum32WithSeed(b, seed)
}

// scramble cheaply derives a new 32-bit value from x, re-seeded by
// seed, without rehashing the original string. All arithmetic is
// implicitly modulo 2^32 because x and seed are uint32.
func scramble(x, seed uint32) uint32 {
	k := x ^ seed
	k *= 0x85EBCA6B
	k ^= k >> 13
	k *= 0xC2B2AE35
	k ^= k >> 16
	return k
}

// preHash is the 64-bit logical hash of a key: the pair (h1, h2)
// computed with a build-time hashSeed and its bitwise complement.
type preHash struct {
	h1, h2 uint32
}

func computePreHash(s string, hashSeed uint32) preHash {
	return preHash{
		h1: strHash32(s, hashSeed),
		h2: strHash32(s, ^hashSeed),
	}
}

// bucketOf computes the bucket index in [0,m) that key p is assigned to
// under bucket-distribution seed seed0.
func (p preHash) bucketOf(seed0 uint32, m uint32) uint32 {
	return reduceRange(scramble(p.h1, seed0)^p.h2, m)
}

// displaced computes the in-bucket displaced hash of key p under
// per-bucket displacement seed s, reduced modulo the bucket size k.
func (p preHash) displaced(s uint32, k uint32) uint32 {
	return (scramble(p.h1, s) ^ p.h2) % k
}

// reduceRange maps h uniformly onto [0,n) using Lemire's multiplicative
// trick: floor(h * n / 2^32). n == 0 is treated as n == 0 -> 0, callers
// must not divide by the result.
func reduceRange(h uint32, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return uint32((uint64(h) * uint64(n)) >> 32)
}
