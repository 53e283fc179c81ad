// builder_test.go -- test suite for the MPHF builder/evaluator
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
	"testing"
)

func TestBuildSimple(t *testing.T) {
	assert := newAsserter(t)

	d, err := Build(keyw, BuildOptions{})
	assert(err == nil, "build failed: %s", err)
	assert(d.Len() == len(keyw), "Len(): got %d, want %d", d.Len(), len(keyw))

	seen := make([]bool, d.Len())
	for _, s := range keyw {
		h := d.Hash(s)
		assert(h >= 0 && h < d.Len(), "Hash(%q) out of range: %d", s, h)
		assert(!seen[h], "Hash(%q) collided at slot %d", s, h)
		seen[h] = true
	}
	for _, ok := range seen {
		assert(ok, "not every slot in [0,n) was claimed")
	}
}

func TestBuildEmpty(t *testing.T) {
	assert := newAsserter(t)

	d, err := Build(nil, BuildOptions{})
	assert(err == nil, "build over empty key set failed: %s", err)
	assert(d.Len() == 0, "expected Len()==0 for empty build")
	assert(d.Hash("anything") == -1, "expected -1 from an empty dictionary")
}

func TestBuildWithValidation(t *testing.T) {
	assert := newAsserter(t)

	d, err := Build(keyw, BuildOptions{ValidationMode: Validation8})
	assert(err == nil, "build failed: %s", err)
	assert(d.ValidationMode() == Validation8, "ValidationMode(): got %d", d.ValidationMode())

	for _, s := range keyw {
		h := d.Hash(s)
		assert(h >= 0, "Hash(%q) failed validation on a build-time key", s)
	}

	misses := 0
	for _, s := range []string{"not-a-key", "another-miss", "zzz-nope"} {
		if d.Hash(s) == -1 {
			misses++
		}
	}
	assert(misses > 0, "expected at least one out-of-set key to be rejected by fingerprint validation")
}

func TestBuildLevelClamped(t *testing.T) {
	assert := newAsserter(t)

	d, err := Build(keyw, BuildOptions{Level: 100})
	assert(err == nil, "build with out-of-range level failed: %s", err)
	assert(d.Len() == len(keyw), "Len() mismatch with clamped level")

	d2, err := Build(keyw, BuildOptions{Level: -3})
	assert(err == nil, "build with negative level failed: %s", err)
	assert(d2.Len() == len(keyw), "Len() mismatch with clamped negative level")
}

func TestDictMarshalRoundtrip(t *testing.T) {
	assert := newAsserter(t)

	d, err := Build(keyw, BuildOptions{ValidationMode: Validation4})
	assert(err == nil, "build failed: %s", err)

	var buf bytes.Buffer
	_, err = d.MarshalBinary(&buf)
	assert(err == nil, "marshal failed: %s", err)

	d2, err := DecodeDict(buf.Bytes())
	assert(err == nil, "decode failed: %s", err)
	assert(d2.Len() == d.Len(), "Len() mismatch after roundtrip")
	assert(d2.Buckets() == d.Buckets(), "Buckets() mismatch after roundtrip")

	for _, s := range keyw {
		assert(d.Hash(s) == d2.Hash(s), "Hash(%q) mismatch after roundtrip: %d vs %d", s, d.Hash(s), d2.Hash(s))
	}
}

func TestBucketCountLargeKeySetAdjustment(t *testing.T) {
	assert := newAsserter(t)

	// above the large-key-set threshold, level should shrink (more,
	// smaller buckets), never grow. Use level=10 since level=5 sits
	// exactly on the 0.9 rounding boundary and doesn't move.
	unadjusted := 600_000 / 10
	large := bucketCount(600_000, 10)
	assert(large > unadjusted, "expected bucketCount to grow past n/level once level is reduced for large n")
}
