// filter_test.go -- test suite for the membership filter
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

func TestBuildFilterNoFalseNegatives(t *testing.T) {
	assert := newAsserter(t)

	f, err := BuildFilter(keyw, 8)
	assert(err == nil, "build failed: %s", err)

	for _, s := range keyw {
		assert(f.Has(s), "false negative on build-time key %q", s)
	}
}

func TestBuildFilterRejectsBadWidth(t *testing.T) {
	assert := newAsserter(t)

	_, err := BuildFilter(keyw, 7)
	assert(err != nil, "expected error for an unsupported fingerprint width")
}

func TestBuildFilterEmpty(t *testing.T) {
	assert := newAsserter(t)

	_, err := BuildFilter(nil, 8)
	assert(err == ErrEmptyKeys, "expected ErrEmptyKeys, got %v", err)
}

func TestFilterFalsePositiveRateIsBounded(t *testing.T) {
	assert := newAsserter(t)

	f, err := BuildFilter(keyw, 6)
	assert(err == nil, "build failed: %s", err)

	trials := 0
	positives := 0
	for i := 0; i < 500; i++ {
		s := fakeKey(i)
		if contains(keyw, s) {
			continue
		}
		trials++
		if f.Has(s) {
			positives++
		}
	}
	// expected false-positive rate is ~2^-6 (~1.6%); allow generous
	// slack since this is a statistical property, not an exact bound.
	assert(positives < trials/4, "false positive rate too high: %d/%d", positives, trials)
}

func fakeKey(i int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 12)
	for j := range b {
		b[j] = alphabet[(i*7+j*31)%len(alphabet)]
	}
	return string(b)
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func TestFilterMarshalRoundtrip(t *testing.T) {
	assert := newAsserter(t)

	f, err := BuildFilter(keyw, 10)
	assert(err == nil, "build failed: %s", err)

	var buf bytes.Buffer
	_, err = f.MarshalBinary(&buf)
	assert(err == nil, "marshal failed: %s", err)

	f2, err := DecodeFilter(buf.Bytes())
	assert(err == nil, "decode failed: %s", err)

	for _, s := range keyw {
		assert(f2.Has(s), "false negative on build-time key %q after roundtrip", s)
	}
}
