// lookup_test.go -- test suite for the reverse lookup dictionary
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

// sparse multi-map: most values owned by exactly one key, but a few
// values shared across keys, keeping the collision fraction well above
// 10% so BuildLookup picks Mode 0.
func sparseMultiMap() map[string][]string {
	return map[string][]string{
		"alpha": {"a1", "a2", "shared1"},
		"beta":  {"b1", "shared1", "shared2"},
		"gamma": {"g1", "g2", "shared2"},
		"delta": {"d1", "d2", "d3"},
	}
}

// hybridMultiMap has no shared values at all, so BuildLookup should
// pick Mode 1.
func hybridMultiMap() map[string][]string {
	m := make(map[string][]string, len(keyw))
	for i, k := range keyw {
		m[k] = []string{k + "-v1", k + "-v2"}
		_ = i
	}
	return m
}

func TestBuildLookupSparseMode(t *testing.T) {
	assert := newAsserter(t)

	m := sparseMultiMap()
	l, err := BuildLookup(m)
	assert(err == nil, "build failed: %s", err)
	assert(l.mode == modeSparse, "expected Mode 0 for a heavily shared multi-map")

	owner, ok := l.Query("a1")
	assert(ok, "query a1 failed")
	assert(owner == "alpha", "query a1: got %q, want alpha", owner)

	owners := l.QueryAll("shared1")
	assert(len(owners) == 2, "queryAll shared1: got %d owners, want 2", len(owners))

	_, ok = l.Query("does-not-exist")
	assert(!ok, "query on unknown value should miss")
}

func TestBuildLookupHybridMode(t *testing.T) {
	assert := newAsserter(t)

	m := hybridMultiMap()
	l, err := BuildLookup(m)
	assert(err == nil, "build failed: %s", err)
	assert(l.mode == modeHybrid, "expected Mode 1 for a collision-free multi-map")

	for k, vs := range m {
		for _, v := range vs {
			owner, ok := l.Query(v)
			assert(ok, "query %q failed", v)
			assert(owner == k, "query %q: got %q, want %q", v, owner, k)
		}
	}
}

func TestBuildLookupEmpty(t *testing.T) {
	assert := newAsserter(t)

	_, err := BuildLookup(nil)
	assert(err == ErrEmptyKeys, "expected ErrEmptyKeys for an empty multi-map, got %v", err)
}

func TestLookupMarshalRoundtrip(t *testing.T) {
	assert := newAsserter(t)

	m := sparseMultiMap()
	l, err := BuildLookup(m)
	assert(err == nil, "build failed: %s", err)

	var buf bytes.Buffer
	_, err = l.MarshalBinary(&buf)
	assert(err == nil, "marshal failed: %s", err)

	l2, err := DecodeLookup(buf.Bytes())
	assert(err == nil, "decode failed: %s", err)

	for _, k := range l.Keys() {
		found := false
		for _, k2 := range l2.Keys() {
			if k == k2 {
				found = true
			}
		}
		assert(found, "key %q missing after roundtrip", k)
	}

	for _, v := range []string{"a1", "shared1", "shared2", "d3"} {
		owners1 := l.QueryAll(v)
		owners2 := l2.QueryAll(v)
		assert(len(owners1) == len(owners2), "QueryAll(%q) length mismatch after roundtrip", v)
	}
}

func TestLookupHybridMarshalRoundtrip(t *testing.T) {
	assert := newAsserter(t)

	m := hybridMultiMap()
	l, err := BuildLookup(m)
	assert(err == nil, "build failed: %s", err)

	var buf bytes.Buffer
	_, err = l.MarshalBinary(&buf)
	assert(err == nil, "marshal failed: %s", err)

	l2, err := DecodeLookup(buf.Bytes())
	assert(err == nil, "decode failed: %s", err)

	for k, vs := range m {
		for _, v := range vs {
			owner, ok := l2.Query(v)
			assert(ok, "query %q failed after roundtrip", v)
			assert(owner == k, "query %q after roundtrip: got %q, want %q", v, owner, k)
		}
	}
}
