// lookup.go - reverse lookup dictionary over a key -> value[] multi-map
//
// A Lookup answers "which key(s) own this value" using only an MPHF
// over the value universe plus a compact value -> key-index table. It
// is built directly on top of a Dict the same way chd.go's Freeze
// builds a lookup table on top of the bucket/displace machinery: this
// file owns the multi-map bookkeeping, builder.go owns the MPHF.
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

import "sort"

const (
	modeSparse = 0 // Mode 0
	modeHybrid = 1 // Mode 1
)

// collisionFraction is the threshold from the design: Mode 1 is chosen
// whenever strictly fewer than 10% of distinct values are owned by
// more than one key.
const collisionFraction = 0.1

// Lookup is a reverse lookup dictionary: given a value, recover the
// key(s) of the caller's multi-map that own it. It is immutable and
// safe for concurrent read-only use once built or decoded.
type Lookup struct {
	mphf *Dict
	keys []string
	mode int

	// Mode 0 (sparse)
	keyToHashes [][]uint32

	// Mode 1 (hybrid direct)
	bitsPerKey         int
	valueToKeyIndexes  []byte // bit-packed, width bitsPerKey, length mphf.Len()
	collisionMap       map[uint32][]uint32

	// invertedIndex is built once on load/decode for Mode 0's O(1)
	// query path; it is never persisted.
	invertedIndex map[uint32][]uint32
}

// BuildLookup builds a Lookup dictionary over the caller's multi-map m:
// key -> distinct values owned by that key. Keys must be distinct;
// m's value lists need not be sorted or deduplicated internally, but
// the resulting Mode 0 keyToHashes lists are stored sorted ascending.
func BuildLookup(m map[string][]string) (*Lookup, error) {
	if len(m) == 0 {
		return nil, ErrEmptyKeys
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	valueSet := make(map[string]struct{})
	for _, vs := range m {
		for _, v := range vs {
			valueSet[v] = struct{}{}
		}
	}
	if len(valueSet) == 0 {
		return nil, ErrEmptyKeys
	}
	values := make([]string, 0, len(valueSet))
	for v := range valueSet {
		values = append(values, v)
	}

	mphf, err := Build(values, BuildOptions{ValidationMode: Validation8})
	if err != nil {
		return nil, err
	}

	// valueToKeys[hash] = sorted key indices that own this value.
	valueToKeys := make(map[uint32][]uint32, mphf.Len())
	for ki, k := range keys {
		for _, v := range m[k] {
			h := uint32(mphf.Hash(v))
			valueToKeys[h] = append(valueToKeys[h], uint32(ki))
		}
	}
	for h := range valueToKeys {
		sort.Slice(valueToKeys[h], func(i, j int) bool { return valueToKeys[h][i] < valueToKeys[h][j] })
	}

	collisions := 0
	for _, ks := range valueToKeys {
		if len(ks) > 1 {
			collisions++
		}
	}

	l := &Lookup{mphf: mphf, keys: keys}

	if float64(collisions) < collisionFraction*float64(mphf.Len()) {
		l.buildHybrid(valueToKeys)
	} else {
		l.buildSparse(keys, m, mphf)
	}

	return l, nil
}

func (l *Lookup) buildHybrid(valueToKeys map[uint32][]uint32) {
	l.mode = modeHybrid
	n := l.mphf.Len()
	K := len(l.keys)
	l.bitsPerKey = int(bitWidthFor(uint64(K)))

	tbl := newFingerprintTable(n, l.bitsPerKey)
	l.collisionMap = make(map[uint32][]uint32)
	for h := 0; h < n; h++ {
		ks, ok := valueToKeys[uint32(h)]
		if !ok || len(ks) == 0 {
			continue // value from V never referenced (shouldn't happen: V is the union)
		}
		if len(ks) == 1 {
			tbl.set(uint32(h), uint64(ks[0]))
		} else {
			tbl.set(uint32(h), uint64(K)) // sentinel
			l.collisionMap[uint32(h)] = ks
		}
	}
	l.valueToKeyIndexes = tbl.bytes()
}

func (l *Lookup) buildSparse(keys []string, m map[string][]string, mphf *Dict) {
	l.mode = modeSparse
	l.keyToHashes = make([][]uint32, len(keys))
	for i, k := range keys {
		hashes := make([]uint32, 0, len(m[k]))
		for _, v := range m[k] {
			hashes = append(hashes, uint32(mphf.Hash(v)))
		}
		sort.Slice(hashes, func(a, b int) bool { return hashes[a] < hashes[b] })
		l.keyToHashes[i] = hashes
	}
	l.buildInvertedIndex()
}

// buildInvertedIndex constructs the runtime-only h -> [keyIdx...] map
// that Mode 0's query path consults, in O(Σ|M[k_i]|) as required.
func (l *Lookup) buildInvertedIndex() {
	l.invertedIndex = make(map[uint32][]uint32)
	for ki, hashes := range l.keyToHashes {
		for _, h := range hashes {
			l.invertedIndex[h] = append(l.invertedIndex[h], uint32(ki))
		}
	}
}

// Query returns one owning key of value, or "", false if value is
// unknown or owned by nobody.
func (l *Lookup) Query(value string) (string, bool) {
	h := l.mphf.Hash(value)
	if h < 0 {
		return "", false
	}
	switch l.mode {
	case modeHybrid:
		idx := fingerprintAt(l.valueToKeyIndexes, l.bitsPerKey, uint32(h))
		if int(idx) == len(l.keys) {
			ks, ok := l.collisionMap[uint32(h)]
			if !ok || len(ks) == 0 {
				return "", false
			}
			return l.keys[ks[0]], true
		}
		return l.keys[idx], true
	default:
		ks, ok := l.invertedIndex[uint32(h)]
		if !ok || len(ks) == 0 {
			return "", false
		}
		return l.keys[ks[0]], true
	}
}

// QueryAll returns every key that owns value.
func (l *Lookup) QueryAll(value string) []string {
	h := l.mphf.Hash(value)
	if h < 0 {
		return nil
	}
	var idxs []uint32
	switch l.mode {
	case modeHybrid:
		idx := fingerprintAt(l.valueToKeyIndexes, l.bitsPerKey, uint32(h))
		if int(idx) == len(l.keys) {
			idxs = l.collisionMap[uint32(h)]
		} else {
			idxs = []uint32{uint32(idx)}
		}
	default:
		idxs = l.invertedIndex[uint32(h)]
	}
	if len(idxs) == 0 {
		return nil
	}
	out := make([]string, len(idxs))
	for i, ki := range idxs {
		out[i] = l.keys[ki]
	}
	return out
}

// Keys returns the ordered list of keys this Lookup was built from.
func (l *Lookup) Keys() []string {
	return l.keys
}
