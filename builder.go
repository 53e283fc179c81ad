// builder.go - two-level bucketed displacement MPHF builder
//
// Implements the "hash, bucket, displace" scheme described for this
// package: keys are pre-hashed to a 64-bit pair, distributed into m
// buckets by a bucket-seed search, and each bucket is then displaced
// into disjoint slots of the final [0,n) range by a small per-bucket
// seed search. This is the same shape of algorithm as chd.go's
// Compress-Hash-Displace builder (bucket sort by descending occupancy,
// then per-bucket seed search with an occupancy bitmap) generalized
// from uint64 keys to strings and from a single power-of-2 table to
// the packed bucketSizes/seedStream wire format this package persists.
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
	"math/rand"
	"sort"
)

// Validation width choices for a MPHF's fingerprint layer. ValidationNone
// disables fingerprinting entirely.
const (
	ValidationNone = 0
	Validation2    = 2
	Validation4    = 4
	Validation8    = 8
	Validation16   = 16
	Validation32   = 32
)

// number of Phase-1 bucketing attempts
const (
	_bucketAttempts     = 2000
	_bucketEarlyExitAt  = 50
	_bucketGoodEnoughMax = 13
	_maxBucketSize      = 15

	_hashSeedAttempts = 101 // 0..100 inclusive

	_displaceTrialCapSmall = 5_000_000  // bucket size <= 14
	_displaceTrialCapLarge = 50_000_000 // bucket size > 14

	_largeKeySetThreshold = 500_000
)

// BuildOptions holds the exhaustive per-call factory options from §6 that
// affect the shape of the built MPHF.
type BuildOptions struct {
	// Level controls n/m; must be in [1,10]. Zero means "use the
	// default of 5".
	Level int

	// ValidationMode selects the fingerprint width in bits, or
	// ValidationNone to disable fingerprinting.
	ValidationMode int
}

func (o BuildOptions) level() int {
	if o.Level == 0 {
		return 5
	}
	if o.Level < 1 {
		return 1
	}
	if o.Level > 10 {
		return 10
	}
	return o.Level
}

// Dict is an immutable minimal perfect hash function over a fixed key
// set. It is safe for concurrent read-only use once built or decoded.
type Dict struct {
	n, m           uint32
	hashSeed       uint32
	seed0          uint32
	offsets        []uint32 // len m+1, prefix sum of bucket sizes
	seeds          []uint32 // len m, per-bucket displacement seed
	validationMode int
	fingerprints   []byte // bit-packed, width = validationMode
}

// Build constructs a Dict over keys using the bucketed displacement
// algorithm. keys must be distinct; a duplicate key has the same
// pre-hash pair as its twin under every hashSeed, so Phase 0 fails with
// BuildHashSeedExhausted (deduplication is the caller's responsibility
// per spec's Non-goals).
func Build(keys []string, opts BuildOptions) (*Dict, error) {
	n := len(keys)
	if n == 0 {
		return &Dict{}, nil
	}

	level := opts.level()

	hashSeed, hashes, err := findCollisionFreeSeed(keys)
	if err != nil {
		return nil, err
	}

	m := bucketCount(n, level)

	seed0, bucketOf, maxSize, err := bestBucketing(hashes, m)
	if err != nil {
		return nil, err
	}
	if maxSize > _maxBucketSize {
		return nil, &BuildBucketOverflow{Attempts: _bucketAttempts, ObservedMax: maxSize, Level: level}
	}

	// group key indices by bucket, preserving bucket identity ("slot")
	// exactly like chd.go's bucket{slot,keys} struct.
	buckets := make([]bucket, m)
	for i := range buckets {
		buckets[i].slot = uint32(i)
	}
	for i, b := range bucketOf {
		buckets[b].keys = append(buckets[b].keys, uint32(i))
	}

	sizes := make([]int, m)
	for i := range buckets {
		sizes[i] = len(buckets[i].keys)
	}

	seeds := make([]uint32, m)

	// process the hardest (largest) buckets first, exactly like
	// chd.Freeze's sort.Sort(buckets) by decreasing occupancy; results
	// are written back into `seeds` indexed by the original bucket
	// slot, so final storage order is unaffected by search order.
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return len(buckets[order[i]].keys) > len(buckets[order[j]].keys)
	})

	for _, bi := range order {
		b := &buckets[bi]
		k := len(b.keys)
		if k <= 1 {
			continue // seed 0, implied by seedZeroBitmap at encode time
		}

		cap := _displaceTrialCapSmall
		if k > 14 {
			cap = _displaceTrialCapLarge
		}

		found := false
		for s := 0; s < cap; s++ {
			var occ uint16
			ok := true
			for _, ki := range b.keys {
				d := hashes[ki].displaced(uint32(s), uint32(k))
				bit := uint16(1) << d
				if occ&bit != 0 {
					ok = false
					break
				}
				occ |= bit
			}
			if ok {
				seeds[bi] = uint32(s)
				found = true
				break
			}
		}
		if !found {
			return nil, &BuildDisplacementExhausted{Bucket: bi, Size: k, Trials: cap}
		}
	}

	offsets := make([]uint32, m+1)
	for i, sz := range sizes {
		offsets[i+1] = offsets[i] + uint32(sz)
	}

	d := &Dict{
		n:        uint32(n),
		m:        uint32(m),
		hashSeed: hashSeed,
		seed0:    seed0,
		offsets:  offsets,
		seeds:    seeds,
	}

	if opts.ValidationMode != ValidationNone {
		if err := d.attachFingerprints(keys, hashes, opts.ValidationMode); err != nil {
			return nil, err
		}
	}

	return d, nil
}

type bucket struct {
	slot uint32
	keys []uint32
}

// findCollisionFreeSeed implements Phase 0: pick the smallest
// non-negative hashSeed for which the pre-hash pair is unique across
// keys.
func findCollisionFreeSeed(keys []string) (uint32, []preHash, error) {
	for seed := uint32(0); seed < _hashSeedAttempts; seed++ {
		hashes := make([]preHash, len(keys))
		seen := make(map[uint64]struct{}, len(keys))
		collide := false
		for i, k := range keys {
			p := computePreHash(k, seed)
			hashes[i] = p
			key := uint64(p.h1)<<32 | uint64(p.h2)
			if _, ok := seen[key]; ok {
				collide = true
				break
			}
			seen[key] = struct{}{}
		}
		if !collide {
			return seed, hashes, nil
		}
	}
	return 0, nil, &BuildHashSeedExhausted{Attempts: _hashSeedAttempts}
}

// bucketCount implements the m = max(1, ceil(n/level)) rule, including
// the large-n level adjustment.
func bucketCount(n, level int) int {
	if n > _largeKeySetThreshold {
		level = int(float64(level)*0.9 + 0.5)
		if level < 1 {
			level = 1
		}
	}
	m := (n + level - 1) / level
	if m < 1 {
		m = 1
	}
	return m
}

// bestBucketing implements Phase 1: search for a seed0 that minimizes
// the largest bucket occupancy, subject to the early-exit rules.
func bestBucketing(hashes []preHash, m int) (seed0 uint32, bucketOf []uint32, maxSize int, err error) {
	rng := rand.New(rand.NewSource(rand64Seed()))

	bestMax := len(hashes) + 1
	var bestSeed0 uint32
	counts := make([]int, m)

	for attempt := 0; attempt < _bucketAttempts; attempt++ {
		s0 := rng.Uint32()

		for i := range counts {
			counts[i] = 0
		}
		localMax := 0
		for _, p := range hashes {
			b := p.bucketOf(s0, uint32(m))
			counts[b]++
			if counts[b] > localMax {
				localMax = counts[b]
			}
		}

		if localMax < bestMax {
			bestMax = localMax
			bestSeed0 = s0
		}

		if bestMax <= _bucketGoodEnoughMax {
			break
		}
		if attempt+1 >= _bucketEarlyExitAt && bestMax <= _maxBucketSize {
			break
		}
	}

	bucketOf = make([]uint32, len(hashes))
	for i, p := range hashes {
		bucketOf[i] = p.bucketOf(bestSeed0, uint32(m))
	}

	return bestSeed0, bucketOf, bestMax, nil
}

// attachFingerprints fills in the fingerprint layer using a temporary
// evaluator over the fingerprint-less dictionary to resolve each key's
// slot, breaking the cyclic dependency between the MPHF and the
// fingerprint payload it addresses.
func (d *Dict) attachFingerprints(keys []string, hashes []preHash, width int) error {
	d.validationMode = width
	slots := make([]uint32, d.n)
	for i, p := range hashes {
		slot, ok := d.evalPreHash(p)
		if !ok {
			return &DecodeError{Reason: "internal: temporary evaluator failed to resolve a build-time key"}
		}
		slots[i] = uint32(slot)
	}

	fp := newFingerprintTable(int(d.n), width)
	for i, key := range keys {
		v := uint64(strHash32(key, fpSeed)) & ((1 << uint(width)) - 1)
		fp.set(slots[i], v)
	}
	d.fingerprints = fp.bytes()
	return nil
}
