// eval.go - MPHF evaluation
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

// Len returns the cardinality of the key set this Dict was built over.
func (d *Dict) Len() int {
	return int(d.n)
}

// Buckets returns the bucket count m.
func (d *Dict) Buckets() int {
	return int(d.m)
}

// ValidationMode returns the fingerprint width in bits, or
// ValidationNone if fingerprinting is disabled.
func (d *Dict) ValidationMode() int {
	return d.validationMode
}

// Hash evaluates the MPHF at x. It returns a value in [0, Len()) for
// every key in the original build set. For x outside the build set, it
// returns -1 if fingerprint validation is enabled and detects the
// miss, or a consistent in-range value if validation is disabled (per
// §4.2's Evaluation algorithm — the MPHF alone can't distinguish a
// non-member from a member without a fingerprint check).
func (d *Dict) Hash(x string) int {
	if d.n == 0 {
		return -1
	}
	p := computePreHash(x, d.hashSeed)
	slot, ok := d.evalPreHash(p)
	if !ok {
		return -1
	}
	if d.validationMode != ValidationNone {
		want := uint64(strHash32(x, fpSeed)) & ((1 << uint(d.validationMode)) - 1)
		got := fingerprintAt(d.fingerprints, d.validationMode, uint32(slot))
		if got != want {
			return -1
		}
	}
	return slot
}

// evalPreHash resolves a pre-hashed key to its slot, without any
// fingerprint check. It is also used, over an as-yet fingerprint-less
// Dict, to resolve build-time keys to their slots while filling in the
// fingerprint layer (see builder.go's attachFingerprints).
func (d *Dict) evalPreHash(p preHash) (int, bool) {
	b := p.bucketOf(d.seed0, d.m)
	start := d.offsets[b]
	size := d.offsets[b+1] - start
	if size == 0 {
		return 0, false
	}
	if size == 1 {
		return int(start), true
	}
	s := d.seeds[b]
	off := p.displaced(s, size)
	return int(start + off), true
}
