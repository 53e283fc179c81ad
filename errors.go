// errors.go - public errors exposed by mph
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
	"errors"
	"fmt"
)

func errShortWrite(who string, n int) error {
	return fmt.Errorf("%s: incomplete write; wrote only %d bytes", who, n)
}

var (
	// ErrFrozen is returned when attempting to mutate a store that's
	// already been frozen (or to freeze one twice).
	ErrFrozen = errors.New("mph: store already frozen")

	// ErrValueTooLarge is returned if a blob is larger than 2^32-1 bytes.
	ErrValueTooLarge = errors.New("mph: value is larger than 2^32-1 bytes")

	// ErrNoKey is returned when a key cannot be found in a store.
	ErrNoKey = errors.New("mph: no such key")

	// ErrTooSmall is returned when unmarshalling a buffer that's too
	// short to contain even a header.
	ErrTooSmall = errors.New("mph: not enough data to unmarshal")

	// ErrEmptyKeys is returned by BuildLookup/BuildFilter when the
	// caller supplies zero keys (unlike Build(), which supports an
	// empty MPHF per §4.2's "Empty input" rule).
	ErrEmptyKeys = errors.New("mph: no keys supplied")

	// ErrDuplicateKey is returned by StoreWriter.Put when a section
	// name is already in use in the store.
	ErrDuplicateKey = errors.New("mph: duplicate key")

	// ErrClosed is the error for a store used after Close. StoreReader
	// does not return it: after Close its Get methods report ErrNoKey.
	ErrClosed = errors.New("mph: store already closed")
)

// BuildHashSeedExhausted is returned when Phase 0 of the builder cannot
// find a hashSeed in [0,100] that makes the pre-hash pair collision-free
// over the key set. It usually means the key set has a duplicate.
type BuildHashSeedExhausted struct {
	Attempts int
}

func (e *BuildHashSeedExhausted) Error() string {
	return fmt.Sprintf("mph: no collision-free hash seed after %d attempts (duplicate keys?)", e.Attempts)
}

// BuildBucketOverflow is returned when Phase 1 cannot find a seed0 that
// keeps every bucket at or under the hard cap of 15 keys.
type BuildBucketOverflow struct {
	Attempts    int
	ObservedMax int
	Level       int
}

func (e *BuildBucketOverflow) Error() string {
	return fmt.Sprintf("mph: bucket overflow after %d attempts (best max bucket size %d > 15); try a lower level (currently %d)",
		e.Attempts, e.ObservedMax, e.Level)
}

// BuildDisplacementExhausted is returned when Phase 2's per-bucket
// displacement search exceeds its trial cap for a given bucket.
type BuildDisplacementExhausted struct {
	Bucket int
	Size   int
	Trials int
}

func (e *BuildDisplacementExhausted) Error() string {
	return fmt.Sprintf("mph: displacement search exhausted for bucket %d (size %d) after %d trials",
		e.Bucket, e.Size, e.Trials)
}

// DecodeError reports malformed serialized input: wrong magic/arity,
// unknown mode int, varint overrun, nibble overflow, or a length
// mismatch between fields.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("mph: decode error: %s", e.Reason)
}
