// doc.go - top level documentation
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

// Package mph implements a minimal perfect hash function (MPHF) over a
// static set of string keys, plus two structures built on top of it: a
// Lookup dictionary that resolves values back to the keys that map to
// them, and a Filter that answers approximate membership queries with
// a small, bounded false-positive rate.
//
// Build constructs a Dict for a []string key set. The Dict's Hash
// method maps each build-time key to a distinct integer in [0, n) and,
// when built with a validation width, rejects most non-member strings
// rather than returning a spurious slot.
//
// BuildLookup constructs a Lookup over a multi-map of keys to their
// values, letting a caller ask "which keys map to this value" without
// keeping a full copy of the multi-map in memory. BuildFilter
// constructs a Filter over a key set alone, trading a small amount of
// memory per key for a two-sided membership test tuned for the wanted
// false-positive rate.
//
// Dict, Lookup and Filter each round-trip through a compact binary
// encoding via their MarshalBinary/Decode* pair. StoreWriter and
// StoreReader bundle any number of named Dict/Lookup/Filter sections
// into a single checksummed, mmap-friendly file, for situations where
// reads against a "constant" collection of such structures vastly
// outnumber rebuilds.
package mph
