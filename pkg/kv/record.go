// Package kv defines the in-memory key/value record carried between a
// caller and a bucket.
package kv

import "github.com/adamwolf/humming/internal/hashfn"

// Pair is a single key/value record as supplied by a caller. Hash is
// computed once at construction and reused for both the sort order of
// the data section and the hashed index, so it must stay in sync with
// the hash recomputed by a reader for the same key.
type Pair struct {
	Key   string
	Value []byte
	Hash  uint64
}

// New builds a Pair and computes its hash with the engine's pinned hash
// function.
func New(key string, value []byte) Pair {
	return Pair{
		Key:   key,
		Value: value,
		Hash:  hashfn.Sum64(key),
	}
}

// Batch is an ordered collection of pairs handed to Bucket.Insert. A batch
// is expected to carry distinct keys; duplicate keys within one batch are
// not deduplicated and only the first written record will ever be found
// by a lookup within that file.
type Batch []Pair
