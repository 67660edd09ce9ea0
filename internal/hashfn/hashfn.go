// Package hashfn pins the single hash function used to order and index
// bucket files. The choice is part of the on-disk format: a file produced
// with one hash function cannot be read back by another.
package hashfn

import "github.com/cespare/xxhash/v2"

// Sum64 returns the 64-bit hash of key used throughout the engine: to sort
// records before writing, to locate the index entry for a lookup, and as
// the bookmark value stored in pre/post hash arrays.
func Sum64(key string) uint64 {
	return xxhash.Sum64String(key)
}
