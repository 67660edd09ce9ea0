package datafile

import (
	"fmt"
	"io"
	"sort"

	"github.com/adamwolf/humming/internal/index"
)

// Lookup runs Stage A through C of one bucket file's lookup: it positions
// a fresh PageIterator by key hash, enumerates every index entry whose
// hash matches via GetHashOffsets, then verifies each candidate offset's
// stored key against key in file order (lowest offset first), returning
// the value of the first exact match.
//
// Any I/O error is returned to the caller, which per the engine's failure
// semantics should log it and treat this file as a no-match rather than
// aborting the whole bucket-level read.
func Lookup(m *Metadata, key string, hash uint64) ([]byte, bool, error) {
	if m.EntriesCount == 0 {
		return nil, false, nil
	}

	it, err := index.NewPageIterator(m.reader)
	if err != nil {
		return nil, false, err
	}

	offsets, err := index.GetHashOffsets(it, m.EntriesCount, hash, m.indexOffset())
	if err != nil {
		return nil, false, fmt.Errorf("datafile: locating %q in %q: %w", key, m.Path, err)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	for _, off := range offsets {
		gotKey, value, err := readRecord(m, off)
		if err != nil {
			return nil, false, fmt.Errorf("datafile: reading record at %d in %q: %w", off, m.Path, err)
		}
		if gotKey == key {
			return value, true, nil
		}
	}
	return nil, false, nil
}

// readRecord seeks the file's shared reader to offset and decodes one
// length-prefixed (key, value) record.
func readRecord(m *Metadata, offset int64) (string, []byte, error) {
	if _, err := m.reader.Seek(offset, io.SeekStart); err != nil {
		return "", nil, err
	}
	key, err := m.reader.ReadString()
	if err != nil {
		return "", nil, err
	}
	value, err := m.reader.ReadBytes()
	if err != nil {
		return "", nil, err
	}
	return key, value, nil
}
