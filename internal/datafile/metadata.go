// Package datafile implements the bucket file format: a hash-sorted data
// section followed by a sector-aligned paged index, plus the writer and
// lookup reader that produce and consume it.
package datafile

import (
	"fmt"

	"github.com/adamwolf/humming/internal/align"
	"github.com/adamwolf/humming/internal/diskio"
	"github.com/adamwolf/humming/internal/index"
)

// Metadata is the in-memory record a Bucket keeps for one on-disk file:
// its path, how many KV records it holds, its total size, and the open
// read descriptor used to serve lookups against it.
type Metadata struct {
	Path         string
	EntriesCount int
	ByteSize     int64

	reader *diskio.Reader
}

// openReader allocates and opens a diskio.Reader bound to path, sized to a
// single sector buffer since all reads against a bucket file are either
// one index page or one data record.
func openReader(path string, direct bool) (*diskio.Reader, error) {
	r, err := diskio.NewReader(align.SectorSize)
	if err != nil {
		return nil, err
	}
	if err := r.Open(path, direct); err != nil {
		return nil, err
	}
	return r, nil
}

// indexOffset returns the byte offset where the index section begins,
// derived from the file's total size and page count per invariant 4 of
// the on-disk format.
func (m *Metadata) indexOffset() int64 {
	pages := index.PageCount(m.EntriesCount)
	return m.ByteSize - int64(pages)*align.SectorSize
}

// Close releases the metadata's owned read descriptor.
func (m *Metadata) Close() error {
	if m.reader == nil {
		return nil
	}
	if err := m.reader.Close(); err != nil {
		return fmt.Errorf("datafile: closing %q: %w", m.Path, err)
	}
	return nil
}
