// Package index implements the paged hash index that sits at the tail of
// every bucket file: fixed-size, sector-aligned pages of hash/offset
// entries augmented with per-page "look-ahead" hash bookmarks, plus the
// PageIterator/GetHashOffsets algorithm that walks them during a lookup.
package index

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/adamwolf/humming/internal/align"
)

// HashesPerSide is the number of neighboring pages each page keeps a
// bookmark hash for, on both the preceding and following side.
const HashesPerSide = 8

const (
	entrySize  = 16 // bytes: 8 hash + 8 offset
	bookmarks  = 2 * HashesPerSide * 8
	entriesCap = (align.SectorSize - bookmarks) / entrySize
)

// EntriesPerPage is the number of index entries a single page holds. It is
// derived from the sector size and HashesPerSide so that a page is exactly
// one sector: with the defaults (4096, 8) this is 248.
const EntriesPerPage = entriesCap

// Entry is a single (hash, offset) pair. Offset is the byte position of
// the corresponding data record from the start of the file.
type Entry struct {
	Hash   uint64
	Offset uint64
}

// Page is one sector's worth of index metadata: bookmark hashes for
// neighboring pages plus this page's own entries.
//
// PreHashes[k] holds the first hash of the k-th preceding page. PostHashes[k]
// holds the last hash of the k-th following page: since records are sorted
// ascending by hash, that is the largest hash a lookup could still find on
// or before that page, which is exactly what the forward skip in
// GetHashOffsets needs to decide whether it has gone far enough. Both
// bookmark arrays are monotone non-decreasing in file order.
type Page struct {
	PreHashes  [HashesPerSide]uint64
	PostHashes [HashesPerSide]uint64
	Entries    [EntriesPerPage]Entry
}

// PageCount returns the number of pages needed to hold entriesNum entries.
func PageCount(entriesNum int) int {
	if entriesNum == 0 {
		return 0
	}
	return (entriesNum + EntriesPerPage - 1) / EntriesPerPage
}

// Encode serializes p as exactly align.SectorSize little-endian bytes.
func (p *Page) Encode() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, align.SectorSize))
	if err := binary.Write(buf, binary.LittleEndian, p); err != nil {
		return nil, fmt.Errorf("index: encoding page: %w", err)
	}
	if buf.Len() != align.SectorSize {
		return nil, fmt.Errorf("index: encoded page is %d bytes, want %d", buf.Len(), align.SectorSize)
	}
	return buf.Bytes(), nil
}

// DecodePage deserializes a Page from exactly align.SectorSize bytes.
func DecodePage(raw []byte) (*Page, error) {
	if len(raw) != align.SectorSize {
		return nil, fmt.Errorf("index: page buffer is %d bytes, want %d", len(raw), align.SectorSize)
	}
	var p Page
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &p); err != nil {
		return nil, fmt.Errorf("index: decoding page: %w", err)
	}
	return &p, nil
}
