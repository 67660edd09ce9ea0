package index

import (
	"fmt"

	"github.com/adamwolf/humming/internal/align"
	"github.com/adamwolf/humming/internal/diskio"
)

// source is the subset of *diskio.Reader the iterator needs, so tests can
// substitute an in-memory fake.
type source interface {
	Pread(p []byte, offset int64) (int, error)
}

var _ source = (*diskio.Reader)(nil)

// PageIterator walks the index pages of one bucket file, one entry at a
// time, loading a fresh page with a single Pread whenever the cursor
// crosses a page boundary. It is stateful and must not be shared across
// concurrent lookups.
type PageIterator struct {
	r     source
	raw   []byte // sector-sized, reused across loads
	page  *Page

	indexOffset int64
	entriesNum  int
	pagesNum    int

	pageID int
	size   int // valid entries in the currently loaded page
	cur    int // cursor within the currently loaded page
}

// NewPageIterator allocates an iterator bound to r. r is not opened or
// positioned here; call Init before Current.
func NewPageIterator(r source) (*PageIterator, error) {
	raw, err := align.Buffer(align.SectorSize)
	if err != nil {
		return nil, fmt.Errorf("index: allocating page buffer: %w", err)
	}
	return &PageIterator{r: r, raw: raw}, nil
}

// Init loads the page containing entryIndex out of entriesNum total entries,
// whose index section starts at indexOffset. It reports false if the
// expected number of bytes could not be read for that page.
func (it *PageIterator) Init(entryIndex int, indexOffset int64, entriesNum int) (bool, error) {
	it.indexOffset = indexOffset
	it.entriesNum = entriesNum
	it.pagesNum = PageCount(entriesNum)
	it.cur = entryIndex % EntriesPerPage
	return it.SetPageID(entryIndex / EntriesPerPage)
}

// SetPageID loads page id, computing how many of its entries are valid
// (only the last page in a file may be partially filled).
func (it *PageIterator) SetPageID(id int) (bool, error) {
	it.pageID = id
	if (id+1)*EntriesPerPage > it.entriesNum {
		it.size = it.entriesNum - id*EntriesPerPage
	} else {
		it.size = EntriesPerPage
	}
	return it.load()
}

// load reads the current page via one aligned Pread. It returns true when
// exactly one sector was read, matching the file format's guarantee that
// every page is a whole sector.
func (it *PageIterator) load() (bool, error) {
	offset := it.indexOffset + int64(it.pageID)*int64(align.SectorSize)
	n, err := it.r.Pread(it.raw, offset)
	if err != nil {
		return false, fmt.Errorf("index: loading page %d: %w", it.pageID, err)
	}
	if n != align.SectorSize {
		return false, nil
	}
	page, err := DecodePage(it.raw)
	if err != nil {
		return false, err
	}
	it.page = page
	return true, nil
}

// Current returns the entry under the cursor. It must only be called after
// a successful Init/SetPageID/Inc/Dec.
func (it *PageIterator) Current() Entry {
	return it.page.Entries[it.cur]
}

// PageID reports the currently loaded page number.
func (it *PageIterator) PageID() int { return it.pageID }

// PagesNum reports the total number of pages in the index section.
func (it *PageIterator) PagesNum() int { return it.pagesNum }

// Size reports the number of valid entries in the currently loaded page.
func (it *PageIterator) Size() int { return it.size }

// Page exposes the currently loaded page for the bookmark scans in
// GetHashOffsets.
func (it *PageIterator) Page() *Page { return it.page }

// Dec moves the cursor one entry backward, loading the previous page when
// it crosses the start of the current one. It returns false at the start
// of the index with no error.
func (it *PageIterator) Dec() (bool, error) {
	if it.cur > 0 {
		it.cur--
		return true, nil
	}
	if it.pageID == 0 {
		return false, nil
	}
	it.pageID--
	it.size = EntriesPerPage
	it.cur = it.size - 1
	return it.load()
}

// Inc moves the cursor one entry forward, loading the next page when it
// crosses the end of the current one. It returns false at the end of the
// index with no error.
func (it *PageIterator) Inc() (bool, error) {
	if it.cur+1 < it.size {
		it.cur++
		return true, nil
	}
	if it.pageID+1 >= it.pagesNum {
		return false, nil
	}
	it.pageID++
	if (it.pageID+1)*EntriesPerPage > it.entriesNum {
		it.size = it.entriesNum - it.pageID*EntriesPerPage
	} else {
		it.size = EntriesPerPage
	}
	it.cur = 0
	return it.load()
}
