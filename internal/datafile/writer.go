package datafile

import (
	"fmt"
	"os"
	"sort"

	"github.com/adamwolf/humming/internal/align"
	"github.com/adamwolf/humming/internal/diskio"
	"github.com/adamwolf/humming/internal/index"
	"github.com/adamwolf/humming/pkg/kv"
)

// Write lays out batch as a new bucket file at path: the data section in
// hash-sorted order, sector padding, then the paged index built from the
// recorded record offsets. The batch itself is left untouched; Write
// operates on a stable-sorted copy.
//
// An empty batch produces a valid, zero-byte, zero-entry file rather than
// being rejected; Bucket.Read treats such a file as a no-op.
//
// Any failure aborts the write and removes the partial file; the batch is
// never registered with the caller's bucket.
func Write(path string, batch kv.Batch, direct bool) (*Metadata, error) {
	sorted := make(kv.Batch, len(batch))
	copy(sorted, batch)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Hash < sorted[j].Hash })

	w, err := diskio.NewWriter(align.SectorSize)
	if err != nil {
		return nil, err
	}
	if err := w.Open(path, direct); err != nil {
		return nil, fmt.Errorf("datafile: opening %q for write: %w", path, err)
	}

	fail := func(err error) (*Metadata, error) {
		w.Close()
		os.Remove(path)
		return nil, err
	}

	offsets := make([]int64, len(sorted))
	for i, p := range sorted {
		offsets[i] = w.TotalWritten()
		if err := w.WriteString(p.Key); err != nil {
			return fail(fmt.Errorf("datafile: writing key %q: %w", p.Key, err))
		}
		if err := w.WriteBytes(p.Value); err != nil {
			return fail(fmt.Errorf("datafile: writing value for %q: %w", p.Key, err))
		}
	}

	if rem := w.TotalWritten() % align.SectorSize; rem != 0 {
		pad := make([]byte, align.SectorSize-rem)
		if _, err := w.Write(pad); err != nil {
			return fail(fmt.Errorf("datafile: padding data section: %w", err))
		}
	}

	if err := writeIndex(w, sorted, offsets); err != nil {
		return fail(err)
	}

	if err := w.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("datafile: closing %q: %w", path, err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("datafile: stat %q: %w", path, err)
	}

	reader, err := openReader(path, direct)
	if err != nil {
		return nil, err
	}

	return &Metadata{
		Path:         path,
		EntriesCount: len(sorted),
		ByteSize:     stat.Size(),
		reader:       reader,
	}, nil
}

// writeIndex builds and writes every index page for a hash-sorted batch,
// filling each page's entries plus its pre/post bookmark hashes per the
// paged layout in the index package.
func writeIndex(w *diskio.Writer, sorted kv.Batch, offsets []int64) error {
	n := len(sorted)
	pages := index.PageCount(n)

	for p := 0; p < pages; p++ {
		var page index.Page

		start := p * index.EntriesPerPage
		end := start + index.EntriesPerPage
		if end > n {
			end = n
		}
		for i := start; i < end; i++ {
			page.Entries[i-start] = index.Entry{Hash: sorted[i].Hash, Offset: uint64(offsets[i])}
		}

		for k := 0; k < index.HashesPerSide && p+1+k < pages; k++ {
			following := p + 1 + k
			fStart := following * index.EntriesPerPage
			fEnd := fStart + index.EntriesPerPage
			if fEnd > n {
				fEnd = n
			}
			page.PostHashes[k] = sorted[fEnd-1].Hash
		}
		for k := 0; k < index.HashesPerSide && p-1-k >= 0; k++ {
			preceding := p - 1 - k
			page.PreHashes[k] = sorted[preceding*index.EntriesPerPage].Hash
		}

		enc, err := page.Encode()
		if err != nil {
			return fmt.Errorf("datafile: encoding index page %d: %w", p, err)
		}
		if _, err := w.Write(enc); err != nil {
			return fmt.Errorf("datafile: writing index page %d: %w", p, err)
		}
	}
	return nil
}
