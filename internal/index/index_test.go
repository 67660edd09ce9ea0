package index

import (
	"testing"

	"github.com/adamwolf/humming/internal/align"
)

// memSource is an in-memory source implementation used to drive the
// PageIterator / GetHashOffsets algorithm without touching a real file.
type memSource struct {
	data []byte
}

func (m *memSource) Pread(p []byte, offset int64) (int, error) {
	if offset >= int64(len(m.data)) {
		return 0, nil
	}
	n := copy(p, m.data[offset:])
	return n, nil
}

// buildIndex encodes entries (already sorted by Hash ascending) into a
// paged index section and returns its raw bytes.
func buildIndex(entries []Entry) []byte {
	n := len(entries)
	pages := PageCount(n)
	out := make([]byte, 0, pages*align.SectorSize)

	for p := 0; p < pages; p++ {
		var page Page
		start := p * EntriesPerPage
		end := start + EntriesPerPage
		if end > n {
			end = n
		}
		copy(page.Entries[:end-start], entries[start:end])

		for k := 0; k < HashesPerSide && p+1+k < pages; k++ {
			followingPage := p + 1 + k
			fStart := followingPage * EntriesPerPage
			fEnd := fStart + EntriesPerPage
			if fEnd > n {
				fEnd = n
			}
			page.PostHashes[k] = entries[fEnd-1].Hash
		}
		for k := 0; k < HashesPerSide && p-1-k >= 0; k++ {
			precedingPage := p - 1 - k
			pStart := precedingPage * EntriesPerPage
			page.PreHashes[k] = entries[pStart].Hash
		}

		enc, err := page.Encode()
		if err != nil {
			panic(err)
		}
		out = append(out, enc...)
	}
	return out
}

func lookup(t *testing.T, entries []Entry, hash uint64) []int64 {
	t.Helper()
	raw := buildIndex(entries)
	src := &memSource{data: raw}
	it, err := NewPageIterator(src)
	if err != nil {
		t.Fatalf("NewPageIterator: %v", err)
	}
	got, err := GetHashOffsets(it, len(entries), hash, 0)
	if err != nil {
		t.Fatalf("GetHashOffsets: %v", err)
	}
	return got
}

func offsetSet(offs []int64) map[int64]bool {
	m := make(map[int64]bool, len(offs))
	for _, o := range offs {
		m[o] = true
	}
	return m
}

func TestGetHashOffsetsSinglePage(t *testing.T) {
	entries := []Entry{
		{Hash: 1, Offset: 100},
		{Hash: 5, Offset: 200},
		{Hash: 5, Offset: 250},
		{Hash: 9, Offset: 300},
	}

	got := lookup(t, entries, 5)
	want := map[int64]bool{200: true, 250: true}
	if got := offsetSet(got); len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	} else {
		for k := range want {
			if !got[k] {
				t.Fatalf("missing offset %d in %v", k, got)
			}
		}
	}
}

func TestGetHashOffsetsMissingKey(t *testing.T) {
	entries := []Entry{
		{Hash: 1, Offset: 100},
		{Hash: 9, Offset: 300},
	}
	if got := lookup(t, entries, 5); len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestGetHashOffsetsMultiPageForward(t *testing.T) {
	n := EntriesPerPage*3 + 17
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{Hash: uint64(i * 2), Offset: uint64(i * 10)}
	}

	targetIdx := EntriesPerPage*2 + 5
	got := lookup(t, entries, entries[targetIdx].Hash)
	if len(got) != 1 || got[0] != int64(entries[targetIdx].Offset) {
		t.Fatalf("got %v, want [%d]", got, entries[targetIdx].Offset)
	}
}

func TestGetHashOffsetsAllHashesCollide(t *testing.T) {
	n := EntriesPerPage + 5
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{Hash: 0, Offset: uint64(i)}
	}

	got := lookup(t, entries, 0)
	if len(got) != n {
		t.Fatalf("got %d matches, want %d", len(got), n)
	}
	seen := offsetSet(got)
	for i := 0; i < n; i++ {
		if !seen[int64(i)] {
			t.Fatalf("missing offset %d", i)
		}
	}
}

func TestGetHashOffsetsAdversarialSeeds(t *testing.T) {
	n := EntriesPerPage*4 + 3
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{Hash: uint64(i) * 1000, Offset: uint64(i)}
	}

	// Target near the very start and very end exercises the interpolation
	// seed landing far from the true location.
	for _, idx := range []int{0, n - 1, n / 2} {
		got := lookup(t, entries, entries[idx].Hash)
		if len(got) != 1 || got[0] != int64(entries[idx].Offset) {
			t.Fatalf("idx %d: got %v, want [%d]", idx, got, entries[idx].Offset)
		}
	}
}

// TestScanBackwardMultiHopSkip drives scanBackward directly, starting the
// iterator many pages past the target so the pre_hashes skip list must
// take more than one HashesPerSide-sized hop to retreat far enough.
func TestScanBackwardMultiHopSkip(t *testing.T) {
	n := EntriesPerPage*20 + 5
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{Hash: uint64(i), Offset: uint64(i)}
	}
	raw := buildIndex(entries)
	it, err := NewPageIterator(&memSource{data: raw})
	if err != nil {
		t.Fatalf("NewPageIterator: %v", err)
	}

	startIdx := EntriesPerPage*19 + 3
	if ok, err := it.Init(startIdx, 0, n); err != nil || !ok {
		t.Fatalf("Init: ok=%v err=%v", ok, err)
	}

	got, err := scanBackward(it, 10)
	if err != nil {
		t.Fatalf("scanBackward: %v", err)
	}
	if len(got) != 1 || got[0] != 10 {
		t.Fatalf("got %v, want [10]", got)
	}
}

// TestScanForwardMultiHopSkip is the mirror image: the iterator starts at
// the very first page and the target sits many pages ahead, forcing the
// post_hashes skip list to take multiple hops.
func TestScanForwardMultiHopSkip(t *testing.T) {
	n := EntriesPerPage*20 + 5
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{Hash: uint64(i), Offset: uint64(i)}
	}
	raw := buildIndex(entries)
	it, err := NewPageIterator(&memSource{data: raw})
	if err != nil {
		t.Fatalf("NewPageIterator: %v", err)
	}

	if ok, err := it.Init(3, 0, n); err != nil || !ok {
		t.Fatalf("Init: ok=%v err=%v", ok, err)
	}

	targetIdx := EntriesPerPage*18 + 7
	got, err := scanForward(it, uint64(targetIdx))
	if err != nil {
		t.Fatalf("scanForward: %v", err)
	}
	if len(got) != 1 || got[0] != int64(targetIdx) {
		t.Fatalf("got %v, want [%d]", got, targetIdx)
	}
}
