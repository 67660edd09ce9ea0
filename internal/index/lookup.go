package index

import "fmt"

// GetHashOffsets positions it at the entry an interpolation seed guesses
// for hash among entriesNum total entries starting at indexOffset, then
// enumerates every data-record offset whose index entry carries that exact
// hash. The equal-hash run may span more than one page; results are
// returned in no particular order.
func GetHashOffsets(it *PageIterator, entriesNum int, hash uint64, indexOffset int64) ([]int64, error) {
	guess := int((hash >> 32) * uint64(entriesNum) / (uint64(1) << 32))

	ok, err := it.Init(guess, indexOffset, entriesNum)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("index: could not load initial page for guess %d", guess)
	}

	current := it.Current().Hash
	switch {
	case current == hash:
		return equalRun(it, guess, indexOffset, entriesNum, hash)
	case current < hash:
		return scanForward(it, hash)
	default:
		return scanBackward(it, hash)
	}
}

// equalRun collects the offset under the cursor and walks outward in both
// directions while entries keep matching hash, re-seeding the iterator at
// the initial guess before switching direction.
func equalRun(it *PageIterator, guess int, indexOffset int64, entriesNum int, hash uint64) ([]int64, error) {
	var result []int64
	result = append(result, int64(it.Current().Offset))

	for {
		ok, err := it.Dec()
		if err != nil {
			return nil, err
		}
		if !ok || it.Current().Hash != hash {
			break
		}
		result = append(result, int64(it.Current().Offset))
	}

	if ok, err := it.Init(guess, indexOffset, entriesNum); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("index: could not re-seed at guess %d", guess)
	}

	for {
		ok, err := it.Inc()
		if err != nil {
			return nil, err
		}
		if !ok || it.Current().Hash != hash {
			break
		}
		result = append(result, int64(it.Current().Offset))
	}

	return result, nil
}

// scanForward handles the case where the interpolation guess landed on a
// hash below the target: it uses PostHashes as a skip list to jump, in one
// or more hops of up to HashesPerSide pages, to the page that might contain
// the target, then scans that page's entries left to right.
func scanForward(it *PageIterator, hash uint64) ([]int64, error) {
	for it.PageID()+1 < it.PagesNum() && it.Page().Entries[it.Size()-1].Hash < hash {
		following := it.PagesNum() - it.PageID() - 1
		if following > HashesPerSide {
			following = HashesPerSide
		}

		p := 0
		for p < following && it.Page().PostHashes[p] < hash {
			p++
		}
		if p == following {
			if following == it.PagesNum()-it.PageID()-1 {
				// Even the last page ends below hash; the target isn't in this file.
				return nil, nil
			}
			// No bookmark in the window reaches hash yet: hop to the
			// farthest bookmarked page and look again from there.
			p--
		}
		p++

		ok, err := it.SetPageID(it.PageID() + p)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("index: could not load page %d", it.PageID())
		}
		it.cur = 0
	}

	var result []int64
	for {
		e := it.Current()
		if e.Hash == hash {
			result = append(result, int64(e.Offset))
		}
		if e.Hash > hash {
			break
		}
		ok, err := it.Inc()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return result, nil
}

// scanBackward handles the case where the interpolation guess landed on a
// hash above the target: it uses PreHashes as a skip list to jump back, in
// one or more hops of up to HashesPerSide pages, to the page that might
// contain the target, binary-searches within it for
// the run's rightmost entry, then walks left (across pages if needed) to
// collect the whole equal-hash run.
func scanBackward(it *PageIterator, hash uint64) ([]int64, error) {
	for it.PageID() > 0 && it.Page().Entries[0].Hash > hash {
		preceding := it.PageID()
		if preceding > HashesPerSide {
			preceding = HashesPerSide
		}

		p := 0
		for p < preceding && it.Page().PreHashes[p] > hash {
			p++
		}
		if p == preceding {
			if preceding == it.PageID() {
				// Even the first page starts above hash; the target isn't in this file.
				return nil, nil
			}
			// No bookmark in the window reaches back to hash yet: hop to the
			// farthest bookmarked page and look again from there.
			p--
		}
		p++

		ok, err := it.SetPageID(it.PageID() - p)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("index: could not load page %d", it.PageID())
		}
	}

	entries := it.Page().Entries[:it.Size()]
	bot, top := 0, it.Size()
	for top > 1 {
		mid := top / 2
		if hash >= entries[bot+mid].Hash {
			bot += mid
		}
		top -= mid
	}
	if entries[bot].Hash != hash {
		return nil, nil
	}
	for bot+1 < it.Size() && entries[bot+1].Hash == hash {
		bot++
	}

	var result []int64
	it.cur = bot
	for it.Page().Entries[it.cur].Hash == hash {
		result = append(result, int64(it.Page().Entries[it.cur].Offset))
		if it.cur > 0 {
			it.cur--
			continue
		}
		if it.PageID() == 0 {
			break
		}
		ok, err := it.SetPageID(it.PageID() - 1)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("index: could not load page %d", it.PageID())
		}
		it.cur = it.Size() - 1
	}
	return result, nil
}
