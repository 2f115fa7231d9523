package record

import (
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
)

// History keeps the most recent published pulse ids, ordered by id, so that
// consumers can tell which ids never arrived. It is not safe for concurrent
// use; Record guards it with its own lock.
type History struct {
	tree       *redblacktree.Tree // pulse id -> publish time
	limit      int
	duplicates int64
}

// NewHistory creates a history holding at most limit ids.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 1
	}
	return &History{
		tree:  redblacktree.NewWith(utils.UInt64Comparator),
		limit: limit,
	}
}

// Add records id as published at ts, evicting the oldest ids beyond the limit.
func (h *History) Add(id uint64, ts time.Time) {
	if _, found := h.tree.Get(id); found {
		h.duplicates++
	}
	h.tree.Put(id, ts)
	for h.tree.Size() > h.limit {
		h.tree.Remove(h.tree.Left().Key)
	}
}

// size is the number of ids held.
func (h *History) size() int { return h.tree.Size() }

// Duplicates counts ids that were added more than once.
func (h *History) Duplicates() int64 { return h.duplicates }

// Bounds returns the lowest and highest id held.
func (h *History) Bounds() (first, last uint64, ok bool) {
	if h.tree.Empty() {
		return 0, 0, false
	}
	return h.tree.Left().Key.(uint64), h.tree.Right().Key.(uint64), true
}

// publishedAt reports when id was published, if it is still in the window.
func (h *History) publishedAt(id uint64) (time.Time, bool) {
	v, found := h.tree.Get(id)
	if !found {
		return time.Time{}, false
	}
	return v.(time.Time), true
}

// Gaps lists the ids missing between the lowest and highest id held, ascending.
func (h *History) Gaps() []uint64 {
	var gaps []uint64
	var prev uint64
	first := true

	it := h.tree.Iterator()
	for it.Next() {
		id := it.Key().(uint64)
		if !first {
			for missing := prev + 1; missing < id; missing++ {
				gaps = append(gaps, missing)
			}
		}
		prev, first = id, false
	}
	return gaps
}
