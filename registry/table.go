package registry

import (
	"cmp"
	"slices"
)

// table is the slot storage behind a Registry. It is not safe for
// concurrent use; the Registry serializes access.
type table struct {
	index    map[Clearable]int
	entries  []entry
	freeList []int
	seq      uint64
	live     int
}

type entry struct {
	handle   Clearable
	seq      uint64
	category Category
	valid    bool
	cleared  bool
}

func newTable() *table {
	return &table{
		index:    make(map[Clearable]int),
		entries:  make([]entry, 0, 64),
		freeList: make([]int, 0, 16),
	}
}

// insert stores h and reports whether it was newly added.
func (t *table) insert(h Clearable, c Category) bool {
	if _, ok := t.index[h]; ok {
		return false
	}
	t.seq++
	e := entry{handle: h, category: c, seq: t.seq, valid: true}

	var slot int
	if n := len(t.freeList); n > 0 {
		slot = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[slot] = e
	} else {
		slot = len(t.entries)
		t.entries = append(t.entries, e)
	}
	t.index[h] = slot
	t.live++
	return true
}

// remove drops h and returns its entry.
func (t *table) remove(h Clearable) (entry, bool) {
	slot, ok := t.index[h]
	if !ok {
		return entry{}, false
	}
	e := t.entries[slot]
	t.entries[slot] = entry{}
	t.freeList = append(t.freeList, slot)
	delete(t.index, h)
	t.live--
	return e, true
}

func (t *table) contains(h Clearable) bool {
	_, ok := t.index[h]
	return ok
}

// takeUncleared marks every live entry cleared and returns the ones that
// were not already, ordered by category and then by registration order.
func (t *table) takeUncleared() []entry {
	out := make([]entry, 0, t.live)
	for i := range t.entries {
		if e := &t.entries[i]; e.valid && !e.cleared {
			e.cleared = true
			out = append(out, *e)
		}
	}
	slices.SortFunc(out, func(a, b entry) int {
		if a.category != b.category {
			return cmp.Compare(a.category, b.category)
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}
