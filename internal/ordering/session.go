package ordering

import (
	"fmt"

	"github.com/alecgard/troupe/internal/apperr"
)

// Session is an immutable proposed ordering. Every mutation returns a new
// Session; the zero value is an empty, clean session.
type Session struct {
	items []Item
	dirty bool
}

// NewSession returns a clean session over items as loaded from the store.
func NewSession(items []Item) Session {
	return Session{items: clone(items)}
}

// Items returns a copy of the session's items in order.
func (s Session) Items() []Item {
	return clone(s.items)
}

// Len returns the number of items.
func (s Session) Len() int {
	return len(s.items)
}

// Dirty reports whether the session differs from what was last loaded or
// saved.
func (s Session) Dirty() bool {
	return s.dirty
}

// Move returns a session with the item at from moved to index to and every
// item renumbered. The receiver is left unchanged.
func (s Session) Move(from, to int) (Session, error) {
	items, err := Reorder(s.items, from, to)
	if err != nil {
		return s, err
	}
	return Session{items: items, dirty: true}, nil
}

// Replace returns a dirty session holding items renumbered in the given
// order.
func (s Session) Replace(items []Item) Session {
	return Session{items: Renumber(items), dirty: true}
}

// Reorder removes the item at from, inserts it at to and renumbers every
// item to its 1-based position. The input slice is not modified.
func Reorder(items []Item, from, to int) ([]Item, error) {
	n := len(items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, apperr.Validation(fmt.Sprintf("move %d -> %d out of range for %d items", from, to, n))
	}

	out := make([]Item, 0, n)
	moved := items[from]
	for i, it := range items {
		if i != from {
			out = append(out, it)
		}
	}
	out = append(out[:to], append([]Item{moved}, out[to:]...)...)
	return Renumber(out), nil
}

// Renumber returns a copy of items with DisplayOrder set to each item's
// 1-based position.
func Renumber(items []Item) []Item {
	out := clone(items)
	for i := range out {
		out[i].DisplayOrder = i + 1
	}
	return out
}

// checkItems rejects unknown types, blank ids and repeated items.
func checkItems(items []Item) error {
	seen := make(map[Key]bool, len(items))
	for i, it := range items {
		if !it.ItemType.Valid() {
			return apperr.Validation(fmt.Sprintf("item %d: unknown item_type %q", i, it.ItemType))
		}
		if it.ItemID == "" {
			return apperr.Validation(fmt.Sprintf("item %d: item_id is required", i))
		}
		if seen[it.Key()] {
			return apperr.Validation(fmt.Sprintf("item %d: %s %s appears more than once", i, it.ItemType, it.ItemID))
		}
		seen[it.Key()] = true
	}
	return nil
}

func clone(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
