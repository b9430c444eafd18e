package ordering

// Diff is the set of row changes that turns the stored order into a desired
// one.
type Diff struct {
	Updates []Item
	Inserts []Item
	Deletes []string
}

// Empty reports whether the diff changes nothing.
func (d Diff) Empty() bool {
	return len(d.Updates) == 0 && len(d.Inserts) == 0 && len(d.Deletes) == 0
}

// computeDiff matches desired items to existing rows by (type, id). Rows
// whose position changed are updated, unmatched desired items are inserted
// and unmatched rows are deleted. Repeated existing rows beyond the first
// match are deleted, which also repairs a doubly initialized table.
func computeDiff(existing, desired []Item) Diff {
	rows := make(map[Key]Item, len(existing))
	var d Diff
	for _, it := range existing {
		if _, dup := rows[it.Key()]; dup {
			d.Deletes = append(d.Deletes, it.ID)
			continue
		}
		rows[it.Key()] = it
	}

	for _, want := range desired {
		have, ok := rows[want.Key()]
		if !ok {
			d.Inserts = append(d.Inserts, want)
			continue
		}
		delete(rows, want.Key())
		if have.DisplayOrder != want.DisplayOrder {
			have.DisplayOrder = want.DisplayOrder
			d.Updates = append(d.Updates, have)
		}
	}

	for _, it := range existing {
		if left, ok := rows[it.Key()]; ok && left.ID == it.ID {
			d.Deletes = append(d.Deletes, it.ID)
		}
	}
	return d
}
