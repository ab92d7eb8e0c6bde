package markindex

// Select adds a versioned verse id to the selection.
func (x *Index) Select(versionedVerseID string) {
	x.selection.Set(versionedVerseID, struct{}{})
}

// Deselect removes a versioned verse id from the selection.
func (x *Index) Deselect(versionedVerseID string) {
	x.selection.Delete(versionedVerseID)
}

// ToggleSelect flips the selection state of a verse and reports whether it
// is selected afterwards.
func (x *Index) ToggleSelect(versionedVerseID string) bool {
	if _, ok := x.selection.Delete(versionedVerseID); ok {
		return false
	}
	x.selection.Set(versionedVerseID, struct{}{})
	return true
}

// ClearSelection empties the selection.
func (x *Index) ClearSelection() {
	for x.selection.Len() > 0 {
		x.selection.Delete(x.selection.Oldest().Key)
	}
}

// IsSelected reports whether a verse is selected.
func (x *Index) IsSelected(versionedVerseID string) bool {
	_, ok := x.selection.Get(versionedVerseID)
	return ok
}

// Selection returns the selected verse ids in the order they were selected.
func (x *Index) Selection() []string {
	out := make([]string, 0, x.selection.Len())
	for p := x.selection.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}
