package document

// Move removes the element at from and reinserts it at to, in place.
// Removing first shifts indices, then the element lands at the target's
// post-removal index, which is the drag-drop convention. Section ordering,
// block ordering within a section, and topic ordering in the navigation
// tree all share this one algorithm.
func Move[T any](items []T, from, to int) []T {
	if from < 0 || to < 0 || from >= len(items) || to >= len(items) || from == to {
		return items
	}
	item := items[from]
	out := append(items[:from], items[from+1:]...)
	out = append(out, item)
	copy(out[to+1:], out[to:len(out)-1])
	out[to] = item
	return out
}
