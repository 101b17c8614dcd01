// Package history keeps an undo/redo stack of document snapshots.
//
// Recording happens only on the edit path; Undo/Redo are a separate
// time-travel path that never records, so a restored state cannot feed back
// into the stack.
package history

import "scribe/internal/domain"

// maxSnapshots caps the stack; the oldest snapshot is pruned past this.
const maxSnapshots = 100

// History is a linear snapshot stack plus a cursor into it.
type History struct {
	snapshots []domain.Document
	cursor    int
}

// New creates a history whose sole snapshot is the document as loaded.
func New(initial domain.Document) *History {
	return &History{snapshots: []domain.Document{initial.Clone()}}
}

// Record appends a snapshot after the cursor, dropping any redo states.
// Recording a document structurally equal to the current snapshot is a
// no-op, so re-renders of an identical state never grow the stack.
func (h *History) Record(doc domain.Document) {
	if doc.Equal(h.snapshots[h.cursor]) {
		return
	}
	h.snapshots = append(h.snapshots[:h.cursor+1], doc.Clone())
	if len(h.snapshots) > maxSnapshots {
		h.snapshots = h.snapshots[1:]
	}
	h.cursor = len(h.snapshots) - 1
}

// Undo steps the cursor back and returns that snapshot. The second return
// is false when there is nothing to undo.
func (h *History) Undo() (domain.Document, bool) {
	if h.cursor == 0 {
		return nil, false
	}
	h.cursor--
	return h.snapshots[h.cursor].Clone(), true
}

// Redo steps the cursor forward and returns that snapshot.
func (h *History) Redo() (domain.Document, bool) {
	if h.cursor >= len(h.snapshots)-1 {
		return nil, false
	}
	h.cursor++
	return h.snapshots[h.cursor].Clone(), true
}

func (h *History) CanUndo() bool { return h.cursor > 0 }

func (h *History) CanRedo() bool { return h.cursor < len(h.snapshots)-1 }

// Current returns the snapshot at the cursor.
func (h *History) Current() domain.Document {
	return h.snapshots[h.cursor].Clone()
}

// Len returns the number of snapshots on the stack.
func (h *History) Len() int { return len(h.snapshots) }
