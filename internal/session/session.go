// Package session implements the stateful editing controller for one open
// document: current vs original model, the in-progress edit target with its
// scratch buffer, undo/redo wiring, dirty tracking, the two-step delete
// confirm, and saving through the persistence gateway.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"scribe/internal/document"
	"scribe/internal/domain"
	"scribe/internal/event"
	"scribe/internal/gateway"
	"scribe/internal/history"
)

// Target identifies what is being edited or is staged for deletion: a block,
// or — when BlockID is empty — a section heading / whole section.
type Target struct {
	SectionID string `json:"sectionId"`
	BlockID   string `json:"blockId,omitempty"`
}

// Scratch buffers the in-progress edit of one target. Sub-fields (language,
// author, severity, variant, image ref) are edited through separate controls
// and only become part of the model when the edit commits.
type Scratch struct {
	Text     string          `json:"text"`
	Language string          `json:"language"`
	Author   string          `json:"author"`
	Severity domain.Severity `json:"severity"`
	Variant  int             `json:"variant"`
	ImageRef *string         `json:"imageRef"`
}

// Session owns the editing state of one document.
type Session struct {
	mu      sync.Mutex
	store   gateway.Store
	emitter event.Emitter
	logger  zerolog.Logger

	subTopicID string
	recordID   string // contents record id; empty until first save

	current  domain.Document
	original domain.Document
	hist     *history.History

	editing       *Target
	scratch       Scratch
	pendingDelete *Target

	saving bool
}

// Open loads the document persisted for subTopicID, or starts a fresh one
// when no content record exists yet.
func Open(ctx context.Context, store gateway.Store, emitter event.Emitter, logger zerolog.Logger, subTopicID string) (*Session, error) {
	s := &Session{
		store:      store,
		emitter:    emitter,
		logger:     logger.With().Str("subTopic", subTopicID).Logger(),
		subTopicID: subTopicID,
	}

	rec, err := store.FetchOneByForeignKey(ctx, domain.TableContents, "sub_topic_id", subTopicID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if rec == nil {
		s.current = document.New()
	} else {
		s.recordID = gateway.String(rec, "id")
		doc, err := domain.DecodeDocument([]byte(gateway.String(rec, "content_data")))
		if err != nil {
			return nil, fmt.Errorf("load document: %w", err)
		}
		if len(doc) == 0 {
			doc = document.New()
		}
		s.current = doc
	}
	s.original = s.current.Clone()
	s.hist = history.New(s.current)
	s.logger.Debug().Int("sections", len(s.current)).Msg("session opened")
	return s, nil
}

func (s *Session) SubTopicID() string { return s.subTopicID }

// Document returns a deep copy of the current model for rendering.
func (s *Session) Document() domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// apply installs a successfully transformed document and records it.
// Failed operations return the input unchanged, so history never sees a
// partially applied edit.
func (s *Session) applyLocked(ctx context.Context, next domain.Document) {
	s.current = next
	s.hist.Record(next)
	s.emitter.Emit(ctx, event.DocumentChanged, map[string]string{"subTopicId": s.subTopicID})
}

// ── Structural edits ───────────────────────────────────────

func (s *Session) InsertBlock(ctx context.Context, sectionID string, kind domain.BlockKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := document.InsertBlock(s.current, sectionID, kind)
	if err != nil {
		return err
	}
	s.applyLocked(ctx, next)
	return nil
}

func (s *Session) InsertSection(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(ctx, document.InsertSection(s.current))
}

func (s *Session) MoveBlock(ctx context.Context, sectionID, fromID, toID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(ctx, document.ReorderBlocks(s.current, sectionID, fromID, toID))
}

func (s *Session) MoveSection(ctx context.Context, fromID, toID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(ctx, document.ReorderSections(s.current, fromID, toID))
}

// ── Field edits ────────────────────────────────────────────

// StartEditing opens an edit form on the target. An already-open edit is
// committed first, never discarded.
func (s *Session) StartEditing(ctx context.Context, t Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing != nil {
		if err := s.commitLocked(ctx); err != nil {
			return err
		}
	}
	si := s.current.SectionIndex(t.SectionID)
	if si < 0 {
		return fmt.Errorf("start editing: %w: %s", domain.ErrSectionNotFound, t.SectionID)
	}
	section := s.current[si]
	if t.BlockID == "" {
		s.scratch = Scratch{Text: section.Heading}
	} else {
		bi := section.BlockIndex(t.BlockID)
		if bi < 0 {
			return fmt.Errorf("start editing: %w: %s", domain.ErrBlockNotFound, t.BlockID)
		}
		s.scratch = scratchFromPayload(section.Blocks[bi].Payload)
	}
	target := t
	s.editing = &target
	return nil
}

// Editing returns the open edit target, or nil.
func (s *Session) Editing() *Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing == nil {
		return nil
	}
	t := *s.editing
	return &t
}

// ScratchBuffer returns a copy of the in-progress edit buffer.
func (s *Session) ScratchBuffer() Scratch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scratch
}

// Scratch setters buffer sub-field edits until commit.

func (s *Session) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scratch.Text = text
}

func (s *Session) SetLanguage(language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scratch.Language = language
}

func (s *Session) SetAuthor(author string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scratch.Author = author
}

func (s *Session) SetSeverity(severity domain.Severity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scratch.Severity = severity
}

func (s *Session) SetVariant(variant int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scratch.Variant = variant
}

func (s *Session) SetImageRef(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scratch.ImageRef = &ref
}

func (s *Session) ClearImageRef() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scratch.ImageRef = nil
}

// CommitEdit folds the scratch buffer into the model and closes the edit
// form. Committing with no open target is a no-op.
func (s *Session) CommitEdit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(ctx)
}

func (s *Session) commitLocked(ctx context.Context) error {
	if s.editing == nil {
		return nil
	}
	t := *s.editing
	var (
		next domain.Document
		err  error
	)
	if t.BlockID == "" {
		next, err = document.UpdateSectionHeading(s.current, t.SectionID, s.scratch.Text)
	} else {
		si := s.current.SectionIndex(t.SectionID)
		if si < 0 {
			return fmt.Errorf("commit: %w: %s", domain.ErrSectionNotFound, t.SectionID)
		}
		bi := s.current[si].BlockIndex(t.BlockID)
		if bi < 0 {
			return fmt.Errorf("commit: %w: %s", domain.ErrBlockNotFound, t.BlockID)
		}
		payload := payloadFromScratch(s.current[si].Blocks[bi].Kind, s.scratch)
		next, err = document.UpdateBlockPayload(s.current, t.SectionID, t.BlockID, payload)
	}
	if err != nil {
		return err
	}
	s.editing = nil
	s.scratch = Scratch{}
	s.applyLocked(ctx, next)
	return nil
}

// CancelEdit closes the edit form, discarding scratch edits.
func (s *Session) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = nil
	s.scratch = Scratch{}
}

// ── Two-step delete ────────────────────────────────────────

// StageDeleteSection stages a section for deletion and reports whether it
// has unsaved changes, so the caller can warn before confirming.
func (s *Session) StageDeleteSection(sectionID string) (dirty bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.SectionIndex(sectionID) < 0 {
		return false, fmt.Errorf("stage delete: %w: %s", domain.ErrSectionNotFound, sectionID)
	}
	s.pendingDelete = &Target{SectionID: sectionID}
	return s.sectionDirtyLocked(sectionID), nil
}

func (s *Session) StageDeleteBlock(sectionID, blockID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	si := s.current.SectionIndex(sectionID)
	if si < 0 {
		return fmt.Errorf("stage delete: %w: %s", domain.ErrSectionNotFound, sectionID)
	}
	if s.current[si].BlockIndex(blockID) < 0 {
		return fmt.Errorf("stage delete: %w: %s", domain.ErrBlockNotFound, blockID)
	}
	s.pendingDelete = &Target{SectionID: sectionID, BlockID: blockID}
	return nil
}

// ConfirmDelete applies the staged deletion. Without a staged target it is
// a no-op.
func (s *Session) ConfirmDelete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingDelete == nil {
		return nil
	}
	t := *s.pendingDelete
	s.pendingDelete = nil

	var (
		next domain.Document
		err  error
	)
	if t.BlockID == "" {
		next, err = document.DeleteSection(s.current, t.SectionID)
		if err == nil && len(next) == 0 {
			// A document under edit always keeps at least one section.
			next = document.New()
		}
	} else {
		next, err = document.DeleteBlock(s.current, t.SectionID, t.BlockID)
	}
	if err != nil {
		return err
	}
	s.applyLocked(ctx, next)
	return nil
}

// CancelDelete clears the staged deletion with no model change.
func (s *Session) CancelDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingDelete = nil
}

// ── History ────────────────────────────────────────────────

// Undo restores the previous snapshot. Time travel replaces the current
// model without recording, so it can never feed back into the stack.
func (s *Session) Undo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.hist.Undo()
	if !ok {
		return false
	}
	s.timeTravelLocked(ctx, doc)
	return true
}

func (s *Session) Redo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.hist.Redo()
	if !ok {
		return false
	}
	s.timeTravelLocked(ctx, doc)
	return true
}

func (s *Session) timeTravelLocked(ctx context.Context, doc domain.Document) {
	s.current = doc
	// The restored state may no longer contain the edit or delete target.
	s.editing = nil
	s.scratch = Scratch{}
	s.pendingDelete = nil
	s.emitter.Emit(ctx, event.DocumentChanged, map[string]string{"subTopicId": s.subTopicID})
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanRedo()
}

// ── Dirty state, reset, save ───────────────────────────────

// IsDirty reports whether the current model differs from the last loaded or
// saved state.
func (s *Session) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.current.Equal(s.original)
}

// IsSectionDirty reports whether one section has unsaved changes.
func (s *Session) IsSectionDirty(sectionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sectionDirtyLocked(sectionID)
}

func (s *Session) sectionDirtyLocked(sectionID string) bool {
	ci := s.current.SectionIndex(sectionID)
	oi := s.original.SectionIndex(sectionID)
	if ci < 0 {
		return false
	}
	if oi < 0 {
		return true
	}
	return !s.current[ci].Equal(s.original[oi])
}

// Reset discards local edits, restoring the last loaded or saved state. The
// restored state is recorded, which also truncates any redo branch ahead of
// the cursor.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.original.Clone()
	s.editing = nil
	s.scratch = Scratch{}
	s.pendingDelete = nil
	s.hist.Record(s.current)
	s.emitter.Emit(ctx, event.DocumentChanged, map[string]string{"subTopicId": s.subTopicID})
}

// Save persists the current document: update when a content record exists,
// insert otherwise. On failure the session stays dirty so the user can
// retry; a save already in flight is rejected.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return domain.ErrSaveInFlight
	}
	s.saving = true
	saved := s.current.Clone()
	recordID := s.recordID
	s.mu.Unlock()

	data, err := domain.EncodeDocument(saved)
	if err == nil {
		var rec gateway.Record
		if recordID == "" {
			rec, err = s.store.Insert(ctx, domain.TableContents, gateway.Record{
				"sub_topic_id": s.subTopicID,
				"content_data": string(data),
			})
		} else {
			rec, err = s.store.Update(ctx, domain.TableContents, recordID, gateway.Record{
				"content_data": string(data),
			})
		}
		if err == nil {
			recordID = gateway.String(rec, "id")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		s.logger.Error().Err(err).Msg("save failed")
		s.emitter.Emit(ctx, event.SaveFailed, map[string]string{
			"subTopicId": s.subTopicID,
			"error":      err.Error(),
		})
		return fmt.Errorf("save document: %w", err)
	}
	s.recordID = recordID
	s.original = saved
	s.logger.Debug().Str("record", recordID).Msg("document saved")
	return nil
}
