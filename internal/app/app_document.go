package app

import (
	"scribe/internal/domain"
	"scribe/internal/session"
)

// ============================================================
// Document editing
// ============================================================

// OpenDocument loads (or returns the already-open) document for a sub-topic.
func (a *App) OpenDocument(subTopicID string) (domain.Document, error) {
	s, err := a.session(subTopicID)
	if err != nil {
		return nil, err
	}
	return s.Document(), nil
}

func (a *App) GetDocument(subTopicID string) (domain.Document, error) {
	return a.OpenDocument(subTopicID)
}

func (a *App) BlockKinds() []domain.KindInfo {
	return domain.Kinds()
}

// ── Structure ──────────────────────────────────────────────

func (a *App) InsertBlock(subTopicID, sectionID, kind string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	return s.InsertBlock(a.ctx, sectionID, domain.BlockKind(kind))
}

func (a *App) InsertSection(subTopicID string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	s.InsertSection(a.ctx)
	return nil
}

func (a *App) MoveBlock(subTopicID, sectionID, fromID, toID string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	s.MoveBlock(a.ctx, sectionID, fromID, toID)
	return nil
}

func (a *App) MoveSection(subTopicID, fromID, toID string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	s.MoveSection(a.ctx, fromID, toID)
	return nil
}

// ── Editing ────────────────────────────────────────────────

// StartEditing opens the edit form on a block, or on a section heading when
// blockID is empty.
func (a *App) StartEditing(subTopicID, sectionID, blockID string) (session.Scratch, error) {
	s, err := a.session(subTopicID)
	if err != nil {
		return session.Scratch{}, err
	}
	if err := s.StartEditing(a.ctx, session.Target{SectionID: sectionID, BlockID: blockID}); err != nil {
		return session.Scratch{}, err
	}
	return s.ScratchBuffer(), nil
}

func (a *App) SetText(subTopicID, text string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	s.SetText(text)
	return nil
}

func (a *App) SetLanguage(subTopicID, language string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	s.SetLanguage(language)
	return nil
}

func (a *App) SetAuthor(subTopicID, author string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	s.SetAuthor(author)
	return nil
}

func (a *App) SetSeverity(subTopicID, severity string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	s.SetSeverity(domain.Severity(severity))
	return nil
}

func (a *App) SetVariant(subTopicID string, variant int) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	s.SetVariant(variant)
	return nil
}

func (a *App) CommitEdit(subTopicID string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	return s.CommitEdit(a.ctx)
}

func (a *App) CancelEdit(subTopicID string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	s.CancelEdit()
	return nil
}

// ── Images ─────────────────────────────────────────────────

// SetBlockImage stores a pasted image on disk and points the open edit's
// image reference at it. The reference lands in the model on commit.
func (a *App) SetBlockImage(subTopicID, blockID, dataURL string) (string, error) {
	s, err := a.session(subTopicID)
	if err != nil {
		return "", err
	}
	path, err := a.images.SaveImage(subTopicID, blockID, dataURL)
	if err != nil {
		return "", err
	}
	s.SetImageRef(path)
	return path, nil
}

func (a *App) ClearBlockImage(subTopicID string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	s.ClearImageRef()
	return nil
}

// GetImageData reads a stored image back as a base64 data URL for rendering.
func (a *App) GetImageData(path string) (string, error) {
	return a.images.ImageData(path)
}

// ── Two-step delete ────────────────────────────────────────

func (a *App) StageDeleteSection(subTopicID, sectionID string) (bool, error) {
	s, err := a.session(subTopicID)
	if err != nil {
		return false, err
	}
	return s.StageDeleteSection(sectionID)
}

func (a *App) StageDeleteBlock(subTopicID, sectionID, blockID string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	return s.StageDeleteBlock(sectionID, blockID)
}

func (a *App) ConfirmDelete(subTopicID string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	return s.ConfirmDelete(a.ctx)
}

func (a *App) CancelDelete(subTopicID string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	s.CancelDelete()
	return nil
}

// ── History, dirty state, save ─────────────────────────────

func (a *App) Undo(subTopicID string) (bool, error) {
	s, err := a.session(subTopicID)
	if err != nil {
		return false, err
	}
	return s.Undo(a.ctx), nil
}

func (a *App) Redo(subTopicID string) (bool, error) {
	s, err := a.session(subTopicID)
	if err != nil {
		return false, err
	}
	return s.Redo(a.ctx), nil
}

func (a *App) CanUndo(subTopicID string) (bool, error) {
	s, err := a.session(subTopicID)
	if err != nil {
		return false, err
	}
	return s.CanUndo(), nil
}

func (a *App) CanRedo(subTopicID string) (bool, error) {
	s, err := a.session(subTopicID)
	if err != nil {
		return false, err
	}
	return s.CanRedo(), nil
}

func (a *App) IsDirty(subTopicID string) (bool, error) {
	s, err := a.session(subTopicID)
	if err != nil {
		return false, err
	}
	return s.IsDirty(), nil
}

func (a *App) IsSectionDirty(subTopicID, sectionID string) (bool, error) {
	s, err := a.session(subTopicID)
	if err != nil {
		return false, err
	}
	return s.IsSectionDirty(sectionID), nil
}

func (a *App) ResetDocument(subTopicID string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	s.Reset(a.ctx)
	return nil
}

func (a *App) SaveDocument(subTopicID string) error {
	s, err := a.session(subTopicID)
	if err != nil {
		return err
	}
	return s.Save(a.ctx)
}
