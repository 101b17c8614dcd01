// Package document provides the pure structural operations over a
// domain.Document. Every operation is copy-on-write: the input document is
// never mutated, and a failed operation returns the input unchanged so a
// partial edit can never leak into undo history.
package document

import (
	"fmt"

	"github.com/google/uuid"

	"scribe/internal/domain"
)

// PlaceholderHeading is the heading given to a freshly inserted section.
const PlaceholderHeading = "Add Heading"

// New returns the minimal editable document: one empty placeholder section.
// The engine guarantees at least one section exists once editing begins.
func New() domain.Document {
	return domain.Document{{
		ID:      uuid.New().String(),
		Heading: PlaceholderHeading,
	}}
}

// InsertBlock appends a new block of the given kind, with its default
// payload and a fresh id, to the end of the named section.
func InsertBlock(doc domain.Document, sectionID string, kind domain.BlockKind) (domain.Document, error) {
	payload := domain.DefaultPayload(kind)
	if payload == nil {
		return doc, fmt.Errorf("insert block: %w: %q", domain.ErrUnknownKind, kind)
	}
	si := doc.SectionIndex(sectionID)
	if si < 0 {
		return doc, fmt.Errorf("insert block: %w: %s", domain.ErrSectionNotFound, sectionID)
	}
	next := doc.Clone()
	next[si].Blocks = append(next[si].Blocks, domain.Block{
		ID:      uuid.New().String(),
		Kind:    kind,
		Payload: payload,
	})
	return next, nil
}

// UpdateBlockPayload replaces a block's payload. The payload's kind must
// match the block's kind; a mismatch is a programmer error and is rejected
// rather than silently coercing the block.
func UpdateBlockPayload(doc domain.Document, sectionID, blockID string, payload domain.Payload) (domain.Document, error) {
	si := doc.SectionIndex(sectionID)
	if si < 0 {
		return doc, fmt.Errorf("update block: %w: %s", domain.ErrSectionNotFound, sectionID)
	}
	bi := doc[si].BlockIndex(blockID)
	if bi < 0 {
		return doc, fmt.Errorf("update block: %w: %s", domain.ErrBlockNotFound, blockID)
	}
	if payload == nil || payload.Kind() != doc[si].Blocks[bi].Kind {
		return doc, fmt.Errorf("update block %s: %w", blockID, domain.ErrInvalidPayloadKind)
	}
	next := doc.Clone()
	next[si].Blocks[bi].Payload = payload.Clone()
	return next, nil
}

// DeleteBlock removes a block from the named section.
func DeleteBlock(doc domain.Document, sectionID, blockID string) (domain.Document, error) {
	si := doc.SectionIndex(sectionID)
	if si < 0 {
		return doc, fmt.Errorf("delete block: %w: %s", domain.ErrSectionNotFound, sectionID)
	}
	bi := doc[si].BlockIndex(blockID)
	if bi < 0 {
		return doc, fmt.Errorf("delete block: %w: %s", domain.ErrBlockNotFound, blockID)
	}
	next := doc.Clone()
	next[si].Blocks = append(next[si].Blocks[:bi], next[si].Blocks[bi+1:]...)
	return next, nil
}

// InsertSection appends a new empty section with the placeholder heading.
func InsertSection(doc domain.Document) domain.Document {
	next := doc.Clone()
	return append(next, domain.Section{
		ID:      uuid.New().String(),
		Heading: PlaceholderHeading,
	})
}

// DeleteSection removes the named section.
func DeleteSection(doc domain.Document, sectionID string) (domain.Document, error) {
	si := doc.SectionIndex(sectionID)
	if si < 0 {
		return doc, fmt.Errorf("delete section: %w: %s", domain.ErrSectionNotFound, sectionID)
	}
	next := doc.Clone()
	return append(next[:si], next[si+1:]...), nil
}

// UpdateSectionHeading replaces the heading text of the named section.
func UpdateSectionHeading(doc domain.Document, sectionID, text string) (domain.Document, error) {
	si := doc.SectionIndex(sectionID)
	if si < 0 {
		return doc, fmt.Errorf("update heading: %w: %s", domain.ErrSectionNotFound, sectionID)
	}
	next := doc.Clone()
	next[si].Heading = text
	return next, nil
}

// ReorderBlocks moves the block with fromID to toID's position within a
// section, array-move semantics. Unknown or identical ids are a no-op:
// same-position drops and stale drags are normal gesture noise, not errors.
func ReorderBlocks(doc domain.Document, sectionID, fromID, toID string) domain.Document {
	si := doc.SectionIndex(sectionID)
	if si < 0 {
		return doc
	}
	from := doc[si].BlockIndex(fromID)
	to := doc[si].BlockIndex(toID)
	if from < 0 || to < 0 || from == to {
		return doc
	}
	next := doc.Clone()
	next[si].Blocks = Move(next[si].Blocks, from, to)
	return next
}

// ReorderSections moves the section with fromID to toID's position. Same
// array-move algorithm as ReorderBlocks, parameterized by container.
func ReorderSections(doc domain.Document, fromID, toID string) domain.Document {
	from := doc.SectionIndex(fromID)
	to := doc.SectionIndex(toID)
	if from < 0 || to < 0 || from == to {
		return doc
	}
	return domain.Document(Move(doc.Clone(), from, to))
}
