package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Persisted form of a document: sections carry heading + typed block content,
// but no ids. Block and section ids are an editing-session concept and are
// regenerated on every load.

type persistedBlock struct {
	Type    BlockKind       `json:"type"`
	Content json.RawMessage `json:"content"`
}

type persistedSection struct {
	Heading string           `json:"heading"`
	Content []persistedBlock `json:"content"`
}

// EncodeDocument serializes a document to its persisted JSON form,
// stripping all client ids.
func EncodeDocument(doc Document) ([]byte, error) {
	out := make([]persistedSection, len(doc))
	for i, s := range doc {
		ps := persistedSection{Heading: s.Heading, Content: []persistedBlock{}}
		for _, b := range s.Blocks {
			raw, err := json.Marshal(b.Payload)
			if err != nil {
				return nil, fmt.Errorf("encode block %s: %w", b.ID, err)
			}
			ps.Content = append(ps.Content, persistedBlock{Type: b.Kind, Content: raw})
		}
		out[i] = ps
	}
	return json.Marshal(out)
}

// DecodeDocument parses the persisted JSON form, assigning fresh ids to
// every section and block.
func DecodeDocument(data []byte) (Document, error) {
	var sections []persistedSection
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc := make(Document, len(sections))
	for i, ps := range sections {
		s := Section{ID: uuid.New().String(), Heading: ps.Heading}
		for _, pb := range ps.Content {
			payload, err := DecodePayload(pb.Type, pb.Content)
			if err != nil {
				return nil, err
			}
			s.Blocks = append(s.Blocks, Block{
				ID:      uuid.New().String(),
				Kind:    pb.Type,
				Payload: payload,
			})
		}
		doc[i] = s
	}
	return doc, nil
}

// DecodePayload parses a raw payload for the given kind.
func DecodePayload(kind BlockKind, raw json.RawMessage) (Payload, error) {
	var (
		payload Payload
		err     error
	)
	switch kind {
	case KindParagraph:
		var p ParagraphPayload
		err = unmarshalPayload(kind, raw, &p)
		payload = p
	case KindHeading2:
		var p Heading2Payload
		err = unmarshalPayload(kind, raw, &p)
		payload = p
	case KindHeading3:
		var p Heading3Payload
		err = unmarshalPayload(kind, raw, &p)
		payload = p
	case KindCodeBlock:
		var p CodePayload
		err = unmarshalPayload(kind, raw, &p)
		payload = p
	case KindQuote:
		var p QuotePayload
		err = unmarshalPayload(kind, raw, &p)
		payload = p
	case KindWarningBox:
		var p WarningPayload
		err = unmarshalPayload(kind, raw, &p)
		payload = p
	case KindIframe:
		var p IframePayload
		err = unmarshalPayload(kind, raw, &p)
		payload = p
	case KindImage:
		var p ImagePayload
		err = unmarshalPayload(kind, raw, &p)
		payload = p
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func unmarshalPayload(kind BlockKind, raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return nil
}
