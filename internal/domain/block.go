package domain

import "reflect"

type BlockKind string

const (
	KindParagraph  BlockKind = "paragraph"
	KindHeading2   BlockKind = "heading2"
	KindHeading3   BlockKind = "heading3"
	KindCodeBlock  BlockKind = "codeBlock"
	KindQuote      BlockKind = "quote"
	KindWarningBox BlockKind = "warningBox"
	KindIframe     BlockKind = "iframe"
	KindImage      BlockKind = "image"
)

// Severity levels for warning boxes.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityNote    Severity = "note"
	SeverityTip     Severity = "tip"
)

// Payload is the kind-specific content of a block. Each kind has its own
// payload type so a payload can never be attached to a block of a different
// kind without tripping the Kind check at commit time.
type Payload interface {
	Kind() BlockKind
	Clone() Payload
}

// ParagraphPayload holds rich-text HTML for a paragraph block.
type ParagraphPayload struct {
	Data string `json:"data"`
}

func (p ParagraphPayload) Kind() BlockKind { return KindParagraph }
func (p ParagraphPayload) Clone() Payload  { return p }

// Heading2Payload holds the text of a level-2 heading block.
type Heading2Payload struct {
	Data string `json:"data"`
}

func (p Heading2Payload) Kind() BlockKind { return KindHeading2 }
func (p Heading2Payload) Clone() Payload  { return p }

// Heading3Payload holds the text of a level-3 heading block.
type Heading3Payload struct {
	Data string `json:"data"`
}

func (p Heading3Payload) Kind() BlockKind { return KindHeading3 }
func (p Heading3Payload) Clone() Payload  { return p }

// IframePayload holds the embed URL of a video block.
type IframePayload struct {
	Data string `json:"data"`
}

func (p IframePayload) Kind() BlockKind { return KindIframe }
func (p IframePayload) Clone() Payload  { return p }

type CodeConfig struct {
	Language string `json:"language"`
}

// CodePayload holds source text plus the highlight language.
type CodePayload struct {
	Data   string     `json:"data"`
	Config CodeConfig `json:"config"`
}

func (p CodePayload) Kind() BlockKind { return KindCodeBlock }
func (p CodePayload) Clone() Payload  { return p }

type QuoteConfig struct {
	Author string `json:"author"`
}

// QuotePayload holds quoted text plus attribution.
type QuotePayload struct {
	Data   string      `json:"data"`
	Config QuoteConfig `json:"config"`
}

func (p QuotePayload) Kind() BlockKind { return KindQuote }
func (p QuotePayload) Clone() Payload  { return p }

type WarningConfig struct {
	Severity Severity `json:"severity"`
	Variant  int      `json:"variant"`
}

// WarningPayload holds callout text plus severity and visual variant.
type WarningPayload struct {
	Data   string        `json:"data"`
	Config WarningConfig `json:"config"`
}

func (p WarningPayload) Kind() BlockKind { return KindWarningBox }
func (p WarningPayload) Clone() Payload  { return p }

// ImagePayload holds an image reference. Nil until an upload completes.
type ImagePayload struct {
	Data *string `json:"data"`
}

func (p ImagePayload) Kind() BlockKind { return KindImage }

func (p ImagePayload) Clone() Payload {
	if p.Data == nil {
		return p
	}
	ref := *p.Data
	return ImagePayload{Data: &ref}
}

// Block is a single typed unit of document content. The ID is generated
// client-side, stable for the lifetime of the editing session, and never
// persisted.
type Block struct {
	ID      string    `json:"id"`
	Kind    BlockKind `json:"kind"`
	Payload Payload   `json:"payload"`
}

func (b Block) Clone() Block {
	c := b
	if b.Payload != nil {
		c.Payload = b.Payload.Clone()
	}
	return c
}

// Section is a headed, ordered group of blocks. Slice order is display order;
// there is no separate position field.
type Section struct {
	ID      string  `json:"id"`
	Heading string  `json:"heading"`
	Blocks  []Block `json:"blocks"`
}

func (s Section) Clone() Section {
	c := s
	if s.Blocks != nil {
		c.Blocks = make([]Block, len(s.Blocks))
		for i, b := range s.Blocks {
			c.Blocks[i] = b.Clone()
		}
	}
	return c
}

func (s Section) Equal(other Section) bool {
	return reflect.DeepEqual(s, other)
}

// Document is the full ordered list of sections of one page.
type Document []Section

func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	c := make(Document, len(d))
	for i, s := range d {
		c[i] = s.Clone()
	}
	return c
}

// Equal reports deep structural equality. Every mutation operation returns a
// fresh value, so reference comparison would never match anything.
func (d Document) Equal(other Document) bool {
	if len(d) != len(other) {
		return false
	}
	return reflect.DeepEqual(d, other)
}

// SectionIndex returns the position of the section with the given id, or -1.
func (d Document) SectionIndex(sectionID string) int {
	for i, s := range d {
		if s.ID == sectionID {
			return i
		}
	}
	return -1
}

// BlockIndex returns the position of a block within the section, or -1.
func (s Section) BlockIndex(blockID string) int {
	for i, b := range s.Blocks {
		if b.ID == blockID {
			return i
		}
	}
	return -1
}
