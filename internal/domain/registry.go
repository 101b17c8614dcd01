package domain

// KindInfo describes one block kind for authoring UI menus.
type KindInfo struct {
	Kind  BlockKind `json:"kind"`
	Label string    `json:"label"`
	Icon  string    `json:"icon"`
}

var kindCatalog = []KindInfo{
	{Kind: KindParagraph, Label: "Paragraph", Icon: "¶"},
	{Kind: KindHeading2, Label: "Heading 2", Icon: "H2"},
	{Kind: KindHeading3, Label: "Heading 3", Icon: "H3"},
	{Kind: KindCodeBlock, Label: "Code", Icon: "</>"},
	{Kind: KindQuote, Label: "Quote", Icon: "❝"},
	{Kind: KindWarningBox, Label: "Callout", Icon: "⚠"},
	{Kind: KindIframe, Label: "Video", Icon: "▶"},
	{Kind: KindImage, Label: "Image", Icon: "🖼"},
}

// Kinds returns the block kind catalog in menu order.
func Kinds() []KindInfo {
	out := make([]KindInfo, len(kindCatalog))
	copy(out, kindCatalog)
	return out
}

// ValidKind reports whether kind is part of the closed catalog.
func ValidKind(kind BlockKind) bool {
	return DefaultPayload(kind) != nil
}

// DefaultPayload returns a fresh default payload for the given kind, or nil
// for an unknown kind. Payloads are value types, so every call hands the
// caller an independent copy — blocks never share payload state.
func DefaultPayload(kind BlockKind) Payload {
	switch kind {
	case KindParagraph:
		return ParagraphPayload{}
	case KindHeading2:
		return Heading2Payload{}
	case KindHeading3:
		return Heading3Payload{}
	case KindCodeBlock:
		return CodePayload{Config: CodeConfig{Language: "javascript"}}
	case KindQuote:
		return QuotePayload{}
	case KindWarningBox:
		return WarningPayload{Config: WarningConfig{Severity: SeverityInfo, Variant: 1}}
	case KindIframe:
		return IframePayload{}
	case KindImage:
		return ImagePayload{}
	}
	return nil
}
