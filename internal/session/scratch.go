package session

import "scribe/internal/domain"

// scratchFromPayload seeds the edit buffer from a block's current payload.
func scratchFromPayload(payload domain.Payload) Scratch {
	switch p := payload.(type) {
	case domain.ParagraphPayload:
		return Scratch{Text: p.Data}
	case domain.Heading2Payload:
		return Scratch{Text: p.Data}
	case domain.Heading3Payload:
		return Scratch{Text: p.Data}
	case domain.IframePayload:
		return Scratch{Text: p.Data}
	case domain.CodePayload:
		return Scratch{Text: p.Data, Language: p.Config.Language}
	case domain.QuotePayload:
		return Scratch{Text: p.Data, Author: p.Config.Author}
	case domain.WarningPayload:
		return Scratch{Text: p.Data, Severity: p.Config.Severity, Variant: p.Config.Variant}
	case domain.ImagePayload:
		var ref *string
		if p.Data != nil {
			r := *p.Data
			ref = &r
		}
		return Scratch{ImageRef: ref}
	}
	return Scratch{}
}

// payloadFromScratch builds a payload of the given kind from the edit
// buffer. The kind comes from the target block, so the resulting payload can
// never carry a different kind than the block it replaces.
func payloadFromScratch(kind domain.BlockKind, sc Scratch) domain.Payload {
	switch kind {
	case domain.KindParagraph:
		return domain.ParagraphPayload{Data: sc.Text}
	case domain.KindHeading2:
		return domain.Heading2Payload{Data: sc.Text}
	case domain.KindHeading3:
		return domain.Heading3Payload{Data: sc.Text}
	case domain.KindIframe:
		return domain.IframePayload{Data: sc.Text}
	case domain.KindCodeBlock:
		return domain.CodePayload{Data: sc.Text, Config: domain.CodeConfig{Language: sc.Language}}
	case domain.KindQuote:
		return domain.QuotePayload{Data: sc.Text, Config: domain.QuoteConfig{Author: sc.Author}}
	case domain.KindWarningBox:
		return domain.WarningPayload{Data: sc.Text, Config: domain.WarningConfig{Severity: sc.Severity, Variant: sc.Variant}}
	case domain.KindImage:
		var ref *string
		if sc.ImageRef != nil {
			r := *sc.ImageRef
			ref = &r
		}
		return domain.ImagePayload{Data: ref}
	}
	return nil
}
