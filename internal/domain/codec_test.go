package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"scribe/internal/domain"
)

func persistedRoundTrip(t *testing.T, doc domain.Document) domain.Document {
	t.Helper()
	data, err := domain.EncodeDocument(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := domain.DecodeDocument(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return decoded
}

func TestCodec_ContentSurvives_IDsDoNot(t *testing.T) {
	ref := "/assets/doc/block.png"
	doc := domain.Document{{
		ID:      "sec-1",
		Heading: "Install",
		Blocks: []domain.Block{
			{ID: "b-1", Kind: domain.KindParagraph, Payload: domain.ParagraphPayload{Data: "<p>hi</p>"}},
			{ID: "b-2", Kind: domain.KindCodeBlock, Payload: domain.CodePayload{
				Data: "print('x')", Config: domain.CodeConfig{Language: "python"},
			}},
			{ID: "b-3", Kind: domain.KindWarningBox, Payload: domain.WarningPayload{
				Data: "careful", Config: domain.WarningConfig{Severity: domain.SeverityError, Variant: 2},
			}},
			{ID: "b-4", Kind: domain.KindQuote, Payload: domain.QuotePayload{
				Data: "words", Config: domain.QuoteConfig{Author: "Knuth"},
			}},
			{ID: "b-5", Kind: domain.KindImage, Payload: domain.ImagePayload{Data: &ref}},
		},
	}}

	got := persistedRoundTrip(t, doc)

	if len(got) != 1 || len(got[0].Blocks) != 5 {
		t.Fatalf("shape changed: %d sections", len(got))
	}
	if got[0].Heading != "Install" {
		t.Errorf("heading = %q", got[0].Heading)
	}
	if got[0].ID == "sec-1" {
		t.Error("section id must be regenerated on load")
	}
	for i, b := range got[0].Blocks {
		if b.ID == doc[0].Blocks[i].ID {
			t.Errorf("block %d kept its persisted-session id", i)
		}
		if b.Kind != doc[0].Blocks[i].Kind {
			t.Errorf("block %d kind = %s, want %s", i, b.Kind, doc[0].Blocks[i].Kind)
		}
	}

	code := got[0].Blocks[1].Payload.(domain.CodePayload)
	if code.Data != "print('x')" || code.Config.Language != "python" {
		t.Errorf("code payload = %+v", code)
	}
	warn := got[0].Blocks[2].Payload.(domain.WarningPayload)
	if warn.Config.Severity != domain.SeverityError || warn.Config.Variant != 2 {
		t.Errorf("warning payload = %+v", warn)
	}
	quote := got[0].Blocks[3].Payload.(domain.QuotePayload)
	if quote.Config.Author != "Knuth" {
		t.Errorf("quote payload = %+v", quote)
	}
	img := got[0].Blocks[4].Payload.(domain.ImagePayload)
	if img.Data == nil || *img.Data != ref {
		t.Errorf("image payload = %+v", img)
	}
}

func TestCodec_PersistedFormHasNoIDs(t *testing.T) {
	doc := domain.Document{{
		ID:      "sec-1",
		Heading: "H",
		Blocks:  []domain.Block{{ID: "b-1", Kind: domain.KindParagraph, Payload: domain.ParagraphPayload{}}},
	}}
	data, err := domain.EncodeDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw[0]["id"]; ok {
		t.Error("persisted section carries an id")
	}
}

func TestCodec_NilImageRef(t *testing.T) {
	doc := domain.Document{{
		ID:      "s",
		Heading: "H",
		Blocks:  []domain.Block{{ID: "b", Kind: domain.KindImage, Payload: domain.ImagePayload{}}},
	}}
	got := persistedRoundTrip(t, doc)
	img := got[0].Blocks[0].Payload.(domain.ImagePayload)
	if img.Data != nil {
		t.Errorf("expected nil image ref, got %q", *img.Data)
	}
}

func TestDecodePayload_UnknownKind(t *testing.T) {
	_, err := domain.DecodePayload("sparkline", json.RawMessage(`{}`))
	if !errors.Is(err, domain.ErrUnknownKind) {
		t.Fatalf("err = %v, want ErrUnknownKind", err)
	}
}

func TestDecodeDocument_Malformed(t *testing.T) {
	if _, err := domain.DecodeDocument([]byte(`{"not":"an array"}`)); err == nil {
		t.Fatal("expected error for malformed document")
	}
}

func TestImagePayload_CloneIsDeep(t *testing.T) {
	ref := "a.png"
	p := domain.ImagePayload{Data: &ref}
	c := p.Clone().(domain.ImagePayload)
	*c.Data = "b.png"
	if *p.Data != "a.png" {
		t.Error("clone shares the image ref pointer")
	}
}
