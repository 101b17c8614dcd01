package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"scribe/internal/domain"
	"scribe/internal/session"
)

func (s *Server) registerTreeTools() {
	// ── list_topics ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_topics",
		mcp.WithDescription("List all topics with their sub-topics"),
	), s.handleListTopics)

	// ── create_topic ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_topic",
		mcp.WithDescription("Create a new top-level topic"),
		mcp.WithString("title",
			mcp.Description("Title of the new topic"),
			mcp.Required(),
		),
	), s.handleCreateTopic)

	// ── create_subtopic ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_subtopic",
		mcp.WithDescription("Create a new sub-topic under a topic"),
		mcp.WithString("topicId",
			mcp.Description("ID of the parent topic"),
			mcp.Required(),
		),
		mcp.WithString("title",
			mcp.Description("Title of the new sub-topic"),
			mcp.Required(),
		),
	), s.handleCreateSubTopic)
}

func (s *Server) registerDocumentTools() {
	// ── list_block_kinds ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_block_kinds",
		mcp.WithDescription("List the block kinds a document can contain"),
	), s.handleListBlockKinds)

	// ── get_document ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Get the document of a sub-topic, including unsaved edits"),
		mcp.WithString("subTopicId",
			mcp.Description("ID of the sub-topic"),
			mcp.Required(),
		),
	), s.handleGetDocument)

	// ── append_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("append_block",
		mcp.WithDescription("Append a block to a section and set its text. Changes stay in memory until save_document."),
		mcp.WithString("subTopicId",
			mcp.Description("ID of the sub-topic"),
			mcp.Required(),
		),
		mcp.WithString("sectionId",
			mcp.Description("ID of the target section; defaults to the last section"),
		),
		mcp.WithString("kind",
			mcp.Description("Block kind (see list_block_kinds)"),
			mcp.Required(),
		),
		mcp.WithString("text",
			mcp.Description("Text content of the block"),
		),
		mcp.WithString("language",
			mcp.Description("Language for code blocks"),
		),
	), s.handleAppendBlock)

	// ── append_section ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("append_section",
		mcp.WithDescription("Append a new section with the given heading"),
		mcp.WithString("subTopicId",
			mcp.Description("ID of the sub-topic"),
			mcp.Required(),
		),
		mcp.WithString("heading",
			mcp.Description("Heading of the new section"),
			mcp.Required(),
		),
	), s.handleAppendSection)

	// ── update_section_heading ─────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_section_heading",
		mcp.WithDescription("Change the heading of a section"),
		mcp.WithString("subTopicId",
			mcp.Description("ID of the sub-topic"),
			mcp.Required(),
		),
		mcp.WithString("sectionId",
			mcp.Description("ID of the section"),
			mcp.Required(),
		),
		mcp.WithString("heading",
			mcp.Description("New heading text"),
			mcp.Required(),
		),
	), s.handleUpdateSectionHeading)

	// ── save_document ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_document",
		mcp.WithDescription("Persist the in-memory edits of a sub-topic's document"),
		mcp.WithString("subTopicId",
			mcp.Description("ID of the sub-topic"),
			mcp.Required(),
		),
	), s.handleSaveDocument)
}

func (s *Server) handleListTopics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.tree.Snapshot())
}

func (s *Server) handleCreateTopic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	topic, err := s.tree.CreateTopic(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	return jsonResult(topic)
}

func (s *Server) handleCreateSubTopic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topicID := req.GetString("topicId", "")
	title := req.GetString("title", "")
	if topicID == "" || title == "" {
		return nil, fmt.Errorf("topicId and title are required")
	}
	sub, err := s.tree.CreateSubTopic(ctx, topicID, title)
	if err != nil {
		return nil, fmt.Errorf("create subtopic: %w", err)
	}
	return jsonResult(sub)
}

func (s *Server) handleListBlockKinds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(domain.Kinds())
}

func (s *Server) handleGetDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subTopicID := req.GetString("subTopicId", "")
	if subTopicID == "" {
		return nil, fmt.Errorf("subTopicId is required")
	}
	sess, err := s.openSession(ctx, subTopicID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return jsonResult(sess.Document())
}

func (s *Server) handleAppendBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subTopicID := req.GetString("subTopicId", "")
	kind := domain.BlockKind(req.GetString("kind", ""))
	if subTopicID == "" || kind == "" {
		return nil, fmt.Errorf("subTopicId and kind are required")
	}
	sess, err := s.openSession(ctx, subTopicID)
	if err != nil {
		return nil, fmt.Errorf("append block: %w", err)
	}

	sectionID := req.GetString("sectionId", "")
	if sectionID == "" {
		doc := sess.Document()
		sectionID = doc[len(doc)-1].ID
	}
	if err := sess.InsertBlock(ctx, sectionID, kind); err != nil {
		return nil, fmt.Errorf("append block: %w", err)
	}

	// The new block lands at the end of its section.
	doc := sess.Document()
	si := doc.SectionIndex(sectionID)
	block := doc[si].Blocks[len(doc[si].Blocks)-1]

	if text := req.GetString("text", ""); text != "" {
		if err := sess.StartEditing(ctx, session.Target{SectionID: sectionID, BlockID: block.ID}); err != nil {
			return nil, fmt.Errorf("append block: %w", err)
		}
		sess.SetText(text)
		if language := req.GetString("language", ""); language != "" {
			sess.SetLanguage(language)
		}
		if err := sess.CommitEdit(ctx); err != nil {
			return nil, fmt.Errorf("append block: %w", err)
		}
	}
	return textResult(fmt.Sprintf("Appended %s block %s to section %s", kind, block.ID, sectionID)), nil
}

func (s *Server) handleAppendSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subTopicID := req.GetString("subTopicId", "")
	heading := req.GetString("heading", "")
	if subTopicID == "" || heading == "" {
		return nil, fmt.Errorf("subTopicId and heading are required")
	}
	sess, err := s.openSession(ctx, subTopicID)
	if err != nil {
		return nil, fmt.Errorf("append section: %w", err)
	}
	sess.InsertSection(ctx)

	doc := sess.Document()
	sectionID := doc[len(doc)-1].ID
	if err := sess.StartEditing(ctx, session.Target{SectionID: sectionID}); err != nil {
		return nil, fmt.Errorf("append section: %w", err)
	}
	sess.SetText(heading)
	if err := sess.CommitEdit(ctx); err != nil {
		return nil, fmt.Errorf("append section: %w", err)
	}
	return textResult(fmt.Sprintf("Appended section %s", sectionID)), nil
}

func (s *Server) handleUpdateSectionHeading(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subTopicID := req.GetString("subTopicId", "")
	sectionID := req.GetString("sectionId", "")
	heading := req.GetString("heading", "")
	if subTopicID == "" || sectionID == "" || heading == "" {
		return nil, fmt.Errorf("subTopicId, sectionId and heading are required")
	}
	sess, err := s.openSession(ctx, subTopicID)
	if err != nil {
		return nil, fmt.Errorf("update heading: %w", err)
	}
	if err := sess.StartEditing(ctx, session.Target{SectionID: sectionID}); err != nil {
		return nil, fmt.Errorf("update heading: %w", err)
	}
	sess.SetText(heading)
	if err := sess.CommitEdit(ctx); err != nil {
		return nil, fmt.Errorf("update heading: %w", err)
	}
	return textResult(fmt.Sprintf("Section %s heading updated", sectionID)), nil
}

func (s *Server) handleSaveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subTopicID := req.GetString("subTopicId", "")
	if subTopicID == "" {
		return nil, fmt.Errorf("subTopicId is required")
	}
	sess, ok := s.sessions[subTopicID]
	if !ok {
		return textResult("No open document for " + subTopicID), nil
	}
	if err := sess.Save(ctx); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return textResult("Document saved"), nil
}
