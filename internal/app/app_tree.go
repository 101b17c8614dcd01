package app

import (
	"scribe/internal/domain"
)

// ============================================================
// Topic tree
// ============================================================

func (a *App) ListTopics() []domain.Topic {
	return a.tree.Snapshot()
}

func (a *App) CreateTopic(title string) (domain.Topic, error) {
	return a.tree.CreateTopic(a.ctx, title)
}

func (a *App) CreateSubTopic(topicID, title string) (domain.SubTopic, error) {
	return a.tree.CreateSubTopic(a.ctx, topicID, title)
}

func (a *App) RenameTopic(id, title string) error {
	return a.tree.RenameTopic(a.ctx, id, title)
}

func (a *App) SetTopicIcon(id, icon string) error {
	return a.tree.SetTopicIcon(a.ctx, id, icon)
}

func (a *App) RenameSubTopic(id, title string) error {
	return a.tree.RenameSubTopic(a.ctx, id, title)
}

func (a *App) MoveTopic(fromID, toID string) error {
	return a.tree.MoveTopic(a.ctx, fromID, toID)
}

func (a *App) DeleteTopic(id string) error {
	return a.tree.DeleteTopic(a.ctx, id)
}

func (a *App) DeleteSubTopic(id string) error {
	return a.tree.DeleteSubTopic(a.ctx, id)
}
