// Package tree is the optimistic CRUD controller for the topic/subtopic
// navigation tree. Every mutation is applied to the local tree immediately
// (creates under a temporary id), then the remote call is issued; on success
// the local node is reconciled with the stored record, on failure the
// mutation is rolled back. Mutations on one node are serialized by a
// per-node in-flight guard; different nodes may have remote calls in flight
// simultaneously.
package tree

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"scribe/internal/document"
	"scribe/internal/domain"
	"scribe/internal/event"
	"scribe/internal/gateway"
)

// DefaultTopicIcon is assigned to topics created without an icon.
const DefaultTopicIcon = "📄"

// Mutator owns the in-memory tree and reconciles it against the store.
type Mutator struct {
	mu      sync.Mutex
	store   gateway.Store
	emitter event.Emitter
	logger  zerolog.Logger
	topics  []domain.Topic
	guard   inflightGuard
	closed  bool
}

func NewMutator(store gateway.Store, emitter event.Emitter, logger zerolog.Logger) *Mutator {
	return &Mutator{store: store, emitter: emitter, logger: logger}
}

// Load fetches the full tree, sorted by persisted position.
func (m *Mutator) Load(ctx context.Context) error {
	topicRecs, err := m.store.FetchAll(ctx, domain.TableTopics)
	if err != nil {
		return fmt.Errorf("load topics: %w", err)
	}
	subRecs, err := m.store.FetchAll(ctx, domain.TableSubTopics)
	if err != nil {
		return fmt.Errorf("load subtopics: %w", err)
	}

	subsByTopic := make(map[string][]domain.SubTopic)
	for _, rec := range subRecs {
		st := domain.SubTopic{
			ID:       gateway.String(rec, "id"),
			TopicID:  gateway.String(rec, "topic_id"),
			Title:    gateway.String(rec, "title"),
			Position: gateway.Int(rec, "position"),
		}
		subsByTopic[st.TopicID] = append(subsByTopic[st.TopicID], st)
	}
	topics := make([]domain.Topic, 0, len(topicRecs))
	for _, rec := range topicRecs {
		t := domain.Topic{
			ID:        gateway.String(rec, "id"),
			Title:     gateway.String(rec, "title"),
			Icon:      gateway.String(rec, "icon"),
			Position:  gateway.Int(rec, "position"),
			SubTopics: subsByTopic[gateway.String(rec, "id")],
		}
		sort.SliceStable(t.SubTopics, func(i, j int) bool {
			return t.SubTopics[i].Position < t.SubTopics[j].Position
		})
		topics = append(topics, t)
	}
	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].Position < topics[j].Position
	})

	m.mu.Lock()
	m.topics = topics
	m.mu.Unlock()
	m.logger.Debug().Int("topics", len(topics)).Msg("tree loaded")
	return nil
}

// Snapshot returns a deep copy of the tree for rendering.
func (m *Mutator) Snapshot() []domain.Topic {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Topic, len(m.topics))
	for i, t := range m.topics {
		out[i] = t.Clone()
	}
	return out
}

// Close waits for in-flight mutations to settle (bounded by ctx), then
// drops any reconcile that arrives later; state is no longer updated
// afterwards.
func (m *Mutator) Close(ctx context.Context) {
	m.guard.WaitAll(ctx)
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func tempID() string {
	return "temp-" + uuid.New().String()
}

func (m *Mutator) emitChanged(ctx context.Context) {
	m.emitter.Emit(ctx, event.TreeChanged, nil)
}

// ── Create ─────────────────────────────────────────────────

// CreateTopic splices an optimistic node under a temporary id, then inserts
// the record remotely. On success the temp node is replaced in place by the
// stored record; on failure it is removed entirely.
func (m *Mutator) CreateTopic(ctx context.Context, title string) (domain.Topic, error) {
	temp := tempID()
	m.guard.TryLock(temp)
	defer m.guard.Unlock(temp)

	m.mu.Lock()
	t := domain.Topic{ID: temp, Title: title, Icon: DefaultTopicIcon, Position: len(m.topics)}
	m.topics = append(m.topics, t)
	m.mu.Unlock()
	m.emitChanged(ctx)

	rec, err := m.store.Insert(ctx, domain.TableTopics, gateway.Record{
		"title":    title,
		"icon":     t.Icon,
		"position": t.Position,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.Topic{}, err
	}
	i := m.topicIndexLocked(temp)
	if err != nil {
		if i >= 0 {
			m.topics = append(m.topics[:i], m.topics[i+1:]...)
		}
		m.emitChanged(ctx)
		m.logger.Warn().Err(err).Msg("topic create rolled back")
		return domain.Topic{}, fmt.Errorf("create topic: %w", err)
	}
	if i < 0 {
		return domain.Topic{}, nil
	}
	m.topics[i].ID = gateway.String(rec, "id")
	m.topics[i].Position = gateway.Int(rec, "position")
	m.emitChanged(ctx)
	return m.topics[i].Clone(), nil
}

// CreateSubTopic follows the same temp-id protocol under a topic.
func (m *Mutator) CreateSubTopic(ctx context.Context, topicID, title string) (domain.SubTopic, error) {
	temp := tempID()
	m.guard.TryLock(temp)
	defer m.guard.Unlock(temp)

	m.mu.Lock()
	ti := m.topicIndexLocked(topicID)
	if ti < 0 {
		m.mu.Unlock()
		return domain.SubTopic{}, fmt.Errorf("create subtopic: %w: %s", domain.ErrTopicNotFound, topicID)
	}
	st := domain.SubTopic{
		ID:       temp,
		TopicID:  topicID,
		Title:    title,
		Position: len(m.topics[ti].SubTopics),
	}
	m.topics[ti].SubTopics = append(m.topics[ti].SubTopics, st)
	m.mu.Unlock()
	m.emitChanged(ctx)

	rec, err := m.store.Insert(ctx, domain.TableSubTopics, gateway.Record{
		"topic_id": topicID,
		"title":    title,
		"position": st.Position,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.SubTopic{}, err
	}
	ti, si := m.subTopicIndexLocked(temp)
	if err != nil {
		if ti >= 0 {
			subs := m.topics[ti].SubTopics
			m.topics[ti].SubTopics = append(subs[:si], subs[si+1:]...)
		}
		m.emitChanged(ctx)
		m.logger.Warn().Err(err).Msg("subtopic create rolled back")
		return domain.SubTopic{}, fmt.Errorf("create subtopic: %w", err)
	}
	if ti < 0 {
		return domain.SubTopic{}, nil
	}
	m.topics[ti].SubTopics[si].ID = gateway.String(rec, "id")
	m.topics[ti].SubTopics[si].Position = gateway.Int(rec, "position")
	m.emitChanged(ctx)
	return m.topics[ti].SubTopics[si], nil
}

// ── Update ─────────────────────────────────────────────────

// RenameTopic applies the new title optimistically and reverts on failure.
func (m *Mutator) RenameTopic(ctx context.Context, id, title string) error {
	return m.updateTopicField(ctx, id, "title", title,
		func(t *domain.Topic) string { prev := t.Title; t.Title = title; return prev },
		func(t *domain.Topic, prev string) { t.Title = prev },
	)
}

// SetTopicIcon applies the new icon optimistically and reverts on failure.
func (m *Mutator) SetTopicIcon(ctx context.Context, id, icon string) error {
	return m.updateTopicField(ctx, id, "icon", icon,
		func(t *domain.Topic) string { prev := t.Icon; t.Icon = icon; return prev },
		func(t *domain.Topic, prev string) { t.Icon = prev },
	)
}

func (m *Mutator) updateTopicField(
	ctx context.Context,
	id, field, value string,
	apply func(*domain.Topic) string,
	revert func(*domain.Topic, string),
) error {
	if !m.guard.TryLock(id) {
		return domain.ErrMutationInFlight
	}
	defer m.guard.Unlock(id)

	m.mu.Lock()
	i := m.topicIndexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("update topic: %w: %s", domain.ErrTopicNotFound, id)
	}
	prev := apply(&m.topics[i])
	m.mu.Unlock()
	m.emitChanged(ctx)

	_, err := m.store.Update(ctx, domain.TableTopics, id, gateway.Record{field: value})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return err
	}
	if err != nil {
		if i := m.topicIndexLocked(id); i >= 0 {
			revert(&m.topics[i], prev)
		}
		m.emitChanged(ctx)
		m.logger.Warn().Err(err).Str("topic", id).Msg("topic update reverted")
		return fmt.Errorf("update topic: %w", err)
	}
	return nil
}

// RenameSubTopic applies the new title optimistically and reverts on failure.
func (m *Mutator) RenameSubTopic(ctx context.Context, id, title string) error {
	if !m.guard.TryLock(id) {
		return domain.ErrMutationInFlight
	}
	defer m.guard.Unlock(id)

	m.mu.Lock()
	ti, si := m.subTopicIndexLocked(id)
	if ti < 0 {
		m.mu.Unlock()
		return fmt.Errorf("rename subtopic: %w: %s", domain.ErrSubTopicNotFound, id)
	}
	prev := m.topics[ti].SubTopics[si].Title
	m.topics[ti].SubTopics[si].Title = title
	m.mu.Unlock()
	m.emitChanged(ctx)

	_, err := m.store.Update(ctx, domain.TableSubTopics, id, gateway.Record{"title": title})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return err
	}
	if err != nil {
		if ti, si := m.subTopicIndexLocked(id); ti >= 0 {
			m.topics[ti].SubTopics[si].Title = prev
		}
		m.emitChanged(ctx)
		m.logger.Warn().Err(err).Str("subtopic", id).Msg("subtopic rename reverted")
		return fmt.Errorf("rename subtopic: %w", err)
	}
	return nil
}

// ── Delete ─────────────────────────────────────────────────

// DeleteTopic removes the topic locally, then cascades remotely: content
// records of its subtopics, then the subtopic rows, then the topic row. Any
// failure restores the topic at its original index.
func (m *Mutator) DeleteTopic(ctx context.Context, id string) error {
	if !m.guard.TryLock(id) {
		return domain.ErrMutationInFlight
	}
	defer m.guard.Unlock(id)

	m.mu.Lock()
	i := m.topicIndexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("delete topic: %w: %s", domain.ErrTopicNotFound, id)
	}
	removed := m.topics[i].Clone()
	index := i
	m.topics = append(m.topics[:i], m.topics[i+1:]...)
	m.mu.Unlock()
	m.emitChanged(ctx)

	err := m.deleteTopicRemote(ctx, removed)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return err
	}
	if err != nil {
		m.restoreTopicLocked(removed, index)
		m.emitChanged(ctx)
		m.logger.Warn().Err(err).Str("topic", id).Msg("topic delete rolled back")
		return fmt.Errorf("delete topic: %w", err)
	}
	return nil
}

func (m *Mutator) deleteTopicRemote(ctx context.Context, t domain.Topic) error {
	var subIDs []string
	var contentIDs []string
	for _, st := range t.SubTopics {
		subIDs = append(subIDs, st.ID)
		recs, err := m.store.FetchByForeignKey(ctx, domain.TableContents, "sub_topic_id", st.ID)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			contentIDs = append(contentIDs, gateway.String(rec, "id"))
		}
	}
	if err := m.store.BulkDelete(ctx, domain.TableContents, contentIDs); err != nil {
		return err
	}
	if err := m.store.BulkDelete(ctx, domain.TableSubTopics, subIDs); err != nil {
		return err
	}
	return m.store.Delete(ctx, domain.TableTopics, t.ID)
}

// DeleteSubTopic removes the subtopic locally, then deletes its content
// records before the subtopic row. A failed cascade also restores the node.
func (m *Mutator) DeleteSubTopic(ctx context.Context, id string) error {
	if !m.guard.TryLock(id) {
		return domain.ErrMutationInFlight
	}
	defer m.guard.Unlock(id)

	m.mu.Lock()
	ti, si := m.subTopicIndexLocked(id)
	if ti < 0 {
		m.mu.Unlock()
		return fmt.Errorf("delete subtopic: %w: %s", domain.ErrSubTopicNotFound, id)
	}
	topicID := m.topics[ti].ID
	removed := m.topics[ti].SubTopics[si]
	index := si
	subs := m.topics[ti].SubTopics
	m.topics[ti].SubTopics = append(subs[:si], subs[si+1:]...)
	m.mu.Unlock()
	m.emitChanged(ctx)

	err := m.deleteSubTopicRemote(ctx, id)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return err
	}
	if err != nil {
		if ti := m.topicIndexLocked(topicID); ti >= 0 {
			subs := m.topics[ti].SubTopics
			if index > len(subs) {
				index = len(subs)
			}
			subs = append(subs, domain.SubTopic{})
			copy(subs[index+1:], subs[index:])
			subs[index] = removed
			m.topics[ti].SubTopics = subs
		}
		m.emitChanged(ctx)
		m.logger.Warn().Err(err).Str("subtopic", id).Msg("subtopic delete rolled back")
		return fmt.Errorf("delete subtopic: %w", err)
	}
	return nil
}

func (m *Mutator) deleteSubTopicRemote(ctx context.Context, id string) error {
	recs, err := m.store.FetchByForeignKey(ctx, domain.TableContents, "sub_topic_id", id)
	if err != nil {
		return err
	}
	var contentIDs []string
	for _, rec := range recs {
		contentIDs = append(contentIDs, gateway.String(rec, "id"))
	}
	if err := m.store.BulkDelete(ctx, domain.TableContents, contentIDs); err != nil {
		return err
	}
	return m.store.Delete(ctx, domain.TableSubTopics, id)
}

// ── Reorder ────────────────────────────────────────────────

// MoveTopic reorders the tree with the shared array-move algorithm,
// renumbers positions from array order, and persists every changed
// position. Failure reverts the move itself; nodes the move never
// touched (including ones mutated while the updates were in flight)
// keep their state.
func (m *Mutator) MoveTopic(ctx context.Context, fromID, toID string) error {
	if !m.guard.TryLock(fromID) {
		return domain.ErrMutationInFlight
	}
	defer m.guard.Unlock(fromID)

	m.mu.Lock()
	from := m.topicIndexLocked(fromID)
	to := m.topicIndexLocked(toID)
	if from < 0 || to < 0 || from == to {
		m.mu.Unlock()
		return nil
	}
	var nextID string
	if from+1 < len(m.topics) {
		nextID = m.topics[from+1].ID
	}
	m.topics = document.Move(m.topics, from, to)
	var changed []domain.Topic
	prevPos := make(map[string]int)
	for i := range m.topics {
		if m.topics[i].Position != i {
			prevPos[m.topics[i].ID] = m.topics[i].Position
			m.topics[i].Position = i
			changed = append(changed, m.topics[i])
		}
	}
	m.mu.Unlock()
	m.emitChanged(ctx)

	var err error
	for _, t := range changed {
		if _, err = m.store.Update(ctx, domain.TableTopics, t.ID, gateway.Record{"position": t.Position}); err != nil {
			break
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return err
	}
	if err != nil {
		m.revertMoveLocked(fromID, nextID, prevPos)
		m.emitChanged(ctx)
		m.logger.Warn().Err(err).Msg("topic reorder rolled back")
		return fmt.Errorf("move topic: %w", err)
	}
	return nil
}

// revertMoveLocked undoes an optimistic move by id: the moved topic is put
// back in front of its former successor and the renumbered positions are
// restored per topic, leaving every other node as it currently stands.
func (m *Mutator) revertMoveLocked(movedID, nextID string, prevPos map[string]int) {
	if i := m.topicIndexLocked(movedID); i >= 0 {
		moved := m.topics[i]
		m.topics = append(m.topics[:i], m.topics[i+1:]...)
		at := len(m.topics)
		if nextID != "" {
			if j := m.topicIndexLocked(nextID); j >= 0 {
				at = j
			}
		}
		m.restoreTopicLocked(moved, at)
	}
	for id, pos := range prevPos {
		if i := m.topicIndexLocked(id); i >= 0 {
			m.topics[i].Position = pos
		}
	}
}

// ── Lookup helpers ─────────────────────────────────────────

func (m *Mutator) topicIndexLocked(id string) int {
	for i, t := range m.topics {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (m *Mutator) subTopicIndexLocked(id string) (int, int) {
	for ti, t := range m.topics {
		for si, st := range t.SubTopics {
			if st.ID == id {
				return ti, si
			}
		}
	}
	return -1, -1
}

func (m *Mutator) restoreTopicLocked(t domain.Topic, index int) {
	if index > len(m.topics) {
		index = len(m.topics)
	}
	m.topics = append(m.topics, domain.Topic{})
	copy(m.topics[index+1:], m.topics[index:])
	m.topics[index] = t
}
