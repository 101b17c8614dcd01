package tree_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"scribe/internal/domain"
	"scribe/internal/event"
	"scribe/internal/gateway"
	"scribe/internal/tree"
)

// ─────────────────────────────────────────────────────────────
// In-memory Store fake with injectable failures. updateGate, when
// set, blocks Update calls until released, which lets tests hold a
// mutation in flight.
// ─────────────────────────────────────────────────────────────

type fakeStore struct {
	mu         sync.Mutex
	tables     map[string][]gateway.Record
	fail       map[string]error
	updateGate chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables: make(map[string][]gateway.Record),
		fail:   make(map[string]error),
	}
}

func (f *fakeStore) setFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
	} else {
		f.fail[op] = err
	}
}

func (f *fakeStore) failure(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[op]
}

func (f *fakeStore) FetchByForeignKey(_ context.Context, table, keyField string, keyValue any) ([]gateway.Record, error) {
	if err := f.failure("fetch"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []gateway.Record
	for _, rec := range f.tables[table] {
		if rec[keyField] == keyValue {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) FetchOneByForeignKey(ctx context.Context, table, keyField string, keyValue any) (gateway.Record, error) {
	recs, err := f.FetchByForeignKey(ctx, table, keyField, keyValue)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

func (f *fakeStore) FetchAll(_ context.Context, table string) ([]gateway.Record, error) {
	if err := f.failure("fetch"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.Record{}, f.tables[table]...), nil
}

func (f *fakeStore) Insert(_ context.Context, table string, fields gateway.Record) (gateway.Record, error) {
	if err := f.failure("insert"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := gateway.Record{}
	for k, v := range fields {
		rec[k] = v
	}
	if gateway.String(rec, "id") == "" {
		rec["id"] = uuid.New().String()
	}
	f.tables[table] = append(f.tables[table], rec)
	return rec, nil
}

func (f *fakeStore) Update(_ context.Context, table, id string, fields gateway.Record) (gateway.Record, error) {
	f.mu.Lock()
	gate := f.updateGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err := f.failure("update"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.tables[table] {
		if rec["id"] == id {
			for k, v := range fields {
				rec[k] = v
			}
			return rec, nil
		}
	}
	return nil, fmt.Errorf("update %s: no record %s", table, id)
}

func (f *fakeStore) Delete(_ context.Context, table, id string) error {
	if err := f.failure("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	recs := f.tables[table]
	for i, rec := range recs {
		if rec["id"] == id {
			f.tables[table] = append(recs[:i], recs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) BulkDelete(ctx context.Context, table string, ids []string) error {
	if err := f.failure("bulkdelete"); err != nil {
		return err
	}
	for _, id := range ids {
		if err := f.Delete(ctx, table, id); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

func newMutator(t *testing.T, store gateway.Store) (*tree.Mutator, *event.Mock) {
	t.Helper()
	emitter := &event.Mock{}
	m := tree.NewMutator(store, emitter, zerolog.Nop())
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("load tree: %v", err)
	}
	return m, emitter
}

// ─────────────────────────────────────────────────────────────
// Create
// ─────────────────────────────────────────────────────────────

func TestCreateTopic_ReplacesTempID(t *testing.T) {
	store := newFakeStore()
	m, emitter := newMutator(t, store)

	topic, err := m.CreateTopic(context.Background(), "Go")
	if err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(topic.ID, "temp-") {
		t.Errorf("returned topic kept its temp id: %s", topic.ID)
	}
	if topic.Icon != tree.DefaultTopicIcon {
		t.Errorf("icon = %q", topic.Icon)
	}

	snap := m.Snapshot()
	if len(snap) != 1 || snap[0].ID != topic.ID {
		t.Errorf("snapshot = %+v", snap)
	}
	if store.count(domain.TableTopics) != 1 {
		t.Error("topic row not inserted")
	}
	if len(emitter.Events) < 2 {
		t.Error("expected optimistic + reconcile emissions")
	}
}

func TestCreateTopic_RollbackRemovesNode(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	store.setFail("insert", errors.New("down"))

	if _, err := m.CreateTopic(context.Background(), "Go"); err == nil {
		t.Fatal("expected create error")
	}
	if len(m.Snapshot()) != 0 {
		t.Error("failed create left the optimistic node in the tree")
	}
}

func TestCreateSubTopic(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	topic, err := m.CreateTopic(context.Background(), "Go")
	if err != nil {
		t.Fatal(err)
	}

	sub, err := m.CreateSubTopic(context.Background(), topic.ID, "Slices")
	if err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(sub.ID, "temp-") {
		t.Errorf("subtopic kept its temp id: %s", sub.ID)
	}
	if sub.TopicID != topic.ID || sub.Position != 0 {
		t.Errorf("subtopic = %+v", sub)
	}

	snap := m.Snapshot()
	if len(snap[0].SubTopics) != 1 || snap[0].SubTopics[0].ID != sub.ID {
		t.Errorf("snapshot subtopics = %+v", snap[0].SubTopics)
	}
}

func TestCreateSubTopic_UnknownTopic(t *testing.T) {
	m, _ := newMutator(t, newFakeStore())
	_, err := m.CreateSubTopic(context.Background(), "nope", "Slices")
	if !errors.Is(err, domain.ErrTopicNotFound) {
		t.Fatalf("err = %v, want ErrTopicNotFound", err)
	}
}

func TestCreateSubTopic_RollbackRemovesNode(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	topic, err := m.CreateTopic(context.Background(), "Go")
	if err != nil {
		t.Fatal(err)
	}
	store.setFail("insert", errors.New("down"))

	if _, err := m.CreateSubTopic(context.Background(), topic.ID, "Slices"); err == nil {
		t.Fatal("expected create error")
	}
	if len(m.Snapshot()[0].SubTopics) != 0 {
		t.Error("failed create left the optimistic subtopic in the tree")
	}
}

// ─────────────────────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────────────────────

func TestRenameTopic_RevertsOnFailure(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	topic, err := m.CreateTopic(context.Background(), "Go")
	if err != nil {
		t.Fatal(err)
	}

	if err := m.RenameTopic(context.Background(), topic.ID, "Golang"); err != nil {
		t.Fatal(err)
	}
	if got := m.Snapshot()[0].Title; got != "Golang" {
		t.Errorf("title = %q", got)
	}

	store.setFail("update", errors.New("down"))
	if err := m.RenameTopic(context.Background(), topic.ID, "Gopher"); err == nil {
		t.Fatal("expected rename error")
	}
	if got := m.Snapshot()[0].Title; got != "Golang" {
		t.Errorf("title after revert = %q, want Golang", got)
	}
}

func TestSetTopicIcon(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	topic, err := m.CreateTopic(context.Background(), "Go")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetTopicIcon(context.Background(), topic.ID, "🐹"); err != nil {
		t.Fatal(err)
	}
	if got := m.Snapshot()[0].Icon; got != "🐹" {
		t.Errorf("icon = %q", got)
	}
}

func TestRenameSubTopic_RevertsOnFailure(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	topic, _ := m.CreateTopic(context.Background(), "Go")
	sub, err := m.CreateSubTopic(context.Background(), topic.ID, "Slices")
	if err != nil {
		t.Fatal(err)
	}

	store.setFail("update", errors.New("down"))
	if err := m.RenameSubTopic(context.Background(), sub.ID, "Arrays"); err == nil {
		t.Fatal("expected rename error")
	}
	if got := m.Snapshot()[0].SubTopics[0].Title; got != "Slices" {
		t.Errorf("title after revert = %q, want Slices", got)
	}
}

func TestRename_InFlightGuard(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	topic, err := m.CreateTopic(context.Background(), "Go")
	if err != nil {
		t.Fatal(err)
	}

	gate := make(chan struct{})
	store.mu.Lock()
	store.updateGate = gate
	store.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- m.RenameTopic(context.Background(), topic.ID, "Golang")
	}()

	// Wait until the first rename has applied its optimistic title, which
	// means it holds the node's in-flight lock.
	deadline := time.After(2 * time.Second)
	for m.Snapshot()[0].Title != "Golang" {
		select {
		case <-deadline:
			t.Fatal("first rename never applied")
		case <-time.After(time.Millisecond):
		}
	}

	if err := m.RenameTopic(context.Background(), topic.ID, "Gopher"); !errors.Is(err, domain.ErrMutationInFlight) {
		t.Fatalf("err = %v, want ErrMutationInFlight", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first rename failed: %v", err)
	}

	// The node is free again once the first mutation settles.
	store.mu.Lock()
	store.updateGate = nil
	store.mu.Unlock()
	if err := m.RenameTopic(context.Background(), topic.ID, "Gopher"); err != nil {
		t.Fatalf("rename after settle failed: %v", err)
	}
}

// ─────────────────────────────────────────────────────────────
// Delete
// ─────────────────────────────────────────────────────────────

func TestDeleteSubTopic_CascadesContents(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	topic, _ := m.CreateTopic(context.Background(), "Go")
	sub, err := m.CreateSubTopic(context.Background(), topic.ID, "Slices")
	if err != nil {
		t.Fatal(err)
	}
	store.Insert(context.Background(), domain.TableContents, gateway.Record{
		"sub_topic_id": sub.ID,
		"content_data": "[]",
	})

	if err := m.DeleteSubTopic(context.Background(), sub.ID); err != nil {
		t.Fatal(err)
	}
	if store.count(domain.TableContents) != 0 {
		t.Error("content record survived the cascade")
	}
	if store.count(domain.TableSubTopics) != 0 {
		t.Error("subtopic row survived")
	}
	if len(m.Snapshot()[0].SubTopics) != 0 {
		t.Error("subtopic still in tree")
	}
}

func TestDeleteSubTopic_RestoredOnFailure(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	topic, _ := m.CreateTopic(context.Background(), "Go")
	a, _ := m.CreateSubTopic(context.Background(), topic.ID, "A")
	b, err := m.CreateSubTopic(context.Background(), topic.ID, "B")
	if err != nil {
		t.Fatal(err)
	}

	store.setFail("delete", errors.New("down"))
	if err := m.DeleteSubTopic(context.Background(), a.ID); err == nil {
		t.Fatal("expected delete error")
	}
	subs := m.Snapshot()[0].SubTopics
	if len(subs) != 2 || subs[0].ID != a.ID || subs[1].ID != b.ID {
		t.Errorf("rollback did not restore order: %+v", subs)
	}
}

func TestDeleteTopic_CascadesEverything(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	topic, _ := m.CreateTopic(context.Background(), "Go")
	sub, err := m.CreateSubTopic(context.Background(), topic.ID, "Slices")
	if err != nil {
		t.Fatal(err)
	}
	store.Insert(context.Background(), domain.TableContents, gateway.Record{
		"sub_topic_id": sub.ID,
		"content_data": "[]",
	})

	if err := m.DeleteTopic(context.Background(), topic.ID); err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{domain.TableTopics, domain.TableSubTopics, domain.TableContents} {
		if store.count(table) != 0 {
			t.Errorf("%s rows survived the cascade", table)
		}
	}
	if len(m.Snapshot()) != 0 {
		t.Error("topic still in tree")
	}
}

func TestDeleteTopic_RestoredAtIndexOnFailure(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	m.CreateTopic(context.Background(), "A")
	b, _ := m.CreateTopic(context.Background(), "B")
	m.CreateTopic(context.Background(), "C")

	store.setFail("delete", errors.New("down"))
	if err := m.DeleteTopic(context.Background(), b.ID); err == nil {
		t.Fatal("expected delete error")
	}
	snap := m.Snapshot()
	if len(snap) != 3 || snap[1].ID != b.ID {
		t.Errorf("rollback did not restore topic at index 1: %+v", snap)
	}
}

// ─────────────────────────────────────────────────────────────
// Reorder
// ─────────────────────────────────────────────────────────────

func topicTitles(topics []domain.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.Title
	}
	return out
}

func TestMoveTopic_RenumbersPositions(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	a, _ := m.CreateTopic(context.Background(), "A")
	m.CreateTopic(context.Background(), "B")
	c, err := m.CreateTopic(context.Background(), "C")
	if err != nil {
		t.Fatal(err)
	}

	if err := m.MoveTopic(context.Background(), a.ID, c.ID); err != nil {
		t.Fatal(err)
	}
	snap := m.Snapshot()
	want := []string{"B", "C", "A"}
	for i, title := range topicTitles(snap) {
		if title != want[i] {
			t.Fatalf("order = %v, want %v", topicTitles(snap), want)
		}
	}
	for i, topic := range snap {
		if topic.Position != i {
			t.Errorf("topic %s position = %d, want %d", topic.Title, topic.Position, i)
		}
	}

	// A reload from the store must produce the same order.
	m2, _ := newMutator(t, store)
	for i, title := range topicTitles(m2.Snapshot()) {
		if title != want[i] {
			t.Fatalf("reloaded order = %v, want %v", topicTitles(m2.Snapshot()), want)
		}
	}
}

func TestMoveTopic_RollbackRestoresOrder(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	a, _ := m.CreateTopic(context.Background(), "A")
	m.CreateTopic(context.Background(), "B")
	c, err := m.CreateTopic(context.Background(), "C")
	if err != nil {
		t.Fatal(err)
	}

	store.setFail("update", errors.New("down"))
	if err := m.MoveTopic(context.Background(), a.ID, c.ID); err == nil {
		t.Fatal("expected move error")
	}
	want := []string{"A", "B", "C"}
	for i, title := range topicTitles(m.Snapshot()) {
		if title != want[i] {
			t.Fatalf("order after rollback = %v, want %v", topicTitles(m.Snapshot()), want)
		}
	}
}

func TestMoveTopic_RollbackKeepsConcurrentCreate(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	a, _ := m.CreateTopic(context.Background(), "A")
	m.CreateTopic(context.Background(), "B")
	c, err := m.CreateTopic(context.Background(), "C")
	if err != nil {
		t.Fatal(err)
	}

	gate := make(chan struct{})
	store.mu.Lock()
	store.updateGate = gate
	store.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- m.MoveTopic(context.Background(), a.ID, c.ID)
	}()

	// Wait until the optimistic reorder has been applied, which means the
	// position updates are in flight behind the gate.
	deadline := time.After(2 * time.Second)
	for topicTitles(m.Snapshot())[0] != "B" {
		select {
		case <-deadline:
			t.Fatal("move never applied")
		case <-time.After(time.Millisecond):
		}
	}

	// A topic created while the move is in flight must survive its rollback.
	d, err := m.CreateTopic(context.Background(), "D")
	if err != nil {
		t.Fatal(err)
	}

	store.setFail("update", errors.New("down"))
	close(gate)
	if err := <-done; err == nil {
		t.Fatal("expected move error")
	}

	snap := m.Snapshot()
	want := []string{"A", "B", "C", "D"}
	for i, title := range topicTitles(snap) {
		if title != want[i] {
			t.Fatalf("order after rollback = %v, want %v", topicTitles(snap), want)
		}
	}
	for i, topic := range snap {
		if topic.Position != i {
			t.Errorf("topic %s position = %d, want %d", topic.Title, topic.Position, i)
		}
	}
	if snap[3].ID != d.ID {
		t.Errorf("created topic id = %s, want %s", snap[3].ID, d.ID)
	}
	if store.count(domain.TableTopics) != 4 {
		t.Errorf("topic rows = %d, want 4", store.count(domain.TableTopics))
	}
}

func TestMoveTopic_UnknownIDsAreNoOp(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	a, err := m.CreateTopic(context.Background(), "A")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.MoveTopic(context.Background(), a.ID, "nope"); err != nil {
		t.Fatalf("unknown target must be a silent no-op, got %v", err)
	}
	if err := m.MoveTopic(context.Background(), a.ID, a.ID); err != nil {
		t.Fatalf("same-id move must be a silent no-op, got %v", err)
	}
}

// ─────────────────────────────────────────────────────────────
// Shutdown
// ─────────────────────────────────────────────────────────────

func TestClose_WaitsForInFlightReconcile(t *testing.T) {
	store := newFakeStore()
	m, _ := newMutator(t, store)
	a, _ := m.CreateTopic(context.Background(), "A")
	m.CreateTopic(context.Background(), "B")
	c, err := m.CreateTopic(context.Background(), "C")
	if err != nil {
		t.Fatal(err)
	}

	gate := make(chan struct{})
	store.mu.Lock()
	store.updateGate = gate
	store.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- m.MoveTopic(context.Background(), a.ID, c.ID)
	}()

	deadline := time.After(2 * time.Second)
	for topicTitles(m.Snapshot())[0] != "B" {
		select {
		case <-deadline:
			t.Fatal("move never applied")
		case <-time.After(time.Millisecond):
		}
	}

	closed := make(chan struct{})
	go func() {
		m.Close(context.Background())
		close(closed)
	}()

	// Close must block while the move's updates are still in flight.
	select {
	case <-closed:
		t.Fatal("Close returned before the pending mutation settled")
	case <-time.After(50 * time.Millisecond):
	}

	store.setFail("update", errors.New("down"))
	close(gate)
	if err := <-done; err == nil {
		t.Fatal("expected move error")
	}
	<-closed

	// The rollback settled before Close marked the mutator closed, so the
	// original order is back.
	want := []string{"A", "B", "C"}
	for i, title := range topicTitles(m.Snapshot()) {
		if title != want[i] {
			t.Fatalf("order after shutdown = %v, want %v", topicTitles(m.Snapshot()), want)
		}
	}
}

// ─────────────────────────────────────────────────────────────
// Load
// ─────────────────────────────────────────────────────────────

func TestLoad_SortsByPosition(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	store.Insert(ctx, domain.TableTopics, gateway.Record{"id": "t2", "title": "Second", "position": 1})
	store.Insert(ctx, domain.TableTopics, gateway.Record{"id": "t1", "title": "First", "position": 0})
	store.Insert(ctx, domain.TableSubTopics, gateway.Record{"id": "s2", "topic_id": "t1", "title": "Two", "position": 1})
	store.Insert(ctx, domain.TableSubTopics, gateway.Record{"id": "s1", "topic_id": "t1", "title": "One", "position": 0})

	m, _ := newMutator(t, store)
	snap := m.Snapshot()
	if snap[0].ID != "t1" || snap[1].ID != "t2" {
		t.Errorf("topic order = %s, %s", snap[0].ID, snap[1].ID)
	}
	subs := snap[0].SubTopics
	if len(subs) != 2 || subs[0].ID != "s1" || subs[1].ID != "s2" {
		t.Errorf("subtopic order = %+v", subs)
	}
}
