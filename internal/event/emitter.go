package event

import "context"

// Event names emitted toward the frontend.
const (
	TreeChanged     = "tree:changed"
	DocumentChanged = "document:changed"
	AssetChanged    = "asset:changed"
	BackupFinished  = "backup:finished"
	SaveFailed      = "save:failed"
)

// Emitter is the interface services use to notify the frontend. The wails
// App implements it by delegating to the runtime event bus; services receive
// the interface instead of a runtime context, which keeps them independently
// testable with a mock.
type Emitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Noop discards all events; used in MCP-only mode where no frontend exists.
type Noop struct{}

func (Noop) Emit(context.Context, string, any) {}

// Mock records all emissions for test assertions.
type Mock struct {
	Events []Emitted
}

// Emitted holds one recorded emission.
type Emitted struct {
	Event string
	Data  any
}

func (m *Mock) Emit(_ context.Context, event string, data any) {
	m.Events = append(m.Events, Emitted{Event: event, Data: data})
}
