package web

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/opsgraph/opsgraph/internal/graph"
	"github.com/opsgraph/opsgraph/internal/incident"
)

// mockIncidents is a hand-rolled IncidentService mock with pluggable
// behavior per test.
type mockIncidents struct {
	createFn func(ctx context.Context, id, title, description, priority string, assignedTo *string) (incident.Incident, error)
	getFn    func(ctx context.Context, id string) (incident.Incident, error)
	applyFn  func(ctx context.Context, id string, upd incident.Update) error
	listFn   func(ctx context.Context, limit int) ([]incident.Incident, error)
	searchFn func(ctx context.Context, vector []float32, k int) ([]graph.Hit, error)
}

func (m *mockIncidents) Create(
	ctx context.Context, id, title, description, priority string, assignedTo *string,
) (incident.Incident, error) {
	if m.createFn == nil {
		return incident.Incident{}, errors.New("unexpected Create call")
	}
	return m.createFn(ctx, id, title, description, priority, assignedTo)
}

func (m *mockIncidents) Get(ctx context.Context, id string) (incident.Incident, error) {
	if m.getFn == nil {
		return incident.Incident{}, errors.New("unexpected Get call")
	}
	return m.getFn(ctx, id)
}

func (m *mockIncidents) Apply(ctx context.Context, id string, upd incident.Update) error {
	if m.applyFn == nil {
		return errors.New("unexpected Apply call")
	}
	return m.applyFn(ctx, id, upd)
}

func (m *mockIncidents) List(ctx context.Context, limit int) ([]incident.Incident, error) {
	if m.listFn == nil {
		return nil, errors.New("unexpected List call")
	}
	return m.listFn(ctx, limit)
}

func (m *mockIncidents) SearchSemantic(ctx context.Context, vector []float32, k int) ([]graph.Hit, error) {
	if m.searchFn == nil {
		return nil, errors.New("unexpected SearchSemantic call")
	}
	return m.searchFn(ctx, vector, k)
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text, model string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text, model string) ([]float32, error) {
	if m.embedFn == nil {
		return nil, errors.New("unexpected Embed call")
	}
	return m.embedFn(ctx, text, model)
}

type mockPinger struct {
	pingFn func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.pingFn == nil {
		return nil
	}
	return m.pingFn(ctx)
}

func newTestServer(incidents *mockIncidents, embedder *mockEmbedder, store *mockPinger) *Server {
	if embedder == nil {
		embedder = &mockEmbedder{}
	}
	if store == nil {
		store = &mockPinger{}
	}
	return NewServer(incidents, embedder, store, zap.NewNop())
}
