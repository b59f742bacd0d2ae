package incident

import (
	"context"
	"testing"
	"time"

	"github.com/opsgraph/opsgraph/internal/graph"
)

// mockGraph implements the Graph consumer interface for tests.
type mockGraph struct {
	addNodeFn        func(ctx context.Context, id string, props map[string]any) error
	getNodeFn        func(ctx context.Context, id string) (map[string]any, error)
	nodeExistsFn     func(ctx context.Context, id string) (bool, error)
	updateNodeFn     func(ctx context.Context, id string, partial map[string]any) error
	searchNodesFn    func(ctx context.Context, filter map[string]string, limit int) ([]map[string]any, error)
	searchByVectorFn func(ctx context.Context, vector []float32, k int) ([]graph.Hit, error)
}

func (m *mockGraph) AddNode(ctx context.Context, id string, props map[string]any) error {
	if m.addNodeFn != nil {
		return m.addNodeFn(ctx, id, props)
	}
	return nil
}

func (m *mockGraph) GetNode(ctx context.Context, id string) (map[string]any, error) {
	if m.getNodeFn != nil {
		return m.getNodeFn(ctx, id)
	}
	return nil, graph.ErrNotFound
}

func (m *mockGraph) NodeExists(ctx context.Context, id string) (bool, error) {
	if m.nodeExistsFn != nil {
		return m.nodeExistsFn(ctx, id)
	}
	return false, nil
}

func (m *mockGraph) UpdateNode(ctx context.Context, id string, partial map[string]any) error {
	if m.updateNodeFn != nil {
		return m.updateNodeFn(ctx, id, partial)
	}
	return nil
}

func (m *mockGraph) SearchNodes(
	ctx context.Context, filter map[string]string, limit int,
) ([]map[string]any, error) {
	if m.searchNodesFn != nil {
		return m.searchNodesFn(ctx, filter, limit)
	}
	return nil, nil
}

func (m *mockGraph) SearchByVector(ctx context.Context, vector []float32, k int) ([]graph.Hit, error) {
	if m.searchByVectorFn != nil {
		return m.searchByVectorFn(ctx, vector, k)
	}
	return nil, nil
}

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T) (*Manager, *mockGraph) {
	t.Helper()
	mg := &mockGraph{}
	m := NewManager(mg).WithClock(func() time.Time { return testTime })
	return m, mg
}
