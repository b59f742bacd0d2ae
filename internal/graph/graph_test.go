package graph

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/opsgraph/opsgraph/internal/db"
)

func TestAddNode_MergesNodeID(t *testing.T) {
	g, ms := newTestGraph(t)

	var gotKey string
	var gotDoc map[string]any
	ms.jsonSetFn = func(_ context.Context, key, path string, data []byte) error {
		gotKey = key
		if path != "$" {
			t.Errorf("path = %q, want $", path)
		}
		return json.Unmarshal(data, &gotDoc)
	}

	err := g.AddNode(context.Background(), "INC-1", map[string]any{"title": "db down"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "incidents:INC-1" {
		t.Errorf("key = %q, want incidents:INC-1", gotKey)
	}
	if gotDoc["node_id"] != "INC-1" || gotDoc["title"] != "db down" {
		t.Errorf("unexpected document: %v", gotDoc)
	}
}

func TestAddNode_EmptyID(t *testing.T) {
	g, _ := newTestGraph(t)
	if err := g.AddNode(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestAddNode_DoesNotMutateInput(t *testing.T) {
	g, _ := newTestGraph(t)

	props := map[string]any{"title": "x"}
	if err := g.AddNode(context.Background(), "INC-1", props); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := props["node_id"]; ok {
		t.Error("AddNode mutated the caller's property map")
	}
}

func TestGetNode_Success(t *testing.T) {
	g, ms := newTestGraph(t)

	ms.jsonGetFn = func(_ context.Context, key string, _ ...string) ([]byte, error) {
		if key != "incidents:INC-1" {
			t.Errorf("key = %q", key)
		}
		return []byte(`[{"node_id":"INC-1","type":"incident","title":"db down"}]`), nil
	}

	props, err := g.GetNode(context.Background(), "INC-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if props["title"] != "db down" {
		t.Errorf("unexpected props: %v", props)
	}
}

func TestGetNode_NotFound(t *testing.T) {
	g, ms := newTestGraph(t)

	ms.jsonGetFn = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}

	_, err := g.GetNode(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetNode_TransportErrorNotFolded(t *testing.T) {
	g, ms := newTestGraph(t)

	storeErr := &db.Error{Op: db.OpJSONGet, Err: context.DeadlineExceeded}
	ms.jsonGetFn = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, storeErr
	}

	_, err := g.GetNode(context.Background(), "INC-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("transport error must not collapse into ErrNotFound")
	}
}

func TestUpdateNode_MergesFields(t *testing.T) {
	g, ms := newTestGraph(t)

	ms.jsonGetFn = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte(`[{"node_id":"INC-1","title":"old","status":"New"}]`), nil
	}

	var written map[string]any
	ms.jsonSetFn = func(_ context.Context, _, _ string, data []byte) error {
		return json.Unmarshal(data, &written)
	}

	err := g.UpdateNode(context.Background(), "INC-1", map[string]any{"status": "Resolved"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written["status"] != "Resolved" {
		t.Errorf("status = %v, want Resolved", written["status"])
	}
	if written["title"] != "old" {
		t.Errorf("title = %v, untouched fields must survive the merge", written["title"])
	}
	if written["node_id"] != "INC-1" {
		t.Errorf("node_id = %v", written["node_id"])
	}
}

func TestUpdateNode_AbsentDoesNotCreate(t *testing.T) {
	g, ms := newTestGraph(t)

	ms.jsonGetFn = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}
	ms.jsonSetFn = func(_ context.Context, _, _ string, _ []byte) error {
		t.Fatal("JSONSet must not be called for a missing node")
		return nil
	}

	err := g.UpdateNode(context.Background(), "missing", map[string]any{"status": "Resolved"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchNodes_FilterQuery(t *testing.T) {
	g, ms := newTestGraph(t)

	var gotIndex, gotQuery string
	var gotLimit int
	ms.searchListFn = func(
		_ context.Context, index, query string, _, limit int, _ []string,
	) (*db.SearchResult, error) {
		gotIndex, gotQuery, gotLimit = index, query, limit
		return &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{
				{Key: "incidents:INC-1", Fields: map[string]string{"$": `{"node_id":"INC-1","type":"incident"}`}},
			},
		}, nil
	}

	docs, err := g.SearchNodes(context.Background(), map[string]string{"type": "incident"}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotIndex != "incidents:idx" {
		t.Errorf("index = %q", gotIndex)
	}
	if gotQuery != "@type:{incident}" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotLimit != 50 {
		t.Errorf("limit = %d", gotLimit)
	}
	if len(docs) != 1 || docs[0]["node_id"] != "INC-1" {
		t.Errorf("unexpected docs: %v", docs)
	}
}

func TestSearchNodes_EmptyFilterMatchesAll(t *testing.T) {
	g, ms := newTestGraph(t)

	var gotQuery string
	ms.searchListFn = func(
		_ context.Context, _, query string, _, _ int, _ []string,
	) (*db.SearchResult, error) {
		gotQuery = query
		return &db.SearchResult{}, nil
	}

	if _, err := g.SearchNodes(context.Background(), nil, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "*" {
		t.Errorf("query = %q, want *", gotQuery)
	}
}

func TestSearchByVector_ReturnsHits(t *testing.T) {
	g, ms := newTestGraph(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "incidents:idx" {
			t.Errorf("index = %q", q.IndexName)
		}
		if q.K != 5 {
			t.Errorf("k = %d", q.K)
		}
		return &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{
				{
					Key:    "incidents:INC-1",
					Score:  0.93,
					Fields: map[string]string{"$": `{"node_id":"INC-1","title":"db down"}`},
				},
			},
		}, nil
	}

	hits, err := g.SearchByVector(context.Background(), []float32{0.1, 0.2, 0.3, 0.4}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].ID != "INC-1" || hits[0].Score != 0.93 {
		t.Errorf("unexpected hit: %+v", hits[0])
	}
}

func TestAddEdge_SetsReservedFields(t *testing.T) {
	g, ms := newTestGraph(t)

	var gotKey string
	var written map[string]any
	ms.jsonSetFn = func(_ context.Context, key, _ string, data []byte) error {
		gotKey = key
		return json.Unmarshal(data, &written)
	}

	err := g.AddEdge(context.Background(), "e1", "INC-1", "INC-2", map[string]any{"relation": "duplicates"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "edges:e1" {
		t.Errorf("key = %q", gotKey)
	}
	if written["edge_id"] != "e1" || written["source"] != "INC-1" || written["target"] != "INC-2" {
		t.Errorf("unexpected edge doc: %v", written)
	}
	if written["relation"] != "duplicates" {
		t.Errorf("relation = %v", written["relation"])
	}
}

func TestGetEdge_NotFound(t *testing.T) {
	g, _ := newTestGraph(t)

	_, err := g.GetEdge(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEnsureIndexes_ToleratesExisting(t *testing.T) {
	g, ms := newTestGraph(t)

	var created []string
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		created = append(created, def.Name)
		return db.ErrIndexExists
	}

	if err := g.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 2 || created[0] != "incidents:idx" || created[1] != "edges:idx" {
		t.Errorf("created = %v", created)
	}
}

func TestEnsureIndexes_DeclaresEmbedding(t *testing.T) {
	g, ms := newTestGraph(t)

	var nodeDef *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		if def.Name == "incidents:idx" {
			nodeDef = def
		}
		return nil
	}

	if err := g.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nodeDef == nil {
		t.Fatal("node index was not created")
	}

	var vec *db.IndexField
	for i := range nodeDef.Fields {
		if nodeDef.Fields[i].Alias == "embedding" {
			vec = &nodeDef.Fields[i]
		}
	}
	if vec == nil {
		t.Fatal("embedding field missing from node index")
	}
	if vec.Type != db.IndexFieldVector || vec.VectorDim != 4 {
		t.Errorf("unexpected embedding field: %+v", vec)
	}
}
