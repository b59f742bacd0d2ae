// Package graph provides a generic node/edge document adapter over the
// search store, hiding FT query syntax from the domain layer.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/opsgraph/opsgraph/internal/db"
)

// ErrNotFound is returned when a node or edge does not exist.
// Transport-level store failures are reported separately, never folded
// into ErrNotFound.
var ErrNotFound = errors.New("graph: not found")

// store is the consumer interface over the database facade (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
}

// Hit is a single result from a vector search.
type Hit struct {
	ID    string         `json:"id"`
	Score float64        `json:"score"`
	Props map[string]any `json:"properties"`
}

// Config holds collection names and vector index settings.
type Config struct {
	NodeIndex string // default: incidents
	EdgeIndex string // default: edges
	VectorDim int    // default: 1536
}

// Graph stores nodes and edges as JSON documents in two collections.
type Graph struct {
	store     store
	nodeIndex string
	edgeIndex string
	vectorDim int
}

// New creates a graph adapter. Call EnsureIndexes before searching.
func New(s store, cfg Config) *Graph {
	if cfg.NodeIndex == "" {
		cfg.NodeIndex = "incidents"
	}
	if cfg.EdgeIndex == "" {
		cfg.EdgeIndex = "edges"
	}
	if cfg.VectorDim <= 0 {
		cfg.VectorDim = 1536
	}
	return &Graph{
		store:     s,
		nodeIndex: cfg.NodeIndex,
		edgeIndex: cfg.EdgeIndex,
		vectorDim: cfg.VectorDim,
	}
}

// EnsureIndexes creates the node and edge FT indexes if missing.
// The node index declares the embedding field; it must exist before any
// vector search.
func (g *Graph) EnsureIndexes(ctx context.Context) error {
	nodeDef := &db.IndexDefinition{
		Name:        indexName(g.nodeIndex),
		StorageType: db.StorageJSON,
		Prefixes:    []string{g.nodeIndex + ":"},
		Fields: []db.IndexField{
			{Name: "$.type", Alias: "type", Type: db.IndexFieldTag},
			{Name: "$.status", Alias: "status", Type: db.IndexFieldTag},
			{Name: "$.priority", Alias: "priority", Type: db.IndexFieldTag},
			{Name: "$.title", Alias: "title", Type: db.IndexFieldText},
			{Name: "$.description", Alias: "description", Type: db.IndexFieldText},
			{
				Name:           "$.embedding",
				Alias:          "embedding",
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorFlat,
				VectorDim:      g.vectorDim,
				VectorDistance: db.DistanceCosine,
			},
		},
	}
	edgeDef := &db.IndexDefinition{
		Name:        indexName(g.edgeIndex),
		StorageType: db.StorageJSON,
		Prefixes:    []string{g.edgeIndex + ":"},
		Fields: []db.IndexField{
			{Name: "$.source", Alias: "source", Type: db.IndexFieldTag},
			{Name: "$.target", Alias: "target", Type: db.IndexFieldTag},
			{Name: "$.relation", Alias: "relation", Type: db.IndexFieldTag},
		},
	}

	for _, def := range []*db.IndexDefinition{nodeDef, edgeDef} {
		if err := g.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", def.Name, err)
		}
	}
	return nil
}

// AddNode upserts a node document. Existing documents are overwritten;
// callers needing create-once semantics must check existence first.
func (g *Graph) AddNode(ctx context.Context, id string, props map[string]any) error {
	if id == "" {
		return errors.New("node id is required")
	}

	body := make(map[string]any, len(props)+1)
	for k, v := range props {
		body[k] = v
	}
	body["node_id"] = id

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal node %s: %w", id, err)
	}
	if err := g.store.JSONSet(ctx, g.nodeKey(id), "$", data); err != nil {
		return fmt.Errorf("json.set node %s: %w", id, err)
	}
	return nil
}

// GetNode returns the stored property map for a node, or ErrNotFound.
func (g *Graph) GetNode(ctx context.Context, id string) (map[string]any, error) {
	return g.getDoc(ctx, g.nodeKey(id))
}

// NodeExists reports whether a node document is present.
func (g *Graph) NodeExists(ctx context.Context, id string) (bool, error) {
	exists, err := g.store.Exists(ctx, g.nodeKey(id))
	if err != nil {
		return false, fmt.Errorf("exists node %s: %w", id, err)
	}
	return exists, nil
}

// UpdateNode merges partial properties into an existing node document.
// Returns ErrNotFound if the node does not exist; it never creates one.
func (g *Graph) UpdateNode(ctx context.Context, id string, partial map[string]any) error {
	key := g.nodeKey(id)

	current, err := g.getDoc(ctx, key)
	if err != nil {
		return err
	}

	for k, v := range partial {
		current[k] = v
	}
	current["node_id"] = id

	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("marshal node %s: %w", id, err)
	}
	if err := g.store.JSONSet(ctx, key, "$", data); err != nil {
		return fmt.Errorf("json.set node %s: %w", id, err)
	}
	return nil
}

// SearchNodes returns up to limit node documents matching the exact-match
// filter. An empty filter matches all nodes. No sort order is guaranteed.
func (g *Graph) SearchNodes(ctx context.Context, filter map[string]string, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 10
	}

	result, err := g.store.SearchList(ctx, indexName(g.nodeIndex), tagFilterQuery(filter), 0, limit, []string{"$"})
	if err != nil {
		return nil, fmt.Errorf("search nodes: %w", err)
	}

	docs := make([]map[string]any, 0, len(result.Entries))
	for _, entry := range result.Entries {
		props, err := parseEntryDoc(entry.Fields["$"])
		if err != nil {
			continue
		}
		docs = append(docs, props)
	}
	return docs, nil
}

// SearchByVector returns up to k nodes ranked by embedding similarity.
func (g *Graph) SearchByVector(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	result, err := g.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName(g.nodeIndex),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, fmt.Errorf("search by vector: %w", err)
	}

	hits := make([]Hit, 0, len(result.Entries))
	for _, entry := range result.Entries {
		props, err := parseEntryDoc(entry.Fields["$"])
		if err != nil {
			continue
		}
		hits = append(hits, Hit{
			ID:    nodeID(props, entry.Key),
			Score: entry.Score,
			Props: props,
		})
	}
	return hits, nil
}

// AddEdge upserts an edge document linking two node identifiers.
func (g *Graph) AddEdge(ctx context.Context, id, source, target string, props map[string]any) error {
	if id == "" {
		return errors.New("edge id is required")
	}

	body := make(map[string]any, len(props)+3)
	for k, v := range props {
		body[k] = v
	}
	body["edge_id"] = id
	body["source"] = source
	body["target"] = target

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal edge %s: %w", id, err)
	}
	if err := g.store.JSONSet(ctx, g.edgeKey(id), "$", data); err != nil {
		return fmt.Errorf("json.set edge %s: %w", id, err)
	}
	return nil
}

// GetEdge returns the stored property map for an edge, or ErrNotFound.
func (g *Graph) GetEdge(ctx context.Context, id string) (map[string]any, error) {
	return g.getDoc(ctx, g.edgeKey(id))
}

func (g *Graph) getDoc(ctx context.Context, key string) (map[string]any, error) {
	raw, err := g.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("json.get %s: %w", key, err)
	}

	// JSON.GET with path $ returns an array of matches.
	var docs []map[string]any
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (g *Graph) nodeKey(id string) string {
	return g.nodeIndex + ":" + id
}

func (g *Graph) edgeKey(id string) string {
	return g.edgeIndex + ":" + id
}

func indexName(collection string) string {
	return collection + ":idx"
}

// tagFilterQuery builds a conjunctive TAG query with deterministic clause order.
func tagFilterQuery(filter map[string]string) string {
	if len(filter) == 0 {
		return db.MatchAll
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	for _, k := range keys {
		clauses = append(clauses, db.TagQuery(k, filter[k]))
	}
	return db.AndQuery(clauses...)
}

func parseEntryDoc(jsonStr string) (map[string]any, error) {
	if jsonStr == "" {
		return nil, errors.New("empty document")
	}
	var props map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &props); err != nil {
		return nil, err
	}
	return props, nil
}

func nodeID(props map[string]any, fallbackKey string) string {
	if id, ok := props["node_id"].(string); ok && id != "" {
		return id
	}
	return fallbackKey
}
