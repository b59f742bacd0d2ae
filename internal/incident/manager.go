package incident

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opsgraph/opsgraph/internal/graph"
)

// Sentinel errors for incident operations.
var (
	// ErrNotFound is returned when no incident document exists for an id.
	ErrNotFound = errors.New("incident: not found")
	// ErrNoChanges is returned by Update when no field was supplied.
	ErrNoChanges = errors.New("incident: nothing to update")
)

// Graph is the consumer interface over the graph adapter (ISP).
type Graph interface {
	AddNode(ctx context.Context, id string, props map[string]any) error
	GetNode(ctx context.Context, id string) (map[string]any, error)
	NodeExists(ctx context.Context, id string) (bool, error)
	UpdateNode(ctx context.Context, id string, partial map[string]any) error
	SearchNodes(ctx context.Context, filter map[string]string, limit int) ([]map[string]any, error)
	SearchByVector(ctx context.Context, vector []float32, k int) ([]graph.Hit, error)
}

// Manager enforces the incident document shape over the graph adapter.
type Manager struct {
	graph Graph
	now   func() time.Time
}

// NewManager creates an incident manager.
func NewManager(g Graph) *Manager {
	return &Manager{graph: g, now: time.Now}
}

// WithClock overrides the time source (test-only).
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Create builds a full incident document and upserts it. The duplicate-id
// check sits with the caller via Exists; Create itself overwrites.
func (m *Manager) Create(
	ctx context.Context, id, title, description, priority string, assignedTo *string,
) (Incident, error) {
	if id == "" {
		return Incident{}, errors.New("incident id is required")
	}

	now := m.now().UTC().Truncate(time.Second)
	ts := now.Format(time.RFC3339)

	props := map[string]any{
		"type":        Type,
		"title":       title,
		"description": description,
		"status":      string(StatusNew),
		"priority":    priority,
		"assigned_to": nil,
		"created_at":  ts,
		"updated_at":  ts,
	}
	if assignedTo != nil {
		props["assigned_to"] = *assignedTo
	}

	if err := m.graph.AddNode(ctx, id, props); err != nil {
		return Incident{}, fmt.Errorf("create incident %s: %w", id, err)
	}

	inc := Incident{
		ID:          id,
		Title:       title,
		Description: description,
		Status:      string(StatusNew),
		Priority:    priority,
		AssignedTo:  assignedTo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return inc, nil
}

// Get fetches an incident by id. Nodes whose type is not "incident" are
// reported as not found, since nodes of any type share the collection.
func (m *Manager) Get(ctx context.Context, id string) (Incident, error) {
	props, err := m.graph.GetNode(ctx, id)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return Incident{}, ErrNotFound
		}
		return Incident{}, fmt.Errorf("get incident %s: %w", id, err)
	}
	if t, _ := props["type"].(string); t != Type {
		return Incident{}, ErrNotFound
	}
	return FromProps(props), nil
}

// Exists reports whether any node document occupies the incident id.
// Used by callers for the pre-create duplicate check.
func (m *Manager) Exists(ctx context.Context, id string) (bool, error) {
	exists, err := m.graph.NodeExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check incident %s: %w", id, err)
	}
	return exists, nil
}

// Update describes a partial incident update. Nil fields are left unchanged.
type Update struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	AssignedTo  *string
}

// Apply performs a partial merge-update of the supplied fields, always
// refreshing updated_at. Returns ErrNoChanges when no field is set and
// ErrNotFound when the incident does not exist.
func (m *Manager) Apply(ctx context.Context, id string, upd Update) error {
	partial := map[string]any{}
	if upd.Title != nil {
		partial["title"] = *upd.Title
	}
	if upd.Description != nil {
		partial["description"] = *upd.Description
	}
	if upd.Status != nil {
		if !Status(*upd.Status).Valid() {
			return fmt.Errorf("invalid status %q", *upd.Status)
		}
		partial["status"] = *upd.Status
	}
	if upd.Priority != nil {
		partial["priority"] = *upd.Priority
	}
	if upd.AssignedTo != nil {
		partial["assigned_to"] = *upd.AssignedTo
	}

	if len(partial) == 0 {
		return ErrNoChanges
	}
	partial["updated_at"] = m.now().UTC().Truncate(time.Second).Format(time.RFC3339)

	if err := m.graph.UpdateNode(ctx, id, partial); err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update incident %s: %w", id, err)
	}
	return nil
}

// List returns up to limit incidents. Only nodes tagged type="incident"
// are returned. Store default ordering applies; creation-time ordering is
// not guaranteed.
func (m *Manager) List(ctx context.Context, limit int) ([]Incident, error) {
	if limit <= 0 {
		limit = 100
	}

	docs, err := m.graph.SearchNodes(ctx, map[string]string{"type": Type}, limit)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	incidents := make([]Incident, 0, len(docs))
	for _, props := range docs {
		if t, _ := props["type"].(string); t != Type {
			continue
		}
		incidents = append(incidents, FromProps(props))
	}
	return incidents, nil
}

// SearchSemantic returns the k nearest nodes to the query vector. Results
// are raw graph hits: the vector index spans the whole node collection, so
// non-incident nodes can appear here.
func (m *Manager) SearchSemantic(ctx context.Context, vector []float32, k int) ([]graph.Hit, error) {
	hits, err := m.graph.SearchByVector(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	return hits, nil
}
