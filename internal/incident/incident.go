// Package incident holds the incident domain model and lifecycle manager.
package incident

import (
	"time"
)

// Type is the node type tag for incident documents.
const Type = "incident"

// Status is the incident lifecycle state.
type Status string

// Incident statuses. StatusTriggered is set by webhook ingestion.
const (
	StatusNew        Status = "New"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusClosed     Status = "Closed"
	StatusTriggered  Status = "Triggered"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusResolved, StatusClosed, StatusTriggered:
		return true
	}
	return false
}

// Priority is the incident severity level. The webhook ingestion path
// stores arbitrary alert severity strings, so Priority is advisory there.
type Priority string

// Incident priorities.
const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Incident is a node with type="incident". Reserved fields are typed;
// any other stored properties land in Extra.
type Incident struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Priority    string         `json:"priority"`
	AssignedTo  *string        `json:"assigned_to,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// reserved keys handled by the typed fields above.
var reservedKeys = map[string]bool{
	"node_id":     true,
	"type":        true,
	"title":       true,
	"description": true,
	"status":      true,
	"priority":    true,
	"assigned_to": true,
	"created_at":  true,
	"updated_at":  true,
	"embedding":   true, // vectors stay in the store, not in the domain view
}

// FromProps builds an Incident from a stored node property map.
func FromProps(props map[string]any) Incident {
	inc := Incident{
		ID:          stringProp(props, "node_id"),
		Title:       stringProp(props, "title"),
		Description: stringProp(props, "description"),
		Status:      stringProp(props, "status"),
		Priority:    stringProp(props, "priority"),
		CreatedAt:   timeProp(props, "created_at"),
		UpdatedAt:   timeProp(props, "updated_at"),
	}
	if v, ok := props["assigned_to"].(string); ok && v != "" {
		inc.AssignedTo = &v
	}
	for k, v := range props {
		if reservedKeys[k] {
			continue
		}
		if inc.Extra == nil {
			inc.Extra = make(map[string]any)
		}
		inc.Extra[k] = v
	}
	return inc
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func timeProp(props map[string]any, key string) time.Time {
	s, ok := props[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
