package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opsgraph/opsgraph/internal/incident"
)

const (
	defaultSearchK = 10
	maxSearchK     = 100

	webhookDefaultPriority = "High"
)

// handleAlerts ingests alerting-rule webhooks. A rule firing for the
// first time creates incident "alert-<rule_id>"; every later firing
// flips the same incident to Triggered with a fresh description.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload) == 0 {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	rule, _ := payload["rule"].(map[string]any)
	ruleID, _ := rule["id"].(string)
	if ruleID == "" {
		ruleID = uuid.NewString()
	}
	id := "alert-" + ruleID

	title, _ := rule["name"].(string)
	if title == "" {
		title = id
	}

	// Raw payload is kept as the incident description.
	raw, err := json.Marshal(payload)
	if err != nil {
		s.internalError(w, r, "marshal alert payload", err)
		return
	}
	description := string(raw)

	// Severity strings come straight from the alerting rule and bypass
	// the priority enum.
	priority, _ := rule["severity"].(string)
	if priority == "" {
		priority = webhookDefaultPriority
	}

	_, err = s.incidents.Get(r.Context(), id)
	switch {
	case err == nil:
		status := string(incident.StatusTriggered)
		upd := incident.Update{
			Description: &description,
			Status:      &status,
			Priority:    &priority,
		}
		if err := s.incidents.Apply(r.Context(), id, upd); err != nil {
			s.internalError(w, r, "update alert incident", err)
			return
		}
	case errors.Is(err, incident.ErrNotFound):
		if _, err := s.incidents.Create(r.Context(), id, title, description, priority, nil); err != nil {
			s.internalError(w, r, "create alert incident", err)
			return
		}
	default:
		s.internalError(w, r, "check alert incident", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleMCP performs semantic search over incidents: embed the query
// text, then KNN over the node index.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON payload"})
		return
	}

	query, _ := payload["query"].(string)
	if query == "" {
		query, _ = payload["input"].(string)
	}
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "'query' field required"})
		return
	}

	model, _ := payload["model"].(string)
	k := coerceK(payload["k"])

	vector, err := s.embedder.Embed(r.Context(), query, model)
	if err != nil {
		s.log(r).Error("embedding error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Embedding failed"})
		return
	}

	hits, err := s.incidents.SearchSemantic(r.Context(), vector, k)
	if err != nil {
		s.log(r).Error("semantic search error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Search failed"})
		return
	}

	results := make([]map[string]any, len(hits))
	for i, hit := range hits {
		doc := make(map[string]any, len(hit.Props)+2)
		for key, val := range hit.Props {
			doc[key] = val
		}
		doc["id"] = hit.ID
		doc["score"] = hit.Score
		results[i] = doc
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// coerceK normalizes the requested result count. Absent, invalid, zero
// or negative values fall back to the default; oversized values clamp.
func coerceK(v any) int {
	k := defaultSearchK
	switch t := v.(type) {
	case float64:
		k = int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			k = n
		}
	}
	if k <= 0 {
		k = defaultSearchK
	}
	if k > maxSearchK {
		k = maxSearchK
	}
	return k
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
