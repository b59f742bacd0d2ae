// Package web exposes the HTML UI and JSON endpoints over the incident
// manager.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/opsgraph/opsgraph/internal/graph"
	"github.com/opsgraph/opsgraph/internal/incident"
	"github.com/opsgraph/opsgraph/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// IncidentService is the consumer interface over the incident manager (ISP).
type IncidentService interface {
	Create(ctx context.Context, id, title, description, priority string, assignedTo *string) (incident.Incident, error)
	Get(ctx context.Context, id string) (incident.Incident, error)
	Apply(ctx context.Context, id string, upd incident.Update) error
	List(ctx context.Context, limit int) ([]incident.Incident, error)
	SearchSemantic(ctx context.Context, vector []float32, k int) ([]graph.Hit, error)
}

// Embedder converts query text into a vector. An empty model selects the
// configured default.
type Embedder interface {
	Embed(ctx context.Context, text, model string) ([]float32, error)
}

// Pinger reports store liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the handler dependencies.
type Server struct {
	incidents IncidentService
	embedder  Embedder
	store     Pinger
	logger    *zap.Logger
	tmpl      *template.Template
}

// NewServer creates the web server over the given services.
func NewServer(incidents IncidentService, embedder Embedder, store Pinger, logger *zap.Logger) *Server {
	return &Server{
		incidents: incidents,
		embedder:  embedder,
		store:     store,
		logger:    logger,
		tmpl:      template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

// Routes mounts all handlers on a chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.handleIndex)
	r.Get("/incidents/new", s.handleNewForm)
	r.Post("/incidents/new", s.handleNewSubmit)
	r.Get("/incidents/{id}", s.handleView)
	r.Get("/incidents/{id}/edit", s.handleEditForm)
	r.Post("/incidents/{id}/edit", s.handleEditSubmit)

	r.Post("/alerts", s.handleAlerts)
	r.Post("/mcp", s.handleMCP)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("render template", zap.String("template", name), zap.Error(err))
	}
}

// log returns the request-scoped logger the middleware stored in the
// context, so entries carry the request id. Falls back to the server
// logger when none is stored.
func (s *Server) log(r *http.Request) *zap.Logger {
	return logger.FromContextOr(r.Context(), s.logger)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.log(r).Error(msg, zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}
