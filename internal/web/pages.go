package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/opsgraph/opsgraph/internal/incident"
)

const listLimit = 100

var (
	statusOptions = []string{
		string(incident.StatusNew),
		string(incident.StatusInProgress),
		string(incident.StatusResolved),
		string(incident.StatusClosed),
		string(incident.StatusTriggered),
	}
	priorityOptions = []string{
		string(incident.PriorityLow),
		string(incident.PriorityMedium),
		string(incident.PriorityHigh),
		string(incident.PriorityCritical),
	}
)

// formValues carries submitted fields back into the form on validation
// failure.
type formValues struct {
	ID          string
	Title       string
	Description string
	Status      string
	Priority    string
	AssignedTo  string
}

type formPage struct {
	Flash      *Flash
	Incident   formValues
	Action     string
	IsEdit     bool
	Statuses   []string
	Priorities []string
}

func newFormPage(values formValues, action string, isEdit bool, flash *Flash) formPage {
	return formPage{
		Flash:      flash,
		Incident:   values,
		Action:     action,
		IsEdit:     isEdit,
		Statuses:   statusOptions,
		Priorities: priorityOptions,
	}
}

type listPage struct {
	Flash     *Flash
	Incidents []incident.Incident
}

type detailPage struct {
	Flash    *Flash
	Incident incident.Incident
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	flash := popFlash(w, r)

	incidents, err := s.incidents.List(r.Context(), listLimit)
	if err != nil {
		s.internalError(w, r, "list incidents", err)
		return
	}

	s.render(w, "list_incidents.html", listPage{Flash: flash, Incidents: incidents})
}

func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	flash := popFlash(w, r)
	s.render(w, "incident_form.html", newFormPage(formValues{}, "/incidents/new", false, flash))
}

func (s *Server) handleNewSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	values := formValues{
		ID:          strings.TrimSpace(r.PostFormValue("id")),
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		Priority:    r.PostFormValue("priority"),
		AssignedTo:  strings.TrimSpace(r.PostFormValue("assigned_to")),
	}

	if values.ID == "" || values.Title == "" || values.Description == "" {
		flash := &Flash{Message: "ID, Title, and Description are required.", Level: "danger"}
		s.render(w, "incident_form.html", newFormPage(values, "/incidents/new", false, flash))
		return
	}

	// Duplicate check sits here rather than in the manager. Not atomic:
	// concurrent creates for the same id race.
	_, err := s.incidents.Get(r.Context(), values.ID)
	switch {
	case err == nil:
		flash := &Flash{Message: "Incident " + values.ID + " already exists.", Level: "danger"}
		s.render(w, "incident_form.html", newFormPage(values, "/incidents/new", false, flash))
		return
	case !errors.Is(err, incident.ErrNotFound):
		s.internalError(w, r, "check incident", err)
		return
	}

	var assignedTo *string
	if values.AssignedTo != "" {
		assignedTo = &values.AssignedTo
	}

	if _, err := s.incidents.Create(
		r.Context(), values.ID, values.Title, values.Description, values.Priority, assignedTo,
	); err != nil {
		s.internalError(w, r, "create incident", err)
		return
	}

	setFlash(w, "Incident "+values.ID+" created.", "success")
	http.Redirect(w, r, "/incidents/"+values.ID, http.StatusSeeOther)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	flash := popFlash(w, r)

	inc, err := s.incidents.Get(r.Context(), id)
	switch {
	case errors.Is(err, incident.ErrNotFound):
		setFlash(w, "Incident "+id+" not found.", "warning")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case err != nil:
		s.internalError(w, r, "get incident", err)
		return
	}

	s.render(w, "incident_detail.html", detailPage{Flash: flash, Incident: inc})
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	flash := popFlash(w, r)

	inc, err := s.incidents.Get(r.Context(), id)
	switch {
	case errors.Is(err, incident.ErrNotFound):
		setFlash(w, "Incident "+id+" not found.", "warning")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case err != nil:
		s.internalError(w, r, "get incident", err)
		return
	}

	values := formValues{
		ID:          inc.ID,
		Title:       inc.Title,
		Description: inc.Description,
		Status:      inc.Status,
		Priority:    inc.Priority,
	}
	if inc.AssignedTo != nil {
		values.AssignedTo = *inc.AssignedTo
	}

	s.render(w, "incident_form.html", newFormPage(values, "/incidents/"+id+"/edit", true, flash))
}

func (s *Server) handleEditSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.incidents.Get(r.Context(), id); err != nil {
		if errors.Is(err, incident.ErrNotFound) {
			setFlash(w, "Incident "+id+" not found.", "warning")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		s.internalError(w, r, "get incident", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	upd := incident.Update{
		Title:       formField(r, "title"),
		Description: formField(r, "description"),
		Status:      formField(r, "status"),
		Priority:    formField(r, "priority"),
		AssignedTo:  formField(r, "assigned_to"),
	}

	err := s.incidents.Apply(r.Context(), id, upd)
	switch {
	case errors.Is(err, incident.ErrNoChanges):
		setFlash(w, "Nothing to update.", "warning")
	case err != nil:
		s.internalError(w, r, "update incident", err)
		return
	default:
		setFlash(w, "Incident "+id+" updated.", "success")
	}

	http.Redirect(w, r, "/incidents/"+id, http.StatusSeeOther)
}

// formField returns the trimmed form value, or nil when blank so the
// field stays unchanged in a partial update.
func formField(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.PostFormValue(name))
	if v == "" {
		return nil
	}
	return &v
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log(r).Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
