package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/queuectl/queuectl/internal/domain"
)

// QueryStore is the read-only slice of the store the dashboard consumes.
// No mutation surface is exposed here.
type QueryStore interface {
	Get(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context, state *domain.JobState, limit int) ([]*domain.Job, error)
	CountsByState(ctx context.Context) (domain.StateCounts, error)
	ListWorkers(ctx context.Context) ([]*domain.WorkerInfo, error)
}

// Handler serves the dashboard's JSON endpoints.
type Handler struct {
	store QueryStore
}

// NewHandler creates a dashboard handler over the given store.
func NewHandler(store QueryStore) *Handler {
	return &Handler{store: store}
}

// jobView is the JSON shape of a job. Timestamps render as RFC3339 UTC.
type jobView struct {
	ID             string  `json:"id"`
	Command        string  `json:"command"`
	State          string  `json:"state"`
	Attempts       int     `json:"attempts"`
	MaxRetries     int     `json:"max_retries"`
	Priority       int     `json:"priority"`
	RunAt          *string `json:"run_at,omitempty"`
	TimeoutSeconds *int    `json:"timeout_seconds,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	NextRetryAt    *string `json:"next_retry_at,omitempty"`
	CompletedAt    *string `json:"completed_at,omitempty"`
	ErrorMessage   *string `json:"error_message,omitempty"`
}

func toJobView(j *domain.Job) jobView {
	v := jobView{
		ID:           j.ID,
		Command:      j.Command,
		State:        string(j.State),
		Attempts:     j.Attempts,
		MaxRetries:   j.MaxRetries,
		Priority:     j.Priority,
		CreatedAt:    j.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    j.UpdatedAt.UTC().Format(time.RFC3339),
		ErrorMessage: j.ErrorMessage,
	}
	v.RunAt = formatTimePtr(j.RunAt)
	v.NextRetryAt = formatTimePtr(j.NextRetryAt)
	v.CompletedAt = formatTimePtr(j.CompletedAt)
	if j.Timeout != nil {
		secs := int(j.Timeout.Seconds())
		v.TimeoutSeconds = &secs
	}
	return v
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

type workerView struct {
	ID           string `json:"id"`
	StartedAt    string `json:"started_at"`
	HeartbeatAt  string `json:"heartbeat_at"`
	HeartbeatAge string `json:"heartbeat_age"`
}

// Status returns job counts by state.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountsByState(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, r, http.StatusOK, counts)
}

// Jobs lists jobs, optionally filtered by ?state= and bounded by ?limit=.
func (h *Handler) Jobs(w http.ResponseWriter, r *http.Request) {
	var stateFilter *domain.JobState
	if raw := r.URL.Query().Get("state"); raw != "" {
		st := domain.JobState(raw)
		if !st.Valid() {
			respondError(w, r, http.StatusBadRequest, domain.ErrInvalidState)
			return
		}
		stateFilter = &st
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, r, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	jobs, err := h.store.List(r.Context(), stateFilter, limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, err)
		return
	}

	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, toJobView(j))
	}
	respondJSON(w, r, http.StatusOK, views)
}

// Job describes one job by id.
func (h *Handler) Job(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			respondError(w, r, http.StatusNotFound, err)
			return
		}
		respondError(w, r, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toJobView(job))
}

// Workers lists registered workers with their heartbeat age.
func (h *Handler) Workers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.store.ListWorkers(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, err)
		return
	}

	now := time.Now().UTC()
	views := make([]workerView, 0, len(workers))
	for _, wk := range workers {
		views = append(views, workerView{
			ID:           wk.ID,
			StartedAt:    wk.StartedAt.UTC().Format(time.RFC3339),
			HeartbeatAt:  wk.HeartbeatAt.UTC().Format(time.RFC3339),
			HeartbeatAge: now.Sub(wk.HeartbeatAt).Round(time.Second).String(),
		})
	}
	respondJSON(w, r, http.StatusOK, views)
}

// DeadLetter lists the jobs currently in the dead state.
func (h *Handler) DeadLetter(w http.ResponseWriter, r *http.Request) {
	dead := domain.StateDead
	jobs, err := h.store.List(r.Context(), &dead, 0)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, err)
		return
	}

	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, toJobView(j))
	}
	respondJSON(w, r, http.StatusOK, views)
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.ErrorContext(r.Context(), "failed to write response", "error", err)
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	respondJSON(w, r, status, map[string]string{"error": err.Error()})
}
