package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/flipkart-scraper/internal/jobs"
	"github.com/maltedev/flipkart-scraper/internal/queue"
	"github.com/maltedev/flipkart-scraper/internal/storage"
)

const (
	defaultProductLimit = 50
	maxProductLimit     = 1000
)

type Handlers struct {
	jobs         *jobs.Manager
	store        storage.Store
	defaultPages int
	logger       *slog.Logger
}

func NewHandlers(jobs *jobs.Manager, store storage.Store, defaultPages int, logger *slog.Logger) *Handlers {
	return &Handlers{
		jobs:         jobs,
		store:        store,
		defaultPages: defaultPages,
		logger:       logger.With("component", "api"),
	}
}

// CreateJobRequest represents the request to start a scrape
type CreateJobRequest struct {
	Keyword string `json:"keyword"`
	Pages   int    `json:"pages"`
}

type CreateJobResponse struct {
	JobID   string      `json:"job_id"`
	Status  jobs.Status `json:"status"`
	Message string      `json:"message"`
}

// CreateJob queues a scrape for the given keyword
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Keyword == "" {
		h.respondError(w, http.StatusBadRequest, "keyword is required")
		return
	}

	if req.Pages <= 0 {
		req.Pages = h.defaultPages
	}

	job, err := h.jobs.CreateJob(r.Context(), req.Keyword, req.Pages)
	switch {
	case errors.Is(err, jobs.ErrInvalidJob):
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, queue.ErrQueueFull):
		h.respondError(w, http.StatusServiceUnavailable, "too many pending jobs")
		return
	case err != nil:
		h.logger.Error("failed to create job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateJobResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Job created successfully",
	})
}

// GetJob handles job status retrieval
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		h.respondError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

// ListJobs handles listing all jobs
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := h.jobs.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	h.respondJSON(w, http.StatusOK, list)
}

// ListProducts returns stored products, oldest first
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit := defaultProductLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxProductLimit {
			h.respondError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	products, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	h.respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) CountProducts(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to count products")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *Handlers) ClearProducts(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.store.Clear(r.Context())
	if err != nil {
		h.logger.Error("failed to clear products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to clear products")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]bool{"cleared": cleared})
}

// GetStats handles statistics retrieval
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.jobs.GetStats(r.Context())
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	health := map[string]interface{}{"status": "ok"}

	if _, err := h.store.Count(r.Context()); err != nil {
		health["status"] = "error"
		health["message"] = "storage unavailable"
		status = http.StatusServiceUnavailable
	}

	h.respondJSON(w, status, health)
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
