package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hszk-dev/hlsladder/internal/domain/model"
	"github.com/hszk-dev/hlsladder/internal/domain/repository"
	"github.com/hszk-dev/hlsladder/internal/usecase"
)

type JobResponse struct {
	ID          string `json:"id"`
	Bucket      string `json:"bucket"`
	SourceKey   string `json:"source_key"`
	OwnerKey    string `json:"owner_key,omitempty"`
	BaseName    string `json:"base_name,omitempty"`
	Status      string `json:"status"`
	MasterURL   string `json:"master_url,omitempty"`
	FailedStage string `json:"failed_stage,omitempty"`
	Error       string `json:"error,omitempty"`
	Attempt     int    `json:"attempt"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type JobListResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// JobHandler handles job ledger HTTP requests.
type JobHandler struct {
	svc usecase.JobService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(svc usecase.JobService) *JobHandler {
	return &JobHandler{svc: svc}
}

// Get handles GET /v1/jobs/{id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_job_id", "Job ID must be a valid UUID")
		return
	}

	job, err := h.svc.GetJob(r.Context(), jobID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toJobResponse(job))
}

// ListByOwner handles GET /v1/owners/{ownerKey}/jobs?limit=N
func (h *JobHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			Error(w, http.StatusBadRequest, "invalid_limit", "Limit must be a positive integer")
			return
		}
		limit = n
	}

	jobs, err := h.svc.ListOwnerJobs(r.Context(), chi.URLParam(r, "ownerKey"), limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := JobListResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(job))
	}

	JSON(w, http.StatusOK, resp)
}

func (h *JobHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrJobNotFound):
		Error(w, http.StatusNotFound, "job_not_found", "Job not found")
	case errors.Is(err, usecase.ErrEmptyOwnerKey):
		Error(w, http.StatusBadRequest, "invalid_owner_key", "Owner key cannot be empty")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func toJobResponse(j *model.Job) JobResponse {
	return JobResponse{
		ID:          j.ID.String(),
		Bucket:      j.Bucket,
		SourceKey:   j.SourceKey,
		OwnerKey:    j.OwnerKey,
		BaseName:    j.BaseName,
		Status:      j.Status.String(),
		MasterURL:   j.MasterURL,
		FailedStage: j.FailedStage,
		Error:       j.Error,
		Attempt:     j.Attempt,
		CreatedAt:   j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   j.UpdatedAt.Format(time.RFC3339),
	}
}
