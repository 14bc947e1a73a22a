package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mlstudio/core/models"
	"mlstudio/core/repository"
	"mlstudio/core/simulator"

	"github.com/gorilla/mux"
)

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	projectRepo *repository.ProjectRepository
	modelRepo   *repository.ModelConfigRepository
	jobRepo     *repository.JobRepository
	sim         *simulator.Simulator
}

// NewJobHandler creates a new job handler
func NewJobHandler(
	projectRepo *repository.ProjectRepository,
	modelRepo *repository.ModelConfigRepository,
	jobRepo *repository.JobRepository,
	sim *simulator.Simulator,
) *JobHandler {
	return &JobHandler{
		projectRepo: projectRepo,
		modelRepo:   modelRepo,
		jobRepo:     jobRepo,
		sim:         sim,
	}
}

// CreateJobRequest represents the request to launch a training job
type CreateJobRequest struct {
	ModelID string                 `json:"model_id"`
	Config  map[string]interface{} `json:"config"`
}

// CreateJob handles POST /v1/projects/{id}/jobs. It writes a queued
// row, hands the job to the simulator, and returns the started job.
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID := vars["id"]

	if _, err := h.projectRepo.GetProject(projectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Project not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch project: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// The effective config is the model's hyperparameters with any
	// request-level overrides applied on top.
	config := map[string]interface{}{}
	var modelID *string
	if req.ModelID != "" {
		m, err := h.modelRepo.GetModelConfig(req.ModelID)
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Model config not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Failed to fetch model config: "+err.Error(), http.StatusInternalServerError)
			return
		}
		for k, v := range m.Hyperparams {
			config[k] = v
		}
		modelID = &m.ID
	}
	for k, v := range req.Config {
		config[k] = v
	}

	job := &models.Job{
		ProjectID: projectID,
		ModelID:   modelID,
		Type:      models.JobTypeTraining,
		Config:    config,
	}
	if err := h.jobRepo.CreateQueuedJob(job); err != nil {
		http.Error(w, "Failed to create job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.sim.Start(job.ID, config)

	started, err := h.jobRepo.GetJob(job.ID)
	if err != nil {
		http.Error(w, "Failed to fetch job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(jobResponse(started))
}

// GetJob handles GET /v1/jobs/{id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	job, err := h.jobRepo.GetJob(vars["id"])
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobResponse(job))
}

// ListJobs handles GET /v1/projects/{id}/jobs
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobs, err := h.jobRepo.ListJobsByProject(vars["id"])
	if err != nil {
		http.Error(w, "Failed to list jobs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]map[string]interface{}, len(jobs))
	for i, job := range jobs {
		items[i] = jobResponse(job)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
}

// CancelJob handles POST /v1/jobs/{id}/cancel
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	job, err := h.sim.Cancel(vars["id"])
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to cancel job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobResponse(job))
}

func jobResponse(job *models.Job) map[string]interface{} {
	metrics := job.Metrics
	if metrics == nil {
		metrics = []models.MetricSample{}
	}
	resp := map[string]interface{}{
		"id":         job.ID,
		"project_id": job.ProjectID,
		"type":       job.Type,
		"status":     job.Status,
		"progress":   job.Progress,
		"metrics":    metrics,
		"config":     job.Config,
		"timestamps": map[string]interface{}{
			"created_at":   job.CreatedAt,
			"started_at":   job.StartedAt,
			"completed_at": job.CompletedAt,
			"updated_at":   job.UpdatedAt,
		},
	}
	if job.ModelID != nil {
		resp["model_id"] = *job.ModelID
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	return resp
}
