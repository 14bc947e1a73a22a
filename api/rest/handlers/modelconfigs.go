package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mlstudio/core/models"
	"mlstudio/core/repository"

	"github.com/gorilla/mux"
)

// ModelConfigHandler handles model config HTTP requests
type ModelConfigHandler struct {
	projectRepo *repository.ProjectRepository
	modelRepo   *repository.ModelConfigRepository
}

// NewModelConfigHandler creates a new model config handler
func NewModelConfigHandler(
	projectRepo *repository.ProjectRepository,
	modelRepo *repository.ModelConfigRepository,
) *ModelConfigHandler {
	return &ModelConfigHandler{projectRepo: projectRepo, modelRepo: modelRepo}
}

// ModelConfigRequest represents the create/update request body
type ModelConfigRequest struct {
	Name        string                 `json:"name"`
	Hyperparams map[string]interface{} `json:"hyperparams"`
}

// CreateModelConfig handles POST /v1/projects/{id}/models
func (h *ModelConfigHandler) CreateModelConfig(w http.ResponseWriter, r *http.Request) {
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

	var req ModelConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "Model name is required", http.StatusBadRequest)
		return
	}

	m := &models.ModelConfig{
		ProjectID:   projectID,
		Name:        req.Name,
		Hyperparams: req.Hyperparams,
	}
	if err := h.modelRepo.CreateModelConfig(m); err != nil {
		http.Error(w, "Failed to create model config: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(modelConfigResponse(m))
}

// ListModelConfigs handles GET /v1/projects/{id}/models
func (h *ModelConfigHandler) ListModelConfigs(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	configs, err := h.modelRepo.ListModelConfigsByProject(vars["id"])
	if err != nil {
		http.Error(w, "Failed to list model configs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]map[string]interface{}, len(configs))
	for i, m := range configs {
		items[i] = modelConfigResponse(m)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
}

// GetModelConfig handles GET /v1/models/{id}
func (h *ModelConfigHandler) GetModelConfig(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	m, err := h.modelRepo.GetModelConfig(vars["id"])
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Model config not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch model config: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(modelConfigResponse(m))
}

// UpdateModelConfig handles PUT /v1/models/{id}
func (h *ModelConfigHandler) UpdateModelConfig(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req ModelConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "Model name is required", http.StatusBadRequest)
		return
	}

	m := &models.ModelConfig{ID: vars["id"], Name: req.Name, Hyperparams: req.Hyperparams}
	err := h.modelRepo.UpdateModelConfig(m)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Model config not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to update model config: "+err.Error(), http.StatusInternalServerError)
		return
	}

	updated, err := h.modelRepo.GetModelConfig(m.ID)
	if err != nil {
		http.Error(w, "Failed to fetch model config: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(modelConfigResponse(updated))
}

// DeleteModelConfig handles DELETE /v1/models/{id}
func (h *ModelConfigHandler) DeleteModelConfig(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.modelRepo.DeleteModelConfig(vars["id"])
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Model config not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to delete model config: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func modelConfigResponse(m *models.ModelConfig) map[string]interface{} {
	hyperparams := m.Hyperparams
	if hyperparams == nil {
		hyperparams = map[string]interface{}{}
	}
	return map[string]interface{}{
		"id":          m.ID,
		"project_id":  m.ProjectID,
		"name":        m.Name,
		"hyperparams": hyperparams,
		"created_at":  m.CreatedAt,
		"updated_at":  m.UpdatedAt,
	}
}
