package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"mlstudio/core/models"
	"mlstudio/core/repository"
	"mlstudio/storage"

	"github.com/gorilla/mux"
)

// maxUploadBytes caps multipart dataset uploads.
const maxUploadBytes = 256 << 20

// DatasetHandler handles dataset upload and preview requests
type DatasetHandler struct {
	projectRepo *repository.ProjectRepository
	datasetRepo *repository.DatasetRepository
	uploads     *storage.UploadManager
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(
	projectRepo *repository.ProjectRepository,
	datasetRepo *repository.DatasetRepository,
	uploads *storage.UploadManager,
) *DatasetHandler {
	return &DatasetHandler{
		projectRepo: projectRepo,
		datasetRepo: datasetRepo,
		uploads:     uploads,
	}
}

// UploadDataset handles POST /v1/projects/{id}/datasets
func (h *DatasetHandler) UploadDataset(w http.ResponseWriter, r *http.Request) {
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

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ds, err := h.uploads.SaveDataset(
		projectID,
		r.FormValue("name"),
		header.Filename,
		header.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		http.Error(w, "Failed to store dataset: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(datasetResponse(ds))
}

// ListDatasets handles GET /v1/projects/{id}/datasets
func (h *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	datasets, err := h.datasetRepo.ListDatasetsByProject(vars["id"])
	if err != nil {
		http.Error(w, "Failed to list datasets: "+err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]map[string]interface{}, len(datasets))
	for i, ds := range datasets {
		items[i] = datasetResponse(ds)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
}

// PreviewDataset handles GET /v1/datasets/{id}/preview
func (h *DatasetHandler) PreviewDataset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	ds, err := h.datasetRepo.GetDataset(vars["id"])
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Dataset not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch dataset: "+err.Error(), http.StatusInternalServerError)
		return
	}

	rows := 20
	if rowsParam := r.URL.Query().Get("rows"); rowsParam != "" {
		fmt.Sscanf(rowsParam, "%d", &rows)
	}
	if rows > 200 {
		rows = 200
	}

	preview, err := h.uploads.Preview(ds, rows)
	if err != nil {
		http.Error(w, "Failed to build preview: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"dataset": datasetResponse(ds),
		"preview": preview,
	})
}

// DeleteDataset handles DELETE /v1/datasets/{id}
func (h *DatasetHandler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	ds, err := h.datasetRepo.GetDataset(vars["id"])
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Dataset not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch dataset: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.uploads.Delete(ds); err != nil {
		http.Error(w, "Failed to delete dataset: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func datasetResponse(ds *models.Dataset) map[string]interface{} {
	return map[string]interface{}{
		"id":           ds.ID,
		"project_id":   ds.ProjectID,
		"name":         ds.Name,
		"filename":     ds.Filename,
		"size_bytes":   ds.SizeBytes,
		"content_type": ds.ContentType,
		"created_at":   ds.CreatedAt,
	}
}
