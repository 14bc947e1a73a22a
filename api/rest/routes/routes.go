package routes

import (
	"mlstudio/api/rest/handlers"
	"mlstudio/core/repository"
	"mlstudio/core/simulator"
	"mlstudio/storage"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, db *repository.DB, uploads *storage.UploadManager, sim *simulator.Simulator) {
	projectRepo := repository.NewProjectRepository(db)
	datasetRepo := repository.NewDatasetRepository(db)
	modelRepo := repository.NewModelConfigRepository(db)
	jobRepo := repository.NewJobRepository(db)

	projectHandler := handlers.NewProjectHandler(projectRepo)
	datasetHandler := handlers.NewDatasetHandler(projectRepo, datasetRepo, uploads)
	modelHandler := handlers.NewModelConfigHandler(projectRepo, modelRepo)
	jobHandler := handlers.NewJobHandler(projectRepo, modelRepo, jobRepo, sim)

	api := r.PathPrefix("/v1").Subrouter()

	// Project endpoints
	api.HandleFunc("/projects", projectHandler.CreateProject).Methods("POST")
	api.HandleFunc("/projects", projectHandler.ListProjects).Methods("GET")
	api.HandleFunc("/projects/{id}", projectHandler.GetProject).Methods("GET")
	api.HandleFunc("/projects/{id}", projectHandler.UpdateProject).Methods("PUT")
	api.HandleFunc("/projects/{id}", projectHandler.DeleteProject).Methods("DELETE")

	// Dataset endpoints
	api.HandleFunc("/projects/{id}/datasets", datasetHandler.UploadDataset).Methods("POST")
	api.HandleFunc("/projects/{id}/datasets", datasetHandler.ListDatasets).Methods("GET")
	api.HandleFunc("/datasets/{id}/preview", datasetHandler.PreviewDataset).Methods("GET")
	api.HandleFunc("/datasets/{id}", datasetHandler.DeleteDataset).Methods("DELETE")

	// Model config endpoints
	api.HandleFunc("/projects/{id}/models", modelHandler.CreateModelConfig).Methods("POST")
	api.HandleFunc("/projects/{id}/models", modelHandler.ListModelConfigs).Methods("GET")
	api.HandleFunc("/models/{id}", modelHandler.GetModelConfig).Methods("GET")
	api.HandleFunc("/models/{id}", modelHandler.UpdateModelConfig).Methods("PUT")
	api.HandleFunc("/models/{id}", modelHandler.DeleteModelConfig).Methods("DELETE")

	// Job endpoints
	api.HandleFunc("/projects/{id}/jobs", jobHandler.CreateJob).Methods("POST")
	api.HandleFunc("/projects/{id}/jobs", jobHandler.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{id}", jobHandler.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}/cancel", jobHandler.CancelJob).Methods("POST")
}
