package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"mlstudio/api/rest/routes"
	"mlstudio/config"
	"mlstudio/core/monitoring"
	"mlstudio/core/repository"
	"mlstudio/core/simulator"
	"mlstudio/storage"
	"mlstudio/web"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()

	// Initialize database
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Database connected successfully")

	jobRepo := repository.NewJobRepository(db)

	// Jobs left queued or running by a previous process are dead.
	if n, err := jobRepo.FailStale("server restarted while job was in progress"); err != nil {
		log.Printf("Failed to clean up stale jobs: %v", err)
	} else if n > 0 {
		log.Printf("Marked %d stale job(s) as failed", n)
	}

	// Initialize upload storage
	uploads, err := storage.NewUploadManager(cfg.DataDir, repository.NewDatasetRepository(db))
	if err != nil {
		log.Fatalf("Failed to initialize upload storage: %v", err)
	}

	// Initialize metrics and the job simulator
	collector := monitoring.NewCollector()
	registry := simulator.NewRegistry()
	sim := simulator.New(jobRepo, registry,
		simulator.WithTickInterval(cfg.TickInterval),
		simulator.WithFlushEvery(cfg.FlushEvery),
		simulator.WithRecorder(collector),
	)

	// Setup routes
	r := mux.NewRouter()
	routes.SetupRoutes(r, db, uploads, sim)

	r.Handle("/metrics", collector.Handler()).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Static UI, registered last so API routes win
	r.PathPrefix("/").Handler(web.Handler())

	// Start server
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
