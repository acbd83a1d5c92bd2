package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brownie44l1/plant-doctor/internal/config"
	"github.com/Brownie44l1/plant-doctor/internal/handlers"
	"github.com/Brownie44l1/plant-doctor/internal/history"
	"github.com/Brownie44l1/plant-doctor/internal/model"
	"github.com/Brownie44l1/plant-doctor/internal/pipeline"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

// run returns only after every resource it opened has been closed.
func run() error {
	root, err := config.Root()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.Printf("Loading model from: %s", cfg.Model.ModelPath)

	engine, err := model.Load(cfg.Model)
	if err != nil {
		return fmt.Errorf("failed to initialize model: %w", err)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := history.Open(ctx, cfg.Store)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()

	recorder := history.NewRecorder(store, cfg.HistoryQueue, log.Default())
	defer recorder.Close()

	scanner := pipeline.NewScanner(pipeline.NewClassifier(engine, cfg.Calibrator()), recorder)
	handler := handlers.NewHandler(scanner, store, cfg.UploadDir, log.Default())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Model loaded: %s (%d classes, input %dx%d)", cfg.Model.ModelPath, engine.Labels().Len(), engine.InputSide(), engine.InputSide())
	log.Printf("History: %s", cfg.Store.Driver)
	log.Println("Endpoints:")
	log.Println("  GET    /health        - Health check")
	log.Println("  POST   /predict       - Raw tensor prediction")
	log.Println("  POST   /predict/image - Predict from image upload")
	log.Println("  GET    /history       - Scan history, newest first")
	log.Println("  DELETE /history       - Clear scan history")
	log.Println("  GET    /metrics       - Prometheus metrics")
	log.Printf("\n💡 Upload test: curl -X POST -F \"image=@leaf.jpg\" http://localhost:%s/predict/image\n\n", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return serve(server, quit)
}

// serve runs server until a signal arrives or it fails to listen, then
// shuts it down. Both paths return through the caller's deferred closes.
func serve(server *http.Server, quit <-chan os.Signal) error {
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	var failed error
	select {
	case <-quit:
	case err := <-serverErr:
		failed = fmt.Errorf("server failed: %w", err)
	}

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")

	return failed
}
