package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/find-the-vehicles/detection-service/config"
	"github.com/find-the-vehicles/detection-service/detections"
	"github.com/find-the-vehicles/detection-service/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.Debug)

	modelPath, err := filepath.Abs(filepath.Clean(cfg.ModelPath))
	if err != nil {
		logger.Fatal("Failed to get absolute path for model: %v", err)
	}
	if _, err := os.Stat(modelPath); err != nil {
		logger.Fatal("Model file not available: %v", err)
	}

	logger.Info("CPU: %s", detections.DescribeCPU())

	if err := detections.InitRuntime(cfg.RuntimeLibPath); err != nil {
		logger.Fatal("Failed to initialize ONNX environment from %s: %v", cfg.RuntimeLibPath, err)
	}
	defer detections.DestroyRuntime()

	model, err := detections.LoadModel(modelPath, detections.Options{
		InputSize:      cfg.InputSize,
		ConfThreshold:  cfg.ConfThreshold,
		IouThreshold:   cfg.IouThreshold,
		MaxDetections:  cfg.MaxDetections,
		IntraOpThreads: cfg.IntraOpThreads,
		LabelsPath:     cfg.LabelsPath,
	})
	if err != nil {
		logger.Fatal("Failed to load model: %v", err)
	}
	defer model.Destroy()

	state := &AppState{
		Model:          model,
		ModelPath:      modelPath,
		MaxUploadBytes: cfg.MaxUploadBytes,
		MaxImagePixels: cfg.MaxImagePixels,
		Metrics:        NewMetrics(),
	}

	srv := &http.Server{
		Handler:      withCORS(NewRouter(state), cfg.AllowedOrigins),
		Addr:         cfg.Addr(),
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server on %s (allowed origins: %v)", srv.Addr, cfg.AllowedOrigins)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error: %v", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown: %v", err)
		}
	}
}
