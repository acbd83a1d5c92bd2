// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Brownie44l1/plant-doctor/internal/calibrate"
	"github.com/Brownie44l1/plant-doctor/internal/history"
	"github.com/Brownie44l1/plant-doctor/internal/model"
)

type Config struct {
	Port string

	Model model.Config
	Store history.Config

	UploadDir string
	// HistoryQueue is the number of scans that may wait for persistence.
	HistoryQueue int
	// Temperature used by the confidence calibrator.
	Temperature float64
	// JitterSeed seeds the confidence jitter. Jitter is disabled when
	// DisableJitter is set.
	JitterSeed    int64
	DisableJitter bool
}

// Get returns an environment variable or default value.
func Get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load builds a Config from PLANT_* variables, falling back to defaults
// relative to root.
func Load(root string) (Config, error) {
	cfg := Config{
		Port: Get("PORT", "8080"),
		Model: model.Config{
			ModelPath:         Get("PLANT_MODEL_PATH", filepath.Join(root, "models", "plant_doctor.onnx")),
			LabelsPath:        Get("PLANT_LABELS_PATH", filepath.Join(root, "assets", "labels.txt")),
			SharedLibraryPath: Get("ONNXRUNTIME_LIB", ""),
		},
		Store: history.Config{
			Driver: Get("PLANT_DB_DRIVER", "sqlite"),
			DSN:    Get("PLANT_DB_DSN", filepath.Join(root, "data", "plant_doctor.db")),
		},
		UploadDir: Get("PLANT_UPLOAD_DIR", filepath.Join(root, "data", "uploads")),
	}

	var err error
	if cfg.Model.NumThreads, err = intVar("PLANT_NUM_THREADS", 0); err != nil {
		return Config{}, err
	}
	if cfg.HistoryQueue, err = intVar("PLANT_HISTORY_QUEUE", 64); err != nil {
		return Config{}, err
	}
	if cfg.Temperature, err = floatVar("PLANT_TEMPERATURE", 2.0); err != nil {
		return Config{}, err
	}
	seed, err := intVar("PLANT_JITTER_SEED", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.JitterSeed = int64(seed)
	if cfg.DisableJitter, err = boolVar("PLANT_DISABLE_JITTER", false); err != nil {
		return Config{}, err
	}

	if cfg.Temperature <= 0 {
		return Config{}, fmt.Errorf("PLANT_TEMPERATURE must be positive, got %v", cfg.Temperature)
	}
	return cfg, nil
}

// Root returns the project root: the working directory, or two levels up
// when running from cmd/<name>.
func Root() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	if filepath.Base(filepath.Dir(wd)) == "cmd" {
		wd = filepath.Join(wd, "..", "..")
	}
	return wd, nil
}

// Calibrator builds the confidence calibrator described by c.
func (c Config) Calibrator() *calibrate.Calibrator {
	j := calibrate.NoJitter
	if !c.DisableJitter {
		j = calibrate.NewRandomJitter(c.JitterSeed)
	}
	cal := calibrate.New(j)
	cal.Temperature = c.Temperature
	return cal
}

func intVar(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func floatVar(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func boolVar(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
