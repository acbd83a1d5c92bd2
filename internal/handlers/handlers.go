package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Brownie44l1/plant-doctor/internal/calibrate"
	"github.com/Brownie44l1/plant-doctor/internal/history"
	"github.com/Brownie44l1/plant-doctor/internal/model"
	"github.com/Brownie44l1/plant-doctor/internal/pipeline"
	"github.com/Brownie44l1/plant-doctor/internal/preprocess"
)

// MaxUploadSize bounds multipart uploads (10MB).
const MaxUploadSize = 10 << 20

// HistoryStore is the read/clear side of scan history.
type HistoryStore interface {
	ListAllDescendingByTime(ctx context.Context) ([]history.Item, error)
	ClearAll(ctx context.Context) error
}

type Handler struct {
	scanner   *pipeline.Scanner
	store     HistoryStore
	uploadDir string
	logger    *log.Logger
}

func NewHandler(scanner *pipeline.Scanner, store HistoryStore, uploadDir string, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		scanner:   scanner,
		store:     store,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Predict classifies a raw tensor. It is not gated and not recorded.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxUploadSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req PredictionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	out, err := h.scanner.Classifier().ClassifyTensor(r.Context(), req.Image)
	if err != nil {
		h.fail(w, "Prediction", err)
		return
	}

	writeJSON(w, http.StatusOK, newPredictionResponse(out))
}

func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided. Use 'image' as the form field name")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	h.logger.Printf("Received file: %s, size: %d bytes", header.Filename, len(data))

	img, format, err := preprocess.Decode(bytes.NewReader(data))
	if err != nil {
		h.fail(w, "Decode", err)
		return
	}

	ref, err := h.saveUpload(data, format)
	if err != nil {
		h.logger.Printf("Upload save error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	out, persisted, err := h.scanner.Scan(r.Context(), img, ref)
	if err != nil || out.Status != pipeline.StatusClassified || !queued(persisted) {
		// Only scans headed for history keep their upload.
		os.Remove(ref)
		ref = ""
	}
	if err != nil {
		h.fail(w, "Prediction", err)
		return
	}

	resp := newPredictionResponse(out)
	resp.ImageRef = ref
	writeJSON(w, http.StatusOK, resp)
}

// queued reports whether a history item is still on its way to the store.
// Items the recorder refused already carry their error.
func queued(persisted <-chan history.Persisted) bool {
	if persisted == nil {
		return false
	}
	select {
	case p := <-persisted:
		return p.Err == nil
	default:
		return true
	}
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListAllDescendingByTime(r.Context())
	if err != nil {
		h.fail(w, "History", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearAll(r.Context()); err != nil {
		h.fail(w, "Clear history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) saveUpload(data []byte, format string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	path := filepath.Join(h.uploadDir, uuid.NewString()+"."+format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return path, nil
}

// fail maps pipeline and store errors onto HTTP status codes.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var (
		perr *preprocess.Error
		cerr *calibrate.Error
		serr *history.Error
	)
	switch {
	case errors.As(err, &perr), errors.Is(err, model.ErrInputShape):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &cerr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "Request cancelled")
	case errors.As(err, &serr):
		h.logger.Printf("%s error: %v", op, err)
		writeError(w, http.StatusInternalServerError, "History store unavailable")
	default:
		h.logger.Printf("%s error: %v", op, err)
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
