package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/find-the-vehicles/detection-service/detections"
	"github.com/find-the-vehicles/detection-service/logger"
	"github.com/find-the-vehicles/detection-service/models"
	"github.com/gorilla/mux"
)

// uploadField is the multipart field carrying the image.
const uploadField = "file"

type AppState struct {
	Model          detections.Model
	ModelPath      string
	MaxUploadBytes int64
	MaxImagePixels int
	Metrics        *Metrics
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

var (
	errNoFile   = errors.New("no file uploaded")
	errTooLarge = errors.New("upload too large")
)

// NewRouter wires the API routes.
func NewRouter(state *AppState) *mux.Router {
	r := mux.NewRouter()
	r.Use(state.Metrics.Middleware)

	r.HandleFunc("/predict/", handlePredict(state)).Methods(http.MethodPost)
	r.HandleFunc("/predict", handlePredict(state)).Methods(http.MethodPost)
	r.HandleFunc("/health", state.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", state.Metrics.Handler()).Methods(http.MethodGet)
	return r
}

func handlePredict(state *AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTotal := time.Now()
		requestID := fmt.Sprintf("%d", time.Now().UnixNano())
		timings := &models.ProcessingTimings{RequestID: requestID}

		imgBytes, err := readUpload(w, r, state.MaxUploadBytes)
		if err != nil {
			logger.Info("RequestID: %s - rejected upload: %v", requestID, err)
			switch {
			case errors.Is(err, errTooLarge):
				sendErrorResponse(w, CodeInvalidRequest, MsgTooLarge, err.Error(), http.StatusRequestEntityTooLarge)
			case errors.Is(err, errNoFile):
				sendErrorResponse(w, CodeInvalidRequest, MsgNoFile, err.Error(), http.StatusBadRequest)
			default:
				sendErrorResponse(w, CodeInvalidRequest, MsgInvalidRequest, err.Error(), http.StatusBadRequest)
			}
			return
		}
		state.Metrics.ObserveUpload(len(imgBytes))

		decodeStart := time.Now()
		img, err := detections.DecodeImage(imgBytes, state.MaxImagePixels)
		timings.ImageDecode = time.Since(decodeStart)
		if err != nil {
			logger.Info("RequestID: %s - %v", requestID, err)
			if errors.Is(err, detections.ErrEmptyImage) {
				sendErrorResponse(w, CodeInvalidRequest, MsgEmptyFile, "", http.StatusBadRequest)
				return
			}
			sendErrorResponse(w, CodeInvalidImage, MsgInvalidImage, err.Error(), http.StatusBadRequest)
			return
		}

		dets, err := state.Model.Predict(r.Context(), img, timings)
		if err != nil {
			logger.Error("RequestID: %s - prediction failed: %v", requestID, err)
			sendErrorResponse(w, CodeProcessingError, MsgProcessingFail, err.Error(), http.StatusInternalServerError)
			return
		}

		boxes, err := detections.ToBoxes(dets, state.Model.Labels())
		if err != nil {
			logger.Error("RequestID: %s - label lookup failed: %v", requestID, err)
			sendErrorResponse(w, CodeProcessingError, MsgProcessingFail, err.Error(), http.StatusInternalServerError)
			return
		}

		timings.Total = time.Since(startTotal)
		logTimings(timings)
		state.Metrics.ObserveTimings(timings)
		state.Metrics.ObserveDetections(len(boxes))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(boxes)
	}
}

func (s *AppState) handleHealth(w http.ResponseWriter, _ *http.Request) {
	response := map[string]interface{}{
		"status":  "ok",
		"model":   s.ModelPath,
		"classes": s.Model.Labels().Len(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// readUpload returns the image bytes of a request. Multipart forms carry the
// image in the "file" field; JSON bodies carry it base64 encoded under
// "image"; anything else is treated as the raw image.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		data []byte
		err  error
	)
	switch mediaType {
	case "multipart/form-data":
		data, err = handleMultipartRequest(r, limit)
	case "application/json":
		data, err = handleJSONRequest(r)
	default:
		data, err = handleRawRequest(r)
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return nil, fmt.Errorf("%w: limit is %d bytes", errTooLarge, maxErr.Limit)
	}
	return data, err
}

func handleMultipartRequest(r *http.Request, limit int64) ([]byte, error) {
	maxMemory := int64(10 << 20)
	if limit > 0 && limit < maxMemory {
		maxMemory = limit
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errNoFile
		}
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

func handleJSONRequest(r *http.Request) ([]byte, error) {
	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}
	if req.Image == "" {
		return nil, errNoFile
	}
	data, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return data, nil
}

func handleRawRequest(r *http.Request) ([]byte, error) {
	return io.ReadAll(r.Body)
}

func sendErrorResponse(w http.ResponseWriter, code, message, details string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

func logTimings(t *models.ProcessingTimings) {
	if logger.DebugEnabled() {
		logger.Debug("RequestID: %s - Processing times:\n"+
			"\tImage Decode: %v\n"+
			"\tLetterbox:   %v\n"+
			"\tPreprocess:  %v\n"+
			"\tInference:   %v\n"+
			"\tPostprocess: %v\n"+
			"\tTotal:       %v",
			t.RequestID,
			t.ImageDecode,
			t.Letterbox,
			t.Preprocess,
			t.Inference,
			t.Postprocess,
			t.Total)
	}
}

func logRequest(r *http.Request, status int, elapsed time.Duration) {
	logger.Info("%s %s %d %v from %s", r.Method, r.URL.Path, status, elapsed, r.RemoteAddr)
}
