package mockserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// requestIDHeader is echoed on every response.
	requestIDHeader = "X-Request-Id"
	// scenarioHeader overrides the configured scenario per request.
	scenarioHeader = "X-Mock-Scenario"
)

// handler serves the mock extraction API.
type handler struct {
	scenario  Scenario
	maxBytes  int64
	maxMB     int
	stepDelay time.Duration
	logger    *slog.Logger
}

// NewHandler builds the chi router of the mock back end.
func NewHandler(cfg Config) (http.Handler, error) {
	scenario := cfg.Scenario
	if scenario == "" {
		scenario = ScenarioOK
	}
	if _, err := ParseScenario(string(scenario)); err != nil {
		return nil, err
	}
	maxMB := cfg.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 15
	}
	delay := cfg.StepDelay
	if delay <= 0 {
		delay = 400 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{
		scenario:  scenario,
		maxBytes:  int64(maxMB) << 20,
		maxMB:     maxMB,
		stepDelay: delay,
		logger:    logger.With("component", "mockserver"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", h.health)
		api.Get("/version", h.version)
		api.Post("/extract/stream", h.extractStream)
	})
	return r, nil
}

// echoRequestID copies the correlation id onto the response.
func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(requestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

// logRequests logs one line per request through slog.
func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// health reports liveness.
func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// version reports build information.
func (h *handler) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"RENDER_GIT_COMMIT": nil,
		"ANTHROPIC_MODEL":   nil,
		"MOCK_MODE":         "1",
		"SCENARIO":          string(h.scenario),
	})
}

// extractStream validates the upload and plays the selected scenario.
func (h *handler) extractStream(w http.ResponseWriter, r *http.Request) {
	fileName, size, err := h.readUpload(w, r)
	if err != nil {
		var status *uploadError
		if errors.As(err, &status) {
			writeJSON(w, status.code, map[string]string{"detail": status.detail})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	scenario := h.scenario
	if override := r.Header.Get(scenarioHeader); override != "" {
		parsed, err := ParseScenario(override)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		scenario = parsed
	}

	requestID := middleware.GetReqID(r.Context())
	play := buildScript(scenario, fileName, size, requestID)
	if play.document != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(play.status)
		_, _ = w.Write(play.document)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(play.status)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	for _, line := range play.lines {
		if scenario == ScenarioSlow {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(h.stepDelay):
			}
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// uploadError carries the HTTP status of a rejected upload.
type uploadError struct {
	code   int
	detail string
}

// Error implements the error interface.
func (e *uploadError) Error() string {
	return e.detail
}

// readUpload reads the "file" field and applies the service's limits.
func (h *handler) readUpload(w http.ResponseWriter, r *http.Request) (string, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", 0, h.tooLarge()
		}
		return "", 0, &uploadError{code: http.StatusBadRequest, detail: "Пожалуйста, загрузите PDF файл."}
	}
	defer file.Close()
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		return "", 0, &uploadError{code: http.StatusBadRequest, detail: "Пожалуйста, загрузите PDF файл."}
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		return "", 0, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > h.maxBytes {
		return "", 0, h.tooLarge()
	}
	return header.Filename, len(data), nil
}

// tooLarge is the 413 rejection.
func (h *handler) tooLarge() error {
	return &uploadError{
		code:   http.StatusRequestEntityTooLarge,
		detail: fmt.Sprintf("Файл слишком большой. Лимит: %d MB.", h.maxMB),
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(value)
}
