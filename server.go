package pdfarena

import (
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/corvand/pdfarena/internal/metrics"
)

// Server exposes the render service over HTTP.
type Server struct {
	svc     *Service
	logger  zerolog.Logger
	started time.Time
}

// NewServer wraps a Service in the HTTP facade. The caller owns the
// Service's lifecycle; closing it is not the server's job.
func NewServer(svc *Service, logger zerolog.Logger) *Server {
	return &Server{
		svc:     svc,
		logger:  logger,
		started: time.Now(),
	}
}

// Handler builds the router with the full middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestLogging)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/health/engines", s.handleEngineHealth)
	r.Get("/libraries", s.handleLibraries)
	r.Post("/generate", s.handleGenerate)
	r.Post("/generate-all", s.handleGenerateAll)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requestLogging tags every request with an ID and records completion with
// status, duration and byte counts.
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		metrics.RecordHTTPRequest(r.Method, endpoint, ww.Status(), elapsed)

		s.logger.Info().
			Str("requestId", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", elapsed).
			Msg("http request")
	})
}

// generateRequest is the body of POST /generate.
type generateRequest struct {
	Library string        `json:"library"`
	Data    RenderRequest `json:"data"`
}

// generateAllRequest is the body of POST /generate-all.
type generateAllRequest struct {
	Data RenderRequest `json:"data"`
}

type healthResponse struct {
	Status         string `json:"status"`
	Architecture   string `json:"architecture"`
	RuntimeVersion string `json:"runtimeVersion"`
	UptimeSeconds  int64  `json:"uptimeSeconds"`
	Timestamp      string `json:"timestamp"`
}

type librariesResponse struct {
	Libraries []LibraryInfo `json:"libraries"`
	Count     int           `json:"count"`
}

type errorResponse struct {
	Error     string   `json:"error"`
	Details   string   `json:"details,omitempty"`
	Library   string   `json:"library,omitempty"`
	Available []string `json:"available,omitempty"`

	GenerationTimeMs int64 `json:"generationTimeMs,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		Architecture:   runtime.GOARCH,
		RuntimeVersion: runtime.Version(),
		UptimeSeconds:  int64(time.Since(s.started).Seconds()),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}

// handleEngineHealth probes each browser engine with a minimal render.
// Launches engines that are not up yet, so the first call is slow.
func (s *Server) handleEngineHealth(w http.ResponseWriter, r *http.Request) {
	statuses := s.svc.EngineHealth(r.Context())

	code := http.StatusOK
	for _, st := range statuses {
		if !st.Healthy {
			code = http.StatusServiceUnavailable
			break
		}
	}
	respondJSON(w, code, statuses)
}

func (s *Server) handleLibraries(w http.ResponseWriter, r *http.Request) {
	infos := s.svc.Libraries()
	respondJSON(w, http.StatusOK, librariesResponse{Libraries: infos, Count: len(infos)})
}

// handleGenerate renders one document and returns the raw PDF bytes.
// Unknown library names are a client error listing the valid names; render
// failures surface as 500 with the backend's reason.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid request body",
			Details: err.Error(),
		})
		return
	}

	res, err := s.svc.Generate(r.Context(), req.Library, req.Data)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:     fmt.Sprintf("unknown library %q", req.Library),
			Available: s.svc.AdapterNames(),
		})
		return
	}

	if !res.OK {
		respondJSON(w, http.StatusInternalServerError, errorResponse{
			Error:            "generation failed",
			Details:          res.Reason,
			Library:          res.Adapter,
			GenerationTimeMs: res.ElapsedMs,
		})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="document.pdf"`)
	w.Header().Set("X-Generation-Time-Ms", strconv.FormatInt(res.ElapsedMs, 10))
	w.Header().Set("X-PDF-Bytes", strconv.Itoa(res.Size))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Bytes)
}

// handleGenerateAll runs the comparative render across every backend and
// returns tagged results. Always 200: per-backend failures are data, not
// transport errors.
func (s *Server) handleGenerateAll(w http.ResponseWriter, r *http.Request) {
	var req generateAllRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{
				Error:   "invalid request body",
				Details: err.Error(),
			})
			return
		}
	}

	cmp := s.svc.GenerateAll(r.Context(), req.Data)
	respondJSON(w, http.StatusOK, cmp)
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
