package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/storelens/storelens/server/internal/compute"
	"github.com/storelens/storelens/server/internal/ingest"
	"github.com/storelens/storelens/server/internal/report"
	"github.com/storelens/storelens/server/internal/rules"
	"github.com/storelens/storelens/server/internal/staging"
	"github.com/storelens/storelens/server/internal/telemetry"
)

// DefaultMaxUploadBytes bounds an analyze request body when Options leaves
// it unset.
const DefaultMaxUploadBytes = 32 << 20

// multipartMemory is how much of a multipart body is held in memory before
// the rest spills to temporary files.
const multipartMemory = 8 << 20

// Options wires a Handler to its collaborators. Only Engine and Reader are
// needed for analysis; a nil Rules or Staging disables that feature.
type Options struct {
	Engine  *compute.Engine
	Reader  *ingest.Reader
	Rules   *rules.Engine
	Staging *staging.Store
	Metrics *telemetry.Metrics

	MaxUploadBytes int64
	Now            func() time.Time // injectable for deterministic tests
	Logger         *slog.Logger
}

// Handler serves the upload form, the analyze endpoints, health and metrics.
// It keeps no per-request state, so one Handler serves requests concurrently.
type Handler struct {
	router    chi.Router
	engine    *compute.Engine
	reader    *ingest.Reader
	rules     *rules.Engine
	staging   *staging.Store
	metrics   *telemetry.Metrics
	maxUpload int64
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a Handler and registers all routes.
func New(opts Options) http.Handler {
	h := &Handler{
		engine:    opts.Engine,
		reader:    opts.Reader,
		rules:     opts.Rules,
		staging:   opts.Staging,
		metrics:   opts.Metrics,
		maxUpload: opts.MaxUploadBytes,
		now:       opts.Now,
		logger:    opts.Logger,
	}
	if h.engine == nil {
		h.engine = compute.NewEngine()
	}
	if h.reader == nil {
		h.reader = ingest.NewReader(ingest.Options{})
	}
	if h.metrics == nil {
		h.metrics = telemetry.New()
	}
	if h.maxUpload <= 0 {
		h.maxUpload = DefaultMaxUploadBytes
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(h.logger))

	r.Get("/", h.index)
	r.Post("/analyze", h.analyzeForm)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Post("/analyze", h.analyzeJSON)
	})
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed", "method_not_allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found", "not_found")
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// index returns GET / — the upload form.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderIndex(w); err != nil {
		h.logger.Error("api: render index", "err", err)
	}
}

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// analyzeForm handles POST /analyze. The response format comes from the
// format query parameter or form field: html (default), json or pdf.
func (h *Handler) analyzeForm(w http.ResponseWriter, r *http.Request) {
	rep, err := h.analyze(w, r)
	format := r.URL.Query().Get("format")
	if format == "" && r.MultipartForm != nil {
		format = r.FormValue("format")
	}

	if err != nil {
		status, code := statusFor(err)
		if format == "json" {
			jsonErr(w, status, errorMessage(err), code)
			return
		}
		http.Error(w, htmlErrorMessage(err), status)
		return
	}

	switch format {
	case "json":
		jsonResp(w, http.StatusOK, rep)
	case "pdf":
		h.writePDF(w, rep)
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := report.RenderHTML(w, rep); err != nil {
			h.logger.Error("api: render results", "report_id", rep.ID, "err", err)
		}
	}
}

// analyzeJSON handles POST /api/v1/analyze and always answers in JSON.
func (h *Handler) analyzeJSON(w http.ResponseWriter, r *http.Request) {
	rep, err := h.analyze(w, r)
	if err != nil {
		status, code := statusFor(err)
		jsonErr(w, status, errorMessage(err), code)
		return
	}
	jsonResp(w, http.StatusOK, rep)
}

func (h *Handler) writePDF(w http.ResponseWriter, rep *report.Report) {
	b, err := report.RenderPDF(rep)
	if err != nil {
		h.logger.Error("api: render pdf", "report_id", rep.ID, "err", err)
		http.Error(w, htmlErrorMessage(err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="storelens-`+rep.ID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(b) //nolint:errcheck
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg, errCode string) {
	jsonResp(w, code, ErrorResponse{Error: msg, Code: errCode})
}
