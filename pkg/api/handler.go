// CLAUDE:SUMMARY HTTP surface of the dashboard: survey results, reload, points, district GeoJSON, map messages and SSE, sources, health, metrics.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/qoparu/qoparu/pkg/dashboard"
	"github.com/qoparu/qoparu/pkg/kit"
	"github.com/qoparu/qoparu/pkg/mapbridge"
	"github.com/qoparu/qoparu/pkg/metrics"
	"github.com/qoparu/qoparu/pkg/sources"
)

// SourceStore lists configured sources and past loads.
type SourceStore interface {
	ListSources() ([]sources.Source, error)
	ListLoads(limit int) ([]sources.Load, error)
}

// Deps wires the router. Sources and Metrics are optional.
type Deps struct {
	Service *dashboard.Service
	Sources SourceStore
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewRouter returns an http.Handler with every dashboard route.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	mw := func(name string) kit.Middleware {
		return kit.Chain(kit.RequestID(), kit.Logging(d.Logger, name))
	}

	h := &handler{
		svc:           d.Service,
		sources:       d.Sources,
		logger:        d.Logger,
		surveyResults: mw("survey_results")(surveyResultsEndpoint(d.Service)),
		surveySummary: mw("survey_summary")(surveySummaryEndpoint(d.Service)),
		reload:        mw("reload_survey")(reloadEndpoint(d.Service)),
		points:        mw("points")(pointsEndpoint(d.Service)),
		pointStats:    mw("point_stats")(pointStatsEndpoint(d.Service)),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/survey", h.handleSurvey)
	mux.HandleFunc("GET /v1/survey/summary", h.handleSummary)
	mux.HandleFunc("POST /v1/survey/reload", h.handleReload)
	mux.HandleFunc("GET /v1/points", h.handlePoints)
	mux.HandleFunc("GET /v1/points/stats", h.handlePointStats)
	mux.HandleFunc("GET /v1/districts", h.handleDistricts)
	mux.HandleFunc("GET /v1/map/selection", h.handleSelection)
	mux.HandleFunc("GET /v1/map/update", h.handleMapUpdate)
	mux.HandleFunc("POST /v1/map/messages", h.handleMapMessage)
	mux.HandleFunc("GET /v1/map/events", h.handleEvents)
	mux.HandleFunc("GET /v1/sources", h.handleSources)
	mux.HandleFunc("GET /v1/loads", h.handleLoads)
	mux.HandleFunc("GET /v1/health", h.handleHealth)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	return cors(instrument(d.Metrics, mux))
}

type handler struct {
	svc     *dashboard.Service
	sources SourceStore
	logger  *slog.Logger

	surveyResults kit.Endpoint
	surveySummary kit.Endpoint
	reload        kit.Endpoint
	points        kit.Endpoint
	pointStats    kit.Endpoint
}

// --- survey ---

func (h *handler) handleSurvey(w http.ResponseWriter, r *http.Request) {
	resp, err := h.surveyResults(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	resp, err := h.surveySummary(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleReload(w http.ResponseWriter, r *http.Request) {
	resp, err := h.reload(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	code := http.StatusOK
	if !resp.(reloadResponse).Ready {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, resp)
}

// --- points ---

func (h *handler) handlePoints(w http.ResponseWriter, r *http.Request) {
	resp, err := h.points(r.Context(), &pointsRequest{District: r.URL.Query().Get("district")})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handlePointStats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.pointStats(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleDistricts(w http.ResponseWriter, r *http.Request) {
	doc := h.svc.Snapshot().GeoJSON
	if len(doc) == 0 {
		writeError(w, http.StatusNotFound, "district boundaries are not loaded")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// --- map bridge ---

func (h *handler) handleSelection(w http.ResponseWriter, r *http.Request) {
	resp := selectionResponse{}
	if d, ok := h.svc.Selection(); ok {
		resp.District = &d
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleMapUpdate(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, h.svc.MapUpdate())
}

func (h *handler) handleMapMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64*1024))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	msg, err := mapbridge.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	changed, err := h.svc.HandleMessage(msg)
	var de *mapbridge.DirectionError
	switch {
	case errors.As(err, &de):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, dashboard.ErrUnknownDistrict):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeMessage(w, http.StatusOK, changed)
}

// --- sources ---

func (h *handler) handleSources(w http.ResponseWriter, r *http.Request) {
	if h.sources == nil {
		writeJSON(w, http.StatusOK, map[string]any{"sources": []sources.Source{}})
		return
	}
	list, err := h.sources.ListSources()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []sources.Source{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": list})
}

func (h *handler) handleLoads(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	if h.sources == nil {
		writeJSON(w, http.StatusOK, map[string]any{"loads": []sources.Load{}})
		return
	}
	loads, err := h.sources.ListLoads(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if loads == nil {
		loads = []sources.Load{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"loads": loads})
}

// --- health ---

type healthResponse struct {
	Status      string    `json:"status"`
	Ready       bool      `json:"ready"`
	Respondents int       `json:"respondents"`
	Points      int       `json:"points"`
	LoadedAt    time.Time `json:"loaded_at"`
	Error       string    `json:"error,omitempty"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Snapshot()
	resp := healthResponse{
		Status:   "ok",
		Ready:    snap.Ready(),
		Points:   len(snap.Points),
		LoadedAt: snap.LoadedAt,
		Error:    snap.Error,
	}
	if snap.Survey != nil {
		resp.Respondents = snap.Survey.Total
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, code int, m mapbridge.Message) {
	data, err := mapbridge.Encode(m)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(data)
}

// cors is a simple CORS middleware for the dashboard page and the map iframe.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter records the response code. It forwards Flush for the event
// stream.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.code == 0 {
		w.code = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// instrument counts requests per matched route pattern.
func instrument(m *metrics.Metrics, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		if sw.code == 0 {
			sw.code = http.StatusOK
		}
		m.ObserveRequest(route, strconv.Itoa(sw.code))
	})
}
