package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazyhaar/urlsentry/export"
	"github.com/hazyhaar/urlsentry/ingest"
	"github.com/hazyhaar/urlsentry/stats"
	"github.com/hazyhaar/urlsentry/store"
)

type server struct {
	store     *store.Store
	processor *ingest.Processor
	maxUpload int64
}

func newServer(st *store.Store, proc *ingest.Processor, cfg *ingest.Config) *server {
	return &server{store: st, processor: proc, maxUpload: cfg.MaxUploadBytes()}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/upload", s.handleUpload)
	r.Get("/api/detections", s.handleDetections)
	r.Get("/api/statistics", s.handleStatistics)
	r.Get("/api/top-ips", s.handleTopIPs)
	r.Get("/api/file-history", s.handleFileHistory)
	r.Delete("/api/file-history/{fileID}", s.handleDeleteFile)
	r.Post("/api/clear-database", s.handleClearDatabase)
	r.Get("/api/export/csv", s.handleExportCSV)
	r.Get("/api/export/json", s.handleExportJSON)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if err := s.store.DB().PingContext(r.Context()); err != nil {
		resp["status"] = "degraded"
		resp["db_error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	declaredType := r.FormValue("file_type")
	result, err := s.processor.Process(r.Context(), file, header.Filename, declaredType)
	if err != nil {
		if ingest.IsIngestionError(err) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		slog.Error("upload failed", "file_name", header.Filename, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *server) handleDetections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{
		AttackType: q.Get("attack_type"),
		SourceIP:   q.Get("source_ip"),
		Severity:   q.Get("severity"),
		FileID:     q.Get("file_id"),
	}
	dets, err := s.store.ListDetections(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if dets == nil {
		dets = []store.Detection{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"detections": dets,
		"count":      len(dets),
	})
}

// scopedDetections lists the detection set an aggregate or export
// applies to, honoring an optional file_id query parameter.
func (s *server) scopedDetections(r *http.Request) ([]store.Detection, error) {
	return s.store.ListDetections(r.Context(), store.Filter{FileID: r.URL.Query().Get("file_id")})
}

func (s *server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	dets, err := s.scopedDetections(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.Aggregate(dets))
}

func (s *server) handleTopIPs(w http.ResponseWriter, r *http.Request) {
	dets, err := s.scopedDetections(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"top_source_ips": stats.Aggregate(dets).TopSourceIPs,
	})
}

func (s *server) handleFileHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.store.FileHistory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if history == nil {
		history = []store.FileEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": history})
}

func (s *server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if err := s.store.DeleteFileEntry(r.Context(), fileID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleClearDatabase(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	slog.Info("database cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	dets, err := s.scopedDetections(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="detections.csv"`)
	if err := export.WriteCSV(w, dets); err != nil {
		slog.Error("csv export", "error", err)
	}
}

func (s *server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	dets, err := s.scopedDetections(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="detections.json"`)
	exportedAt := time.Now().UTC().Format(time.RFC3339)
	if err := export.WriteJSON(w, exportedAt, dets); err != nil {
		slog.Error("json export", "error", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
