// Package api serves summaries, records and CSV exports over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"Go2NetScope/internal/export"
	"Go2NetScope/internal/logger"
	"Go2NetScope/internal/model"
	"Go2NetScope/internal/report"
	"Go2NetScope/internal/storage/clickhouse"
	"Go2NetScope/internal/storage/redisstore"

	"github.com/gorilla/mux"
)

// RecordSource supplies the records the API reports on. *session.Session
// satisfies it.
type RecordSource interface {
	Records() []model.PacketRecord
	Elapsed() time.Duration
}

// StaticSource is a fixed record set, such as one loaded from snapshots.
type StaticSource struct {
	Items    []model.PacketRecord
	Duration time.Duration
}

func (s StaticSource) Records() []model.PacketRecord { return s.Items }
func (s StaticSource) Elapsed() time.Duration        { return s.Duration }

// DistributionQuerier is the part of the ClickHouse querier the API uses.
type DistributionQuerier interface {
	Distribution(ctx context.Context, column string, f clickhouse.Filter, limit int) (report.Distribution, error)
}

// APIHandler holds the dependencies for API handlers. Summaries and Querier
// are optional; their routes answer 503 when unset.
type APIHandler struct {
	Source    RecordSource
	Exporter  *export.Exporter
	Summaries redisstore.Store
	Querier   DistributionQuerier
	Log       logger.Logger
}

// ExportRequest is the body of POST /api/v1/exports.
type ExportRequest struct {
	Filename      string `json:"filename"`
	IncludeHeader *bool  `json:"include_header"`
	PowerBI       bool   `json:"power_bi"`
	Layout        string `json:"layout"`
	Protocol      string `json:"protocol"`
	Direction     string `json:"direction"`
}

// ExportResponse describes a finished export.
type ExportResponse struct {
	File    string `json:"file"`
	Records int    `json:"records"`
	Message string `json:"message"`
}

// NewRouter registers every route on a new mux router.
func NewRouter(h *APIHandler) *mux.Router {
	if h.Log == nil {
		h.Log = logger.Discard()
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/health", h.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/summary", h.summaryHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/records", h.recordsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/exports", h.listExportsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/exports", h.createExportHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/exports/{name}", h.downloadExportHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/sessions", h.sessionsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/sessions/{id}/summary", h.sessionSummaryHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/distribution/{column}", h.distributionHandler).Methods(http.MethodGet)
	return r
}

func (h *APIHandler) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) summaryHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report.Summarize(h.Source.Records(), h.Source.Elapsed()))
}

// recordsHandler lists records, optionally filtered by protocol and
// direction (case-insensitive) and capped by limit.
func (h *APIHandler) recordsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf("invalid limit: %s", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	records := filterRecords(h.Source.Records(), q.Get("protocol"), q.Get("direction"))
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	if records == nil {
		records = []model.PacketRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *APIHandler) listExportsHandler(w http.ResponseWriter, _ *http.Request) {
	files, err := h.Exporter.ListCSVFiles()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list exports: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *APIHandler) createExportHandler(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
			return
		}
	}

	opts, err := req.options()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Filename != "" && filepath.Base(req.Filename) != req.Filename {
		http.Error(w, "filename must not contain a path", http.StatusBadRequest)
		return
	}

	records := filterRecords(h.Source.Records(), req.Protocol, req.Direction)
	if len(records) == 0 && (req.Protocol != "" || req.Direction != "") && len(h.Source.Records()) > 0 {
		http.Error(w, export.ErrNoMatch.Error(), http.StatusNotFound)
		return
	}

	res, err := h.Exporter.Export(records, req.Filename, opts)
	if errors.Is(err, export.ErrNoRecords) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to export: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, ExportResponse{
		File:    filepath.Base(res.Path),
		Records: res.Records,
		Message: res.Message,
	})
}

func (h *APIHandler) downloadExportHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if filepath.Base(name) != name || !strings.EqualFold(filepath.Ext(name), ".csv") {
		http.Error(w, "invalid export name", http.StatusBadRequest)
		return
	}

	path := filepath.Join(h.Exporter.Dir, name)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, fmt.Sprintf("failed to open export: %v", err), http.StatusInternalServerError)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to stat export: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), file)
}

func (h *APIHandler) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	if h.Summaries == nil {
		http.Error(w, "summary store is not configured", http.StatusServiceUnavailable)
		return
	}
	n := 20
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, fmt.Sprintf("invalid n: %s", v), http.StatusBadRequest)
			return
		}
		n = parsed
	}

	ids, err := h.Summaries.Recent(r.Context(), n)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list sessions: %v", err), http.StatusInternalServerError)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (h *APIHandler) sessionSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if h.Summaries == nil {
		http.Error(w, "summary store is not configured", http.StatusServiceUnavailable)
		return
	}
	stored, err := h.Summaries.Load(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, redisstore.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to load summary: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *APIHandler) distributionHandler(w http.ResponseWriter, r *http.Request) {
	if h.Querier == nil {
		http.Error(w, "clickhouse is not configured", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	f := clickhouse.Filter{SessionID: q.Get("session"), Protocol: q.Get("protocol")}
	for name, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		if v := q.Get(name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid %s: %v", name, err), http.StatusBadRequest)
				return
			}
			*dst = t
		}
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	dist, err := h.Querier.Distribution(r.Context(), mux.Vars(r)["column"], f, limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query distribution: %v", err), http.StatusBadRequest)
		return
	}
	if dist == nil {
		dist = report.Distribution{}
	}
	writeJSON(w, http.StatusOK, dist)
}

func (req ExportRequest) options() (export.Options, error) {
	opts := export.DefaultOptions()
	if req.PowerBI {
		opts = export.PowerBIOptions()
	}
	if req.IncludeHeader != nil {
		opts.IncludeHeader = *req.IncludeHeader
	}
	layout, ok := export.ParseLayout(req.Layout)
	if !ok {
		return opts, fmt.Errorf("unknown layout: %s", req.Layout)
	}
	opts.Layout = layout
	return opts, nil
}

func filterRecords(records []model.PacketRecord, protocol, direction string) []model.PacketRecord {
	if protocol == "" && direction == "" {
		return records
	}
	return export.Filter(records, func(r *model.PacketRecord) bool {
		if protocol != "" && !strings.EqualFold(r.Protocol, protocol) {
			return false
		}
		return direction == "" || strings.EqualFold(r.Direction, direction)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonBytes)
}
