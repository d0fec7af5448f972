// Package network exposes the workspace engine as a JSON-over-HTTP API.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/vusplatform/varspace/internal/domain/faults"
	"github.com/vusplatform/varspace/internal/domain/table"
	"github.com/vusplatform/varspace/internal/domain/variant"
	"github.com/vusplatform/varspace/internal/query"
	"github.com/vusplatform/varspace/internal/workspace"
)

// Server routes API requests to a workspace engine.
type Server struct {
	engine *workspace.Engine
	mux    *http.ServeMux
	http   *http.Server
}

// NewServer builds the API server over an engine.
func NewServer(engine *workspace.Engine) *Server {
	s := &Server{engine: engine, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /v1/files", s.handleListFiles)
	s.mux.HandleFunc("POST /v1/files", s.handleImportFile)
	s.mux.HandleFunc("DELETE /v1/files", s.handleDeleteFile)
	s.mux.HandleFunc("POST /v1/page", s.handlePage)
	s.mux.HandleFunc("POST /v1/save", s.handleSave)
	s.mux.HandleFunc("POST /v1/aggregate", s.handleAggregate)
	s.mux.HandleFunc("POST /v1/merge", s.handleMerge)
	s.mux.HandleFunc("POST /v1/apply", s.handleApply)
	s.mux.HandleFunc("GET /v1/operations", s.handleOperations)
	return s
}

// Start serves the API on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // annotation runs shell out per variant
	}
	slog.Info("api listening", slog.String("addr", addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// status maps an engine error to its HTTP status.
func status(err error) int {
	var (
		notFound *faults.NotFoundError
		conflict *faults.ConflictError
		pathConf *faults.PathConflictError
		busy     *faults.BusyError
		invalid  *faults.ValidationError
		badExt   *faults.InvalidExtensionError
		provider *faults.ProviderError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict), errors.As(err, &pathConf):
		return http.StatusConflict
	case errors.As(err, &busy):
		return http.StatusLocked
	case errors.As(err, &invalid), errors.As(err, &badExt):
		return http.StatusUnprocessableEntity
	case errors.As(err, &provider):
		if provider.Systemic {
			return http.StatusInternalServerError
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, status(err), map[string]string{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) handleListFiles(w http.ResponseWriter, _ *http.Request) {
	files, err := s.engine.ListFiles()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"files": files})
}

type importRequest struct {
	File     string      `json:"file"`
	Header   []string    `json:"header"`
	Rows     []table.Row `json:"rows"`
	Override bool        `json:"override"`
}

func (s *Server) handleImportFile(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decode(w, r, &req) {
		return
	}
	tbl, err := table.New(req.Header, req.Rows)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.ImportTable(req.File, tbl, req.Override); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"created": req.File})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	if file == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing 'file' parameter"})
		return
	}
	if err := s.engine.DeleteFile(file); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": file})
}

type pageRequest struct {
	File        string           `json:"file"`
	Page        int              `json:"page"`
	RowsPerPage int              `json:"rowsPerPage"`
	Sort        query.SortSpec   `json:"sort,omitempty"`
	Filter      query.FilterSpec `json:"filter,omitempty"`
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if !decode(w, r, &req) {
		return
	}
	page, err := s.engine.GetPage(req.File, req.Page, req.RowsPerPage, req.Sort, req.Filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type saveRequest struct {
	pageRequest
	Header []string    `json:"header"`
	Rows   []table.Row `json:"rows"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if !decode(w, r, &req) {
		return
	}
	err := s.engine.Save(req.File, req.Header, req.Rows, req.Page, req.RowsPerPage, req.Sort, req.Filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"saved": req.File})
}

type aggregateRequest struct {
	File         string                `json:"file"`
	Aggregations query.AggregationSpec `json:"aggregations"`
	Filter       query.FilterSpec      `json:"filter,omitempty"`
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if !decode(w, r, &req) {
		return
	}
	results, err := s.engine.ComputeAll(req.File, req.Aggregations, req.Filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type mergeRequest struct {
	SavePath string                  `json:"savePath"`
	Sources  map[variant.Role]string `json:"sources"`
	Override bool                    `json:"override"`
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := s.engine.MergeSources(r.Context(), req.SavePath, req.Sources, req.Override)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type applyRequest struct {
	SavePath string       `json:"savePath"`
	Tool     string       `json:"tool"`
	Source   string       `json:"source"`
	Role     variant.Role `json:"role,omitempty"`
	Override bool         `json:"override"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := s.engine.ApplyAnnotation(r.Context(), req.SavePath, req.Tool, req.Source, req.Role, req.Override)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	entries, err := s.engine.RecentOperations(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"operations": entries})
}
