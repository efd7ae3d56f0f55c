package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/reqmerge/internal/config"
	"github.com/hyperjump/reqmerge/internal/export"
	"github.com/hyperjump/reqmerge/internal/indexer"
	"github.com/hyperjump/reqmerge/internal/models"
	"github.com/hyperjump/reqmerge/internal/storage"
	"go.uber.org/zap"
)

// handleExtract runs a batch over the uploaded files, in upload order.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.config.Server.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
		return
	}
	var uploads []indexer.Upload
	if r.MultipartForm != nil {
		uploads = readUploads(r.MultipartForm.File["files"])
	}
	s.logger.Debug("extract request", zap.Int("files", len(uploads)))
	summary, err := s.indexer.IndexUploads(r.Context(), uploads)
	if err != nil {
		if errors.Is(err, indexer.ErrNoDocuments) {
			s.respondError(w, http.StatusBadRequest, "no files uploaded (use the \"files\" form field)")
			return
		}
		s.logger.Error("extraction failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

// readUploads reads the multipart files in order. A file that cannot be read becomes an
// upload carrying the error so the rest of the batch still runs.
func readUploads(files []*multipart.FileHeader) []indexer.Upload {
	uploads := make([]indexer.Upload, 0, len(files))
	for _, fh := range files {
		u := indexer.Upload{Name: filepath.Base(fh.Filename)}
		f, err := fh.Open()
		if err != nil {
			u.Err = fmt.Errorf("open upload: %w", err)
			uploads = append(uploads, u)
			continue
		}
		u.Content, err = io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			u.Content = nil
			u.Err = fmt.Errorf("read upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	return uploads
}

// queryFromRequest reads q, label, sort, desc, limit and fuzzy from the query string.
func queryFromRequest(r *http.Request) (*models.RequirementQuery, error) {
	v := r.URL.Query()
	q := &models.RequirementQuery{
		Term:   v.Get("q"),
		Label:  export.Unquote(v.Get("label")),
		SortBy: models.SortField(strings.ToLower(v.Get("sort"))),
	}
	var err error
	if s := v.Get("desc"); s != "" {
		if q.Descending, err = strconv.ParseBool(s); err != nil {
			return nil, errors.New("desc must be a boolean")
		}
	}
	if s := v.Get("fuzzy"); s != "" {
		if q.Fuzzy, err = strconv.ParseBool(s); err != nil {
			return nil, errors.New("fuzzy must be a boolean")
		}
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			return nil, errors.New("limit must be an integer")
		}
	}
	return q, nil
}

func (s *Server) handleListRequirements(w http.ResponseWriter, r *http.Request) {
	query, err := queryFromRequest(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("list request", zap.String("term", query.Term), zap.String("label", query.Label))
	response, err := s.engine.Search(r.Context(), query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetRequirement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := s.engine.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrRequirementNotFound) {
			s.respondError(w, http.StatusNotFound, "requirement not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, req)
}

type serviceRequest struct {
	Service *string `json:"service"`
}

func (s *Server) handleSetService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Service == nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("set service request", zap.String("id", id))
	req, err := s.indexer.SetService(r.Context(), id, *body.Service)
	if err != nil {
		if errors.Is(err, models.ErrRequirementNotFound) {
			s.respondError(w, http.StatusNotFound, "requirement not found")
			return
		}
		s.logger.Error("set service failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, req)
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.engine.Labels(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if labels == nil {
		labels = []models.SourceLabel{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"labels": labels})
}

// handleExport streams the stored collection as an xlsx or csv attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	format, err := export.ParseFormat(v.Get("format"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	includeService := s.config.Export.IncludeServiceOrDefault()
	if sv := v.Get("service"); sv != "" {
		if includeService, err = strconv.ParseBool(sv); err != nil {
			s.respondError(w, http.StatusBadRequest, "service must be a boolean")
			return
		}
	}
	var selected []string
	if l := v.Get("labels"); l != "" {
		selected = strings.Split(l, ",")
	}

	labels, coll, err := s.storage.LoadCollection(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	table := export.Project(coll, labels, export.Options{Labels: selected, IncludeService: includeService})
	var buf bytes.Buffer
	if err := export.Write(&buf, format, table, s.config.Export.SheetName); err != nil {
		s.logger.Error("export failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	name := export.Filename(time.Now(), string(format))
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqCount, err := s.storage.CountRequirements(ctx)
	if err != nil {
		s.logger.Error("status: count requirements failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	labelCount, err := s.storage.CountLabels(ctx)
	if err != nil {
		s.logger.Error("status: count labels failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"requirements": reqCount,
		"labels":       labelCount,
	}
	if n, err := s.engine.IndexedCount(); err == nil {
		resp["keyword_index_size"] = n
	}
	lastRun, err := s.storage.LastRun(ctx)
	if err != nil {
		s.logger.Warn("status: last run lookup failed", zap.Error(err))
	} else if lastRun != nil {
		resp["last_run"] = lastRun
	}

	// Add configuration info
	configInfo := map[string]interface{}{
		"database_path":    s.config.Storage.DatabasePath,
		"bleve_index_path": s.config.Storage.BleveIndexPath,
		"anchor_label":     s.config.Extraction.AnchorLabel,
		"code_prefix":      s.config.Extraction.CodePrefix,
		"workers":          s.config.Extraction.Workers,
	}
	if s.watch != nil {
		configInfo["watch_directories"] = s.watch.Directories()
	}
	paths := storage.DatabaseFiles(s.config.Storage.DatabasePath)
	if s.config.Storage.BleveIndexPath != "" {
		paths = append(paths, s.config.Storage.BleveIndexPath)
	}
	if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	dirs := s.watch.Directories()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": dirs})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
