package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/reqmerge/internal/config"
	"github.com/hyperjump/reqmerge/internal/extract"
	"github.com/hyperjump/reqmerge/internal/indexer"
	"github.com/hyperjump/reqmerge/internal/keyword"
	"github.com/hyperjump/reqmerge/internal/models"
	"github.com/hyperjump/reqmerge/internal/requirements"
	"github.com/hyperjump/reqmerge/internal/search"
	"github.com/hyperjump/reqmerge/internal/storage"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockWatchService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockWatchService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

func newTestServer(t *testing.T, watch WatchService) (*Server, *indexer.Indexer) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "db.sqlite")
	cfg.Storage.BleveIndexPath = filepath.Join(dir, "bleve")

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	kwIdx, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIdx.Close() })
	engine, err := requirements.NewEngine(&cfg.Extraction)
	if err != nil {
		t.Fatal(err)
	}
	idx := indexer.NewIndexer(store, kwIdx, engine, extract.NewExtractor())
	searchEngine := search.NewEngine(store, kwIdx)
	return NewServer(searchEngine, idx, store, cfg, zap.NewNop(), watch, ""), idx
}

func seed(t *testing.T, idx *indexer.Indexer) {
	t.Helper()
	_, err := idx.IndexUploads(context.Background(), []indexer.Upload{
		{Name: "reqs_1.0.txt", Content: []byte("GUID: CYS-100\nEncrypt backups.\nGUID: CYS-101 (information only)\nScope note.\n")},
		{Name: "reqs_2.0.txt", Content: []byte("GUID: CYS-100\nEncrypt backups with managed keys.\n")},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func do(t *testing.T, srv *Server, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	return w
}

func TestHandleExtract(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range map[string]string{
		"a_1.0.txt": "GUID: CYS-1\nFirst.\n",
	} {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(content))
	}
	fw, _ := mw.CreateFormFile("files", "b_2.0.docx")
	_, _ = fw.Write([]byte("not a zip"))
	_ = mw.Close()

	w := do(t, srv, http.MethodPost, "/api/v1/extract", body.Bytes(), mw.FormDataContentType())
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out indexer.Summary
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.Stored || out.Run.Requirements != 1 || out.Run.Failed != 1 {
		t.Errorf("summary: %+v", out)
	}
	if len(out.Documents) != 2 || out.Documents[1].Error == "" {
		t.Errorf("documents: %+v", out.Documents)
	}
}

func TestReadUploads_UnreadableFileFailsAlone(t *testing.T) {
	_, idx := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("files", "a_1.0.txt")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("GUID: CYS-1\nFirst.\n"))
	_ = mw.Close()
	form, err := multipart.NewReader(&body, mw.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	// a header without content or temp file cannot be opened
	files := append(form.File["files"], &multipart.FileHeader{Filename: "uploads/b_2.0.pdf"})

	uploads := readUploads(files)
	if len(uploads) != 2 {
		t.Fatalf("uploads = %d, want 2", len(uploads))
	}
	if uploads[0].Err != nil || string(uploads[0].Content) != "GUID: CYS-1\nFirst.\n" {
		t.Errorf("first upload = %+v", uploads[0])
	}
	if uploads[1].Err == nil || uploads[1].Name != "b_2.0.pdf" {
		t.Errorf("second upload = %+v", uploads[1])
	}

	summary, err := idx.IndexUploads(context.Background(), uploads)
	if err != nil {
		t.Fatalf("IndexUploads: %v", err)
	}
	if !summary.Stored || summary.Run.Requirements != 1 || summary.Run.Failed != 1 {
		t.Errorf("summary: %+v", summary)
	}
}

func TestHandleExtract_NoFiles(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("note", "nothing")
	_ = mw.Close()
	w := do(t, srv, http.MethodPost, "/api/v1/extract", body.Bytes(), mw.FormDataContentType())
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleListRequirements(t *testing.T) {
	srv, idx := newTestServer(t, nil)
	seed(t, idx)

	tests := []struct {
		target string
		code   int
		ids    []string
	}{
		{"/api/v1/requirements", http.StatusOK, []string{"CYS-100", "CYS-101"}},
		{"/api/v1/requirements?desc=true", http.StatusOK, []string{"CYS-101", "CYS-100"}},
		{"/api/v1/requirements?label=2.0", http.StatusOK, []string{"CYS-100"}},
		{"/api/v1/requirements?label='2.0'", http.StatusOK, []string{"CYS-100"}},
		{"/api/v1/requirements?q=managed", http.StatusOK, []string{"CYS-100"}},
		{"/api/v1/requirements?q=information", http.StatusOK, []string{"CYS-101"}},
		{"/api/v1/requirements?sort=kind&limit=1", http.StatusOK, []string{"CYS-101"}},
		{"/api/v1/requirements?sort=body", http.StatusBadRequest, nil},
		{"/api/v1/requirements?limit=x", http.StatusBadRequest, nil},
		{"/api/v1/requirements?desc=maybe", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		w := do(t, srv, http.MethodGet, tt.target, nil, "")
		if w.Code != tt.code {
			t.Errorf("%s: status %d, want %d (%s)", tt.target, w.Code, tt.code, w.Body.String())
			continue
		}
		if tt.code != http.StatusOK {
			continue
		}
		var out models.RequirementResponse
		if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		var ids []string
		for _, r := range out.Requirements {
			ids = append(ids, r.ID)
		}
		if strings.Join(ids, ",") != strings.Join(tt.ids, ",") {
			t.Errorf("%s: ids %v, want %v", tt.target, ids, tt.ids)
		}
	}
}

func TestHandleGetRequirement(t *testing.T) {
	srv, idx := newTestServer(t, nil)
	seed(t, idx)

	w := do(t, srv, http.MethodGet, "/api/v1/requirements/CYS-100", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var r models.Requirement
	if err := json.NewDecoder(w.Body).Decode(&r); err != nil {
		t.Fatal(err)
	}
	if r.Bodies["2.0"] != "Encrypt backups with managed keys." {
		t.Errorf("bodies: %v", r.Bodies)
	}

	w = do(t, srv, http.MethodGet, "/api/v1/requirements/CYS-404", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing id: got %d, want 404", w.Code)
	}
}

func TestHandleSetService(t *testing.T) {
	srv, idx := newTestServer(t, nil)
	seed(t, idx)

	w := do(t, srv, http.MethodPut, "/api/v1/requirements/CYS-100/service", []byte(`{"service":"Backup"}`), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	w = do(t, srv, http.MethodGet, "/api/v1/requirements?q=backup&sort=service", nil, "")
	if !strings.Contains(w.Body.String(), `"service":"Backup"`) {
		t.Errorf("service not listed: %s", w.Body.String())
	}

	w = do(t, srv, http.MethodPut, "/api/v1/requirements/CYS-404/service", []byte(`{"service":"x"}`), "application/json")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id: got %d, want 404", w.Code)
	}
	w = do(t, srv, http.MethodPut, "/api/v1/requirements/CYS-100/service", []byte(`{}`), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing service: got %d, want 400", w.Code)
	}
}

func TestHandleLabels(t *testing.T) {
	srv, idx := newTestServer(t, nil)
	w := do(t, srv, http.MethodGet, "/api/v1/labels", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"labels":[]`) {
		t.Errorf("empty labels: %d %s", w.Code, w.Body.String())
	}
	seed(t, idx)
	w = do(t, srv, http.MethodGet, "/api/v1/labels", nil, "")
	var out struct {
		Labels []models.SourceLabel `json:"labels"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Labels) != 2 || out.Labels[0].Label != "1.0" || out.Labels[1].Filename != "reqs_2.0.txt" {
		t.Errorf("labels: %+v", out.Labels)
	}
}

func TestHandleExport_CSV(t *testing.T) {
	srv, idx := newTestServer(t, nil)
	seed(t, idx)

	w := do(t, srv, http.MethodGet, "/api/v1/export?format=csv&labels='2.0'&service=false", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "Requirements_Export_") || !strings.Contains(cd, ".csv") {
		t.Errorf("Content-Disposition: %q", cd)
	}
	rows, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"Identifier", "Description", "Cadence 2.0"},
		{"CYS-100", "Requirement", "Encrypt backups with managed keys."},
		{"CYS-101", "Information", ""},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows: %v", rows)
	}
	for i := range want {
		if strings.Join(rows[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d: %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestHandleExport_XLSX(t *testing.T) {
	srv, idx := newTestServer(t, nil)
	seed(t, idx)

	w := do(t, srv, http.MethodGet, "/api/v1/export", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("Requirements")
	if err != nil {
		t.Fatal(err)
	}
	header := strings.Join(rows[0], "|")
	if header != "Identifier|Description|Cadence 1.0|Cadence 2.0|Service" {
		t.Errorf("header: %s", header)
	}
	if len(rows) != 3 {
		t.Errorf("rows: %d, want 3", len(rows))
	}
}

func TestHandleExport_BadFormat(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := do(t, srv, http.MethodGet, "/api/v1/export?format=pdf", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, idx := newTestServer(t, nil)
	seed(t, idx)

	w := do(t, srv, http.MethodGet, "/api/v1/status", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Requirements     int64       `json:"requirements"`
		Labels           int64       `json:"labels"`
		KeywordIndexSize uint64      `json:"keyword_index_size"`
		LastRun          *models.Run `json:"last_run"`
		DiskUsageBytes   *int64      `json:"disk_usage_bytes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Requirements != 2 || out.Labels != 2 || out.KeywordIndexSize != 2 {
		t.Errorf("counts: %+v", out)
	}
	if out.LastRun == nil || out.LastRun.Documents != 2 {
		t.Errorf("last_run: %+v", out.LastRun)
	}
	if out.DiskUsageBytes == nil || *out.DiskUsageBytes < 1 {
		t.Errorf("disk_usage_bytes: %v", out.DiskUsageBytes)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := do(t, srv, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleWatchDirectoriesList(t *testing.T) {
	mock := &mockWatchService{dirs: []string{"/tmp/docs"}}
	srv, _ := newTestServer(t, mock)

	w := do(t, srv, http.MethodGet, "/api/v1/watch/directories", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Directories) != 1 || out.Directories[0] != "/tmp/docs" {
		t.Errorf("directories: got %v", out.Directories)
	}
}

func TestHandleWatchDirectoriesList_NotEnabled(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := do(t, srv, http.MethodGet, "/api/v1/watch/directories", nil, "")
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", w.Code)
	}
}

func TestHandleWatchDirectoriesAdd(t *testing.T) {
	mock := &mockWatchService{}
	srv, _ := newTestServer(t, mock)
	dir := t.TempDir()
	srv.configPath = filepath.Join(dir, "reqmerge.yaml")

	body, _ := json.Marshal(map[string]string{"path": dir})
	w := do(t, srv, http.MethodPost, "/api/v1/watch/directories", body, "application/json")
	if w.Code != http.StatusCreated {
		t.Errorf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	if len(mock.Directories()) != 1 {
		t.Errorf("expected 1 directory, got %v", mock.Directories())
	}
	saved, err := config.Load(srv.configPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.Watch.Directories) != 1 || saved.Watch.Directories[0] != dir {
		t.Errorf("persisted directories: %v", saved.Watch.Directories)
	}
}

func TestHandleWatchDirectoriesAdd_InvalidPath(t *testing.T) {
	mock := &mockWatchService{}
	srv, _ := newTestServer(t, mock)
	body, _ := json.Marshal(map[string]string{"path": filepath.Join(t.TempDir(), "nonexistent")})
	w := do(t, srv, http.MethodPost, "/api/v1/watch/directories", body, "application/json")
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleWatchDirectoriesRemove(t *testing.T) {
	dir := t.TempDir()
	mock := &mockWatchService{dirs: []string{dir}}
	srv, _ := newTestServer(t, mock)

	w := do(t, srv, http.MethodDelete, "/api/v1/watch/directories?path="+dir, nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	if len(mock.Directories()) != 0 {
		t.Errorf("expected 0 directories, got %v", mock.Directories())
	}
}
