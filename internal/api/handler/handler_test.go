package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/repository"
	"github.com/timmy/surrogates/internal/service"
	"github.com/timmy/surrogates/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeJobs struct {
	startErr    error
	analyzeErr  error
	jobs        map[string]domain.Job
	lastRequest service.DownloadRequest
	lastPath    string
}

func (f *fakeJobs) StartDownload(ctx context.Context, req service.DownloadRequest) (string, error) {
	f.lastRequest = req
	if f.startErr != nil {
		return "", f.startErr
	}
	return "job-1", nil
}

func (f *fakeJobs) StartAnalysis(ctx context.Context, jobID, guidelinePath string) error {
	f.lastPath = guidelinePath
	return f.analyzeErr
}

func (f *fakeJobs) Status(jobID string) (domain.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return job, nil
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func newJobRouter(jobs *fakeJobs, uploadsDir string) *gin.Engine {
	h := NewJobHandler(jobs, uploadsDir)
	r := gin.New()
	r.POST("/api/download-images", h.DownloadImages)
	r.POST("/api/analyze-images", h.AnalyzeImages)
	r.GET("/api/job-status/:job_id", h.JobStatus)
	return r
}

func TestDownloadImages(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		startErr   error
		wantStatus int
	}{
		{"started", gin.H{"query": "mountains", "provider": "pexels", "limit": 5}, nil, http.StatusOK},
		{"missing query", gin.H{"provider": "pexels"}, nil, http.StatusBadRequest},
		{"limit too high", gin.H{"query": "q", "limit": 500}, nil, http.StatusBadRequest},
		{"unknown provider", gin.H{"query": "q", "provider": "x"}, domain.ErrUnknownProvider, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := &fakeJobs{startErr: tt.startErr}
			w := doJSON(newJobRouter(jobs, ""), http.MethodPost, "/api/download-images", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				body := decodeBody(t, w)
				if body["job_id"] != "job-1" || body["status"] != "started" {
					t.Errorf("unexpected body %v", body)
				}
				if jobs.lastRequest.Provider != "pexels" || jobs.lastRequest.Limit != 5 {
					t.Errorf("unexpected request %+v", jobs.lastRequest)
				}
			}
		})
	}
}

func TestAnalyzeImages(t *testing.T) {
	uploads := t.TempDir()
	inside := filepath.Join(uploads, "abc_guide.pdf")

	tests := []struct {
		name       string
		body       interface{}
		analyzeErr error
		wantStatus int
	}{
		{"started", gin.H{"job_id": "job-1", "guideline_path": inside}, nil, http.StatusOK},
		{"running", gin.H{"job_id": "job-1", "guideline_path": inside}, domain.ErrJobRunning, http.StatusConflict},
		{"outside uploads", gin.H{"job_id": "job-1", "guideline_path": "/etc/passwd"}, nil, http.StatusBadRequest},
		{"traversal", gin.H{"job_id": "job-1", "guideline_path": filepath.Join(uploads, "..", "x.pdf")}, nil, http.StatusBadRequest},
		{"missing job id", gin.H{"guideline_path": inside}, nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := &fakeJobs{analyzeErr: tt.analyzeErr}
			w := doJSON(newJobRouter(jobs, uploads), http.MethodPost, "/api/analyze-images", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestJobStatus(t *testing.T) {
	jobs := &fakeJobs{jobs: map[string]domain.Job{
		"job-1": {ID: "job-1", Kind: domain.JobKindDownload, Status: domain.JobStatusDownloading, Progress: 40},
	}}
	r := newJobRouter(jobs, "")

	w := doJSON(r, http.MethodGet, "/api/job-status/job-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "downloading" || body["progress"] != float64(40) || body["type"] != "download" {
		t.Errorf("unexpected body %v", body)
	}

	w = doJSON(r, http.MethodGet, "/api/job-status/unknown", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "Job not found" {
		t.Errorf("unexpected error body %v", body)
	}
}

func TestServeImage(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	data := []byte("jpeg-bytes")
	if err := store.Upload(context.Background(), "job-1/001_a.jpg", bytes.NewReader(data), int64(len(data)), "image/jpeg"); err != nil {
		t.Fatal(err)
	}

	h := NewImageHandler(store)
	r := gin.New()
	r.GET("/api/image/:job_id/:filename", h.ServeImage)
	r.GET("/api/images/:job_id", h.ListImages)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"existing", "/api/image/job-1/001_a.jpg", http.StatusOK},
		{"missing", "/api/image/job-1/999.jpg", http.StatusNotFound},
		{"traversal job", "/api/image/../001_a.jpg", http.StatusNotFound},
		{"encoded traversal", "/api/image/job-1/..%2F..%2Fsecret", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == http.StatusOK {
				if w.Body.String() != "jpeg-bytes" || w.Header().Get("Content-Type") != "image/jpeg" {
					t.Errorf("unexpected response %q (%s)", w.Body.String(), w.Header().Get("Content-Type"))
				}
			}
		})
	}

	w := doJSON(r, http.MethodGet, "/api/images/job-1", nil)
	body := decodeBody(t, w)
	if body["total"] != float64(1) {
		t.Errorf("expected one listed image, got %v", body)
	}
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload-guideline", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadGuideline(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	h := NewUploadHandler(dir, 1<<20)
	r := gin.New()
	r.POST("/api/upload-guideline", h.UploadGuideline)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "Brand Book.PDF", []byte("%PDF-1.4 test")))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	path, _ := body["file_path"].(string)
	if !strings.HasPrefix(path, dir) || !strings.HasSuffix(path, "_Brand Book.pdf") {
		t.Errorf("unexpected file path %q", path)
	}
	if got, err := os.ReadFile(path); err != nil || string(got) != "%PDF-1.4 test" {
		t.Errorf("unexpected stored file %q (%v)", got, err)
	}
	if body["filename"] != "Brand Book.PDF" {
		t.Errorf("unexpected filename %v", body["filename"])
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "notes.txt", []byte("hi")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-PDF, got %d", w.Code)
	}
}

func TestResults(t *testing.T) {
	results, err := repository.NewFileResultStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := results.Save(&domain.AnalysisResult{
		JobID:   "job-1",
		Ratings: []domain.Rating{{Filename: "001_a.jpg", Score: 9, Status: domain.RatingExcellent}},
	}); err != nil {
		t.Fatal(err)
	}

	h := NewResultHandler(results, nil)
	r := gin.New()
	r.GET("/api/results/:job_id", h.GetResult)
	r.GET("/api/analyses", h.ListAnalyses)

	w := doJSON(r, http.MethodGet, "/api/results/job-1", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "001_a.jpg") {
		t.Errorf("unexpected response %d %s", w.Code, w.Body.String())
	}
	if w := doJSON(r, http.MethodGet, "/api/results/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/api/analyses", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without history, got %d", w.Code)
	}
}

type fakeHistory struct {
	records []domain.AnalysisRecord
	limit   int
}

func (f *fakeHistory) ListRecent(ctx context.Context, limit int) ([]domain.AnalysisRecord, error) {
	f.limit = limit
	return f.records, nil
}

func TestListAnalyses(t *testing.T) {
	history := &fakeHistory{records: []domain.AnalysisRecord{{JobID: "a"}, {JobID: "b"}}}
	h := NewResultHandler(nil, history)
	r := gin.New()
	r.GET("/api/analyses", h.ListAnalyses)

	w := doJSON(r, http.MethodGet, "/api/analyses?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if history.limit != 5 || decodeBody(t, w)["total"] != float64(2) {
		t.Errorf("unexpected listing %s (limit %d)", w.Body.String(), history.limit)
	}
	if w := doJSON(r, http.MethodGet, "/api/analyses?limit=abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

type fakeFinder struct {
	sites []domain.Inspiration
	err   error
}

func (f *fakeFinder) Find(ctx context.Context, keywords []string, count int) ([]domain.Inspiration, error) {
	return f.sites, f.err
}

func TestFindInspiration(t *testing.T) {
	tests := []struct {
		name       string
		finder     *fakeFinder
		body       interface{}
		wantStatus int
	}{
		{"found", &fakeFinder{sites: []domain.Inspiration{{URL: "https://a.test", Description: "x"}}}, gin.H{"keywords": []string{"bold"}}, http.StatusOK},
		{"no keywords", &fakeFinder{}, gin.H{"keywords": []string{}}, http.StatusBadRequest},
		{"no api key", &fakeFinder{err: domain.ErrProviderUnavailable}, gin.H{"keywords": []string{"bold"}}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewInspirationHandler(tt.finder)
			r := gin.New()
			r.POST("/api/inspiration", h.FindInspiration)
			w := doJSON(r, http.MethodPost, "/api/inspiration", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestProviders(t *testing.T) {
	h := NewHealthHandler(func() []string { return []string{"pexels", "unsplash"} })
	r := gin.New()
	r.GET("/api/providers", h.Providers)

	w := doJSON(r, http.MethodGet, "/api/providers", nil)
	if w.Body.String() != `{"providers":["pexels","unsplash"]}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}
