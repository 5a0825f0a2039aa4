package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/timmy/surrogates/internal/config"
	"github.com/timmy/surrogates/internal/progress"
	"github.com/timmy/surrogates/internal/repository"
	"github.com/timmy/surrogates/internal/storage"
)

func TestSetupRouterRoutes(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	results, err := repository.NewFileResultStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	r := SetupRouter(&config.ServerConfig{Mode: "test", MaxUploadMB: 1}, Dependencies{
		Progress:   progress.New(4),
		Storage:    store,
		Providers:  func() []string { return []string{"unsplash"} },
		Results:    results,
		UploadsDir: t.TempDir(),
	})

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/providers", http.StatusOK},
		{http.MethodGet, "/api/results/nope", http.StatusNotFound},
		{http.MethodGet, "/api/analyses", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/image/job/missing.jpg", http.StatusNotFound},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Errorf("expected request id header")
			}
		})
	}
}
