package unsplash

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/timmy/surrogates/internal/domain"
)

func TestFetchCandidates(t *testing.T) {
	var gotPerPage, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/photos" {
			http.NotFound(w, r)
			return
		}
		gotPerPage = r.URL.Query().Get("per_page")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total":2,"results":[
			{"id":"a1","description":"Red car","width":800,"height":600,
			 "urls":{"regular":"http://x/reg","full":"http://x/full"},"user":{"name":"Ann"}},
			{"id":"b2","description":"","alt_description":"blue sky","urls":{"regular":"http://x/r2"},"user":{}}
		]}`))
	}))
	defer srv.Close()

	a := NewAdapter("key", srv.URL, 5*time.Second)
	records, err := a.FetchCandidates(context.Background(), "cars", 100)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if gotPerPage != "30" {
		t.Errorf("expected per_page clamped to 30, got %s", gotPerPage)
	}
	if gotAuth != "Client-ID key" {
		t.Errorf("expected Client-ID auth, got %q", gotAuth)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	if first.SourceID != "a1" || first.DownloadURL != "http://x/full" || first.Author != "Ann" || first.Source != Name {
		t.Errorf("unexpected first record %+v", first)
	}
	second := records[1]
	if second.Description != "blue sky" {
		t.Errorf("expected alt description fallback, got %q", second.Description)
	}
	if second.Author != "Unknown" {
		t.Errorf("expected Unknown author, got %q", second.Author)
	}
	if second.BestURL() != "http://x/r2" {
		t.Errorf("expected display URL fallback, got %q", second.BestURL())
	}
}

func TestFetchCandidatesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tests := []struct {
		name   string
		apiKey string
	}{
		{"missing key", ""},
		{"rejected key", "bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(tt.apiKey, srv.URL, time.Second)
			_, err := a.FetchCandidates(context.Background(), "q", 5)
			if !errors.Is(err, domain.ErrProviderUnavailable) {
				t.Errorf("expected ErrProviderUnavailable, got %v", err)
			}
		})
	}
}

func TestDownloadBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/full":
			w.Write([]byte("image-bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	a := NewAdapter("key", srv.URL, time.Second)

	data, err := a.DownloadBytes(context.Background(), domain.ImageRecord{DownloadURL: srv.URL + "/full"})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("expected image-bytes, got %q", data)
	}

	if _, err := a.DownloadBytes(context.Background(), domain.ImageRecord{URL: srv.URL + "/gone"}); err == nil {
		t.Error("expected error for 404")
	}
	if _, err := a.DownloadBytes(context.Background(), domain.ImageRecord{}); err == nil {
		t.Error("expected error for empty URL")
	}
}
