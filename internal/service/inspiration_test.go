package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/timmy/surrogates/internal/domain"
)

func TestInspirationFind(t *testing.T) {
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD probe, got %s", r.Method)
		}
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer live.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	sites := []domain.Inspiration{
		{URL: live.URL + "/a", Description: "Bold typography"},
		{URL: live.URL + "/gone", Description: "Removed"},
		{URL: deadURL, Description: "Offline"},
		{URL: "not a url", Description: "Invalid"},
		{URL: live.URL + "/b", Description: "Minimal grid"},
	}
	payload, _ := json.Marshal(sites)

	var gotKey, gotPath string
	var gotReq geminiRequest
	gemini := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, "```json\n"+string(payload)+"\n```")
	}))
	defer gemini.Close()

	svc := NewInspirationService(InspirationConfig{
		APIKey:          "g-key",
		Model:           "gemini-test",
		BaseURL:         gemini.URL,
		LivenessTimeout: time.Second,
	})

	got, err := svc.Find(context.Background(), []string{"minimal", " ", "bold"}, 5)
	if err != nil {
		t.Fatalf("find: %v", err)
	}

	if gotKey != "g-key" || gotPath != "/models/gemini-test:generateContent" {
		t.Errorf("unexpected request key=%q path=%q", gotKey, gotPath)
	}
	if gotReq.GenerationConfig.ResponseMimeType != "application/json" {
		t.Errorf("expected JSON response type, got %q", gotReq.GenerationConfig.ResponseMimeType)
	}

	if len(got) != 2 || got[0].Description != "Bold typography" || got[1].Description != "Minimal grid" {
		t.Errorf("expected the two live sites in order, got %+v", got)
	}
}

func TestInspirationFindErrors(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"sorry, no JSON today"}]}}]}`)
	}))
	defer bad.Close()

	tests := []struct {
		name     string
		apiKey   string
		keywords []string
		wantErr  error
	}{
		{"missing key", "", []string{"x"}, domain.ErrProviderUnavailable},
		{"no keywords", "k", []string{" "}, domain.ErrInvalidRequest},
		{"malformed answer", "k", []string{"x"}, domain.ErrMalformedAIResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewInspirationService(InspirationConfig{APIKey: tt.apiKey, BaseURL: bad.URL})
			_, err := svc.Find(context.Background(), tt.keywords, 3)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
