package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/timmy/surrogates/internal/config"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}
	return s
}

func put(t *testing.T, s ObjectStorage, key, body string) {
	t.Helper()
	if err := s.Upload(context.Background(), key, strings.NewReader(body), int64(len(body)), "image/jpeg"); err != nil {
		t.Fatalf("upload %s: %v", key, err)
	}
}

func TestLocalStorageRoundTrip(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	put(t, s, "job/001_a.jpg", "jpeg-bytes")

	rc, err := s.Download(ctx, "job/001_a.jpg")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(data, []byte("jpeg-bytes")) {
		t.Errorf("expected jpeg-bytes, got %q", data)
	}

	ok, err := s.Exists(ctx, "job/001_a.jpg")
	if err != nil || !ok {
		t.Errorf("expected object to exist, got %v %v", ok, err)
	}

	want := filepath.Join(s.Root(), "job", "001_a.jpg")
	if got := s.GetURL("job/001_a.jpg"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	if err := s.Delete(ctx, "job/001_a.jpg"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Download(ctx, "job/001_a.jpg"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalStorageList(t *testing.T) {
	s := newLocal(t)
	put(t, s, "job/002_b.jpg", "b")
	put(t, s, "job/001_a.jpg", "a")
	put(t, s, "other/001_x.jpg", "x")

	keys, err := s.List(context.Background(), "job/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 || keys[0] != "job/001_a.jpg" || keys[1] != "job/002_b.jpg" {
		t.Errorf("expected sorted job keys, got %v", keys)
	}

	empty, err := s.List(context.Background(), "missing")
	if err != nil {
		t.Fatalf("list missing: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no keys, got %v", empty)
	}
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	keys := []string{"../outside.jpg", "job/../../outside.jpg", "job/..", "", "..\\x.jpg"}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			if err := s.Upload(ctx, key, strings.NewReader("x"), 1, "image/jpeg"); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("expected ErrInvalidKey on upload, got %v", err)
			}
			if _, err := s.Download(ctx, key); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("expected ErrInvalidKey on download, got %v", err)
			}
		})
	}
}

func TestJoinKey(t *testing.T) {
	tests := []struct {
		jobID    string
		filename string
		want     string
		wantErr  bool
	}{
		{"job", "001_a.jpg", "job/001_a.jpg", false},
		{"job", "../x.jpg", "", true},
		{"job", "a/b.jpg", "", true},
		{"..", "a.jpg", "", true},
		{"job", "", "", true},
		{"job", `a\b.jpg`, "", true},
	}
	for _, tt := range tests {
		got, err := JoinKey(tt.jobID, tt.filename)
		if (err != nil) != tt.wantErr {
			t.Errorf("JoinKey(%q, %q): unexpected error %v", tt.jobID, tt.filename, err)
			continue
		}
		if got != tt.want {
			t.Errorf("JoinKey(%q, %q): expected %q, got %q", tt.jobID, tt.filename, tt.want, got)
		}
	}
}

func TestNewStorageLocal(t *testing.T) {
	s, err := NewStorage(context.Background(), &config.StorageConfig{Type: "local", ImagesRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	if _, ok := s.(*LocalStorage); !ok {
		t.Errorf("expected *LocalStorage, got %T", s)
	}

	if _, err := NewStorage(context.Background(), &config.StorageConfig{Type: "ftp"}); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestDetectStorageType(t *testing.T) {
	tests := map[string]StorageType{
		"https://acct.r2.cloudflarestorage.com": StorageTypeR2,
		"s3.us-east-1.amazonaws.com":            StorageTypeS3,
		"minio.local:9000":                      StorageTypeS3Compatible,
	}
	for endpoint, want := range tests {
		if got := detectStorageType(endpoint); got != want {
			t.Errorf("detectStorageType(%q): expected %s, got %s", endpoint, want, got)
		}
	}
}
