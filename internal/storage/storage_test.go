package storage

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestSanitizeKey(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "shorts/a/scene-1.png", want: "shorts/a/scene-1.png"},
		{in: "/leading/slash.png", want: "leading/slash.png"},
		{in: "./dot/../clean.png", want: "clean.png"},
		{in: `windows\style.png`, want: "windows/style.png"},
		{in: "../escape.png", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestFileStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	url, err := store.Put(context.Background(), "shorts/x/scene-0.png", []byte("png"), "image/png")
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if url != "http://localhost:8080/static/shorts/x/scene-0.png" {
		t.Fatalf("url = %q", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "shorts", "x", "scene-0.png"))
	if err != nil || string(data) != "png" {
		t.Fatalf("stored file = %q, %v", data, err)
	}
}

func TestMirrorCopy(t *testing.T) {
	store, _ := NewFileStore(t.TempDir(), "https://cdn.test")
	mirror := NewMirror(store, &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"image/jpeg"}},
			Body:       io.NopCloser(strings.NewReader("jpeg-bytes")),
		}, nil
	})})
	url, err := mirror.Copy(context.Background(), "https://provider.test/img", SceneKey("job-1", 3))
	if err != nil {
		t.Fatalf("Copy returned error: %v", err)
	}
	if url != "https://cdn.test/shorts/job-1/scene-3.jpg" {
		t.Fatalf("url = %q", url)
	}
}

func TestMirrorCopyRejectsHTTPError(t *testing.T) {
	store, _ := NewFileStore(t.TempDir(), "")
	mirror := NewMirror(store, &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusNotFound, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(""))}, nil
	})})
	if _, err := mirror.Copy(context.Background(), "https://provider.test/missing", "k"); err == nil {
		t.Fatal("expected error for 404 download")
	}
}
