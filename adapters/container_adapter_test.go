package adapters

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestHTTPContainerAdapter_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/containers/GTM-ABCD" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "k" {
			t.Error("expected X-API-Key header")
		}
		w.Header().Set("ETag", `"v7"`)
		w.Write([]byte(`{"tags":[]}`))
	}))
	defer server.Close()

	adapter := NewHTTPContainerAdapter(server.URL+"/", map[string]string{"X-API-Key": "k"})
	c, err := adapter.Fetch(context.Background(), "GTM-ABCD")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if c.ID != "GTM-ABCD" || c.Version != "v7" || c.Source != SourceNetwork {
		t.Fatalf("unexpected container: %+v", c)
	}
	if string(c.Raw) != `{"tags":[]}` {
		t.Fatalf("unexpected raw body: %s", c.Raw)
	}
}

func TestHTTPContainerAdapter_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := NewHTTPContainerAdapter(server.URL, nil).Fetch(context.Background(), "GTM-NONE")
	if !errors.Is(err, ErrContainerNotFound) {
		t.Fatalf("expected ErrContainerNotFound, got %v", err)
	}
}

func TestHTTPContainerAdapter_InvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	if _, err := NewHTTPContainerAdapter(server.URL, nil).Fetch(context.Background(), "GTM-X"); err == nil {
		t.Fatal("expected error for invalid body")
	}
}

func TestFileResourceAdapter_Open(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gtm_abcd.json"), []byte(`{"default":true}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	adapter := NewFileResourceAdapter(dir)
	c, err := adapter.Open("gtm_abcd")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if c.Source != SourceDefault || string(c.Raw) != `{"default":true}` {
		t.Fatalf("unexpected container: %+v", c)
	}

	if _, err := adapter.Open("missing"); !errors.Is(err, ErrContainerNotFound) {
		t.Fatalf("expected ErrContainerNotFound, got %v", err)
	}
	if _, err := adapter.Open("../escape"); err == nil {
		t.Fatal("expected error for path traversal")
	}
}
