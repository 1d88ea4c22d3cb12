package collector_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tagmanager "github.com/Tap30/tagmanager-go"
	"github.com/Tap30/tagmanager-go/adapters"
	"github.com/Tap30/tagmanager-go/analytics"
	"github.com/Tap30/tagmanager-go/internal/collector"
	"github.com/rs/zerolog"
)

func newCollector(t *testing.T, apiKey string) (*collector.Collector, *httptest.Server) {
	t.Helper()
	c := collector.New(collector.Options{APIKey: apiKey, Logger: zerolog.Nop()})
	srv := httptest.NewServer(c.Handler())
	t.Cleanup(srv.Close)
	return c, srv
}

func TestCollector_AcceptsHits(t *testing.T) {
	c, srv := newCollector(t, "")
	adapter := adapters.NewNetHTTPAdapter(time.Second)

	hits := []adapters.Hit{{ID: "h1", Payload: adapters.NewRecord("event", "content-view")}}
	resp, err := adapter.Send(context.Background(), srv.URL+"/hits", hits, nil)
	if err != nil || !resp.OK {
		t.Fatalf("send: %+v, %v", resp, err)
	}
	got := c.Hits()
	if len(got) != 1 || got[0].ID != "h1" {
		t.Fatalf("unexpected hits %+v", got)
	}
}

func TestCollector_TriggerError(t *testing.T) {
	c, srv := newCollector(t, "")
	adapter := adapters.NewNetHTTPAdapter(time.Second)

	hits := []adapters.Hit{{ID: "h1", Payload: adapters.NewRecord("trigger_error", true)}}
	resp, err := adapter.Send(context.Background(), srv.URL+"/hits", hits, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Status)
	}
	if c.Batches() != 0 {
		t.Fatal("expected failed batch not to be recorded")
	}
}

func TestCollector_RequiresAPIKey(t *testing.T) {
	_, srv := newCollector(t, "secret")
	adapter := adapters.NewNetHTTPAdapter(time.Second)

	resp, _ := adapter.Send(context.Background(), srv.URL+"/hits", nil, nil)
	if resp.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Status)
	}
	resp, _ = adapter.Send(context.Background(), srv.URL+"/hits", nil, map[string]string{"X-API-Key": "secret"})
	if !resp.OK {
		t.Fatalf("expected 200 with key, got %d", resp.Status)
	}
}

func TestCollector_ServesContainers(t *testing.T) {
	c, srv := newCollector(t, "")
	c.PublishContainer("GTM-ABCD", "v9", json.RawMessage(`{"tags":["a"]}`))
	adapter := adapters.NewHTTPContainerAdapter(srv.URL, nil)

	ct, err := adapter.Fetch(context.Background(), "GTM-ABCD")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if ct.Version != "v9" || string(ct.Raw) != `{"tags":["a"]}` {
		t.Fatalf("unexpected container %+v", ct)
	}
	if _, err := adapter.Fetch(context.Background(), "GTM-NONE"); err == nil {
		t.Fatal("expected not found")
	}
}

// TestEndToEnd drives the plugin through the bundled SDK against the collector.
func TestEndToEnd(t *testing.T) {
	c, srv := newCollector(t, "key")
	c.PublishContainer("GTM-E2E", "v1", json.RawMessage(`{"tags":[]}`))

	dir := t.TempDir()
	sdk, err := analytics.NewClient(analytics.Config{
		APIKey:           "key",
		Endpoint:         srv.URL + "/hits",
		HTTPAdapter:      adapters.NewNetHTTPAdapter(time.Second),
		StorageAdapter:   adapters.NewFileStorageAdapter(filepath.Join(dir, "hits.json")),
		ContainerAdapter: adapters.NewHTTPContainerAdapter(srv.URL, map[string]string{"X-API-Key": "key"}),
		ResourceAdapter:  adapters.NewFileResourceAdapter(dir),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := sdk.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sdk.Dispose()

	plugin, err := tagmanager.NewPlugin(tagmanager.PluginConfig{SDK: sdk})
	if err != nil {
		t.Fatalf("new plugin: %v", err)
	}
	defer plugin.Close()

	run := func(action string, args ...any) tagmanager.Result {
		var res tagmanager.Result
		plugin.Execute(context.Background(), action, args, func(r tagmanager.Result) { res = r })
		return res
	}

	if r := run("initGTM", "GTM-E2E", 0); !r.OK {
		t.Fatalf("initGTM: %s", r.Message)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := plugin.Session().WaitReady(ctx); err != nil {
		t.Fatalf("wait ready: %v", err)
	}
	if v := plugin.Session().Container().Version; v != "v1" {
		t.Fatalf("expected network container v1, got %s", v)
	}

	if r := run("trackPage", "/home"); !r.OK {
		t.Fatalf("trackPage: %s", r.Message)
	}
	r := run("pushEvent", map[string]any{"user": "u1"})
	if !r.OK || !strings.Contains(r.Message, "user=u1") {
		t.Fatalf("pushEvent: %+v", r)
	}
	if r := run("dispatch"); !r.OK {
		t.Fatalf("dispatch: %s", r.Message)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(c.Hits()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 hits at the collector, got %d", len(c.Hits()))
		}
		time.Sleep(10 * time.Millisecond)
	}
	if v, _ := c.Hits()[0].Payload.Get("event"); v != "content-view" {
		t.Fatalf("unexpected first hit %v", v)
	}
}

func TestEndToEnd_DefaultContainer(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gtm_offline.json"), []byte(`{"tags":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	sdk, _ := analytics.NewClient(analytics.Config{
		Endpoint:        "http://127.0.0.1:1/hits",
		HTTPAdapter:     adapters.NewNetHTTPAdapter(time.Second),
		StorageAdapter:  adapters.NewNoOpStorageAdapter(),
		ResourceAdapter: adapters.NewFileResourceAdapter(dir),
	})
	sdk.Start()
	defer sdk.DisposeWithoutFlush()

	plugin, _ := tagmanager.NewPlugin(tagmanager.PluginConfig{SDK: sdk})
	defer plugin.Close()

	plugin.Execute(context.Background(), "initGTM", []any{"GTM-OFFLINE", 60}, nil)
	if err := plugin.Session().WaitReady(context.Background()); err != nil {
		t.Fatalf("wait ready: %v", err)
	}
	ct := plugin.Session().Container()
	if ct.ID != "GTM-OFFLINE" || ct.Source != adapters.SourceDefault {
		t.Fatalf("expected default container, got %+v", ct)
	}
}
