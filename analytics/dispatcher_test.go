package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Tap30/tagmanager-go/adapters"
)

type mockHTTPAdapter struct {
	mu         sync.Mutex
	calls      int
	sent       [][]Hit
	fail       bool
	err        error
	statusCode int
}

func (m *mockHTTPAdapter) Send(ctx context.Context, endpoint string, hits []Hit, headers map[string]string) (*HTTPResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.fail {
		status := m.statusCode
		if status == 0 {
			status = 500
		}
		return &HTTPResponse{Status: status}, nil
	}
	m.sent = append(m.sent, hits)
	return &HTTPResponse{OK: true, Status: 200}, nil
}

func (m *mockHTTPAdapter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockHTTPAdapter) sentHits() []Hit {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Hit
	for _, batch := range m.sent {
		out = append(out, batch...)
	}
	return out
}

type mockStorageAdapter struct {
	mu      sync.Mutex
	saved   []Hit
	loaded  []Hit
	cleared int
	err     error
}

func (m *mockStorageAdapter) Save(hits []Hit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = hits
	return nil
}

func (m *mockStorageAdapter) Load() ([]Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.loaded, nil
}

func (m *mockStorageAdapter) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared++
	return nil
}

func (m *mockStorageAdapter) savedHits() []Hit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}

func testHit(id string) Hit {
	return Hit{ID: id, Payload: adapters.NewRecord("event", id)}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatcher_Enqueue(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{}
	storageAdapter := &mockStorageAdapter{}
	config := DispatcherConfig{
		Endpoint:      "http://test.com",
		FlushInterval: 1 * time.Second,
		MaxBatchSize:  2,
		MaxRetries:    3,
	}

	dispatcher := NewDispatcher(config, httpAdapter, storageAdapter, nil)
	dispatcher.Start()
	defer dispatcher.Stop()

	dispatcher.Enqueue(testHit("test1"))
	dispatcher.Enqueue(testHit("test2"))

	waitFor(t, func() bool { return httpAdapter.callCount() > 0 })
}

func TestDispatcher_Flush(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{}
	storageAdapter := &mockStorageAdapter{}
	config := DispatcherConfig{
		Endpoint:      "http://test.com",
		FlushInterval: 10 * time.Second,
		MaxBatchSize:  10,
		MaxRetries:    3,
	}

	dispatcher := NewDispatcher(config, httpAdapter, storageAdapter, nil)
	dispatcher.Start()
	defer dispatcher.Stop()

	dispatcher.Enqueue(testHit("test"))
	if err := dispatcher.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if httpAdapter.callCount() != 1 {
		t.Fatalf("expected 1 call, got %d", httpAdapter.callCount())
	}
	if storageAdapter.cleared == 0 {
		t.Fatal("expected storage to be cleared after delivery")
	}
}

func TestDispatcher_FlushBatches(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{}
	config := DispatcherConfig{
		Endpoint:     "http://test.com",
		MaxBatchSize: 2,
	}

	dispatcher := NewDispatcher(config, httpAdapter, &mockStorageAdapter{}, nil)
	dispatcher.Start()
	defer dispatcher.Stop()

	// Bypass Enqueue so no background flush races the explicit one.
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		dispatcher.queue.Enqueue(testHit(id))
	}
	if err := dispatcher.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if httpAdapter.callCount() != 3 {
		t.Fatalf("expected 3 batches, got %d", httpAdapter.callCount())
	}
	got := httpAdapter.sentHits()
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		if got[i].ID != id {
			t.Fatalf("hit %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestDispatcher_LoadPersistedHits(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{}
	storageAdapter := &mockStorageAdapter{
		loaded: []Hit{testHit("persisted")},
	}
	config := DispatcherConfig{
		Endpoint:      "http://test.com",
		FlushInterval: 10 * time.Second,
		MaxBatchSize:  10,
		MaxRetries:    3,
	}

	dispatcher := NewDispatcher(config, httpAdapter, storageAdapter, nil)
	dispatcher.Start()

	if dispatcher.queue.Len() != 1 {
		t.Fatal("expected 1 persisted hit in queue")
	}

	dispatcher.Stop()
}

func TestDispatcher_PersistOnStop(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{fail: true}
	storageAdapter := &mockStorageAdapter{}
	config := DispatcherConfig{
		Endpoint:             "http://test.com",
		FlushInterval:        10 * time.Second,
		MaxBatchSize:         10,
		MaxRetries:           0,
		RetryInitialInterval: time.Millisecond,
	}

	dispatcher := NewDispatcher(config, httpAdapter, storageAdapter, nil)
	dispatcher.Start()
	dispatcher.Enqueue(testHit("test"))

	dispatcher.Stop()

	saved := storageAdapter.savedHits()
	if len(saved) != 1 || saved[0].ID != "test" {
		t.Fatal("expected hits to be persisted on stop")
	}
}

func TestDispatcher_StopWithoutFlush(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{}
	storageAdapter := &mockStorageAdapter{}
	config := DispatcherConfig{
		Endpoint:      "http://test.com",
		FlushInterval: 10 * time.Second,
		MaxBatchSize:  10,
	}

	dispatcher := NewDispatcher(config, httpAdapter, storageAdapter, nil)
	dispatcher.Start()
	dispatcher.Enqueue(testHit("one"))
	dispatcher.Enqueue(testHit("two"))

	if err := dispatcher.StopWithoutFlush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if httpAdapter.callCount() != 0 {
		t.Fatalf("expected no HTTP calls, got %d", httpAdapter.callCount())
	}
	if len(storageAdapter.savedHits()) != 2 {
		t.Fatalf("expected 2 persisted hits, got %d", len(storageAdapter.savedHits()))
	}
}

func TestDispatcher_StartLoadError(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{}
	storageAdapter := &mockStorageAdapter{err: errors.New("load error")}
	config := DispatcherConfig{
		Endpoint:      "http://test.com",
		FlushInterval: 10 * time.Second,
		MaxBatchSize:  10,
		MaxRetries:    3,
	}

	dispatcher := NewDispatcher(config, httpAdapter, storageAdapter, nil)
	err := dispatcher.Start()
	if err == nil {
		t.Fatal("expected error from Start")
	}
}

func TestDispatcher_RetryWithError(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{err: errors.New("network error")}
	storageAdapter := &mockStorageAdapter{}
	config := DispatcherConfig{
		Endpoint:             "http://test.com",
		FlushInterval:        10 * time.Second,
		MaxBatchSize:         10,
		MaxRetries:           1,
		RetryInitialInterval: time.Millisecond,
	}

	dispatcher := NewDispatcher(config, httpAdapter, storageAdapter, nil)
	dispatcher.Start()
	defer dispatcher.StopWithoutFlush()

	dispatcher.queue.Enqueue(testHit("test"))
	if err := dispatcher.Flush(); err == nil {
		t.Fatal("expected delivery error")
	}

	if httpAdapter.callCount() != 2 {
		t.Fatalf("expected 2 calls (1 initial + 1 retry), got %d", httpAdapter.callCount())
	}
	if dispatcher.queue.Len() != 1 {
		t.Fatalf("expected undelivered hit to be requeued, got %d", dispatcher.queue.Len())
	}
	if len(storageAdapter.savedHits()) != 1 {
		t.Fatal("expected undelivered hit to be persisted")
	}
}

func TestDispatcher_5xxServerError_Retries(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{fail: true, statusCode: 503}
	config := DispatcherConfig{
		Endpoint:             "http://test.com",
		MaxBatchSize:         10,
		MaxRetries:           2,
		RetryInitialInterval: time.Millisecond,
	}

	dispatcher := NewDispatcher(config, httpAdapter, &mockStorageAdapter{}, nil)
	dispatcher.Start()
	defer dispatcher.StopWithoutFlush()

	dispatcher.queue.Enqueue(testHit("test"))
	err := dispatcher.Flush()

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != 503 {
		t.Fatalf("expected HTTPError 503, got %v", err)
	}
	if httpAdapter.callCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", httpAdapter.callCount())
	}
}

func TestDispatcher_4xxClientError_DropsHits(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{fail: true, statusCode: 400}
	storageAdapter := &mockStorageAdapter{}
	config := DispatcherConfig{
		Endpoint:             "http://test.com",
		FlushInterval:        10 * time.Second,
		MaxBatchSize:         10,
		MaxRetries:           3,
		RetryInitialInterval: time.Millisecond,
	}

	dispatcher := NewDispatcher(config, httpAdapter, storageAdapter, nil)
	dispatcher.Start()
	defer dispatcher.Stop()

	dispatcher.queue.Enqueue(testHit("test"))
	if err := dispatcher.Flush(); err != nil {
		t.Fatalf("expected 4xx to be dropped silently, got %v", err)
	}

	if httpAdapter.callCount() != 1 {
		t.Fatalf("expected no retries on 4xx, got %d calls", httpAdapter.callCount())
	}
	if dispatcher.queue.Len() != 0 {
		t.Fatal("expected hits to be dropped")
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{}
	config := DispatcherConfig{
		Endpoint:     "http://test.com",
		MaxBatchSize: 10,
	}

	dispatcher := NewDispatcher(config, httpAdapter, &mockStorageAdapter{}, nil)
	dispatcher.Start()
	defer dispatcher.Stop()

	dispatcher.Enqueue(testHit("test"))
	if err := dispatcher.Dispatch(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, func() bool { return httpAdapter.callCount() == 1 })
}

func TestDispatcher_PeriodicFlush(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{}
	config := DispatcherConfig{
		Endpoint:     "http://test.com",
		MaxBatchSize: 10,
	}

	dispatcher := NewDispatcher(config, httpAdapter, &mockStorageAdapter{}, nil)
	dispatcher.Start()
	defer dispatcher.Stop()

	dispatcher.Enqueue(testHit("test"))
	time.Sleep(30 * time.Millisecond)
	if httpAdapter.callCount() != 0 {
		t.Fatal("expected no periodic flush while disabled")
	}

	dispatcher.SetFlushInterval(10 * time.Millisecond)
	if dispatcher.FlushInterval() != 10*time.Millisecond {
		t.Fatalf("unexpected flush interval %v", dispatcher.FlushInterval())
	}
	waitFor(t, func() bool { return httpAdapter.callCount() == 1 })
}

func TestDispatcher_EnqueueAfterStop(t *testing.T) {
	dispatcher := NewDispatcher(DispatcherConfig{Endpoint: "http://test.com"}, &mockHTTPAdapter{}, &mockStorageAdapter{}, nil)
	dispatcher.Start()
	dispatcher.Stop()

	if err := dispatcher.Enqueue(testHit("late")); !errors.Is(err, ErrDispatcherStopped) {
		t.Fatalf("expected ErrDispatcherStopped, got %v", err)
	}
	if err := dispatcher.Dispatch(); !errors.Is(err, ErrDispatcherStopped) {
		t.Fatalf("expected ErrDispatcherStopped, got %v", err)
	}
	// second stop is a no-op
	if err := dispatcher.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
