package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Tap30/tagmanager-go/adapters"
	"github.com/cenkalti/backoff/v4"
)

// ErrDispatcherStopped is returned for work submitted after Stop.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// Dispatcher queues hits locally and delivers them in batches, either every
// FlushInterval or when asked to.
type Dispatcher struct {
	config         DispatcherConfig
	queue          *Queue
	httpAdapter    HTTPAdapter
	storageAdapter StorageAdapter
	loggerAdapter  LoggerAdapter
	headers        map[string]string

	ctx    context.Context
	cancel context.CancelFunc

	flushMu sync.Mutex
	wg      sync.WaitGroup

	timerMu    sync.Mutex
	ticker     *time.Ticker
	tickerStop chan struct{}
	stopped    bool
}

func NewDispatcher(config DispatcherConfig, httpAdapter HTTPAdapter, storageAdapter StorageAdapter, headers map[string]string) *Dispatcher {
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 10
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryInitialInterval <= 0 {
		config.RetryInitialInterval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		config:         config,
		queue:          NewQueue(),
		httpAdapter:    httpAdapter,
		storageAdapter: storageAdapter,
		loggerAdapter:  adapters.NewNoOpLoggerAdapter(),
		headers:        headers,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// SetLoggerAdapter sets a custom logger adapter
func (d *Dispatcher) SetLoggerAdapter(logger LoggerAdapter) {
	d.loggerAdapter = logger
}

// Start restores hits persisted by a previous run.
func (d *Dispatcher) Start() error {
	hits, err := d.storageAdapter.Load()
	if err != nil {
		return err
	}
	d.queue.LoadFromSlice(hits)
	if len(hits) > 0 {
		d.loggerAdapter.Info("Restored %d persisted hits", len(hits))
		d.timerMu.Lock()
		d.startTimerLocked()
		d.timerMu.Unlock()
	}
	return nil
}

// Enqueue adds a hit and starts the dispatch timer on first use.
func (d *Dispatcher) Enqueue(hit Hit) error {
	d.timerMu.Lock()
	if d.stopped {
		d.timerMu.Unlock()
		return ErrDispatcherStopped
	}
	d.queue.Enqueue(hit)
	d.startTimerLocked()
	if d.queue.Len() >= d.config.MaxBatchSize {
		d.goFlush()
	}
	d.timerMu.Unlock()
	return nil
}

// FlushInterval returns the current local dispatch period.
func (d *Dispatcher) FlushInterval() time.Duration {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	return d.config.FlushInterval
}

// SetFlushInterval changes the local dispatch period. Zero or negative
// disables periodic dispatch; hits then leave only on Dispatch or Flush.
func (d *Dispatcher) SetFlushInterval(interval time.Duration) {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	d.config.FlushInterval = interval
	d.stopTimerLocked()
	if !d.stopped && !d.queue.IsEmpty() {
		d.startTimerLocked()
	}
}

// startTimerLocked starts the periodic flush if it is enabled and not running.
// d.timerMu must be held.
func (d *Dispatcher) startTimerLocked() {
	if d.stopped || d.ticker != nil || d.config.FlushInterval <= 0 {
		return
	}
	ticker := time.NewTicker(d.config.FlushInterval)
	stop := make(chan struct{})
	d.ticker = ticker
	d.tickerStop = stop

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ticker.C:
				d.Flush()
			case <-stop:
				return
			}
		}
	}()
}

// stopTimerLocked stops the periodic flush. d.timerMu must be held.
func (d *Dispatcher) stopTimerLocked() {
	if d.ticker == nil {
		return
	}
	d.ticker.Stop()
	close(d.tickerStop)
	d.ticker = nil
	d.tickerStop = nil
}

// Dispatch starts delivering every queued hit without waiting for the result.
func (d *Dispatcher) Dispatch() error {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	if d.stopped {
		return ErrDispatcherStopped
	}
	d.goFlush()
	return nil
}

// goFlush flushes in the background. d.timerMu must be held so that Stop
// observes the goroutine.
func (d *Dispatcher) goFlush() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Flush()
	}()
}

// Flush delivers every queued hit in batches of MaxBatchSize and returns the
// errors of batches that could not be delivered.
func (d *Dispatcher) Flush() error {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	if d.queue.IsEmpty() {
		return nil
	}

	d.loggerAdapter.Debug("Starting flush operation")
	all := d.queue.Drain()

	var errs []error
	for i := 0; i < len(all); i += d.config.MaxBatchSize {
		end := min(i+d.config.MaxBatchSize, len(all))
		batch := all[i:end]

		d.loggerAdapter.Debug("Sending batch of %d hits", len(batch))
		if err := d.sendWithRetry(batch); err != nil {
			d.loggerAdapter.Error("Failed to send batch: %v", err)
			// undelivered batches go back in front, ahead of anything enqueued meanwhile
			d.queue.PushFront(all[i:])
			d.persist()
			errs = append(errs, err)
			break
		}
		d.loggerAdapter.Debug("Successfully sent batch of %d hits", len(batch))
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = d.config.RetryInitialInterval
	exp.MaxElapsedTime = 0
	b := backoff.WithMaxRetries(exp, uint64(d.config.MaxRetries))
	return backoff.WithContext(b, d.ctx)
}

// sendWithRetry retries network errors and 5xx responses with exponential
// backoff. 4xx responses drop the batch and are not reported as errors.
func (d *Dispatcher) sendWithRetry(hits []Hit) error {
	attempt := 0
	operation := func() error {
		attempt++
		d.loggerAdapter.Debug("Sending HTTP request, attempt %d/%d", attempt, d.config.MaxRetries+1)

		resp, err := d.httpAdapter.Send(d.ctx, d.config.Endpoint, hits, d.headers)
		if err != nil {
			return err
		}
		switch {
		case resp.Status >= 200 && resp.Status < 300:
			return nil
		case resp.Status >= 400 && resp.Status < 500:
			return backoff.Permanent(&HTTPError{Status: resp.Status})
		default:
			return &HTTPError{Status: resp.Status}
		}
	}
	notify := func(err error, wait time.Duration) {
		d.loggerAdapter.Warn("Send failed, retrying", map[string]any{
			"attempt":    attempt,
			"maxRetries": d.config.MaxRetries,
			"retryIn":    wait.String(),
			"error":      err.Error(),
		})
	}

	err := backoff.RetryNotify(operation, d.newBackOff(), notify)
	if err == nil {
		d.clearStorage()
		return nil
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.IsClientError() {
		d.loggerAdapter.Warn("4xx client error, dropping hits", map[string]any{
			"status":    httpErr.Status,
			"hitsCount": len(hits),
		})
		d.clearStorage()
		return nil
	}

	d.loggerAdapter.Error("Delivery failed, max retries reached", map[string]any{
		"maxRetries": d.config.MaxRetries,
		"hitsCount":  len(hits),
		"error":      err.Error(),
	})
	return err
}

func (d *Dispatcher) clearStorage() {
	if err := d.storageAdapter.Clear(); err != nil {
		d.loggerAdapter.Warn("Failed to clear storage: %v", err)
	}
}

func (d *Dispatcher) persist() {
	hits := d.queue.ToSlice()
	if len(hits) == 0 {
		return
	}
	if err := d.storageAdapter.Save(hits); err != nil {
		d.loggerAdapter.Error("Failed to persist hits: %v", err)
	}
}

// Stop flushes queued hits, then persists whatever could not be delivered.
func (d *Dispatcher) Stop() error {
	if !d.halt() {
		return nil
	}
	d.wg.Wait()
	d.Flush()
	d.cancel()
	return d.saveRemaining()
}

// StopWithoutFlush stops the dispatcher and persists hits to storage without
// sending them. In-flight deliveries are abandoned.
func (d *Dispatcher) StopWithoutFlush() error {
	if !d.halt() {
		return nil
	}
	d.cancel()
	d.wg.Wait()
	return d.saveRemaining()
}

// halt rejects new work and stops the timer. It reports false if the
// dispatcher was already stopped.
func (d *Dispatcher) halt() bool {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	if d.stopped {
		return false
	}
	d.stopped = true
	d.stopTimerLocked()
	return true
}

func (d *Dispatcher) saveRemaining() error {
	hits := d.queue.ToSlice()
	if len(hits) > 0 {
		return d.storageAdapter.Save(hits)
	}
	return nil
}
