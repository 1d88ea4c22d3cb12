package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	tagmanager "github.com/Tap30/tagmanager-go"
	"github.com/Tap30/tagmanager-go/adapters"
)

// Client is the bundled tag-management SDK: a data layer whose pushes are
// queued as hits and dispatched to a collection endpoint, plus a container
// loader.
type Client struct {
	config         Config
	dispatcher     *Dispatcher
	dataLayer      *DataLayer
	loader         *ContainerLoader
	loggerAdapter  LoggerAdapter
	httpAdapter    HTTPAdapter
	storageAdapter StorageAdapter
	initialized    bool
	mu             sync.RWMutex
}

// Ensure Client implements tagmanager.SDK interface
var _ tagmanager.SDK = (*Client)(nil)

// NewClient creates a new analytics client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, errors.New("endpoint must be provided in config")
	}
	if config.HTTPAdapter == nil || config.StorageAdapter == nil {
		return nil, errors.New("both HTTPAdapter and StorageAdapter must be provided in config")
	}

	if config.APIKeyHeader == "" {
		config.APIKeyHeader = "X-API-Key"
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 10
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}

	client := &Client{
		config:         config,
		httpAdapter:    config.HTTPAdapter,
		storageAdapter: config.StorageAdapter,
		loggerAdapter:  config.LoggerAdapter,
	}
	if client.loggerAdapter == nil {
		client.loggerAdapter = adapters.NewNoOpLoggerAdapter()
	}

	client.loader = NewContainerLoader(config.ContainerAdapter, config.ResourceAdapter, client.loggerAdapter)
	return client, nil
}

// Start restores persisted hits and readies the data layer.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	var headers map[string]string
	if c.config.APIKey != "" {
		headers = map[string]string{c.config.APIKeyHeader: c.config.APIKey}
	}

	dispatcherConfig := DispatcherConfig{
		Endpoint:             c.config.Endpoint,
		FlushInterval:        c.config.DispatchPeriod,
		MaxBatchSize:         c.config.MaxBatchSize,
		MaxRetries:           c.config.MaxRetries,
		RetryInitialInterval: c.config.RetryInitialInterval,
	}

	c.dispatcher = NewDispatcher(dispatcherConfig, c.httpAdapter, c.storageAdapter, headers)
	c.dispatcher.SetLoggerAdapter(c.loggerAdapter)
	if err := c.dispatcher.Start(); err != nil {
		return err
	}
	c.dataLayer = NewDataLayer(c.dispatcher.Enqueue)

	c.initialized = true
	c.loggerAdapter.Info("Analytics client started")
	return nil
}

func (c *Client) started() (*Dispatcher, *DataLayer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initialized {
		return nil, nil, errors.New("analytics client not started. Call Start() first")
	}
	return c.dispatcher, c.dataLayer, nil
}

// SetLocalDispatchPeriod sets the dispatch period in seconds; zero or less
// disables periodic dispatch.
func (c *Client) SetLocalDispatchPeriod(seconds int) error {
	d, _, err := c.started()
	if err != nil {
		return err
	}
	prev := d.FlushInterval()
	d.SetFlushInterval(time.Duration(seconds) * time.Second)
	c.loggerAdapter.Debug("Local dispatch period changed from %v to %ds", prev, seconds)
	return nil
}

// LoadContainer resolves a container, falling back to defaultResource.
func (c *Client) LoadContainer(ctx context.Context, containerID, defaultResource string) (*Container, error) {
	return c.loader.Load(ctx, containerID, defaultResource)
}

// RefreshContainer fetches the latest published container.
func (c *Client) RefreshContainer(ctx context.Context, containerID string) (*Container, error) {
	return c.loader.Refresh(ctx, containerID)
}

// Push hands a record to the data layer.
func (c *Client) Push(record Record) error {
	_, dl, err := c.started()
	if err != nil {
		return err
	}
	c.loggerAdapter.Debug("Pushing record with %d keys", record.Len())
	return dl.Push(record)
}

// DataLayerString describes the data-layer model.
func (c *Client) DataLayerString() string {
	_, dl, err := c.started()
	if err != nil {
		return "{}"
	}
	return dl.String()
}

// DispatchLocalHits starts delivering queued hits immediately.
func (c *Client) DispatchLocalHits() error {
	d, _, err := c.started()
	if err != nil {
		return err
	}
	c.loggerAdapter.Debug("Dispatching local hits")
	return d.Dispatch()
}

// Flush delivers queued hits and waits for the result.
func (c *Client) Flush() error {
	d, _, err := c.started()
	if err != nil {
		return err
	}
	return d.Flush()
}

// PendingHits returns the number of queued hits.
func (c *Client) PendingHits() int {
	d, _, err := c.started()
	if err != nil {
		return 0
	}
	return d.queue.Len()
}

// Dispose flushes and stops the client, persisting undelivered hits.
func (c *Client) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil
	}

	c.loggerAdapter.Info("Disposing analytics client")
	err := c.dispatcher.Stop()
	c.dataLayer.Clear()
	c.initialized = false
	return err
}

// DisposeWithoutFlush stops the client and persists hits without sending them.
func (c *Client) DisposeWithoutFlush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil
	}

	c.loggerAdapter.Info("Disposing analytics client without flush")
	err := c.dispatcher.StopWithoutFlush()
	c.dataLayer.Clear()
	c.initialized = false
	return err
}
