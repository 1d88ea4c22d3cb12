package main

import (
	"time"

	tagmanager "github.com/Tap30/tagmanager-go"
	"github.com/Tap30/tagmanager-go/adapters"
	"github.com/Tap30/tagmanager-go/analytics"
	"github.com/Tap30/tagmanager-go/internal/config"
)

// runtime is a started SDK with the plugin bound to it.
type runtime struct {
	sdk    *analytics.Client
	plugin *tagmanager.Plugin
}

func newRuntime(cfg config.Config, logger adapters.LoggerAdapter, observer tagmanager.Observer) (*runtime, error) {
	loadTimeout, err := cfg.LoadTimeoutDuration()
	if err != nil {
		return nil, err
	}

	var headers map[string]string
	if cfg.APIKey != "" {
		headers = map[string]string{"X-API-Key": cfg.APIKey}
	}
	var remote adapters.ContainerAdapter
	if cfg.ContainerEndpoint != "" {
		remote = adapters.NewHTTPContainerAdapter(cfg.ContainerEndpoint, headers)
	}

	sdk, err := analytics.NewClient(analytics.Config{
		APIKey:           cfg.APIKey,
		Endpoint:         cfg.CollectorEndpoint,
		MaxBatchSize:     cfg.MaxBatchSize,
		MaxRetries:       cfg.MaxRetries,
		HTTPAdapter:      adapters.NewNetHTTPAdapter(10 * time.Second),
		StorageAdapter:   adapters.NewFileStorageAdapter(cfg.StoragePath),
		LoggerAdapter:    logger,
		ContainerAdapter: remote,
		ResourceAdapter:  adapters.NewFileResourceAdapter(cfg.ResourceDir),
	})
	if err != nil {
		return nil, err
	}
	if err := sdk.Start(); err != nil {
		return nil, err
	}

	plugin, err := tagmanager.NewPlugin(tagmanager.PluginConfig{
		SDK:           sdk,
		LoadTimeout:   loadTimeout,
		LoggerAdapter: logger,
		Observer:      observer,
	})
	if err != nil {
		sdk.DisposeWithoutFlush()
		return nil, err
	}
	return &runtime{sdk: sdk, plugin: plugin}, nil
}

// Close stops pending loads, then flushes and persists queued hits.
func (r *runtime) Close() error {
	r.plugin.Close()
	return r.sdk.Dispose()
}
