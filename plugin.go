package tagmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Tap30/tagmanager-go/adapters"
)

// Result is the single response delivered for a handled action.
type Result struct {
	OK      bool
	Message string
}

// Callback receives the response of an Execute call.
type Callback func(Result)

// Plugin routes bridge actions to the SDK. It gates tracking actions on the
// session being initialized and shapes inputs into data-layer records.
type Plugin struct {
	sdk            SDK
	session        *Session
	loadTimeout    time.Duration
	refreshTimeout time.Duration
	loggerAdapter  LoggerAdapter
	observer       Observer

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewPlugin creates a plugin bound to an SDK and a session.
func NewPlugin(config PluginConfig) (*Plugin, error) {
	if config.SDK == nil {
		return nil, errors.New("SDK must be provided in config")
	}
	if config.Session == nil {
		config.Session = NewSession()
	}
	if config.LoadTimeout <= 0 {
		config.LoadTimeout = DefaultLoadTimeout
	}
	if config.RefreshTimeout <= 0 {
		config.RefreshTimeout = config.LoadTimeout
	}

	p := &Plugin{
		sdk:            config.SDK,
		session:        config.Session,
		loadTimeout:    config.LoadTimeout,
		refreshTimeout: config.RefreshTimeout,
		loggerAdapter:  config.LoggerAdapter,
		observer:       config.Observer,
	}
	if p.loggerAdapter == nil {
		p.loggerAdapter = adapters.NewNoOpLoggerAdapter()
	}
	if p.observer == nil {
		p.observer = noopObserver{}
	}
	p.baseCtx, p.stop = context.WithCancel(context.Background())
	return p, nil
}

// Session returns the session the plugin mutates.
func (p *Plugin) Session() *Session {
	return p.session
}

// Execute runs a named action with loosely typed positional arguments and
// reports the outcome through respond exactly once. It returns false, without
// calling respond, when the action is not one this plugin handles.
func (p *Plugin) Execute(ctx context.Context, action string, args []any, respond Callback) bool {
	if !IsKnownAction(action) {
		return false
	}
	if respond == nil {
		respond = func(Result) {}
	}
	a := Action(action)

	if a.RequiresInit() && !p.session.Ready() {
		p.observer.CommandHandled(a, OutcomeNotInitialized)
		respond(Result{Message: NewNotInitializedError(a).Error()})
		return true
	}

	cmd, err := ParseCommand(action, args)
	if err != nil {
		p.loggerAdapter.Debug("%s: bad arguments: %v", action, err)
		p.observer.CommandHandled(a, OutcomeError)
		respond(Result{Message: err.Error()})
		return true
	}

	msg, followUp, err := p.handle(ctx, cmd)
	if err != nil {
		respond(Result{Message: err.Error()})
		return true
	}
	// the container load may only change the session once the caller has its answer
	defer followUp()
	respond(Result{OK: true, Message: msg})
	return true
}

// Handle runs a typed command and returns its success message. Work that
// follows the response, such as an initGTM container load, is started before
// Handle returns.
func (p *Plugin) Handle(ctx context.Context, cmd Command) (string, error) {
	msg, followUp, err := p.handle(ctx, cmd)
	followUp()
	return msg, err
}

func (p *Plugin) handle(ctx context.Context, cmd Command) (msg string, followUp func(), err error) {
	action := cmd.Action()
	followUp = func() {}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", action, r)
			followUp = func() {}
		}
		p.observer.CommandHandled(action, outcomeOf(err))
	}()

	if err := ctx.Err(); err != nil {
		return "", followUp, err
	}
	if action.RequiresInit() && !p.session.Ready() {
		return "", followUp, NewNotInitializedError(action)
	}

	switch c := cmd.(type) {
	case InitGTM:
		m, start, initErr := p.initGTM(c)
		if initErr != nil {
			return "", followUp, initErr
		}
		return m, start, nil
	case ExitGTM:
		p.session.exit()
		p.loggerAdapter.Info("session exited")
		return "exitGTM", followUp, nil
	case TrackEvent:
		msg, err = p.trackEvent(c)
	case PushEvent:
		msg, err = p.pushEvent(c)
	case TrackPage:
		msg, err = p.trackPage(c)
	case Dispatch:
		if err = p.sdk.DispatchLocalHits(); err == nil {
			msg = "dispatch sent"
		}
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownAction, cmd)
	}
	if err != nil {
		return "", followUp, err
	}
	return msg, followUp, nil
}

// initGTM opens a new session generation and returns a func that starts its
// container load.
func (p *Plugin) initGTM(c InitGTM) (string, func(), error) {
	if err := p.sdk.SetLocalDispatchPeriod(c.DispatchInterval); err != nil {
		return "", nil, err
	}

	resource := DefaultResourceName(c.ContainerID)
	p.loggerAdapter.Debug("default container resource: %s", resource)

	ctx, cancel := context.WithTimeout(p.baseCtx, p.loadTimeout)
	gen := p.session.begin(c.ContainerID, cancel)

	p.wg.Add(1)
	start := func() {
		go p.load(ctx, cancel, gen, c.ContainerID, resource)
	}
	return fmt.Sprintf("initGTM - id = %s; interval = %d seconds", c.ContainerID, c.DispatchInterval), start, nil
}

// load resolves the container for generation gen and, once it is available,
// refreshes it against the service.
func (p *Plugin) load(ctx context.Context, cancel context.CancelFunc, gen uint64, containerID, resource string) {
	defer p.wg.Done()
	defer cancel()

	start := time.Now()
	c, err := p.loadContainer(ctx, containerID, resource)
	elapsed := time.Since(start)

	if err != nil {
		outcome := OutcomeError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			outcome = OutcomeTimeout
			err = fmt.Errorf("%w after %v: %v", ErrLoadTimeout, p.loadTimeout, err)
		case errors.Is(ctx.Err(), context.Canceled):
			outcome = OutcomeCanceled
			err = fmt.Errorf("%w: %v", ErrLoadCanceled, err)
		}
		if p.session.fail(gen, err) {
			p.loggerAdapter.Error("container %s failed to load: %v", containerID, err)
		}
		p.observer.ContainerLoaded(outcome, elapsed)
		return
	}

	if !p.session.apply(gen, c) {
		p.loggerAdapter.Debug("discarding container %s from a superseded load", containerID)
		p.observer.ContainerLoaded(OutcomeCanceled, elapsed)
		return
	}
	p.loggerAdapter.Info("container available", map[string]any{
		"containerId": containerID,
		"version":     c.Version,
		"source":      string(c.Source),
	})
	p.observer.ContainerLoaded(OutcomeSuccess, elapsed)

	p.refresh(gen, containerID)
}

func (p *Plugin) loadContainer(ctx context.Context, containerID, resource string) (c *Container, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("load container: %v", r)
		}
	}()
	c, err = p.sdk.LoadContainer(ctx, containerID, resource)
	if err == nil && c == nil {
		err = fmt.Errorf("%w: %s", adapters.ErrContainerNotFound, containerID)
	}
	return c, err
}

func (p *Plugin) refresh(gen uint64, containerID string) {
	ctx, cancel := context.WithTimeout(p.baseCtx, p.refreshTimeout)
	defer cancel()

	fresh, err := p.sdk.RefreshContainer(ctx, containerID)
	if err == nil && fresh == nil {
		err = fmt.Errorf("%w: %s", adapters.ErrContainerNotFound, containerID)
	}
	if errors.Is(err, ErrRefreshUnavailable) {
		p.loggerAdapter.Debug("container %s has no remote source to refresh from", containerID)
		return
	}
	if err != nil {
		err = fmt.Errorf("refresh container %s: %w", containerID, err)
		if p.session.noteError(gen, err) {
			p.loggerAdapter.Warn("%v", err)
		}
		p.observer.ContainerRefreshed(OutcomeError)
		return
	}
	if p.session.refreshed(gen, fresh) {
		p.loggerAdapter.Debug("container %s refreshed to version %s", containerID, fresh.Version)
		p.observer.ContainerRefreshed(OutcomeSuccess)
		return
	}
	p.observer.ContainerRefreshed(OutcomeCanceled)
}

func (p *Plugin) trackEvent(c TrackEvent) (string, error) {
	record := NewRecord(
		"event", "interaction",
		"target", c.Target,
		"action", c.EventAction,
		"target-properties", c.TargetProperties,
		"value", c.Value,
	)
	if err := p.sdk.Push(record); err != nil {
		return "", err
	}
	return fmt.Sprintf("trackEvent - category = %s; action = %s; label = %s; value = %d",
		c.Target, c.EventAction, c.TargetProperties, c.Value), nil
}

func (p *Plugin) pushEvent(c PushEvent) (string, error) {
	if err := p.sdk.Push(c.Data); err != nil {
		return "", err
	}
	return "pushEvent: " + p.sdk.DataLayerString(), nil
}

func (p *Plugin) trackPage(c TrackPage) (string, error) {
	record := NewRecord("event", "content-view", "content-name", c.Page)
	if err := p.sdk.Push(record); err != nil {
		return "", err
	}
	return "trackPage - url = " + describe(c.Page), nil
}

// Close abandons pending loads and refreshes and waits for them to return.
func (p *Plugin) Close() error {
	p.stop()
	p.wg.Wait()
	return nil
}

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case IsNotInitialized(err):
		return OutcomeNotInitialized
	default:
		return OutcomeError
	}
}

func describe(v any) string {
	if s, ok := coerceString(v); ok {
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}
