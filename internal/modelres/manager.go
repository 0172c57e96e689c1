// Package modelres owns the process-wide embedding model. The model is
// acquired lazily, once, from the primary artifact store or, failing that,
// from a public fallback source.
package modelres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/essayscore/internal/embedding"
	"github.com/hyperjump/essayscore/internal/metrics"
	"go.uber.org/zap"
)

// ErrModelUnavailable is returned when neither the primary nor the fallback
// model could be acquired.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// State is the acquisition state of a Manager.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Source tells which loader produced the current provider.
type Source string

const (
	SourceNone     Source = "none"
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// Loader produces a ready provider or an error.
type Loader func(ctx context.Context) (embedding.Provider, error)

const defaultAcquireTimeout = 10 * time.Minute

// Manager hands out a single shared provider. Once ready it is never
// reloaded: a primary model is never replaced by the fallback and the
// fallback is never upgraded.
type Manager struct {
	primary  Loader
	fallback Loader
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics

	// loadMu serializes acquisition; mu guards the fields below it.
	loadMu   sync.Mutex
	mu       sync.RWMutex
	state    State
	source   Source
	provider embedding.Provider
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics records acquisitions on mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithAcquireTimeout bounds one full acquisition, primary and fallback together.
func WithAcquireTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// NewManager returns a Manager in the uninitialized state. Either loader may
// be nil, but not both.
func NewManager(primary, fallback Loader, opts ...Option) *Manager {
	m := &Manager{
		primary:  primary,
		fallback: fallback,
		timeout:  defaultAcquireTimeout,
		logger:   zap.NewNop(),
		state:    StateUninitialized,
		source:   SourceNone,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire returns the shared provider, loading it on first use. Concurrent
// first callers trigger exactly one load; the others wait for it. The load
// is detached from ctx's cancellation so an aborted request does not abort
// a load other requests are waiting on.
func (m *Manager) Acquire(ctx context.Context) (embedding.Provider, error) {
	if p := m.ready(); p != nil {
		return p, nil
	}

	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	if p := m.ready(); p != nil {
		return p, nil
	}

	m.set(StateLoading, SourceNone, nil)
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	var primaryErr error
	if m.primary != nil {
		p, err := m.load(actx, SourcePrimary, m.primary)
		if err == nil {
			return p, nil
		}
		primaryErr = err
		m.logger.Warn("primary model unavailable, using fallback", zap.Error(err))
	} else {
		primaryErr = errors.New("no primary source configured")
	}

	if m.fallback != nil {
		p, err := m.load(actx, SourceFallback, m.fallback)
		if err == nil {
			return p, nil
		}
		m.set(StateUninitialized, SourceNone, nil)
		m.logger.Error("fallback model unavailable", zap.NamedError("primary_error", primaryErr), zap.Error(err))
		return nil, fmt.Errorf("%w: primary: %v; fallback: %w", ErrModelUnavailable, primaryErr, err)
	}

	m.set(StateUninitialized, SourceNone, nil)
	return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, primaryErr)
}

func (m *Manager) load(ctx context.Context, src Source, loader Loader) (embedding.Provider, error) {
	start := time.Now()
	p, err := runLoader(ctx, loader)
	if err == nil && p == nil {
		err = errors.New("loader returned no provider")
	}
	m.metrics.ObserveAcquire(string(src), err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}
	m.set(StateReady, src, p)
	m.logger.Info("embedding model ready",
		zap.String("source", string(src)),
		zap.String("model_id", p.ModelID()),
		zap.Duration("took", time.Since(start)),
	)
	return p, nil
}

// runLoader converts a panicking loader into an error so the manager never
// stays stuck in StateLoading.
func runLoader(ctx context.Context, loader Loader) (p embedding.Provider, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("loader panicked: %v", r)
		}
	}()
	return loader(ctx)
}

// Warm acquires the model eagerly. Failure is logged and returned; the next
// Acquire retries.
func (m *Manager) Warm(ctx context.Context) error {
	if _, err := m.Acquire(ctx); err != nil {
		m.logger.Error("model preload failed", zap.Error(err))
		return err
	}
	return nil
}

// State returns the current acquisition state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Source returns which loader produced the current provider.
func (m *Manager) Source() Source {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.source
}

// ModelID returns the ready provider's model ID, or "".
func (m *Manager) ModelID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.provider == nil {
		return ""
	}
	return m.provider.ModelID()
}

// Close releases the provider. The manager must not be used afterwards.
func (m *Manager) Close() error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	m.mu.Lock()
	p := m.provider
	m.provider = nil
	m.state = StateUninitialized
	m.source = SourceNone
	m.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Close()
}

func (m *Manager) ready() embedding.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == StateReady {
		return m.provider
	}
	return nil
}

func (m *Manager) set(state State, src Source, p embedding.Provider) {
	m.mu.Lock()
	m.state = state
	m.source = src
	m.provider = p
	m.mu.Unlock()
}
