package mode

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/example/pneumoscan/internal/classification"
	"github.com/example/pneumoscan/internal/logging"
)

// DefaultTimeout bounds the single mode-discovery query.
const DefaultTimeout = 5 * time.Second

// Discoverer reports whether the backend runs in demo mode.
type Discoverer interface {
	DemoMode(ctx context.Context) (bool, error)
}

// Resolver determines the session mode once, in the background.
type Resolver struct {
	discoverer Discoverer
	timeout    time.Duration
	logger     *zap.Logger

	once    sync.Once
	current atomic.Int32
	done    chan struct{}
}

// NewResolver constructs a resolver. The mode stays Unknown until Start
// completes its query.
func NewResolver(discoverer Discoverer, timeout time.Duration, logger *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		discoverer: discoverer,
		timeout:    timeout,
		logger:     logger.Named("mode_resolver"),
		done:       make(chan struct{}),
	}
}

// Start launches the query. Only the first call has any effect.
func (r *Resolver) Start(ctx context.Context) {
	r.once.Do(func() {
		go r.resolve(ctx)
	})
}

// Current returns the latest known mode without blocking.
func (r *Resolver) Current() classification.Mode {
	return classification.Mode(r.current.Load())
}

// Done is closed once the mode has been resolved.
func (r *Resolver) Done() <-chan struct{} {
	return r.done
}

func (r *Resolver) resolve(ctx context.Context) {
	defer close(r.done)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resolved := classification.ModeDemo
	demo, err := r.query(ctx)
	switch {
	case err != nil:
		wrapped := logging.NewOperationError("mode.resolve", "", err)
		r.logger.Warn("mode discovery failed, falling back to demo", zap.Error(wrapped))
	case !demo:
		resolved = classification.ModeLive
	}

	r.current.CompareAndSwap(int32(classification.ModeUnknown), int32(resolved))
	r.logger.Info("session mode resolved", zap.Stringer("mode", r.Current()))
}

func (r *Resolver) query(ctx context.Context) (bool, error) {
	if r.discoverer == nil {
		return true, nil
	}
	return r.discoverer.DemoMode(ctx)
}
