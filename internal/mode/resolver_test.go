package mode

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/pneumoscan/internal/classification"
)

type stubDiscoverer struct {
	demo  bool
	err   error
	calls atomic.Int32
	block chan struct{}
}

func (s *stubDiscoverer) DemoMode(ctx context.Context) (bool, error) {
	s.calls.Add(1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return s.demo, s.err
}

func waitResolved(t *testing.T, r *Resolver) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("resolver did not finish")
	}
}

func TestResolverResolvesFromServerFlag(t *testing.T) {
	cases := []struct {
		name string
		demo bool
		want classification.Mode
	}{
		{"demo", true, classification.ModeDemo},
		{"live", false, classification.ModeLive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(&stubDiscoverer{demo: tc.demo}, time.Second, zap.NewNop())
			r.Start(context.Background())
			waitResolved(t, r)
			if got := r.Current(); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestResolverFallsBackToDemoOnFailure(t *testing.T) {
	r := NewResolver(&stubDiscoverer{err: errors.New("connection refused")}, time.Second, zap.NewNop())
	r.Start(context.Background())
	waitResolved(t, r)
	if got := r.Current(); got != classification.ModeDemo {
		t.Fatalf("expected demo fallback, got %v", got)
	}
}

func TestResolverFallsBackToDemoOnTimeout(t *testing.T) {
	stub := &stubDiscoverer{block: make(chan struct{})}
	r := NewResolver(stub, 20*time.Millisecond, zap.NewNop())
	r.Start(context.Background())
	waitResolved(t, r)
	if got := r.Current(); got != classification.ModeDemo {
		t.Fatalf("expected demo fallback, got %v", got)
	}
}

func TestResolverIsUnknownUntilResolvedAndQueriesOnce(t *testing.T) {
	stub := &stubDiscoverer{block: make(chan struct{})}
	r := NewResolver(stub, time.Second, zap.NewNop())
	r.Start(context.Background())
	r.Start(context.Background())

	if got := r.Current(); got != classification.ModeUnknown {
		t.Fatalf("expected unknown before resolution, got %v", got)
	}
	if got := r.Current().Effective(); got != classification.ModeDemo {
		t.Fatalf("unresolved mode should act as demo, got %v", got)
	}

	close(stub.block)
	waitResolved(t, r)
	r.Start(context.Background())
	time.Sleep(10 * time.Millisecond)

	if calls := stub.calls.Load(); calls != 1 {
		t.Fatalf("expected exactly one query, got %d", calls)
	}
	if got := r.Current(); got != classification.ModeLive {
		t.Fatalf("expected live, got %v", got)
	}
}
