package devbackend

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/pneumoscan/internal/logging"
)

type transientCacheError struct{}

func (transientCacheError) Error() string   { return "cache transient" }
func (transientCacheError) Timeout() bool   { return true }
func (transientCacheError) Temporary() bool { return true }

type flakyCache struct {
	getErrs []error
	gets    int
	sets    int
	setErr  error
}

func (f *flakyCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.sets++
	return f.setErr
}

func (f *flakyCache) Get(ctx context.Context, key string) (string, error) {
	f.gets++
	if len(f.getErrs) == 0 {
		return "", ErrCacheMiss
	}
	err := f.getErrs[0]
	f.getErrs = f.getErrs[1:]
	return "", err
}

func fastService(predictor Predictor, cache Cache) *Service {
	svc := NewService(predictor, cache, false, zap.NewNop())
	svc.initialBackoff = time.Millisecond
	svc.maxBackoff = 2 * time.Millisecond
	return svc
}

func TestWithCacheRetryRetriesTransientErrors(t *testing.T) {
	cache := &flakyCache{getErrs: []error{transientCacheError{}}}
	svc := fastService(&stubPredictor{label: "Normal", confidence: 80}, cache)

	if _, err := svc.Predict(context.Background(), "req-1", "a.png", []byte("x")); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if cache.gets != 2 {
		t.Fatalf("expected 2 cache reads, got %d", cache.gets)
	}
}

func TestWithCacheRetryReturnsOperationError(t *testing.T) {
	svc := fastService(&stubPredictor{}, nil)

	attempts := 0
	_, err := svc.withCacheRetry(context.Background(), "req-2", "test.operation", func() (string, error) {
		attempts++
		return "", errors.New("boom")
	})

	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Operation != "test.operation" || opErr.SubmissionID != "req-2" {
		t.Fatalf("unexpected operation error %+v", opErr)
	}
}

func TestPredictSurvivesCacheOutage(t *testing.T) {
	cache := &flakyCache{getErrs: []error{errors.New("connection refused")}, setErr: errors.New("connection refused")}
	predictor := &stubPredictor{label: "Normal", confidence: 77.777}
	svc := fastService(predictor, cache)

	prediction, err := svc.Predict(context.Background(), "req-3", "a.png", []byte("x"))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if prediction.Confidence != "77.78%" || prediction.ConfidenceRaw != 77.78 {
		t.Fatalf("unexpected prediction %+v", prediction)
	}
	if predictor.calls != 1 || cache.sets != 1 {
		t.Fatalf("unexpected calls predictor=%d sets=%d", predictor.calls, cache.sets)
	}
}

func TestRandomPredictorVocabularyAndRange(t *testing.T) {
	p := NewRandomPredictor(rand.New(rand.NewPCG(9, 10)), 0)
	for i := 0; i < 500; i++ {
		label, confidence, err := p.Predict(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if label != "Normal" && !strings.Contains(label, "Pneumonia") {
			t.Fatalf("unexpected label %q", label)
		}
		if confidence < 70 || confidence >= 95 {
			t.Fatalf("confidence %v outside [70,95)", confidence)
		}
	}
}

func TestRandomPredictorHonoursCancellation(t *testing.T) {
	p := NewRandomPredictor(nil, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := p.Predict(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
