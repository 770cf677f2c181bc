package devbackend

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/pneumoscan/internal/logging"
)

// Prediction is the success body of POST /predict.
type Prediction struct {
	Prediction    string  `json:"prediction"`
	Confidence    string  `json:"confidence"`
	ConfidenceRaw float64 `json:"confidence_raw"`
	Filename      string  `json:"filename"`
	Status        string  `json:"status"`
}

// Predictor classifies raw image bytes.
type Predictor interface {
	Predict(ctx context.Context, image []byte) (label string, confidence float64, err error)
}

// RandomPredictor stands in for the model with uniformly drawn outcomes,
// using the model's vocabulary.
type RandomPredictor struct {
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPredictor constructs a predictor. A nil rng is seeded from the clock.
func NewRandomPredictor(rng *rand.Rand, delay time.Duration) *RandomPredictor {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x2545f4914f6cdd1d))
	}
	return &RandomPredictor{rng: rng, delay: delay}
}

// Predict implements Predictor.
func (p *RandomPredictor) Predict(ctx context.Context, image []byte) (string, float64, error) {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", 0, ctx.Err()
		case <-timer.C:
		}
	}

	p.mu.Lock()
	positive := p.rng.Float64() > 0.5
	confidence := 70 + p.rng.Float64()*25
	p.mu.Unlock()

	if positive {
		return "Pneumonia detected", confidence, nil
	}
	return "Normal", confidence, nil
}

// Service produces predictions, memoized by image digest.
type Service struct {
	predictor      Predictor
	cache          Cache
	demo           bool
	logger         *zap.Logger
	cacheTTL       time.Duration
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewService constructs a prediction service. A nil cache disables memoization.
func NewService(predictor Predictor, cache Cache, demo bool, logger *zap.Logger) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	return &Service{
		predictor:      predictor,
		cache:          cache,
		demo:           demo,
		logger:         logger.Named("prediction_service"),
		cacheTTL:       10 * time.Minute,
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// DemoMode reports the flag served by GET /check-mode.
func (s *Service) DemoMode() bool {
	return s.demo
}

// Predict classifies image, consulting the cache first. Cache failures are
// logged and never fail the request.
func (s *Service) Predict(ctx context.Context, requestID, filename string, image []byte) (*Prediction, error) {
	opLogger := logging.WithOperation(s.logger, "service.predict", requestID)

	digest := sha1.Sum(image)
	cacheKey := "prediction:" + hex.EncodeToString(digest[:])

	var cached Prediction
	value, err := s.withCacheRetry(ctx, requestID, "cache.get.prediction", func() (string, error) {
		return s.cache.Get(ctx, cacheKey)
	})
	switch {
	case err == nil:
		jsonErr := json.Unmarshal([]byte(value), &cached)
		if jsonErr == nil {
			cached.Filename = filename
			opLogger.Debug("prediction served from cache")
			return &cached, nil
		}
		opLogger.Warn("failed to decode cached prediction", zap.Error(jsonErr))
	case !errors.Is(err, ErrCacheMiss):
		opLogger.Warn("failed to read cache", zap.Error(err))
	}

	label, confidence, err := s.predictor.Predict(ctx, image)
	if err != nil {
		wrapped := logging.NewOperationError("service.predict", requestID, err)
		opLogger.Error("prediction failed", zap.Error(wrapped))
		return nil, wrapped
	}

	rounded := math.Round(confidence*100) / 100
	prediction := &Prediction{
		Prediction:    label,
		Confidence:    fmt.Sprintf("%.2f%%", confidence),
		ConfidenceRaw: rounded,
		Filename:      filename,
		Status:        "success",
	}

	if serialized, err := json.Marshal(prediction); err == nil {
		if _, err := s.withCacheRetry(ctx, requestID, "cache.set.prediction", func() (string, error) {
			return "", s.cache.Set(ctx, cacheKey, string(serialized), s.cacheTTL)
		}); err != nil {
			opLogger.Warn("failed to cache prediction", zap.Error(err))
		}
	}

	opLogger.Info("prediction completed", zap.String("prediction", label), zap.Float64("confidence", rounded))
	return prediction, nil
}

func (s *Service) withCacheRetry(ctx context.Context, requestID, operation string, fn func() (string, error)) (string, error) {
	backoff := s.initialBackoff
	opLogger := logging.WithOperation(s.logger, operation, requestID)

	var (
		value string
		err   error
	)
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= s.maxBackoff {
				backoff = next
			}
		}

		value, err = fn()
		if err == nil || errors.Is(err, ErrCacheMiss) {
			if err == nil && attempt > 0 {
				opLogger.Info("cache operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return value, err
		}
		if !isTransientError(err) {
			break
		}
		opLogger.Warn("transient cache error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return "", logging.NewOperationError(operation, requestID, err)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
