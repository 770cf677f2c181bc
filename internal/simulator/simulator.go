package simulator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/example/pneumoscan/internal/classification"
)

// DefaultDelay emulates backend latency in demo mode.
const DefaultDelay = 2 * time.Second

const (
	positivePrediction = "Pneumonia Detected"
	negativePrediction = "Normal"

	minConfidence   = 70.0
	confidenceRange = 25.0
)

// Simulator fabricates plausible classification results for demo mode.
type Simulator struct {
	clock clockwork.Clock
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// New constructs a simulator. A nil rng falls back to a time-seeded source
// and a nil clock to the real clock.
func New(rng *rand.Rand, clock clockwork.Clock, delay time.Duration) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Simulator{clock: clock, delay: delay, rng: rng}
}

// Simulate waits the emulated delay and returns a synthetic result.
func (s *Simulator) Simulate(ctx context.Context, file classification.SelectedFile) (classification.Result, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return classification.Result{}, ctx.Err()
		case <-s.clock.After(s.delay):
		}
	}
	return s.draw(file), nil
}

func (s *Simulator) draw(file classification.SelectedFile) classification.Result {
	s.mu.Lock()
	positive := s.rng.Float64() > 0.5
	confidence := minConfidence + s.rng.Float64()*confidenceRange
	s.mu.Unlock()

	result := classification.Result{
		Label:             classification.Negative,
		Prediction:        negativePrediction,
		ConfidencePercent: confidence,
		RawConfidenceText: fmt.Sprintf("%.2f%%", confidence),
		SourceFilename:    file.Name,
	}
	if positive {
		result.Label = classification.Positive
		result.Prediction = positivePrediction
	}
	return result
}
