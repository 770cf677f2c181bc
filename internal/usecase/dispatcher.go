package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/pneumoscan/internal/classification"
	"github.com/example/pneumoscan/internal/logging"
)

// ResultSimulator produces synthetic results in demo mode.
type ResultSimulator interface {
	Simulate(ctx context.Context, file classification.SelectedFile) (classification.Result, error)
}

// Dispatcher routes a validated file to the backend or the simulator
// depending on the session mode.
type Dispatcher struct {
	classifier classification.Classifier
	simulator  ResultSimulator
	metrics    *Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewDispatcher constructs a new dispatcher instance.
func NewDispatcher(classifier classification.Classifier, simulator ResultSimulator, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		classifier: classifier,
		simulator:  simulator,
		metrics:    &Metrics{},
		logger:     logger.Named("dispatcher"),
		now:        time.Now,
	}
}

// Submit classifies file. Unknown mode is treated as demo.
func (d *Dispatcher) Submit(ctx context.Context, submissionID string, file classification.SelectedFile, mode classification.Mode) (classification.Result, error) {
	mode = mode.Effective()
	opLogger := logging.WithOperation(d.logger, "dispatcher.submit", submissionID).With(
		zap.Stringer("mode", mode),
		zap.String("filename", file.Name),
		zap.Int64("size_bytes", file.SizeBytes),
	)
	opLogger.Debug("dispatching submission")

	started := d.now()
	var (
		result classification.Result
		err    error
	)
	if mode == classification.ModeLive {
		result, err = d.classifier.Classify(ctx, file)
	} else {
		result, err = d.simulator.Simulate(ctx, file)
	}
	latency := d.now().Sub(started)
	d.metrics.record(mode, result, err, latency)

	if err != nil {
		wrapped := logging.NewOperationError("dispatcher.submit", submissionID, err)
		opLogger.Warn("submission failed", zap.Error(wrapped), zap.Duration("latency", latency))
		return classification.Result{}, wrapped
	}

	if result.SourceFilename == "" {
		result.SourceFilename = file.Name
	}
	result.ConfidencePercent = classification.ClampConfidence(result.ConfidencePercent)

	opLogger.Info("submission completed",
		zap.Stringer("label", result.Label),
		zap.Float64("confidence", result.ConfidencePercent),
		zap.Duration("latency", latency),
	)
	return result, nil
}

// Metrics exposes the session counters.
func (d *Dispatcher) Metrics() MetricsSummary {
	return d.metrics.Summary()
}
