package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/pneumoscan/internal/classification"
	"github.com/example/pneumoscan/internal/logging"
	"github.com/example/pneumoscan/internal/validator"
)

// ErrStopped is returned by Dispatch once Run has returned.
var ErrStopped = errors.New("workflow controller stopped")

// Dispatcher submits a validated file in the given mode.
type Dispatcher interface {
	Submit(ctx context.Context, submissionID string, file classification.SelectedFile, mode classification.Mode) (classification.Result, error)
}

// ModeSource reports the latest known session mode without blocking.
type ModeSource interface {
	Current() classification.Mode
}

// Controller owns the workflow state and serializes every event through a
// single loop. Submissions run concurrently; their completions come back
// as events and are applied only if they belong to the active submission.
type Controller struct {
	dispatcher Dispatcher
	modes      ModeSource
	presenter  Presenter
	logger     *zap.Logger
	newID      func() string

	events   chan Event
	done     chan struct{}
	inflight sync.WaitGroup

	// Owned by the Run loop.
	state    State
	file     *classification.SelectedFile
	result   *classification.Result
	errMsg   string
	activeID string

	mu   sync.RWMutex
	last View
}

// Option customizes a Controller.
type Option func(*Controller)

// WithIDGenerator replaces the submission id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		c.newID = fn
	}
}

// NewController constructs a controller in the Idle state.
func NewController(dispatcher Dispatcher, modes ModeSource, presenter Presenter, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		dispatcher: dispatcher,
		modes:      modes,
		presenter:  presenter,
		logger:     logger.Named("workflow"),
		newID:      uuid.NewString,
		events:     make(chan Event, 16),
		done:       make(chan struct{}),
		state:      Idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.last = c.snapshot()
	return c
}

// Dispatch enqueues an event. It blocks only while the queue is full.
func (c *Controller) Dispatch(ev Event) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

// Snapshot returns the most recently rendered view.
func (c *Controller) Snapshot() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Run processes events until ctx is cancelled, then waits for in-flight
// submissions to observe the cancellation.
func (c *Controller) Run(ctx context.Context) error {
	c.render()
	defer func() {
		close(c.done)
		c.inflight.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	switch ev := ev.(type) {
	case FileSelected:
		c.onFileSelected(ev)
	case AnalyzeRequested:
		c.onAnalyze(ctx)
	case ResetRequested:
		c.onReset()
	case ModeResolved:
		c.render()
	case submissionCompleted:
		c.onCompleted(ev)
	default:
		c.logger.Warn("ignoring unknown event", zap.Any("event", ev))
	}
}

func (c *Controller) onFileSelected(ev FileSelected) {
	logger := c.logger.With(zap.String("filename", ev.File.Name), zap.String("source", ev.Source))
	if err := validator.Validate(ev.File); err != nil {
		logger.Info("file rejected", zap.Error(err), zap.Stringer("state", c.state))
		c.errMsg = UserMessage(err)
		c.render()
		return
	}

	file := ev.File
	c.file = &file
	c.result = nil
	c.errMsg = ""
	c.activeID = ""
	c.state = Previewing
	logger.Info("file selected", zap.Int64("size_bytes", file.SizeBytes))
	c.render()
}

func (c *Controller) onAnalyze(ctx context.Context) {
	switch {
	case c.state == Submitting:
		c.logger.Debug("analyze ignored, submission in flight", zap.String("submission_id", c.activeID))
		return
	case c.file == nil:
		c.errMsg = MessageNoFile
		c.render()
		return
	case c.state != Previewing:
		c.logger.Debug("analyze ignored", zap.Stringer("state", c.state))
		return
	}

	id := c.newID()
	file := *c.file
	mode := c.modes.Current()

	c.activeID = id
	c.state = Submitting
	c.errMsg = ""
	logging.WithOperation(c.logger, "workflow.analyze", id).Info("submission started",
		zap.String("filename", file.Name),
		zap.Stringer("mode", mode.Effective()),
	)
	c.render()

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		result, err := c.dispatcher.Submit(ctx, id, file, mode)
		_ = c.Dispatch(submissionCompleted{id: id, result: result, err: err})
	}()
}

func (c *Controller) onReset() {
	c.state = Idle
	c.file = nil
	c.result = nil
	c.errMsg = ""
	c.activeID = ""
	c.render()
}

func (c *Controller) onCompleted(ev submissionCompleted) {
	opLogger := logging.WithOperation(c.logger, "workflow.complete", ev.id)
	if ev.id != c.activeID || c.state != Submitting {
		opLogger.Info("discarding stale submission result", zap.String("active_submission_id", c.activeID))
		return
	}

	c.activeID = ""
	if ev.err != nil {
		c.state = Previewing
		c.errMsg = UserMessage(ev.err)
		opLogger.Warn("submission failed", zap.Error(ev.err))
		c.render()
		return
	}

	result := ev.result
	result.ConfidencePercent = classification.ClampConfidence(result.ConfidencePercent)
	c.result = &result
	c.state = ShowingResult
	c.errMsg = ""
	c.render()
}

func (c *Controller) snapshot() View {
	v := View{
		State:        c.state,
		Error:        c.errMsg,
		Mode:         c.modes.Current(),
		SubmissionID: c.activeID,
	}
	if c.file != nil {
		file := *c.file
		v.File = &file
	}
	if c.result != nil {
		result := *c.result
		v.Result = &result
	}
	return v
}

func (c *Controller) render() {
	v := c.snapshot()
	c.mu.Lock()
	c.last = v
	c.mu.Unlock()
	if c.presenter != nil {
		c.presenter.Render(v)
	}
}
