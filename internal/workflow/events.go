package workflow

import (
	"github.com/example/pneumoscan/internal/classification"
)

// Event is the input vocabulary of the workflow state machine.
type Event interface {
	event()
}

// FileSelected reports a file picked from the browser or dropped.
type FileSelected struct {
	File   classification.SelectedFile
	Source string
}

// AnalyzeRequested asks for the selected file to be classified.
type AnalyzeRequested struct{}

// ResetRequested returns the workflow to Idle.
type ResetRequested struct{}

// ModeResolved tells the controller the session mode is known so the
// presenter can be refreshed.
type ModeResolved struct{}

type submissionCompleted struct {
	id     string
	result classification.Result
	err    error
}

func (FileSelected) event() {}
func (AnalyzeRequested) event() {}
func (ResetRequested) event() {}
func (ModeResolved) event() {}
func (submissionCompleted) event() {}
