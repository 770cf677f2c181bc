package workflow

import (
	"github.com/example/pneumoscan/internal/classification"
)

// State is the workflow controller's position in the submission lifecycle.
type State int

const (
	Idle State = iota
	Previewing
	Submitting
	ShowingResult
	ShowingError
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Previewing:
		return "previewing"
	case Submitting:
		return "submitting"
	case ShowingResult:
		return "showing_result"
	case ShowingError:
		return "showing_error"
	default:
		return "unknown"
	}
}

// Panel identifies the single view a presenter should show.
type Panel int

const (
	PanelUpload Panel = iota
	PanelPreview
	PanelLoading
	PanelResult
	PanelError
)

func (p Panel) String() string {
	switch p {
	case PanelPreview:
		return "preview"
	case PanelLoading:
		return "loading"
	case PanelResult:
		return "result"
	case PanelError:
		return "error"
	default:
		return "upload"
	}
}

// View is an immutable snapshot of the workflow handed to the presenter.
type View struct {
	State        State
	File         *classification.SelectedFile
	Result       *classification.Result
	Error        string
	Mode         classification.Mode
	SubmissionID string
}

// Effective reports ShowingError while an error banner is up, and the
// underlying state otherwise.
func (v View) Effective() State {
	if v.Error != "" {
		return ShowingError
	}
	return v.State
}

// Active returns the one panel that is visible for this snapshot. An error
// banner takes precedence over every other panel.
func (v View) Active() Panel {
	switch v.Effective() {
	case ShowingError:
		return PanelError
	case Previewing:
		return PanelPreview
	case Submitting:
		return PanelLoading
	case ShowingResult:
		return PanelResult
	default:
		return PanelUpload
	}
}

// Presenter renders workflow snapshots. Implementations must not block.
type Presenter interface {
	Render(View)
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(View)

// Render calls f(v).
func (f PresenterFunc) Render(v View) { f(v) }
