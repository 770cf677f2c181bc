// Package classification holds the values shared by every stage of the
// submission workflow: the selected image, the session mode and the
// normalized classification result.
package classification

import (
	"context"
	"math"
)

// SelectedFile is the image the user picked or dropped.
type SelectedFile struct {
	Name      string
	MIMEType  string
	SizeBytes int64
	Data      []byte
}

// Mode tells whether results come from the backend or are simulated locally.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeDemo
	ModeLive
)

func (m Mode) String() string {
	switch m {
	case ModeDemo:
		return "demo"
	case ModeLive:
		return "live"
	default:
		return "unknown"
	}
}

// Effective resolves an unknown mode to demo.
func (m Mode) Effective() Mode {
	if m == ModeLive {
		return ModeLive
	}
	return ModeDemo
}

// Label is the binary outcome of a classification.
type Label int

const (
	Negative Label = iota
	Positive
)

func (l Label) String() string {
	if l == Positive {
		return "positive"
	}
	return "negative"
}

// Result is the normalized outcome of either the live or the demo path.
type Result struct {
	Label             Label
	Prediction        string
	ConfidencePercent float64
	RawConfidenceText string
	SourceFilename    string
}

// Classifier sends an image to a classification backend.
type Classifier interface {
	Classify(ctx context.Context, file SelectedFile) (Result, error)
}

// ClampConfidence maps NaN to 0 and limits the value to [0,100].
func ClampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
