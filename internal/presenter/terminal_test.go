package presenter

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/example/pneumoscan/internal/classification"
	"github.com/example/pneumoscan/internal/workflow"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, buf *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("output never contained %q:\n%s", want, buf.String())
}

func resultView(label classification.Label, percent float64, text string) workflow.View {
	return workflow.View{
		State: workflow.ShowingResult,
		Mode:  classification.ModeLive,
		File:  &classification.SelectedFile{Name: "chest.png"},
		Result: &classification.Result{
			Label:             label,
			ConfidencePercent: percent,
			RawConfidenceText: text,
			SourceFilename:    "chest.png",
		},
	}
}

func TestConfidenceBar(t *testing.T) {
	cases := []struct {
		percent float64
		filled  int
		suffix  string
	}{
		{0, 0, "0.0%"},
		{50, 5, "50.0%"},
		{88.4, 9, "88.4%"},
		{140, 10, "100.0%"},
		{-3, 0, "0.0%"},
	}
	for _, tc := range cases {
		bar := ConfidenceBar(tc.percent, 10)
		if got := strings.Count(bar, "█"); got != tc.filled {
			t.Fatalf("ConfidenceBar(%v): %d filled cells, want %d (%s)", tc.percent, got, tc.filled, bar)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != 10 {
			t.Fatalf("ConfidenceBar(%v): width %d, want 10", tc.percent, got)
		}
		if !strings.HasSuffix(bar, tc.suffix) {
			t.Fatalf("ConfidenceBar(%v) = %q, want suffix %q", tc.percent, bar, tc.suffix)
		}
	}
}

func TestRenderPositiveResultAnimatesBar(t *testing.T) {
	buf := &syncBuffer{}
	clock := clockwork.NewFakeClock()
	term := NewTerminal(buf, Options{Width: 120, BarWidth: 10, Clock: clock, Frames: 2})

	term.Render(resultView(classification.Positive, 88.4, "88.40%"))

	out := buf.String()
	for _, want := range []string{"⚠️ Pneumonia Detected", "88.4% Confidence", "88.40%", "[░░░░░░░░░░] 0.0%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}

	clock.BlockUntil(1)
	clock.Advance(defaultAnimationDelay)
	waitForOutput(t, buf, "44.2%")

	clock.BlockUntil(1)
	clock.Advance(defaultFrameInterval)
	waitForOutput(t, buf, "[█████████░] 88.4%")
	term.Wait()
}

func TestRenderNegativeResultWithoutRawText(t *testing.T) {
	buf := &syncBuffer{}
	term := NewTerminal(buf, Options{Clock: clockwork.NewFakeClock()})

	term.Render(resultView(classification.Negative, 91.25, ""))

	out := buf.String()
	for _, want := range []string{"✓ No Pneumonia Detected", "91.2% Confidence", "Confidence: 91.2%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestSupersededAnimationStops(t *testing.T) {
	buf := &syncBuffer{}
	clock := clockwork.NewFakeClock()
	term := NewTerminal(buf, Options{BarWidth: 10, Clock: clock, Frames: 1})

	term.Render(resultView(classification.Positive, 90, "90%"))
	clock.BlockUntil(1)
	term.Render(workflow.View{State: workflow.Idle})
	clock.Advance(defaultAnimationDelay)
	term.Wait()

	if strings.Contains(buf.String(), "90.0%\n") && strings.Contains(buf.String(), "█") {
		t.Fatalf("stale animation frame rendered:\n%s", buf.String())
	}
}

func TestRenderPanels(t *testing.T) {
	file := &classification.SelectedFile{Name: "scan.jpg", MIMEType: "image/jpeg", SizeBytes: 2 * 1024 * 1024}
	cases := []struct {
		name string
		view workflow.View
		want []string
	}{
		{"upload", workflow.View{State: workflow.Idle}, []string{"Drop a chest X-ray"}},
		{"preview", workflow.View{State: workflow.Previewing, File: file}, []string{"scan.jpg", "2.0 MB", "image/jpeg", "Ready to analyze."}},
		{"loading", workflow.View{State: workflow.Submitting, File: file}, []string{"Analyzing scan.jpg..."}},
		{"error", workflow.View{State: workflow.Previewing, File: file, Error: "model unavailable"}, []string{"✗ model unavailable", "scan.jpg is still selected"}},
		{"guard error", workflow.View{State: workflow.Idle, Error: "Please select an image first."}, []string{"✗ Please select an image first."}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &syncBuffer{}
			NewTerminal(buf, Options{Clock: clockwork.NewFakeClock()}).Render(tc.view)
			for _, want := range tc.want {
				if !strings.Contains(buf.String(), want) {
					t.Fatalf("missing %q in output:\n%s", want, buf.String())
				}
			}
			if strings.Contains(buf.String(), clearScreen) {
				t.Fatal("wide terminals should not scroll")
			}
		})
	}
}

func TestSmallViewportScrollsPanelIntoView(t *testing.T) {
	buf := &syncBuffer{}
	term := NewTerminal(buf, Options{Width: 60, Clock: clockwork.NewFakeClock()})

	term.Render(workflow.View{State: workflow.Previewing, File: &classification.SelectedFile{Name: "a.png"}})
	if !strings.HasPrefix(buf.String(), clearScreen) {
		t.Fatalf("expected preview to be scrolled into view, got %q", buf.String())
	}
}

func TestDemoBadgeShownOnce(t *testing.T) {
	buf := &syncBuffer{}
	term := NewTerminal(buf, Options{Clock: clockwork.NewFakeClock()})

	term.Render(workflow.View{State: workflow.Idle, Mode: classification.ModeDemo})
	term.Render(workflow.View{State: workflow.Idle, Mode: classification.ModeDemo})

	if got := strings.Count(buf.String(), "DEMO MODE"); got != 1 {
		t.Fatalf("expected badge once, got %d:\n%s", got, buf.String())
	}
}
