package presenter

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/example/pneumoscan/internal/classification"
	"github.com/example/pneumoscan/internal/workflow"
)

const (
	// SmallViewportColumns is the width below which panels are scrolled
	// into view before rendering.
	SmallViewportColumns = 96

	defaultBarWidth       = 30
	defaultAnimationDelay = 100 * time.Millisecond
	defaultFrameInterval  = 50 * time.Millisecond
	defaultFrames         = 4

	clearScreen = "\x1b[2J\x1b[H"
)

// Options configures a Terminal presenter.
type Options struct {
	Width          int
	BarWidth       int
	AnimationDelay time.Duration
	FrameInterval  time.Duration
	Frames         int
	Clock          clockwork.Clock
	Logger         *zap.Logger
}

type styles struct {
	badge    lipgloss.Style
	title    lipgloss.Style
	muted    lipgloss.Style
	errorMsg lipgloss.Style
	positive lipgloss.Style
	negative lipgloss.Style
}

// Terminal renders workflow views as text.
type Terminal struct {
	out      io.Writer
	width    int
	barWidth int
	delay    time.Duration
	interval time.Duration
	frames   int
	clock    clockwork.Clock
	logger   *zap.Logger
	styles   styles

	mu         sync.Mutex
	generation uint64
	badgeShown bool
	animations sync.WaitGroup
}

// NewTerminal builds a presenter writing to out.
func NewTerminal(out io.Writer, opts Options) *Terminal {
	renderer := lipgloss.NewRenderer(out)
	t := &Terminal{
		out:      out,
		width:    opts.Width,
		barWidth: opts.BarWidth,
		delay:    opts.AnimationDelay,
		interval: opts.FrameInterval,
		frames:   opts.Frames,
		clock:    opts.Clock,
		logger:   opts.Logger,
		styles: styles{
			badge:    renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11")).Padding(0, 1),
			title:    renderer.NewStyle().Bold(true),
			muted:    renderer.NewStyle().Faint(true),
			errorMsg: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
			positive: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("208")),
			negative: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		},
	}
	if t.barWidth <= 0 {
		t.barWidth = defaultBarWidth
	}
	if t.delay <= 0 {
		t.delay = defaultAnimationDelay
	}
	if t.interval <= 0 {
		t.interval = defaultFrameInterval
	}
	if t.frames <= 0 {
		t.frames = defaultFrames
	}
	if t.clock == nil {
		t.clock = clockwork.NewRealClock()
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	t.logger = t.logger.Named("presenter")
	return t
}

// Render implements workflow.Presenter.
func (t *Terminal) Render(v workflow.View) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.generation++
	var b strings.Builder

	if v.Mode == classification.ModeDemo && !t.badgeShown {
		t.badgeShown = true
		b.WriteString(t.styles.badge.Render("DEMO MODE") + " " + t.styles.muted.Render("results are simulated locally") + "\n")
	}

	panel := v.Active()
	if t.small() && panel != workflow.PanelUpload && panel != workflow.PanelLoading {
		b.WriteString(clearScreen)
	}

	switch panel {
	case workflow.PanelUpload:
		b.WriteString(t.styles.muted.Render("Drop a chest X-ray (JPEG or PNG, up to 5MB) to begin.") + "\n")
	case workflow.PanelPreview:
		b.WriteString(t.preview(v.File))
		b.WriteString(t.styles.muted.Render("Ready to analyze.") + "\n")
	case workflow.PanelLoading:
		name := ""
		if v.File != nil {
			name = " " + v.File.Name
		}
		b.WriteString(fmt.Sprintf("Analyzing%s...\n", name))
	case workflow.PanelError:
		b.WriteString(t.styles.errorMsg.Render("✗ "+v.Error) + "\n")
		if v.State == workflow.Previewing && v.File != nil {
			b.WriteString(t.styles.muted.Render(v.File.Name+" is still selected; analyze again to retry.") + "\n")
		}
	case workflow.PanelResult:
		b.WriteString(t.result(v))
	}

	t.write(b.String())

	if panel == workflow.PanelResult && v.Result != nil {
		t.animations.Add(1)
		go func(generation uint64, percent float64) {
			defer t.animations.Done()
			t.animate(generation, percent)
		}(t.generation, v.Result.ConfidencePercent)
	}
}

// Wait blocks until every started confidence bar animation has finished
// or been superseded.
func (t *Terminal) Wait() {
	t.animations.Wait()
}

func (t *Terminal) small() bool {
	return t.width > 0 && t.width < SmallViewportColumns
}

func (t *Terminal) preview(file *classification.SelectedFile) string {
	if file == nil {
		return ""
	}
	return fmt.Sprintf("%s %s %s\n",
		t.styles.title.Render(file.Name),
		t.styles.muted.Render(formatBytes(file.SizeBytes)),
		t.styles.muted.Render(file.MIMEType),
	)
}

func (t *Terminal) result(v workflow.View) string {
	r := v.Result
	if r == nil {
		return ""
	}
	percent := classification.ClampConfidence(r.ConfidencePercent)

	icon, status, style := "✓", "No Pneumonia Detected", t.styles.negative
	if r.Label == classification.Positive {
		icon, status, style = "⚠️", "Pneumonia Detected", t.styles.positive
	}

	text := r.RawConfidenceText
	if text == "" {
		text = fmt.Sprintf("Confidence: %.1f%%", percent)
	}

	var b strings.Builder
	if r.SourceFilename != "" {
		b.WriteString(t.styles.muted.Render(r.SourceFilename) + "\n")
	}
	b.WriteString(style.Render(icon+" "+status) + "\n")
	b.WriteString(fmt.Sprintf("%.1f%% Confidence\n", percent))
	b.WriteString(t.styles.muted.Render(text) + "\n")
	b.WriteString(ConfidenceBar(0, t.barWidth) + "\n")
	return b.String()
}

// animate grows the confidence bar to percent unless a newer render
// supersedes it.
func (t *Terminal) animate(generation uint64, percent float64) {
	wait := t.delay
	for frame := 1; frame <= t.frames; frame++ {
		<-t.clock.After(wait)
		wait = t.interval

		t.mu.Lock()
		if t.generation != generation {
			t.mu.Unlock()
			return
		}
		fill := percent * float64(frame) / float64(t.frames)
		t.write(ConfidenceBar(fill, t.barWidth) + "\n")
		t.mu.Unlock()
	}
}

func (t *Terminal) write(s string) {
	if _, err := io.WriteString(t.out, s); err != nil {
		t.logger.Warn("failed to write to terminal", zap.Error(err))
	}
}

// ConfidenceBar draws a fixed-width bar filled to percent.
func ConfidenceBar(percent float64, width int) string {
	percent = classification.ClampConfidence(percent)
	filled := int(math.Round(percent / 100 * float64(width)))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "] " + fmt.Sprintf("%.1f%%", percent)
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
