// Package progress reports workflow advancement to a terminal or log sink.
// It is purely observational: trackers never influence execution and write
// only to their configured output.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"idsbench/internal/logging"
)

const barWidth = 24

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	etaStyle   = lipgloss.NewStyle().Faint(true)
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// Tracker reports progress through a fixed number of steps. All methods are
// safe for use from a single goroutine; the engine is single-threaded but
// sub-trackers share their parent's writer, so output is serialised anyway.
type Tracker struct {
	mu        sync.Mutex
	name      string
	total     int
	completed int
	current   string
	started   time.Time
	out       io.Writer
	plain     bool
	depth     int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithWriter redirects output (stdout by default).
func WithWriter(w io.Writer) Option {
	return func(t *Tracker) { t.out = w }
}

// WithPlainOutput disables styling, for headless runs and log capture.
func WithPlainOutput() Option {
	return func(t *Tracker) { t.plain = true }
}

// New creates a tracker for totalSteps steps.
func New(name string, totalSteps int, opts ...Option) *Tracker {
	t := &Tracker{
		name:  name,
		total: totalSteps,
		out:   os.Stdout,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start marks the beginning of the tracked run.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = time.Now()
	t.printf("%s starting (%d steps)", t.styledName(), t.total)
	logging.Progress("%s started with %d steps", t.name, t.total)
}

// IncrementStep begins the next step. The description is optional.
func (t *Tracker) IncrementStep(description string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = description
	line := fmt.Sprintf("%s %s %d/%d", t.styledName(), t.bar(), t.completed, t.total)
	if description != "" {
		line += "  " + description
	}
	if eta := t.eta(); eta > 0 {
		line += "  " + t.styled(etaStyle, "eta "+eta.Round(time.Second).String())
	}
	t.printf("%s", line)
	logging.Progress("%s step %d/%d: %s", t.name, t.completed+1, t.total, description)
}

// CompleteCurrentStep finishes the step begun by IncrementStep. The message
// is optional.
func (t *Tracker) CompleteCurrentStep(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completed < t.total {
		t.completed++
	}
	if message != "" {
		t.printf("%s %s %d/%d  %s", t.styledName(), t.bar(), t.completed, t.total, message)
	}
	logging.Progress("%s completed step %d/%d: %s", t.name, t.completed, t.total, message)
	t.current = ""
}

// Complete marks the whole run finished.
func (t *Tracker) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed = t.total
	elapsed := time.Duration(0)
	if !t.started.IsZero() {
		elapsed = time.Since(t.started).Round(time.Millisecond)
	}
	t.printf("%s %s (%s)", t.styledName(), t.styled(doneStyle, "done"), elapsed)
	logging.Progress("%s finished in %s", t.name, elapsed)
}

// CreateSubTracker returns a tracker for a nested unit of work, indented
// under this one and sharing its writer and styling mode.
func (t *Tracker) CreateSubTracker(name string, totalSteps int) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &Tracker{
		name:  name,
		total: totalSteps,
		out:   t.out,
		plain: t.plain,
		depth: t.depth + 1,
	}
}

// eta estimates remaining time as elapsed scaled by the remaining-to-
// completed ratio. Zero until at least one step has completed.
func (t *Tracker) eta() time.Duration {
	if t.completed == 0 || t.started.IsZero() {
		return 0
	}
	elapsed := time.Since(t.started)
	remaining := t.total - t.completed
	return time.Duration(float64(elapsed) * float64(remaining) / float64(t.completed))
}

func (t *Tracker) bar() string {
	ratio := 0.0
	if t.total > 0 {
		ratio = float64(t.completed) / float64(t.total)
	}
	filled := int(ratio * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
	return t.styled(barStyle, bar)
}

func (t *Tracker) styledName() string {
	return t.styled(labelStyle, t.name)
}

func (t *Tracker) styled(s lipgloss.Style, text string) string {
	if t.plain {
		return text
	}
	return s.Render(text)
}

func (t *Tracker) printf(format string, args ...interface{}) {
	indent := strings.Repeat("  ", t.depth)
	fmt.Fprintf(t.out, indent+format+"\n", args...)
}
