package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerLifecycle(t *testing.T) {
	var buf bytes.Buffer
	tr := New("seed sweep", 3, WithWriter(&buf), WithPlainOutput())

	tr.Start()
	tr.IncrementStep("createBenign")
	tr.CompleteCurrentStep("benign dataset ready")
	tr.IncrementStep("trainModel")
	tr.CompleteCurrentStep("")
	tr.Complete()

	out := buf.String()
	assert.Contains(t, out, "seed sweep starting (3 steps)")
	assert.Contains(t, out, "createBenign")
	assert.Contains(t, out, "benign dataset ready")
	assert.Contains(t, out, "done")
}

func TestTrackerBarFills(t *testing.T) {
	var buf bytes.Buffer
	tr := New("run", 2, WithWriter(&buf), WithPlainOutput())
	tr.Start()
	tr.IncrementStep("a")
	tr.CompleteCurrentStep("half")
	tr.IncrementStep("b")

	out := buf.String()
	assert.Contains(t, out, "1/2")
	// Half of a 24-cell bar.
	assert.Contains(t, out, strings.Repeat("█", 12))
}

func TestTrackerETAScalesWithRemaining(t *testing.T) {
	tr := New("run", 4, WithWriter(&bytes.Buffer{}), WithPlainOutput())
	tr.Start()
	tr.started = time.Now().Add(-10 * time.Second)
	tr.completed = 1

	eta := tr.eta()
	// One step took ~10s, three remain.
	assert.InDelta(t, (30 * time.Second).Seconds(), eta.Seconds(), 1.0)
}

func TestTrackerETAUndefinedBeforeFirstCompletion(t *testing.T) {
	tr := New("run", 4, WithWriter(&bytes.Buffer{}), WithPlainOutput())
	tr.Start()
	assert.Equal(t, time.Duration(0), tr.eta())
}

func TestSubTrackerIndentsAndSharesWriter(t *testing.T) {
	var buf bytes.Buffer
	parent := New("pipeline", 2, WithWriter(&buf), WithPlainOutput())
	parent.Start()

	child := parent.CreateSubTracker("iteration 1", 3)
	child.Start()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.False(t, strings.HasPrefix(lines[0], "  "))
	assert.True(t, strings.HasPrefix(lines[1], "  iteration 1"))
}

func TestCompleteCurrentStepNeverOvershoots(t *testing.T) {
	tr := New("run", 1, WithWriter(&bytes.Buffer{}), WithPlainOutput())
	tr.Start()
	tr.IncrementStep("only")
	tr.CompleteCurrentStep("")
	tr.CompleteCurrentStep("")
	assert.Equal(t, 1, tr.completed)
}
