package monitor

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hilsim/hilsim/internal/sim"
)

var _ sim.Sink = (*Printer)(nil)

func TestPrinter_Publish(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.Publish(sim.Snapshot{
		Iteration: 2000,
		Elapsed:   2 * time.Second,
		Status:    "flying",
		Position:  [3]float64{1, 2, 3},
		Attitude:  [4]float64{1, 0, 0, 0},
		Commands:  []float64{0.5, 0.5, 0.5, 0.5},
	})

	out := buf.String()
	assert.Contains(t, out, "iteration=2000")
	assert.Contains(t, out, "avgHz=1000")
	assert.Contains(t, out, "pos=[1,2,3]")
	assert.Contains(t, out, "cmds=[0.5,0.5,0.5,0.5]")
	assert.Contains(t, out, "status: flying")
	assert.NotContains(t, out, "\x1b[")
}

func TestStatusLine(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}, false)
	assert.Equal(t, colorGreen+"status: landed"+colorReset, p.statusLine("landed"))
	assert.Equal(t, colorRed+"status: flying"+colorReset, p.statusLine("flying"))
	assert.Equal(t, colorYellow+"status: landing"+colorReset, p.statusLine("landing"))
	assert.Equal(t, "status: unknown", p.statusLine("unknown"))

	plain := NewPrinter(&bytes.Buffer{}, true)
	assert.Equal(t, "status: flying", plain.statusLine("flying"))
}

func TestAverageRate(t *testing.T) {
	assert.Zero(t, averageRate(10, 0))
	assert.InDelta(t, 500.0, averageRate(500, time.Second), 1e-9)
}
