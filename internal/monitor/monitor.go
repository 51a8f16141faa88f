// Package monitor prints a periodic vehicle summary to the console.
package monitor

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/hilsim/hilsim/internal/sim"
)

// ANSI colors per vehicle status
const (
	colorGreen  = "\x1b[32m"
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorReset  = "\x1b[0m"
)

var statusColors = map[string]string{
	"landed":  colorGreen,
	"flying":  colorRed,
	"landing": colorYellow,
}

// Printer writes one console line per snapshot. It implements sim.Sink and
// is registered at SIM_PRINT_HZ.
type Printer struct {
	log     zerolog.Logger
	noColor bool
}

// NewPrinter writes to w through a zerolog ConsoleWriter.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	cw := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: "15:04:05.000",
	}
	return &Printer{
		log:     zerolog.New(cw).With().Timestamp().Logger(),
		noColor: noColor,
	}
}

// Publish prints the pose, thrust, commands and status in s.
func (p *Printer) Publish(s sim.Snapshot) {
	p.log.Info().
		Uint64("iteration", s.Iteration).
		Float64("avgHz", averageRate(s.Iteration, s.Elapsed)).
		Floats64("pos", s.Position[:]).
		Floats64("vel", s.Velocity[:]).
		Floats64("quat", s.Attitude[:]).
		Floats64("omega", s.AngularRate[:]).
		Floats64("thrust", s.Thrust[:]).
		Floats64("cmds", s.Commands).
		Float64("soc", s.SOC).
		Msg(p.statusLine(s.Status))
}

// statusLine is the message of each line, colored by status. The console
// writer quotes field values holding escape codes but not the message.
func (p *Printer) statusLine(status string) string {
	line := "status: " + status
	c, ok := statusColors[status]
	if p.noColor || !ok {
		return line
	}
	return c + line + colorReset
}

func averageRate(iterations uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(iterations) / elapsed.Seconds()
}
