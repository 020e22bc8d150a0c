// Package progress defines the ProgressSink capability the Programmer
// Facade forwards session events to, plus a built-in terminal renderer.
// Grounded on the staged progress-callback shape used elsewhere in this
// module's reference corpus for long-running device operations
// (stage + index + message, delivered synchronously between steps).
package progress

import (
	"fmt"
	"io"
	"strings"

	"github.com/stephenkingston/avrman/internal/stk500"
)

// Sink is the capability a caller implements to observe a session's
// progress and optionally request cancellation.
type Sink interface {
	OnEvent(stk500.ProgressEvent) stk500.Signal
}

// Func adapts a plain function to the Sink interface.
type Func func(stk500.ProgressEvent) stk500.Signal

func (f Func) OnEvent(ev stk500.ProgressEvent) stk500.Signal { return f(ev) }

// NullSink always continues; used when the progress bar is disabled and
// no caller callback is registered.
type NullSink struct{}

func (NullSink) OnEvent(stk500.ProgressEvent) stk500.Signal { return stk500.Continue }

const barWidth = 30

// BarSink renders a carriage-return-addressed text progress bar to w. It
// is not safe for concurrent use, matching the engine's single-threaded
// model.
type BarSink struct {
	w            io.Writer
	lastPhase    stk500.Phase
	phaseStarted bool
}

// NewBarSink returns a Sink that writes to w.
func NewBarSink(w io.Writer) *BarSink {
	return &BarSink{w: w}
}

func (b *BarSink) OnEvent(ev stk500.ProgressEvent) stk500.Signal {
	if b.phaseStarted && ev.Phase != b.lastPhase {
		fmt.Fprintln(b.w)
	}
	b.lastPhase = ev.Phase
	b.phaseStarted = true

	filled := 0
	if ev.PagesTotal > 0 {
		filled = barWidth * ev.PagesDone / ev.PagesTotal
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	fmt.Fprintf(b.w, "\r%s [%s] %d/%d", ev.Phase, bar, ev.PagesDone, ev.PagesTotal)
	if ev.PagesDone == ev.PagesTotal {
		fmt.Fprintln(b.w)
	}
	return stk500.Continue
}
