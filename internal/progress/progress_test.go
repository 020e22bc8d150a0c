package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stephenkingston/avrman/internal/stk500"
)

func TestNullSinkAlwaysContinues(t *testing.T) {
	var s NullSink
	sig := s.OnEvent(stk500.ProgressEvent{Phase: stk500.PhaseProgramming, PagesDone: 1, PagesTotal: 1})
	assert.Equal(t, stk500.Continue, sig)
}

func TestBarSinkRendersProgressAndPhaseBreak(t *testing.T) {
	var buf bytes.Buffer
	sink := NewBarSink(&buf)

	sink.OnEvent(stk500.ProgressEvent{Phase: stk500.PhaseProgramming, PagesDone: 1, PagesTotal: 2})
	sink.OnEvent(stk500.ProgressEvent{Phase: stk500.PhaseProgramming, PagesDone: 2, PagesTotal: 2})
	sink.OnEvent(stk500.ProgressEvent{Phase: stk500.PhaseVerifying, PagesDone: 1, PagesTotal: 2})

	out := buf.String()
	assert.Contains(t, out, "Programming")
	assert.Contains(t, out, "Verifying")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "2/2")
	assert.Contains(t, out, "\n\rVerifying", "a new phase must start on its own line")
}

func TestFuncAdapter(t *testing.T) {
	called := false
	f := Func(func(stk500.ProgressEvent) stk500.Signal {
		called = true
		return stk500.Cancel
	})
	sig := f.OnEvent(stk500.ProgressEvent{})
	assert.True(t, called)
	assert.Equal(t, stk500.Cancel, sig)
}
