// Package avrman is the stable entry point for programming an AVR
// microcontroller over STK500v1: construct a Programmer from a board id
// or a target.Params, then call ProgramHexFile. See internal/stk500 for
// the protocol engine this wraps.
package avrman

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/stephenkingston/avrman/internal/board"
	"github.com/stephenkingston/avrman/internal/firmware"
	"github.com/stephenkingston/avrman/internal/hexfile"
	"github.com/stephenkingston/avrman/internal/progress"
	"github.com/stephenkingston/avrman/internal/serialport"
	"github.com/stephenkingston/avrman/internal/stk500"
	"github.com/stephenkingston/avrman/internal/target"
)

// Re-exported so callers outside this module don't need to import the
// internal packages directly for the common path.
type (
	TargetParams  = target.Params
	ProgressEvent = stk500.ProgressEvent
	Signal        = stk500.Signal
	Phase         = stk500.Phase
)

const (
	PhaseProgramming = stk500.PhaseProgramming
	PhaseVerifying   = stk500.PhaseVerifying
	Continue         = stk500.Continue
	Cancel           = stk500.Cancel
)

// ProgressCallback is the shape a caller registers with SetProgressCallback.
type ProgressCallback func(ProgressEvent) Signal

// Programmer is the Facade external collaborators use. Only one session
// at a time may run against a given instance; after a failed session,
// construct a fresh Programmer rather than reusing this one.
type Programmer struct {
	params       target.Params
	verifyAfter  bool
	progressBar  bool
	onProgress   ProgressCallback
	logger       *log.Logger
	respTimeout  time.Duration
	used         bool
}

// NewFromBoard resolves id via internal/board and binds it to the given
// serial port.
func NewFromBoard(id board.ID, port string) (*Programmer, error) {
	p, err := board.Lookup(id)
	if err != nil {
		return nil, err
	}
	p.Port = port
	return NewFromParams(p), nil
}

// NewFromParams constructs a Programmer directly from a fully specified
// TargetParams, for callers with a board the static table doesn't know.
func NewFromParams(params target.Params) *Programmer {
	return &Programmer{
		params:      params,
		verifyAfter: true,
		logger:      log.Default(),
	}
}

// SetLogger overrides the logger stored on the Programmer (log.Default()
// unless set). The logger is not passed on to the session or serial
// layers, which do not log.
func (p *Programmer) SetLogger(l *log.Logger) { p.logger = l }

// SetVerifyAfterProgramming toggles the optional read-back verify pass.
// Enabled by default.
func (p *Programmer) SetVerifyAfterProgramming(enabled bool) { p.verifyAfter = enabled }

// SetProgressBar enables the built-in terminal progress renderer. It is
// ignored if a progress callback has been registered with
// SetProgressCallback.
func (p *Programmer) SetProgressBar(enabled bool) { p.progressBar = enabled }

// SetProgressCallback registers a caller-supplied progress sink, taking
// precedence over the built-in progress bar.
func (p *Programmer) SetProgressCallback(cb ProgressCallback) { p.onProgress = cb }

// SetResponseTimeout overrides the per-command STK500v1 response timeout.
// Zero means "use the protocol default" (500ms).
func (p *Programmer) SetResponseTimeout(d time.Duration) { p.respTimeout = d }

// openLink is a seam for tests: it defaults to opening a real OS serial
// device but is swapped out in this package's test file for a scripted
// mock, since ProgramHexFile otherwise has no way to reach one.
var openLink = func(port string, baud int) (serialport.Link, error) {
	return serialport.Open(port, baud)
}

// FailureReason is returned by ProgramHexFile on any non-nil error; it is
// just an alias today but gives callers a single type to type-switch on
// as the error taxonomy grows.
type FailureReason = error

// ProgramHexFile runs the full pipeline: decode the HEX file, paginate it
// to the target's page size, then drive a session to write (and
// optionally verify) every touched page. Only one session may run per
// Programmer instance.
func (p *Programmer) ProgramHexFile(path string) FailureReason {
	if p.used {
		return fmt.Errorf("avrman: this Programmer has already run a session; construct a new one")
	}
	p.used = true

	f, err := os.Open(path)
	if err != nil {
		return &hexfile.ParseError{Kind: hexfile.IoError, Message: err.Error(), Cause: err}
	}
	defer f.Close()

	img, err := hexfile.Decode(f)
	if err != nil {
		return err
	}

	writes := firmware.Paginate(img, p.params.PageSize)

	link, err := openLink(p.params.Port, p.params.Baud)
	if err != nil {
		return err
	}

	sink := p.resolveSink()
	opts := stk500.Options{
		VerifyAfterProgramming: p.verifyAfter,
		OnProgress:             sink.OnEvent,
		ResponseTimeout:        p.respTimeout,
	}
	sess := stk500.NewSession(link, p.params, opts)
	return sess.Run(writes)
}

func (p *Programmer) resolveSink() progress.Sink {
	if p.onProgress != nil {
		return progress.Func(p.onProgress)
	}
	if p.progressBar {
		return progress.NewBarSink(os.Stdout)
	}
	return progress.NullSink{}
}
