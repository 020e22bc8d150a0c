package stk500

import (
	"time"

	"github.com/stephenkingston/avrman/internal/firmware"
	"github.com/stephenkingston/avrman/internal/serialport"
	"github.com/stephenkingston/avrman/internal/target"
)

// State is a tag for the session's current position in the programming
// lifecycle, mainly useful for logging and tests.
type State int

const (
	StateDisconnected State = iota
	StateOpened
	StateSynced
	StateInProgMode
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateOpened:
		return "Opened"
	case StateSynced:
		return "Synced"
	case StateInProgMode:
		return "InProgMode"
	case StateFinished:
		return "Finished"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Phase identifies which half of the page loop a ProgressEvent reports.
type Phase int

const (
	PhaseProgramming Phase = iota
	PhaseVerifying
)

func (p Phase) String() string {
	if p == PhaseVerifying {
		return "Verifying"
	}
	return "Programming"
}

// ProgressEvent is emitted synchronously between page operations.
type ProgressEvent struct {
	Phase      Phase
	PagesDone  int
	PagesTotal int
}

// Signal is returned from a progress callback to request that the
// session continue or cancel at the next opportunity.
type Signal int

const (
	Continue Signal = iota
	Cancel
)

// ProgressFunc is the capability the session calls between page
// operations. A nil ProgressFunc is treated as always-Continue.
type ProgressFunc func(ProgressEvent) Signal

// Options carries the session knobs the Programmer Facade exposes.
type Options struct {
	VerifyAfterProgramming bool
	OnProgress             ProgressFunc
	ResponseTimeout        time.Duration // defaults to DefaultTimeoutMillis
}

const (
	syncAttempts = 5
	syncGap      = 100 * time.Millisecond
)

// Session drives one programming session end to end over an open Link: reset-pulse,
// sync, identify, program, optionally verify, leave, close. It owns the
// Link exclusively for its duration and releases it on every exit path.
type Session struct {
	params target.Params
	opts   Options
	link   serialport.Link
	codec  *Codec
	state  State
}

// NewSession constructs a session bound to an already-open Link (the
// Facade opens the physical port with serialport.Open before this call).
// Run closes the Link when it returns.
func NewSession(link serialport.Link, params target.Params, opts Options) *Session {
	if opts.ResponseTimeout == 0 {
		opts.ResponseTimeout = DefaultTimeoutMillis * time.Millisecond
	}
	return &Session{
		params: params,
		opts:   opts,
		link:   link,
		codec:  NewCodec(link, opts.ResponseTimeout),
		state:  StateDisconnected,
	}
}

// State returns the session's current state tag.
func (s *Session) State() State { return s.state }

// Run executes the full programming lifecycle against writes, which must
// already be in ascending page-index order (see internal/firmware).
// The Link is closed on every return path.
func (s *Session) Run(writes []firmware.PageWrite) error {
	defer s.link.Close()

	s.state = StateOpened
	if err := serialport.PulseReset(s.link); err != nil {
		s.state = StateFailed
		return err
	}
	s.link.DrainInput()

	if err := s.syncSweep(); err != nil {
		s.state = StateFailed
		return err
	}
	s.state = StateSynced

	if err := s.identify(); err != nil {
		s.state = StateFailed
		return err
	}

	if err := s.codec.EnterProgMode(); err != nil {
		s.state = StateFailed
		return err
	}
	s.state = StateInProgMode

	if err := s.writeAll(writes); err != nil {
		s.teardown()
		s.state = StateFailed
		return err
	}

	if s.opts.VerifyAfterProgramming {
		if err := s.verifyAll(writes); err != nil {
			s.teardown()
			s.state = StateFailed
			return err
		}
	}

	s.teardown()
	s.state = StateFinished
	return nil
}

// syncSweep retries GET_SYNC up to syncAttempts times, draining input
// before each attempt and sleeping syncGap between retries, to ride out
// a bootloader that is still booting or has stale bytes queued.
func (s *Session) syncSweep() error {
	for attempt := 0; attempt < syncAttempts; attempt++ {
		s.link.DrainInput()
		if err := s.codec.GetSync(); err == nil {
			return nil
		}
		if attempt < syncAttempts-1 {
			time.Sleep(syncGap)
		}
	}
	return &SyncTimeoutError{Attempts: syncAttempts}
}

func (s *Session) identify() error {
	got, err := s.codec.ReadSignature()
	if err != nil {
		return err
	}
	if got != s.params.DeviceSignature {
		return &SignatureMismatchError{Expected: s.params.DeviceSignature, Got: got}
	}

	descriptor := BuildDeviceDescriptor(s.params.PageSize, s.params.NumPages)
	if err := s.codec.SetDevice(descriptor); err != nil {
		return err
	}
	ext := BuildExtendedDescriptor(s.params.PageSize)
	return s.codec.SetDeviceExt(ext)
}

func (s *Session) writeAll(writes []firmware.PageWrite) error {
	total := len(writes)
	for i, w := range writes {
		if err := s.codec.LoadAddress(w.ByteAddress); err != nil {
			return &WriteFailedError{Page: w.PageIndex, Cause: err}
		}
		if err := s.codec.ProgPage(w.Payload); err != nil {
			return &WriteFailedError{Page: w.PageIndex, Cause: err}
		}
		if s.emit(ProgressEvent{Phase: PhaseProgramming, PagesDone: i + 1, PagesTotal: total}) == Cancel {
			return &CancelledError{}
		}
	}
	return nil
}

func (s *Session) verifyAll(writes []firmware.PageWrite) error {
	total := len(writes)
	for i, w := range writes {
		if err := s.codec.LoadAddress(w.ByteAddress); err != nil {
			return &WriteFailedError{Page: w.PageIndex, Cause: err}
		}
		got, err := s.codec.ReadPage(len(w.Payload))
		if err != nil {
			return &WriteFailedError{Page: w.PageIndex, Cause: err}
		}
		for offset := range w.Payload {
			if got[offset] != w.Payload[offset] {
				return &VerifyMismatchError{
					Page:               w.PageIndex,
					FirstDifferingByte: offset,
					Expected:           w.Payload[offset],
					Got:                got[offset],
				}
			}
		}
		if s.emit(ProgressEvent{Phase: PhaseVerifying, PagesDone: i + 1, PagesTotal: total}) == Cancel {
			return &CancelledError{}
		}
	}
	return nil
}

func (s *Session) emit(ev ProgressEvent) Signal {
	if s.opts.OnProgress == nil {
		return Continue
	}
	return s.opts.OnProgress(ev)
}

// teardown attempts LEAVE_PROGMODE best-effort; failures here never mask
// the error that triggered teardown.
func (s *Session) teardown() {
	_ = s.codec.LeaveProgMode()
}
