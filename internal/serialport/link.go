// Package serialport is a thin, blocking byte-stream abstraction the
// STK500v1 engine programs against. It is backed by go.bug.st/serial, the
// same library this module's reference implementation of a host-to-AVR
// serial tool uses.
package serialport

import (
	"fmt"
	"io"
	"syscall"
	"time"

	"go.bug.st/serial"
)

// PortError wraps a failure to open or configure the host serial device.
type PortError struct {
	Port string
	Op   string
	Err  error
}

func (e *PortError) Error() string {
	return fmt.Sprintf("serial port %s: %s: %v", e.Port, e.Op, e.Err)
}

func (e *PortError) Unwrap() error { return e.Err }

// TimeoutError reports that read_exact did not receive n bytes in time.
type TimeoutError struct {
	Requested int
	Received  int
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("serial read timeout after %v: got %d of %d bytes",
		e.Timeout, e.Received, e.Requested)
}

// Link is the contract the STK500v1 codec and session drive. The real
// implementation is *Port; tests substitute a scripted mock.
type Link interface {
	WriteAll(b []byte) error
	ReadExact(n int, timeout time.Duration) ([]byte, error)
	SetDTR(level bool) error
	DrainInput()
	Close() error
}

// Port is a Link backed by a real OS serial device.
type Port struct {
	name string
	port serial.Port
}

// Open configures and opens the named serial device at the given baud
// rate: 8 data bits, no parity, 1 stop bit, as required by spec.
func Open(name string, baud int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, &PortError{Port: name, Op: "open", Err: err}
	}
	return &Port{name: name, port: p}, nil
}

// WriteAll sends every byte of b or returns an error; it retries writes
// interrupted by EINTR, which Go's runtime signal handling makes common.
func (p *Port) WriteAll(b []byte) error {
	for {
		n, err := p.port.Write(b)
		if isRetryableSyscallError(err) {
			if n != 0 {
				return &PortError{Port: p.name, Op: "write", Err: fmt.Errorf("partial write on retry")}
			}
			continue
		}
		if err != nil {
			return &PortError{Port: p.name, Op: "write", Err: err}
		}
		if n != len(b) {
			return &PortError{Port: p.name, Op: "write", Err: fmt.Errorf("short write: %d of %d bytes", n, len(b))}
		}
		return nil
	}
}

// ReadExact blocks up to timeout for exactly n bytes.
func (p *Port) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	deadline := time.Now().Add(timeout)
	for got < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return buf[:got], &TimeoutError{Requested: n, Received: got, Timeout: timeout}
		}
		if err := p.port.SetReadTimeout(remaining); err != nil {
			return buf[:got], &PortError{Port: p.name, Op: "set read timeout", Err: err}
		}
		m, err := p.port.Read(buf[got:])
		if isRetryableSyscallError(err) {
			if m != 0 {
				return buf[:got], &PortError{Port: p.name, Op: "read", Err: fmt.Errorf("bytes returned despite EINTR")}
			}
			continue
		}
		if err != nil {
			if err == io.EOF {
				return buf[:got], &TimeoutError{Requested: n, Received: got, Timeout: timeout}
			}
			return buf[:got], &PortError{Port: p.name, Op: "read", Err: err}
		}
		if m == 0 {
			return buf[:got], &TimeoutError{Requested: n, Received: got, Timeout: timeout}
		}
		got += m
	}
	return buf, nil
}

// SetDTR toggles the DTR line, used to pulse the Arduino auto-reset circuit.
func (p *Port) SetDTR(level bool) error {
	if err := p.port.SetDTR(level); err != nil {
		return &PortError{Port: p.name, Op: "set DTR", Err: err}
	}
	return nil
}

// DrainInput discards any bytes the device has pending, using short reads
// until one produces nothing.
func (p *Port) DrainInput() {
	for {
		_, err := p.ReadExact(1, 20*time.Millisecond)
		if err != nil {
			return
		}
	}
}

// Close releases the underlying OS handle.
func (p *Port) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	if err != nil {
		return &PortError{Port: p.name, Op: "close", Err: err}
	}
	return nil
}

// PulseReset drives DTR low for at least 50ms, then high, then waits at
// least 50ms before the caller proceeds to sync, per spec: this triggers
// the hardware auto-reset wiring found on Arduino-class boards.
func PulseReset(l Link) error {
	if err := l.SetDTR(false); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	if err := l.SetDTR(true); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	return nil
}

func isRetryableSyscallError(err error) bool {
	const eIntr = 4
	if errno, ok := err.(syscall.Errno); ok {
		return errno == eIntr
	}
	return false
}
