package serialport

import (
	"fmt"
	"time"
)

// MockLink is a scripted, in-memory Link for exercising the codec and
// session state machine without a real device. Responses are consumed in
// FIFO order; Written records every byte handed to WriteAll for
// assertions about exact framing.
type MockLink struct {
	Responses [][]byte
	Written   [][]byte
	DTRLog    []bool
	Closed    bool

	// NoResponse, when set, causes ReadExact to time out instead of
	// consuming an entry from Responses - used to script a silent bootloader.
	NoResponse bool

	pending []byte
}

func NewMockLink(responses ...[]byte) *MockLink {
	return &MockLink{Responses: responses}
}

func (m *MockLink) WriteAll(b []byte) error {
	cp := make([]byte, len(b))
	copy(cp, b)
	m.Written = append(m.Written, cp)
	return nil
}

func (m *MockLink) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	if m.NoResponse {
		return nil, &TimeoutError{Requested: n, Received: 0, Timeout: timeout}
	}
	for len(m.pending) < n {
		if len(m.Responses) == 0 {
			return nil, &TimeoutError{Requested: n, Received: len(m.pending), Timeout: timeout}
		}
		m.pending = append(m.pending, m.Responses[0]...)
		m.Responses = m.Responses[1:]
	}
	out := m.pending[:n]
	m.pending = m.pending[n:]
	return out, nil
}

func (m *MockLink) SetDTR(level bool) error {
	m.DTRLog = append(m.DTRLog, level)
	return nil
}

func (m *MockLink) DrainInput() {
	m.pending = nil
}

func (m *MockLink) Close() error {
	m.Closed = true
	return nil
}

func (m *MockLink) String() string {
	return fmt.Sprintf("MockLink{written=%d, closed=%v}", len(m.Written), m.Closed)
}
