// Package board maps a short board identifier to the TargetParams record
// an STK500v1 session needs. This is a deliberately trivial, compile-time
// lookup; the real logic of this repo lives in internal/stk500.
package board

import (
	"fmt"

	"github.com/stephenkingston/avrman/internal/target"
)

// ID is a recognized board identifier, e.g. "uno".
type ID string

const (
	Uno      ID = "uno"
	Nano     ID = "nano"
	Mini     ID = "mini"
	Mega2560 ID = "mega2560"
)

// UnknownBoardError reports a board identifier with no table entry.
type UnknownBoardError struct {
	ID ID
}

func (e *UnknownBoardError) Error() string {
	return fmt.Sprintf("unknown board id %q", e.ID)
}

var table = map[ID]target.Params{
	Uno: {
		Baud:            115200,
		DeviceSignature: [3]byte{0x1E, 0x95, 0x0F}, // ATmega328P
		PageSize:        128,
		NumPages:        256,
		ProductIDs: []target.ProductID{
			{VID: "2341", PID: "0043"},
			{VID: "2341", PID: "0001"},
			{VID: "1A86", PID: "7523"}, // common CH340 clone
		},
	},
	Nano: {
		Baud:            115200,
		DeviceSignature: [3]byte{0x1E, 0x95, 0x0F}, // ATmega328P
		PageSize:        128,
		NumPages:        256,
		ProductIDs: []target.ProductID{
			{VID: "0403", PID: "6001"}, // FTDI-based Nano
			{VID: "1A86", PID: "7523"}, // CH340-based Nano clone
		},
	},
	Mini: {
		Baud:            57600,
		DeviceSignature: [3]byte{0x1E, 0x95, 0x0F}, // ATmega328P
		PageSize:        128,
		NumPages:        256,
		ProductIDs:      nil, // Pro Mini has no onboard USB-serial adapter
	},
	Mega2560: {
		Baud:            115200,
		DeviceSignature: [3]byte{0x1E, 0x98, 0x01}, // ATmega2560
		PageSize:        256,
		NumPages:        1024,
		ProductIDs: []target.ProductID{
			{VID: "2341", PID: "0042"},
			{VID: "2341", PID: "0010"},
		},
	},
}

// Lookup resolves a board id to its TargetParams. The Port field is left
// empty; callers fill it in from a flag or from serialport.Discover.
func Lookup(id ID) (target.Params, error) {
	p, ok := table[id]
	if !ok {
		return target.Params{}, &UnknownBoardError{ID: id}
	}
	return p, nil
}
