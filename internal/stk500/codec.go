package stk500

import (
	"time"

	"github.com/stephenkingston/avrman/internal/serialport"
)

// Codec frames, transmits, and validates STK500v1 command/response pairs
// over a Link. It holds no session state of its own.
type Codec struct {
	link    serialport.Link
	timeout time.Duration
}

// NewCodec wraps link with the given per-response timeout.
func NewCodec(link serialport.Link, timeout time.Duration) *Codec {
	return &Codec{link: link, timeout: timeout}
}

// Send issues a command with the given body bytes and returns the
// response payload. expectedPayloadLen must match what the command is
// defined to return: 0 for fixed-void commands, 1 for GET_PARAMETER,
// 3 for READ_SIGN, or the page length for READ_PAGE.
func (c *Codec) Send(cmd byte, body []byte, expectedPayloadLen int) ([]byte, error) {
	frame := make([]byte, 0, len(body)+2)
	frame = append(frame, cmd)
	frame = append(frame, body...)
	frame = append(frame, CrcEOP)

	if err := c.link.WriteAll(frame); err != nil {
		return nil, err
	}

	lead, err := c.link.ReadExact(1, c.timeout)
	if err != nil {
		return nil, err
	}
	switch lead[0] {
	case InSync:
		// proceed below
	case NoSync:
		return nil, &OutOfSyncError{Context: commandName(cmd)}
	default:
		return nil, &ProtocolError{Context: commandName(cmd), Expected: InSync, Got: lead[0]}
	}

	var payload []byte
	if expectedPayloadLen > 0 {
		payload, err = c.link.ReadExact(expectedPayloadLen, c.timeout)
		if err != nil {
			return nil, err
		}
	}

	trail, err := c.link.ReadExact(1, c.timeout)
	if err != nil {
		return nil, err
	}
	if trail[0] != OK {
		return nil, &ProtocolError{Context: commandName(cmd), Expected: OK, Got: trail[0]}
	}
	return payload, nil
}

// GetSync issues GET_SYNC, the liveness probe of the sync sweep.
func (c *Codec) GetSync() error {
	_, err := c.Send(CmdGetSync, nil, 0)
	return err
}

// ReadSignature issues READ_SIGN and returns the device's 3-byte AVR
// signature.
func (c *Codec) ReadSignature() ([3]byte, error) {
	var sig [3]byte
	payload, err := c.Send(CmdReadSign, nil, 3)
	if err != nil {
		return sig, err
	}
	copy(sig[:], payload)
	return sig, nil
}

// SetDevice issues SET_DEVICE with a 20-byte device descriptor.
func (c *Codec) SetDevice(descriptor [20]byte) error {
	_, err := c.Send(CmdSetDevice, descriptor[:], 0)
	return err
}

// SetDeviceExt issues SET_DEVICE_EXT with a 5-byte extended descriptor.
func (c *Codec) SetDeviceExt(descriptor [5]byte) error {
	_, err := c.Send(CmdSetDeviceExt, descriptor[:], 0)
	return err
}

// EnterProgMode issues ENTER_PROGMODE.
func (c *Codec) EnterProgMode() error {
	_, err := c.Send(CmdEnterProgMode, nil, 0)
	return err
}

// LeaveProgMode issues LEAVE_PROGMODE.
func (c *Codec) LeaveProgMode() error {
	_, err := c.Send(CmdLeaveProgMode, nil, 0)
	return err
}

// LoadAddress issues LOAD_ADDRESS, converting a byte address to a word
// address. It is a protocol error to attempt to load an odd byte address.
func (c *Codec) LoadAddress(byteAddress uint16) error {
	if byteAddress%2 != 0 {
		return &OddByteAddressError{ByteAddress: byteAddress}
	}
	word := byteAddress >> 1
	body := []byte{byte(word), byte(word >> 8)} // little-endian
	_, err := c.Send(CmdLoadAddress, body, 0)
	return err
}

// ProgPage issues PROG_PAGE for the flash memory type with the given
// payload.
func (c *Codec) ProgPage(payload []byte) error {
	length := len(payload)
	body := make([]byte, 0, 3+length)
	body = append(body, byte(length>>8), byte(length)) // big-endian length
	body = append(body, MemTypeFlash)
	body = append(body, payload...)
	_, err := c.Send(CmdProgPage, body, 0)
	return err
}

// ReadPage issues READ_PAGE for the flash memory type and returns length
// bytes read back from the device.
func (c *Codec) ReadPage(length int) ([]byte, error) {
	body := []byte{byte(length >> 8), byte(length), MemTypeFlash}
	return c.Send(CmdReadPage, body, length)
}

func commandName(cmd byte) string {
	switch cmd {
	case CmdGetSync:
		return "GET_SYNC"
	case CmdGetParameter:
		return "GET_PARAMETER"
	case CmdSetDevice:
		return "SET_DEVICE"
	case CmdSetDeviceExt:
		return "SET_DEVICE_EXT"
	case CmdEnterProgMode:
		return "ENTER_PROGMODE"
	case CmdLeaveProgMode:
		return "LEAVE_PROGMODE"
	case CmdLoadAddress:
		return "LOAD_ADDRESS"
	case CmdProgPage:
		return "PROG_PAGE"
	case CmdReadPage:
		return "READ_PAGE"
	case CmdReadSign:
		return "READ_SIGN"
	default:
		return "UNKNOWN"
	}
}
