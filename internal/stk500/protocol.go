// Package stk500 implements the STK500v1 wire protocol: command framing,
// response validation, and the programming session state machine that
// drives a page-write/verify loop over a serialport.Link.
package stk500

// Framing bytes.
const (
	CrcEOP     = 0x20
	InSync     = 0x14
	OK         = 0x10
	NoSync     = 0x15
	Failed     = 0x11
	NoDevice   = 0x31
	Unknown    = 0x12
	PinsFailed = 0x13
)

// Command bytes, per the STK500v1 command set this engine supports.
const (
	CmdGetSync       = 0x30
	CmdGetParameter  = 0x41
	CmdSetDevice     = 0x42
	CmdSetDeviceExt  = 0x45
	CmdEnterProgMode = 0x50
	CmdLeaveProgMode = 0x51
	CmdLoadAddress   = 0x55
	CmdProgPage      = 0x64
	CmdReadPage      = 0x74
	CmdReadSign      = 0x75
)

// MemTypeFlash identifies the memory space a PROG_PAGE/READ_PAGE command
// targets. Only flash ('F') is used: this engine does not program EEPROM.
const MemTypeFlash = 'F'

// DefaultTimeoutMillis is the per-response timeout, in milliseconds,
// unless a command specifies otherwise.
const DefaultTimeoutMillis = 500
