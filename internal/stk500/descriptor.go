package stk500

// BuildDeviceDescriptor fills the 20-byte SET_DEVICE body. The device
// signature itself is never part of this frame; it is checked separately
// against READ_SIGN before this descriptor is ever sent. The bootloader
// only really cares about page size and page count here, so the
// remaining fields mirror avrdude's well-known defaults for m328p-class
// parts and are not a point of cross-implementation conformance.
func BuildDeviceDescriptor(pageSizeBytes int, numPages int) [20]byte {
	var d [20]byte
	d[0] = 0x86 // device code (avrdude: m328p-class "devicecode")
	d[1] = 0    // revision
	d[2] = 0    // progtype: 0 = paged
	d[3] = 1    // parmode: 1 = pseudo/parallel emulation via serial
	d[4] = 1    // polling supported
	d[5] = 1    // self-programming supported
	d[6] = 8    // lock bytes (unused by this engine, kept for bootloader tolerance)
	d[7] = 3    // fuse bytes
	d[8] = 0xFF // flash poll value 1
	d[9] = 0xFF // flash poll value 2
	d[10] = 0xFF
	d[11] = 0xFF
	// eeprom page size, size low/high - not used (no EEPROM support) but
	// bootloaders tolerate zero here.
	d[12] = 0
	d[13] = 0
	d[14] = 0
	pageWords := pageSizeBytes / 2
	d[15] = byte(pageWords >> 8)
	d[16] = byte(pageWords)
	flashSize := pageSizeBytes * numPages
	d[17] = byte(flashSize >> 16)
	d[18] = byte(flashSize >> 8)
	d[19] = byte(flashSize)
	return d
}

// BuildExtendedDescriptor fills the 5-byte SET_DEVICE_EXT body with
// avrdude's standard constants for a part with no boot-section support
// beyond what STK500v1 itself requires.
func BuildExtendedDescriptor(pageSizeBytes int) [5]byte {
	var d [5]byte
	d[0] = 4 // command size
	d[1] = 0 // EEPROM page size (unused)
	d[2] = 0 // signal page length (unused for this engine)
	d[3] = 0
	d[4] = 0
	return d
}
