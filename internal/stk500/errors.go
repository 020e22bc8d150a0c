package stk500

import "fmt"

// ProtocolError reports an unexpected framing byte: anything other than
// the INSYNC/OK bracket the codec expects for a given exchange.
type ProtocolError struct {
	Context  string
	Expected byte
	Got      byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("stk500 protocol error (%s): expected 0x%02X, got 0x%02X",
		e.Context, e.Expected, e.Got)
}

// OutOfSyncError reports a NOSYNC response.
type OutOfSyncError struct {
	Context string
}

func (e *OutOfSyncError) Error() string {
	return fmt.Sprintf("stk500 out of sync (%s)", e.Context)
}

// SyncTimeoutError reports exhaustion of the sync-sweep retry budget.
type SyncTimeoutError struct {
	Attempts int
}

func (e *SyncTimeoutError) Error() string {
	return fmt.Sprintf("sync timeout after %d attempts", e.Attempts)
}

// SignatureMismatchError reports a READ_SIGN result that does not match
// the target's expected device signature.
type SignatureMismatchError struct {
	Expected [3]byte
	Got      [3]byte
}

func (e *SignatureMismatchError) Error() string {
	return fmt.Sprintf("device signature mismatch: expected % 02X, got % 02X",
		e.Expected, e.Got)
}

// WriteFailedError reports a protocol or I/O failure while addressing or
// programming a page.
type WriteFailedError struct {
	Page  int
	Cause error
}

func (e *WriteFailedError) Error() string {
	return fmt.Sprintf("write failed at page %d: %v", e.Page, e.Cause)
}

func (e *WriteFailedError) Unwrap() error { return e.Cause }

// VerifyMismatchError reports a read-back page that does not match what
// was written.
type VerifyMismatchError struct {
	Page               int
	FirstDifferingByte int
	Expected           byte
	Got                byte
}

func (e *VerifyMismatchError) Error() string {
	return fmt.Sprintf("verify mismatch at page %d, offset %d: expected 0x%02X, got 0x%02X",
		e.Page, e.FirstDifferingByte, e.Expected, e.Got)
}

// CancelledError reports a caller-requested cancellation between page
// operations.
type CancelledError struct{}

func (e *CancelledError) Error() string { return "session cancelled" }

// OddByteAddressError reports an attempt to LOAD_ADDRESS an odd byte
// address, which cannot be expressed as a word address.
type OddByteAddressError struct {
	ByteAddress uint16
}

func (e *OddByteAddressError) Error() string {
	return fmt.Sprintf("byte address 0x%04X is odd: cannot be expressed as a word address", e.ByteAddress)
}
