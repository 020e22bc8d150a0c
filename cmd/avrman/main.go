// Command avrman programs an AVR microcontroller's flash over STK500v1
// from an Intel HEX firmware image.
package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/stephenkingston/avrman"
	"github.com/stephenkingston/avrman/internal/board"
	"github.com/stephenkingston/avrman/internal/hexfile"
	"github.com/stephenkingston/avrman/internal/serialport"
	"github.com/stephenkingston/avrman/internal/stk500"
)

const (
	exitOK           = 0
	exitUsageError   = 1
	exitIOError      = 2
	exitProtoError   = 3
	exitVerifyFailed = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := log.New(os.Stderr, "avrman: ", log.Lmsgprefix|log.Ltime)

	if len(args) < 1 || args[0] != "program" {
		logger.Println("usage: avrman program -b <board> -f <firmware.hex> [flags]")
		return exitUsageError
	}

	fs := flag.NewFlagSet("program", flag.ContinueOnError)
	boardID := fs.String("b", "", "board id, e.g. uno, nano, mini, mega2560")
	fs.StringVar(boardID, "board", "", "alias for -b")
	firmwarePath := fs.String("f", "", "path to the Intel HEX firmware image")
	fs.StringVar(firmwarePath, "firmware", "", "alias for -f")
	serialPort := fs.String("serial", "", "serial device, overrides auto-detect")
	baud := fs.Int("baudrate", 0, "baud rate, overrides the board table")
	noVerify := fs.Bool("no-verify", false, "skip read-back verification")
	noProgress := fs.Bool("no-progress", false, "disable the terminal progress bar")
	timeoutMs := fs.Int("timeout", stk500.DefaultTimeoutMillis, "per-command response timeout in milliseconds")

	if err := fs.Parse(args[1:]); err != nil {
		return exitUsageError
	}

	if *boardID == "" || *firmwarePath == "" {
		logger.Println("both -b/--board and -f/--firmware are required")
		return exitUsageError
	}

	params, err := board.Lookup(board.ID(*boardID))
	if err != nil {
		logger.Printf("%v", err)
		return exitUsageError
	}
	if *baud != 0 {
		params.Baud = *baud
	}

	port := *serialPort
	if port == "" {
		port, err = serialport.Discover(params.ProductIDs)
		if err != nil {
			logger.Printf("auto-detecting serial port: %v", err)
			return exitIOError
		}
		logger.Printf("auto-detected serial port %s", port)
	}
	params.Port = port

	p := avrman.NewFromParams(params)
	p.SetLogger(logger)
	p.SetVerifyAfterProgramming(!*noVerify)
	p.SetProgressBar(!*noProgress)
	p.SetResponseTimeout(time.Duration(*timeoutMs) * time.Millisecond)

	if err := p.ProgramHexFile(*firmwarePath); err != nil {
		return exitCodeFor(err, logger)
	}
	logger.Println("done")
	return exitOK
}

func exitCodeFor(err error, logger *log.Logger) int {
	var hexErr *hexfile.ParseError
	var portErr *serialport.PortError
	var timeoutErr *serialport.TimeoutError
	var verifyErr *stk500.VerifyMismatchError

	switch {
	case errors.As(err, &hexErr):
		logger.Printf("firmware image error: %v", err)
		return exitIOError
	case errors.As(err, &portErr):
		logger.Printf("serial port error: %v", err)
		return exitIOError
	case errors.As(err, &timeoutErr):
		logger.Printf("serial timeout: %v", err)
		return exitIOError
	case errors.As(err, &verifyErr):
		logger.Printf("verification failed: %v", err)
		return exitVerifyFailed
	default:
		logger.Printf("programming failed: %v", err)
		return exitProtoError
	}
}
