package stress

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration rejection.
var ErrInvalidConfig = errors.New("invalid configuration")

// Op names the failing step of a run.
type Op string

const (
	OpOpen     Op = "open"
	OpSizeInit Op = "truncate"
	OpMap      Op = "mmap"
	OpRead     Op = "read"
	OpWrite    Op = "write"
	OpClose    Op = "close"
)

// OpError reports a failure while preparing the target file.
type OpError struct {
	Op   Op
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("unable to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// TransferError reports a read or write that failed or moved fewer bytes
// than requested. Result is the byte count the call returned, or -1 when
// the call itself failed.
type TransferError struct {
	Op     Op
	FD     int
	Offset int64
	Size   int
	Result int
	Err    error
}

func (e *TransferError) Error() string {
	msg := fmt.Sprintf("%s error (fd: %d, offset: %d, size: %d) : %d",
		e.Op, e.FD, e.Offset, e.Size, e.Result)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransferError) Unwrap() error { return e.Err }
