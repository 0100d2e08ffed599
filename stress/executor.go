package stress

import (
	"errors"

	"golang.org/x/sys/unix"
)

var errOutOfRange = errors.New("transfer outside buffer or mapping")

// ReadAt moves exactly size bytes at offset into buf[:size], through the
// mapping when the target is mapped and through a single pread otherwise.
func (t *Target) ReadAt(buf []byte, size int, offset int64) error {
	if size < 0 || size > len(buf) || offset < 0 {
		return t.transferErr(OpRead, size, offset, -1, errOutOfRange)
	}

	if t.mapping != nil {
		if offset+int64(size) > int64(len(t.mapping)) {
			return t.transferErr(OpRead, size, offset, -1, errOutOfRange)
		}
		n := copy(buf[:size], t.mapping[offset:])
		if n != size {
			return t.transferErr(OpRead, size, offset, n, nil)
		}
		return nil
	}

	n, err := unix.Pread(t.fd, buf[:size], offset)
	if err != nil {
		return t.transferErr(OpRead, size, offset, -1, err)
	}
	if n != size {
		return t.transferErr(OpRead, size, offset, n, nil)
	}
	return nil
}

// WriteAt moves exactly size bytes from buf[:size] to offset, through the
// mapping when the target is mapped and through a single pwrite otherwise.
func (t *Target) WriteAt(buf []byte, size int, offset int64) error {
	if size < 0 || size > len(buf) || offset < 0 {
		return t.transferErr(OpWrite, size, offset, -1, errOutOfRange)
	}

	if t.mapping != nil {
		if offset+int64(size) > int64(len(t.mapping)) {
			return t.transferErr(OpWrite, size, offset, -1, errOutOfRange)
		}
		n := copy(t.mapping[offset:offset+int64(size)], buf[:size])
		if n != size {
			return t.transferErr(OpWrite, size, offset, n, nil)
		}
		return nil
	}

	n, err := unix.Pwrite(t.fd, buf[:size], offset)
	if err != nil {
		return t.transferErr(OpWrite, size, offset, -1, err)
	}
	if n != size {
		return t.transferErr(OpWrite, size, offset, n, nil)
	}
	return nil
}

// transfer dispatches on mode.
func (t *Target) transfer(mode IOMode, rbuf, wbuf []byte, size int, offset int64) error {
	if mode == ModeWrite {
		return t.WriteAt(wbuf, size, offset)
	}
	return t.ReadAt(rbuf, size, offset)
}

func (t *Target) transferErr(op Op, size int, offset int64, result int, err error) error {
	return &TransferError{Op: op, FD: t.fd, Offset: offset, Size: size, Result: result, Err: err}
}
