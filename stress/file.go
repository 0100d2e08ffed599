package stress

import (
	"errors"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/ncw/directio"
)

const filePerm = 0o644

// Target is an open handle on the stressed file: a descriptor and, in
// mapped mode, a shared read-write mapping of the whole file. A Target may
// be used by many workers at once; it does no locking of its own.
type Target struct {
	file    *os.File
	fd      int
	mapping mmap.MMap
}

// openFile opens path with flag|O_CREATE, adding O_DIRECT when cacheBypass
// is set.
func openFile(path string, flag int, cacheBypass bool) (*os.File, error) {
	flag |= os.O_CREATE
	if cacheBypass {
		return directio.OpenFile(path, flag, filePerm)
	}
	return os.OpenFile(path, flag, filePerm)
}

// InitializeSize creates path if needed and forces it to exactly size bytes,
// extending or truncating. Calling it again with the same size is a no-op.
func InitializeSize(path string, size uint64, cacheBypass bool) error {
	f, err := openFile(path, os.O_RDWR, cacheBypass)
	if err != nil {
		return &OpError{Op: OpOpen, Path: path, Err: err}
	}
	if err := f.Truncate(int64(size)); err != nil {
		_ = f.Close()
		return &OpError{Op: OpSizeInit, Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &OpError{Op: OpSizeInit, Path: path, Err: err}
	}
	return nil
}

// OpenTarget opens the file described by cfg and maps it when cfg.Mapped is
// set. The file must already have been sized with InitializeSize.
func OpenTarget(cfg *Config) (*Target, error) {
	f, err := openFile(cfg.Path, cfg.openFlags(), cfg.CacheBypass)
	if err != nil {
		return nil, &OpError{Op: OpOpen, Path: cfg.Path, Err: err}
	}

	t := &Target{file: f, fd: int(f.Fd())}
	if !cfg.Mapped {
		return t, nil
	}

	m, err := mmap.MapRegion(f, int(cfg.FileSize), mmap.RDWR, 0, 0)
	if err != nil {
		_ = f.Close()
		return nil, &OpError{Op: OpMap, Path: cfg.Path, Err: err}
	}
	t.mapping = m
	return t, nil
}

// FD returns the descriptor number, as reported in transfer errors.
func (t *Target) FD() int { return t.fd }

// Mapped reports whether transfers go through the memory mapping.
func (t *Target) Mapped() bool { return t.mapping != nil }

// Close unmaps the file, if mapped, and closes the descriptor.
func (t *Target) Close() error {
	var unmapErr error
	if t.mapping != nil {
		unmapErr = t.mapping.Unmap()
		t.mapping = nil
	}
	return errors.Join(unmapErr, t.file.Close())
}
