package stress

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ncw/directio"
)

// IOMode selects which transfers a run performs.
type IOMode uint8

const (
	// ModeRead issues only reads.
	ModeRead IOMode = iota
	// ModeWrite issues only writes.
	ModeWrite
	// ModeReadWrite picks read or write at random for every burst.
	ModeReadWrite
)

// Stock settings used by DefaultConfig.
const (
	// DefaultFileSize is 512 MiB plus one byte.
	DefaultFileSize uint64 = 512*1024*1024 + 1
	// DefaultThreads is the number of concurrent workers.
	DefaultThreads uint32 = 10
	// DefaultMaxIOSize is the exclusive upper bound of a transfer size.
	DefaultMaxIOSize uint32 = 512 * 1024
	// DefaultBurstCount is the number of transfers per burst.
	DefaultBurstCount uint32 = 64 * 1024
	// DefaultDuration is how long each worker runs bursts.
	DefaultDuration = 10 * time.Second
)

// AlignSize is the block size offsets and sizes are rounded to when
// Config.Align is set.
const AlignSize = directio.BlockSize

func (m IOMode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeReadWrite:
		return "rw"
	default:
		return fmt.Sprintf("IOMode(%d)", uint8(m))
	}
}

// ParseIOMode accepts the mode names and the numeric pattern codes 0, 1, 2.
func ParseIOMode(s string) (IOMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read", "r", "0":
		return ModeRead, nil
	case "write", "w", "1":
		return ModeWrite, nil
	case "rw", "readwrite", "read-write", "2":
		return ModeReadWrite, nil
	}
	return 0, fmt.Errorf("%w: unknown I/O pattern %q", ErrInvalidConfig, s)
}

func (m IOMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *IOMode) UnmarshalText(text []byte) error {
	mode, err := ParseIOMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Config is the immutable description of one run. Build it with
// DefaultConfig, adjust fields, and hand it to NewRunner, which validates it.
// Workers only ever read it.
type Config struct {
	Path     string `validate:"required"`
	FileSize uint64 `validate:"gt=0"`
	Threads  uint32 `validate:"gte=1"`
	Mode     IOMode `validate:"lte=2"`

	// MaxIOSize is the exclusive upper bound of a single transfer.
	MaxIOSize  uint32        `validate:"gte=1"`
	BurstCount uint32        `validate:"gte=1"`
	Duration   time.Duration `validate:"gte=0"`
	Seed       uint32

	Mapped          bool
	CacheBypass     bool
	PerThreadFD     bool
	TouchFinalChunk bool
	Verbosity       uint8

	// Align keeps every offset and size a multiple of AlignSize, the tail
	// transfer included. FileSize must then be a multiple of AlignSize.
	Align bool

	// RateLimit caps transfers per second for each worker. Zero disables it.
	RateLimit float64 `validate:"gte=0"`
	RateBurst int

	PinCPU bool
}

// DefaultConfig returns the stock settings for path, seeded with the
// process id.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		FileSize:        DefaultFileSize,
		Threads:         DefaultThreads,
		Mode:            ModeReadWrite,
		MaxIOSize:       DefaultMaxIOSize,
		BurstCount:      DefaultBurstCount,
		Duration:        DefaultDuration,
		Seed:            uint32(os.Getpid()),
		TouchFinalChunk: true,
		RateBurst:       1,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports whether the config can drive a run. It rejects a
// MaxIOSize that is not strictly below FileSize, since the offset range
// [0, FileSize-size) would otherwise be empty.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.FileSize <= uint64(c.MaxIOSize) {
		return fmt.Errorf("%w: file size %d must be greater than max I/O size %d",
			ErrInvalidConfig, c.FileSize, c.MaxIOSize)
	}
	if c.Align && c.MaxIOSize < AlignSize {
		return fmt.Errorf("%w: max I/O size %d is below the alignment of %d bytes",
			ErrInvalidConfig, c.MaxIOSize, AlignSize)
	}
	if c.Align && c.FileSize%AlignSize != 0 {
		return fmt.Errorf("%w: file size %d is not a multiple of the alignment of %d bytes",
			ErrInvalidConfig, c.FileSize, AlignSize)
	}
	if c.Mapped && c.FileSize > math.MaxInt {
		return fmt.Errorf("%w: file size %d is too large to map", ErrInvalidConfig, c.FileSize)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("%w: rate burst must be at least 1, got %d", ErrInvalidConfig, c.RateBurst)
	}
	return nil
}

// openFlags returns the access mode a worker descriptor needs.
func (c Config) openFlags() int {
	if c.Mapped {
		return os.O_RDWR
	}
	switch c.Mode {
	case ModeRead:
		return os.O_RDONLY
	case ModeWrite:
		return os.O_WRONLY
	default:
		return os.O_RDWR
	}
}

// tailMode is the operation used for the final chunk.
func (c Config) tailMode() IOMode {
	if c.Mode == ModeWrite {
		return ModeWrite
	}
	return ModeRead
}
