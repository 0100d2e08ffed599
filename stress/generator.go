package stress

import (
	"math/rand/v2"
)

// Transfer is one planned I/O.
type Transfer struct {
	Mode   IOMode `json:"mode"`
	Offset int64  `json:"offset"`
	Size   int    `json:"size"`
}

// End returns the offset one past the last byte the transfer touches.
func (t Transfer) End() int64 { return t.Offset + int64(t.Size) }

// Generator produces the random stream of a single worker. The same seed
// always yields the same sequence of modes, offsets and sizes. A Generator
// is not safe for concurrent use; each worker owns one.
type Generator struct {
	rng   *rand.Rand
	align uint64
}

// NewGenerator seeds a generator. align, when non-zero, rounds offsets and
// sizes from Next down to a multiple of align.
func NewGenerator(seed uint64, align uint64) *Generator {
	return &Generator{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		align: align,
	}
}

// workerSeed derives the seed of worker id from the run's base seed.
func workerSeed(base uint32, id int) uint64 {
	return uint64(base) + uint64(id)
}

// FillByte draws the value a worker's write buffer is filled with.
func (g *Generator) FillByte() byte {
	return byte(g.rng.UintN(256))
}

// BurstMode picks the mode of the next burst. Fixed modes are returned
// without consuming the stream.
func (g *Generator) BurstMode(configured IOMode) IOMode {
	if configured != ModeReadWrite {
		return configured
	}
	if g.rng.UintN(2) == 1 {
		return ModeRead
	}
	return ModeWrite
}

// Next draws a size in [0, maxIO) and an offset in [0, fileSize-size).
// fileSize must be greater than maxIO.
func (g *Generator) Next(mode IOMode, maxIO uint32, fileSize uint64) Transfer {
	size := g.rng.Uint64N(uint64(maxIO))
	offset := g.rng.Uint64N(fileSize - size)
	if g.align > 1 {
		size -= size % g.align
		offset -= offset % g.align
	}
	return Transfer{Mode: mode, Offset: int64(offset), Size: int(size)}
}

// Tail draws the final-chunk transfer. The drawn size s places the offset
// at fileSize-1-s and the transfer covers s+1 bytes, so it always ends on
// the last byte of the file. With alignment the length is a multiple of the
// alignment in [align, maxIO], which needs fileSize to be aligned as well.
func (g *Generator) Tail(mode IOMode, maxIO uint32, fileSize uint64) Transfer {
	if g.align > 1 {
		blocks := uint64(maxIO) / g.align
		length := (1 + g.rng.Uint64N(blocks)) * g.align
		return Transfer{Mode: mode, Offset: int64(fileSize - length), Size: int(length)}
	}

	size := g.rng.Uint64N(uint64(maxIO))
	offset := fileSize - 1 - size
	return Transfer{Mode: mode, Offset: int64(offset), Size: int(size) + 1}
}
