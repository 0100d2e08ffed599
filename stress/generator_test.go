package stress

import (
	"testing"
)

func TestGenerator_Bounds(t *testing.T) {
	cases := []struct {
		name     string
		maxIO    uint32
		fileSize uint64
		align    uint64
	}{
		{name: "small", maxIO: 16, fileSize: 17},
		{name: "defaults", maxIO: DefaultMaxIOSize, fileSize: DefaultFileSize},
		{name: "scenario", maxIO: 4096, fileSize: 1 << 20},
		{name: "aligned", maxIO: 64 * 1024, fileSize: 1<<20 + 3, align: AlignSize},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := NewGenerator(7, tc.align)
			for i := 0; i < 50_000; i++ {
				tr := gen.Next(ModeRead, tc.maxIO, tc.fileSize)
				if tr.Size < 0 || uint64(tr.Size) >= uint64(tc.maxIO) {
					t.Fatalf("size %d out of [0, %d)", tr.Size, tc.maxIO)
				}
				if tr.Offset < 0 {
					t.Fatalf("negative offset %d", tr.Offset)
				}
				if uint64(tr.End()) > tc.fileSize {
					t.Fatalf("transfer [%d, %d) runs past file size %d", tr.Offset, tr.End(), tc.fileSize)
				}
				if tc.align > 0 && (uint64(tr.Offset)%tc.align != 0 || uint64(tr.Size)%tc.align != 0) {
					t.Fatalf("transfer %+v not aligned to %d", tr, tc.align)
				}
			}
		})
	}
}

func TestGenerator_Tail(t *testing.T) {
	const maxIO, fileSize = 4096, 1 << 20
	gen := NewGenerator(99, 0)

	for i := 0; i < 10_000; i++ {
		tr := gen.Tail(ModeWrite, maxIO, fileSize)
		if tr.End() != fileSize {
			t.Fatalf("tail %+v does not end at the last byte", tr)
		}
		if tr.Size < 1 || tr.Size > maxIO {
			t.Fatalf("tail size %d out of [1, %d]", tr.Size, maxIO)
		}
		if tr.Offset != int64(fileSize-tr.Size) {
			t.Fatalf("tail offset %d inconsistent with size %d", tr.Offset, tr.Size)
		}
	}
}

func TestGenerator_AlignedTail(t *testing.T) {
	const maxIO, fileSize = 8192 + 100, 1 << 20
	gen := NewGenerator(3, AlignSize)

	for i := 0; i < 10_000; i++ {
		tr := gen.Tail(ModeRead, maxIO, fileSize)
		if tr.End() != fileSize {
			t.Fatalf("tail %+v does not end at the last byte", tr)
		}
		if tr.Size < AlignSize || tr.Size > maxIO {
			t.Fatalf("tail size %d out of [%d, %d]", tr.Size, AlignSize, maxIO)
		}
		if tr.Size%AlignSize != 0 || tr.Offset%AlignSize != 0 {
			t.Fatalf("tail %+v not aligned to %d", tr, AlignSize)
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	draw := func(seed uint64) []Transfer {
		gen := NewGenerator(seed, 0)
		out := make([]Transfer, 0, 64)
		for range 8 {
			mode := gen.BurstMode(ModeReadWrite)
			for range 8 {
				out = append(out, gen.Next(mode, 4096, 1<<20))
			}
		}
		return out
	}

	a, b := draw(workerSeed(1234, 3)), draw(workerSeed(1234, 3))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("streams diverge at %d: %+v vs %+v", i, a[i], b[i])
		}
	}

	c := draw(workerSeed(1234, 4))
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different worker ids produced identical streams")
	}
}

func TestGenerator_BurstMode(t *testing.T) {
	gen := NewGenerator(5, 0)

	for _, fixed := range []IOMode{ModeRead, ModeWrite} {
		for range 100 {
			if got := gen.BurstMode(fixed); got != fixed {
				t.Fatalf("fixed mode %v returned %v", fixed, got)
			}
		}
	}

	var reads, writes int
	for range 10_000 {
		switch gen.BurstMode(ModeReadWrite) {
		case ModeRead:
			reads++
		case ModeWrite:
			writes++
		default:
			t.Fatal("burst mode must be read or write")
		}
	}
	if reads < 4500 || writes < 4500 {
		t.Errorf("expected a roughly even split, got %d reads / %d writes", reads, writes)
	}
}

func TestGenerator_FixedModeDoesNotConsumeStream(t *testing.T) {
	a, b := NewGenerator(11, 0), NewGenerator(11, 0)
	a.BurstMode(ModeRead)
	a.BurstMode(ModeWrite)

	if x, y := a.Next(ModeRead, 4096, 1<<20), b.Next(ModeRead, 4096, 1<<20); x != y {
		t.Errorf("fixed-mode bursts advanced the stream: %+v vs %+v", x, y)
	}
}
