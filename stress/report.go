package stress

import "time"

// WorkerStats is what one worker did during a run.
type WorkerStats struct {
	ID           int           `json:"id"`
	Bursts       uint64        `json:"bursts"`
	Reads        uint64        `json:"reads"`
	Writes       uint64        `json:"writes"`
	BytesRead    uint64        `json:"bytes_read"`
	BytesWritten uint64        `json:"bytes_written"`
	Tail         *Transfer     `json:"tail,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Transfers returns the number of reads and writes issued.
func (s WorkerStats) Transfers() uint64 { return s.Reads + s.Writes }

// Bytes returns the number of bytes moved in either direction.
func (s WorkerStats) Bytes() uint64 { return s.BytesRead + s.BytesWritten }

func (s *WorkerStats) record(t Transfer) {
	if t.Mode == ModeWrite {
		s.Writes++
		s.BytesWritten += uint64(t.Size)
		return
	}
	s.Reads++
	s.BytesRead += uint64(t.Size)
}

// Report summarizes a completed run.
type Report struct {
	Seed    uint32        `json:"seed"`
	Threads uint32        `json:"threads"`
	Mode    string        `json:"mode"`
	Mapped  bool          `json:"mapped"`
	Elapsed time.Duration `json:"elapsed"`
	Workers []WorkerStats `json:"workers"`
}

// Totals sums the per-worker counters.
func (r *Report) Totals() WorkerStats {
	total := WorkerStats{ID: -1}
	for _, w := range r.Workers {
		total.Bursts += w.Bursts
		total.Reads += w.Reads
		total.Writes += w.Writes
		total.BytesRead += w.BytesRead
		total.BytesWritten += w.BytesWritten
		total.Elapsed = max(total.Elapsed, w.Elapsed)
	}
	return total
}

// Throughput returns bytes per second over the whole run.
func (r *Report) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Totals().Bytes()) / r.Elapsed.Seconds()
}

// IOPS returns transfers per second over the whole run.
func (r *Report) IOPS() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Totals().Transfers()) / r.Elapsed.Seconds()
}
