package bufferpool

// Stats holds the monotonic counters spec §3/§6 requires to be readable
// through the Manager's public surface. They are updated under the
// Manager's single coarse lock (spec §5), so no atomics are needed here.
type Stats struct {
	Accesses   uint64
	DiskReads  uint64
	DiskWrites uint64
}

// metricsRecorder lets the Manager mirror Stats into an external metrics
// system (see pkg/bptelemetry) without the core depending on any specific
// telemetry backend. A nil recorder is a legal no-op.
type metricsRecorder interface {
	RecordAccess()
	RecordDiskRead()
	RecordDiskWrite()
}

func (s *Stats) recordAccess(r metricsRecorder) {
	s.Accesses++
	if r != nil {
		r.RecordAccess()
	}
}

func (s *Stats) recordDiskRead(r metricsRecorder) {
	s.DiskReads++
	if r != nil {
		r.RecordDiskRead()
	}
}

func (s *Stats) recordDiskWrite(r metricsRecorder) {
	s.DiskWrites++
	if r != nil {
		r.RecordDiskWrite()
	}
}
