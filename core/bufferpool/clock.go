package bufferpool

import "github.com/gojodb/bufferpool/core/pageio"

// advanceClock moves the clock hand one step around the frame table (spec
// §4.3). The hand starts at len(frames)-1 so the first advance lands on
// frame 0 (spec §9).
func (m *Manager) advanceClock() {
	m.hand = (m.hand + 1) % len(m.frames)
}

// allocFrame runs the clock sweep to choose a victim frame, writing back a
// dirty victim before its identity is replaced (spec §4.3, I4). It never
// allocates on the hot loop: the only allocation in the eviction path is
// the pager's own write, which the caller already budgets for as I/O.
//
// Termination: if at least one frame is unpinned, a victim is found within
// 2*len(frames) advances — one pass to clear every unpinned frame's ref
// bit, a second to claim one. If every frame is pinned, ErrBufferExhausted
// is returned and no state changes except cleared ref bits, which is
// harmless (I3 is preserved; nothing is evicted).
func (m *Manager) allocFrame() (int, error) {
	maxAdvances := 2 * len(m.frames)
	for i := 0; i < maxAdvances; i++ {
		m.advanceClock()
		fd := &m.frames[m.hand]

		if !fd.validBit {
			return fd.frameIndex, nil
		}
		if fd.refBit {
			fd.refBit = false
			continue
		}
		if fd.pinCount > 0 {
			continue
		}
		return m.evict(fd)
	}
	return 0, ErrBufferExhausted
}

// evict writes back a dirty valid frame, drops its directory entry, and
// clears its descriptor, returning it ready for reuse.
func (m *Manager) evict(fd *frameDescriptor) (int, error) {
	if fd.dirtyBit {
		if err := fd.file.WritePage(pageio.NewPage(fd.pageNumber, m.bufs[fd.frameIndex])); err != nil {
			return 0, err
		}
		m.stats.recordDiskWrite(m.metrics)
		if m.logger != nil {
			m.logger.Debug("evicted dirty frame, wrote back",
				zapFrameFields(fd)...)
		}
	}
	_ = m.dir.remove(fd.file, fd.pageNumber)
	frameIndex := fd.frameIndex
	fd.clear()
	return frameIndex, nil
}
