// Package bufferpool implements the core of a database buffer pool manager:
// a fixed-size pool of page frames, a (file, page) -> frame directory, a
// clock-sweep replacement policy, and the pinning discipline that keeps
// in-use pages from being evicted. See SPEC_FULL.md for the full design.
package bufferpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/gojodb/bufferpool/core/pageio"
)

// Manager is the buffer manager façade: fetch, unpin, allocate, dispose,
// flush, print, close (spec §6). All public operations execute under a
// single coarse lock (spec §5) — no operation suspends mid-way except
// inside calls into the pager.
type Manager struct {
	mu sync.Mutex

	frames []frameDescriptor
	bufs   [][]byte
	dir    *directory
	hand   int

	pageSize int
	stats    Stats

	id      uuid.UUID
	logger  *zap.Logger
	metrics metricsRecorder
	tracer  trace.Tracer

	closed bool
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithLogger attaches a zap.Logger; a nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics attaches a metrics recorder (see pkg/bptelemetry) that
// mirrors the Stats counters into an external system such as Prometheus.
func WithMetrics(r metricsRecorder) Option {
	return func(m *Manager) { m.metrics = r }
}

// WithTracer attaches an OpenTelemetry tracer used to span Fetch, Unpin,
// AllocPage, Flush and Dispose. A nil tracer disables tracing.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) { m.tracer = tracer }
}

// New constructs a pool of numFrames frames, each pageSize bytes (spec §6
// `new(num_frames)`). The clock hand starts at numFrames-1 so the first
// advance lands on frame 0 (spec §9).
func New(numFrames, pageSize int, opts ...Option) *Manager {
	if numFrames <= 0 {
		panic("bufferpool: numFrames must be positive")
	}
	if pageSize <= 0 {
		pageSize = pageio.DefaultPageSize
	}
	m := &Manager{
		frames:   make([]frameDescriptor, numFrames),
		bufs:     make([][]byte, numFrames),
		dir:      newDirectory(numFrames),
		hand:     numFrames - 1,
		pageSize: pageSize,
		id:       uuid.New(),
		logger:   zap.NewNop(),
		tracer:   nooptrace.NewTracerProvider().Tracer("noop"),
	}
	for i := range m.frames {
		m.frames[i].frameIndex = i
		m.bufs[i] = make([]byte, pageSize)
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.logger = m.logger.With(zap.String("pool_id", m.id.String()))
	if m.tracer == nil {
		m.tracer = nooptrace.NewTracerProvider().Tracer("noop")
	}
	return m
}

// Stats returns a snapshot of the pool's monotonic counters (spec §6).
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Fetch loads a page into a pinned frame and returns its buffer, which is
// valid until the matching Unpin (spec §4.4). On a cache hit, no I/O
// occurs. On a miss, alloc_frame may evict; if it fails, or the pager's
// read fails, the frame allocation is rolled back so no partial state is
// left behind (spec §4.4 error handling, I1/I2).
func (m *Manager) Fetch(file pageio.File, page pageio.PageNumber) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	span := m.startSpan("bufferpool.fetch", file, page)
	defer span.End()

	m.stats.recordAccess(m.metrics)

	if frameIndex, err := m.dir.lookup(file, page); err == nil {
		fd := &m.frames[frameIndex]
		fd.refBit = true
		fd.pinCount++
		m.logger.Debug("fetch hit", zapFrameFields(fd)...)
		return m.bufs[frameIndex], nil
	}

	frameIndex, err := m.allocFrame()
	if err != nil {
		return nil, err
	}

	loaded, err := file.ReadPage(page)
	if err != nil {
		// Roll back: the frame must end up invalid with no directory
		// entry (spec §4.4). allocFrame() already left it clear.
		m.frames[frameIndex].clear()
		return nil, err
	}
	buf := m.bufs[frameIndex]
	copy(buf, loaded.Data())
	m.stats.recordDiskRead(m.metrics)

	if err := m.dir.insert(file, page, frameIndex); err != nil {
		m.frames[frameIndex].clear()
		return nil, err
	}
	m.frames[frameIndex].set(file, page)
	m.logger.Debug("fetch miss, loaded from disk", zapFrameFields(&m.frames[frameIndex])...)
	return buf, nil
}

// Unpin decrements a frame's pin count and optionally marks it dirty (spec
// §4.5). Unpinning a page not currently cached is a defined no-op, not an
// error — resolving spec.md's open question in favor of the source's
// effective behavior.
func (m *Manager) Unpin(file pageio.File, page pageio.PageNumber, markDirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.startSpan("bufferpool.unpin", file, page).End()

	frameIndex, err := m.dir.lookup(file, page)
	if err != nil {
		return nil
	}
	fd := &m.frames[frameIndex]
	if fd.pinCount == 0 {
		return &ErrNotPinned{Filename: file.Filename(), PageNumber: uint64(page)}
	}
	fd.pinCount--
	if markDirty {
		fd.dirtyBit = true
	}
	m.logger.Debug("unpin", zapFrameFields(fd)...)
	return nil
}

// AllocPage asks the pager for a brand new page and installs it in a pinned
// frame (spec §4.6). ErrBufferExhausted propagates without consulting the
// pager, so a failed allocation never orphans a disk page.
func (m *Manager) AllocPage(file pageio.File) (pageio.PageNumber, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.startSpan("bufferpool.alloc_page", file, pageio.InvalidPageNumber).End()

	frameIndex, err := m.allocFrame()
	if err != nil {
		return pageio.InvalidPageNumber, nil, err
	}

	newPage, err := file.AllocatePage()
	if err != nil {
		// The frame allocFrame picked is already clear; nothing to roll
		// back beyond leaving it unused.
		return pageio.InvalidPageNumber, nil, err
	}
	copy(m.bufs[frameIndex], newPage.Data())

	if err := m.dir.insert(file, newPage.Number(), frameIndex); err != nil {
		return pageio.InvalidPageNumber, nil, err
	}
	m.frames[frameIndex].set(file, newPage.Number())
	m.logger.Debug("alloc_page", zapFrameFields(&m.frames[frameIndex])...)
	return newPage.Number(), m.bufs[frameIndex], nil
}

// Flush scans the frame table for frames belonging to file and writes back
// any that are dirty (spec §4.7). It fails fast on the first pinned or
// invalid-but-associated frame; frames already processed stay clean and
// invalid — partial progress is not rolled back, per spec's design note.
func (m *Manager) Flush(file pageio.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.startSpan("bufferpool.flush", file, pageio.InvalidPageNumber).End()

	for i := range m.frames {
		fd := &m.frames[i]
		if fd.file != file {
			continue
		}
		m.stats.recordAccess(m.metrics)

		if !fd.validBit {
			return &ErrBadBuffer{Filename: file.Filename(), FrameIndex: fd.frameIndex}
		}
		if fd.pinCount > 0 {
			return &ErrPagePinned{Filename: file.Filename(), PageNumber: uint64(fd.pageNumber), FrameIndex: fd.frameIndex}
		}
		if fd.dirtyBit {
			if err := file.WritePage(pageio.NewPage(fd.pageNumber, m.bufs[fd.frameIndex])); err != nil {
				return err
			}
			m.stats.recordDiskWrite(m.metrics)
			fd.dirtyBit = false
		}
		_ = m.dir.remove(fd.file, fd.pageNumber)
		fd.clear()
	}
	return nil
}

// Dispose removes a page from the pool and the file (spec §4.8). The
// directory entry and frame, if present, are cleared unconditionally —
// the page is being deleted, so its dirty state is moot.
func (m *Manager) Dispose(file pageio.File, page pageio.PageNumber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.startSpan("bufferpool.dispose", file, page).End()

	if frameIndex, err := m.dir.lookup(file, page); err == nil {
		_ = m.dir.remove(file, page)
		m.frames[frameIndex].clear()
	}
	return file.DeletePage(page)
}

// PrintSelf renders a diagnostic dump of every frame, in the shape of the
// original BufMgr::printSelf: one line per frame followed by a trailing
// count of valid frames (spec §6, SPEC_FULL §5).
func (m *Manager) PrintSelf() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := fmt.Sprintf("buffer pool %s (%d frames)\n", m.id, len(m.frames))
	validFrames := 0
	for i := range m.frames {
		fd := &m.frames[i]
		filename := "-"
		if fd.file != nil {
			filename = fd.file.Filename()
		}
		out += fmt.Sprintf("frame %d: valid=%t file=%s page=%d pin=%d ref=%t dirty=%t\n",
			fd.frameIndex, fd.validBit, filename, fd.pageNumber, fd.pinCount, fd.refBit, fd.dirtyBit)
		if fd.validBit {
			validFrames++
		}
	}
	out += fmt.Sprintf("Total Number of Valid Frames: %d\n", validFrames)
	return out
}

// Close tears the pool down exactly once: every dirty valid frame whose
// file is still open is written back (spec §4.9). A pinned frame or a
// closed file does not fail the shutdown; both are client conditions the
// original explicitly tolerates at teardown.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var firstErr error
	for i := range m.frames {
		fd := &m.frames[i]
		if !fd.validBit || !fd.dirtyBit || fd.file == nil {
			continue
		}
		if !fd.file.IsOpen() {
			continue
		}
		if err := fd.file.WritePage(pageio.NewPage(fd.pageNumber, m.bufs[fd.frameIndex])); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		m.stats.recordDiskWrite(m.metrics)
		fd.dirtyBit = false
	}
	m.frames = nil
	m.bufs = nil
	return firstErr
}

// startSpan opens a span for a public operation, tagging it with the
// file/page identity being operated on (SPEC_FULL §4: tracing carries
// identity ambiently, not only inside error values).
func (m *Manager) startSpan(name string, file pageio.File, page pageio.PageNumber) trace.Span {
	_, span := m.tracer.Start(context.Background(), name,
		trace.WithAttributes(attribute.String("pool_id", m.id.String()),
			attribute.String("file", file.Filename()), attribute.Int64("page", int64(page))))
	return span
}

func zapFrameFields(fd *frameDescriptor) []zap.Field {
	filename := "-"
	if fd.file != nil {
		filename = fd.file.Filename()
	}
	return []zap.Field{
		zap.Int("frame", fd.frameIndex),
		zap.String("file", filename),
		zap.Uint64("page", uint64(fd.pageNumber)),
		zap.Uint32("pin", fd.pinCount),
		zap.Bool("dirty", fd.dirtyBit),
	}
}
