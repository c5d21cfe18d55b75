package bufferpool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gojodb/bufferpool/core/pageio"
)

const testPageSize = 16

func TestFetchMissThenHit(t *testing.T) {
	mgr := New(3, testPageSize)
	fileA := newFakeFile("A")

	_, err := mgr.Fetch(fileA, 1)
	require.NoError(t, err)
	require.Equal(t, 1, fileA.reads())
	require.Equal(t, uint64(1), mgr.Stats().DiskReads)

	_, err = mgr.Fetch(fileA, 1)
	require.NoError(t, err)
	require.Equal(t, 1, fileA.reads(), "a cache hit must not touch the pager")
	require.Equal(t, uint64(1), mgr.Stats().DiskReads)
	require.Equal(t, uint64(2), mgr.Stats().Accesses)

	// Pin count is now 2: two unpins succeed, a third finds nothing pinned.
	require.NoError(t, mgr.Unpin(fileA, 1, false))
	require.NoError(t, mgr.Unpin(fileA, 1, false))
	err = mgr.Unpin(fileA, 1, false)
	var notPinned *ErrNotPinned
	require.ErrorAs(t, err, &notPinned)
	require.Equal(t, "A", notPinned.Filename)
}

func TestUnpinUnknownPageIsNoOp(t *testing.T) {
	mgr := New(2, testPageSize)
	fileA := newFakeFile("A")
	require.NoError(t, mgr.Unpin(fileA, 99, true))
}

func TestDistinctFileObjectsAreNotTheSameIdentity(t *testing.T) {
	mgr := New(2, testPageSize)
	fileA1 := newFakeFile("A")
	fileA2 := newFakeFile("A")

	_, err := mgr.Fetch(fileA1, 1)
	require.NoError(t, err)
	_, err = mgr.Fetch(fileA2, 1)
	require.NoError(t, err)

	require.Equal(t, 1, fileA1.reads())
	require.Equal(t, 1, fileA2.reads(), "a same-named but distinct File object must miss independently")
}

// Two frames; the third fetch forces the clock sweep to evict the first,
// clean page. Exactly one additional read beyond the first two, zero
// writes, since nothing was ever marked dirty.
func TestEvictionOfCleanPage(t *testing.T) {
	mgr := New(2, testPageSize)
	fileA := newFakeFile("A")

	_, err := mgr.Fetch(fileA, 0)
	require.NoError(t, err)
	require.NoError(t, mgr.Unpin(fileA, 0, false))

	_, err = mgr.Fetch(fileA, 1)
	require.NoError(t, err)
	require.NoError(t, mgr.Unpin(fileA, 1, false))

	_, err = mgr.Fetch(fileA, 2)
	require.NoError(t, err)

	require.Equal(t, uint64(3), mgr.Stats().DiskReads)
	require.Equal(t, uint64(0), mgr.Stats().DiskWrites)
	require.Equal(t, 3, fileA.reads())
	require.Equal(t, 0, fileA.writes())

	// Page 0 should no longer be resident: unpinning it is a no-op now.
	require.NoError(t, mgr.Unpin(fileA, 0, false))
}

// One frame; a dirty unpinned page must be written back before the victim
// frame is reused for the next fetch.
func TestEvictionWritesDirtyPageBeforeReuse(t *testing.T) {
	mgr := New(1, testPageSize)
	fileA := newFakeFile("A")

	_, err := mgr.Fetch(fileA, 0)
	require.NoError(t, err)
	require.NoError(t, mgr.Unpin(fileA, 0, true))

	_, err = mgr.Fetch(fileA, 1)
	require.NoError(t, err)

	require.Equal(t, []string{"read:0", "write:0", "read:1"}, fileA.ops)
	require.Equal(t, uint64(1), mgr.Stats().DiskWrites)
}

// Every frame pinned: the clock sweep can find no victim and the caller
// sees ErrBufferExhausted, with no directory or frame state disturbed.
func TestBufferExhaustion(t *testing.T) {
	mgr := New(2, testPageSize)
	fileA := newFakeFile("A")

	_, err := mgr.Fetch(fileA, 0)
	require.NoError(t, err)
	_, err = mgr.Fetch(fileA, 1)
	require.NoError(t, err)

	_, err = mgr.Fetch(fileA, 2)
	require.True(t, errors.Is(err, ErrBufferExhausted))

	// Both original pages are still resident and pinned.
	require.NoError(t, mgr.Unpin(fileA, 0, false))
	require.NoError(t, mgr.Unpin(fileA, 1, false))
}

func TestAllocPageExhaustionDoesNotTouchPager(t *testing.T) {
	mgr := New(1, testPageSize)
	fileA := newFakeFile("A")

	_, err := mgr.Fetch(fileA, 0) // pin the only frame
	require.NoError(t, err)

	_, _, err = mgr.AllocPage(fileA)
	require.True(t, errors.Is(err, ErrBufferExhausted))
	require.Empty(t, fileA.ops[1:], "AllocatePage must not be called when the pool has no free frame")
}

func TestFlushRefusesWhenPinned(t *testing.T) {
	mgr := New(1, testPageSize)
	fileA := newFakeFile("A")

	_, err := mgr.Fetch(fileA, 0)
	require.NoError(t, err)

	err = mgr.Flush(fileA)
	var pinned *ErrPagePinned
	require.ErrorAs(t, err, &pinned)
	require.Equal(t, "A", pinned.Filename)
	require.Equal(t, uint64(0), pinned.PageNumber)
}

func TestFlushWritesBackDirtyAndClearsFrames(t *testing.T) {
	mgr := New(2, testPageSize)
	fileA := newFakeFile("A")

	_, err := mgr.Fetch(fileA, 0)
	require.NoError(t, err)
	require.NoError(t, mgr.Unpin(fileA, 0, true))

	_, err = mgr.Fetch(fileA, 1)
	require.NoError(t, err)
	require.NoError(t, mgr.Unpin(fileA, 1, false))

	require.NoError(t, mgr.Flush(fileA))
	require.Equal(t, 1, fileA.writes())
	require.Equal(t, uint64(1), mgr.Stats().DiskWrites)

	// Flushed pages are gone from the pool: fetching page 0 again misses.
	before := fileA.reads()
	_, err = mgr.Fetch(fileA, 0)
	require.NoError(t, err)
	require.Equal(t, before+1, fileA.reads())
}

func TestDisposeClearsFrameAndDeletesRegardlessOfDirtyState(t *testing.T) {
	mgr := New(1, testPageSize)
	fileA := newFakeFile("A")

	_, err := mgr.Fetch(fileA, 0)
	require.NoError(t, err)
	require.NoError(t, mgr.Unpin(fileA, 0, true))

	require.NoError(t, mgr.Dispose(fileA, 0))
	require.Equal(t, 0, fileA.writes(), "dispose must not write back a page being deleted")
	require.Equal(t, []string{"read:0", "delete:0"}, fileA.ops)

	// The frame is free again.
	_, err = mgr.Fetch(fileA, 1)
	require.NoError(t, err)
}

func TestCloseFlushesDirtyPagesOnce(t *testing.T) {
	mgr := New(1, testPageSize)
	fileA := newFakeFile("A")

	page, _, err := mgr.AllocPage(fileA)
	require.NoError(t, err)
	require.NoError(t, mgr.Unpin(fileA, page, true))

	require.NoError(t, mgr.Close())
	require.Equal(t, 1, fileA.writes())
	require.Equal(t, uint64(1), mgr.Stats().DiskWrites)

	// Close is idempotent: a second call does nothing further.
	require.NoError(t, mgr.Close())
	require.Equal(t, 1, fileA.writes())
}

func TestCloseSkipsWriteBackForAlreadyClosedFile(t *testing.T) {
	mgr := New(1, testPageSize)
	fileA := newFakeFile("A")

	_, err := mgr.Fetch(fileA, 0)
	require.NoError(t, err)
	require.NoError(t, mgr.Unpin(fileA, 0, true))
	fileA.open = false

	require.NoError(t, mgr.Close())
	require.Equal(t, 0, fileA.writes())
}

func TestFetchRollsBackFrameOnReadError(t *testing.T) {
	mgr := New(1, testPageSize)
	fileA := newFakeFile("A")
	fileA.readErr = errors.New("disk on fire")

	_, err := mgr.Fetch(fileA, 0)
	require.Error(t, err)

	// The frame was rolled back to invalid with no directory entry, so a
	// second fetch with a healthy file succeeds in the same frame.
	fileA.readErr = nil
	_, err = mgr.Fetch(fileA, 0)
	require.NoError(t, err)
}

func TestPrintSelfReportsValidFrameCount(t *testing.T) {
	mgr := New(2, testPageSize)
	fileA := newFakeFile("A")

	_, err := mgr.Fetch(fileA, 0)
	require.NoError(t, err)

	out := mgr.PrintSelf()
	require.Contains(t, out, "Total Number of Valid Frames: 1")
}

func TestNewPanicsOnNonPositiveFrameCount(t *testing.T) {
	require.Panics(t, func() { New(0, testPageSize) })
	require.Panics(t, func() { New(-1, testPageSize) })
}

var _ pageio.File = (*fakeFile)(nil)
