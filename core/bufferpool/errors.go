package bufferpool

import (
	"errors"
	"fmt"
)

// ErrBufferExhausted is returned when every frame is pinned and the clock
// sweep cannot find a victim (spec §4.3, §7).
var ErrBufferExhausted = errors.New("bufferpool: all frames are pinned, buffer exhausted")

// ErrNotPinned is returned by Unpin when the target frame's pin count is
// already zero (spec §4.5, §7).
type ErrNotPinned struct {
	Filename   string
	PageNumber uint64
}

func (e *ErrNotPinned) Error() string {
	return fmt.Sprintf("bufferpool: page %d of %q is not pinned", e.PageNumber, e.Filename)
}

// ErrPagePinned is returned by Flush when it encounters a pinned frame
// belonging to the target file (spec §4.7, §7).
type ErrPagePinned struct {
	Filename   string
	PageNumber uint64
	FrameIndex int
}

func (e *ErrPagePinned) Error() string {
	return fmt.Sprintf("bufferpool: page %d of %q is pinned in frame %d", e.PageNumber, e.Filename, e.FrameIndex)
}

// ErrBadBuffer is returned by Flush when a frame still associated with the
// target file is not valid — an internal corruption signal (spec §4.7, §7).
type ErrBadBuffer struct {
	Filename   string
	FrameIndex int
}

func (e *ErrBadBuffer) Error() string {
	return fmt.Sprintf("bufferpool: frame %d claims association with %q but is not valid", e.FrameIndex, e.Filename)
}
