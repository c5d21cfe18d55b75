package bufferpool

import "github.com/gojodb/bufferpool/core/pageio"

// frameDescriptor is one entry of the frame table (spec §3, §4.1). Its
// index in Manager.frames is its frameIndex; descriptors never move.
type frameDescriptor struct {
	frameIndex int
	file       pageio.File
	pageNumber pageio.PageNumber
	pinCount   uint32
	refBit     bool
	dirtyBit   bool
	validBit   bool
}

// clear resets a descriptor to the invalid state (spec §4.1).
func (fd *frameDescriptor) clear() {
	fd.file = nil
	fd.pageNumber = pageio.InvalidPageNumber
	fd.pinCount = 0
	fd.refBit = false
	fd.dirtyBit = false
	fd.validBit = false
}

// set installs an identity into a frame, leaving it freshly pinned and
// clean (spec I5, §4.1).
func (fd *frameDescriptor) set(file pageio.File, page pageio.PageNumber) {
	fd.file = file
	fd.pageNumber = page
	fd.pinCount = 1
	fd.refBit = false
	fd.dirtyBit = false
	fd.validBit = true
}
