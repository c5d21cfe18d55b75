package bufferpool

import (
	"errors"

	"github.com/gojodb/bufferpool/core/pageio"
)

// ErrDuplicateKey and errNotFoundInDirectory are internal control flow
// (spec §7); neither crosses the Manager's public surface.
var (
	ErrDuplicateKey        = errors.New("bufferpool: directory key already present")
	errNotFoundInDirectory = errors.New("bufferpool: directory key not found")
)

// dirKey is comparable: pageio.File is an interface over a pointer, so two
// dirKeys compare equal only when both the File object and page number
// match, giving identity-based file equality (spec §4.2) for free from the
// language's interface comparison.
type dirKey struct {
	file pageio.File
	page pageio.PageNumber
}

// directory maps (file, page) identities to frame indexes (spec §4.2). A
// plain Go map already gives expected constant-time lookup without any
// adversarial-hashing requirement, so no custom hash table is needed here —
// see DESIGN.md.
type directory struct {
	entries map[dirKey]int
}

func newDirectory(sizeHint int) *directory {
	return &directory{entries: make(map[dirKey]int, sizeHint)}
}

func (d *directory) insert(file pageio.File, page pageio.PageNumber, frameIndex int) error {
	key := dirKey{file, page}
	if _, exists := d.entries[key]; exists {
		return ErrDuplicateKey
	}
	d.entries[key] = frameIndex
	return nil
}

func (d *directory) lookup(file pageio.File, page pageio.PageNumber) (int, error) {
	frameIndex, ok := d.entries[dirKey{file, page}]
	if !ok {
		return 0, errNotFoundInDirectory
	}
	return frameIndex, nil
}

func (d *directory) remove(file pageio.File, page pageio.PageNumber) error {
	key := dirKey{file, page}
	if _, ok := d.entries[key]; !ok {
		return errNotFoundInDirectory
	}
	delete(d.entries, key)
	return nil
}
