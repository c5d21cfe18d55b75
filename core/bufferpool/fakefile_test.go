package bufferpool

import (
	"fmt"

	"github.com/gojodb/bufferpool/core/pageio"
)

// fakeFile is an in-memory pageio.File used to drive the Manager without
// touching disk. Each fakeFile is a distinct object even when two fakeFiles
// share the same name, exercising the directory's identity-based equality.
type fakeFile struct {
	name string
	open bool

	pages    map[pageio.PageNumber][]byte
	nextPage pageio.PageNumber

	readErr, writeErr, allocErr, deleteErr error

	ops []string
}

func newFakeFile(name string) *fakeFile {
	return &fakeFile{name: name, open: true, pages: map[pageio.PageNumber][]byte{}, nextPage: 1}
}

func (f *fakeFile) Filename() string { return f.name }
func (f *fakeFile) IsOpen() bool     { return f.open }

func (f *fakeFile) ReadPage(number pageio.PageNumber) (*pageio.Page, error) {
	f.ops = append(f.ops, fmt.Sprintf("read:%d", number))
	if f.readErr != nil {
		return nil, f.readErr
	}
	buf := make([]byte, testPageSize)
	if data, ok := f.pages[number]; ok {
		copy(buf, data)
	}
	return pageio.NewPage(number, buf), nil
}

func (f *fakeFile) WritePage(page *pageio.Page) error {
	f.ops = append(f.ops, fmt.Sprintf("write:%d", page.Number()))
	if f.writeErr != nil {
		return f.writeErr
	}
	data := make([]byte, len(page.Data()))
	copy(data, page.Data())
	f.pages[page.Number()] = data
	return nil
}

func (f *fakeFile) AllocatePage() (*pageio.Page, error) {
	if f.allocErr != nil {
		return nil, f.allocErr
	}
	number := f.nextPage
	f.nextPage++
	buf := make([]byte, testPageSize)
	f.pages[number] = buf
	f.ops = append(f.ops, fmt.Sprintf("alloc:%d", number))
	return pageio.NewPage(number, buf), nil
}

func (f *fakeFile) DeletePage(number pageio.PageNumber) error {
	f.ops = append(f.ops, fmt.Sprintf("delete:%d", number))
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.pages, number)
	return nil
}

func (f *fakeFile) reads() int {
	n := 0
	for _, op := range f.ops {
		if len(op) >= 5 && op[:5] == "read:" {
			n++
		}
	}
	return n
}

func (f *fakeFile) writes() int {
	n := 0
	for _, op := range f.ops {
		if len(op) >= 6 && op[:6] == "write:" {
			n++
		}
	}
	return n
}
