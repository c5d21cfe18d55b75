package pageio

import "errors"

var (
	ErrFileNotOpen   = errors.New("pageio: file not open")
	ErrDBFileExists  = errors.New("pageio: database file already exists")
	ErrDBFileMissing = errors.New("pageio: database file not found")
	ErrShortIO       = errors.New("pageio: short read or write")
	ErrBadPageNumber = errors.New("pageio: page number out of range")
)
