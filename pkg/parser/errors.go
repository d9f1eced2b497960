package parser

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrUnsupportedEncoding is returned for an encoding name that has no decoder.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	// ErrDecode is returned when bytes cannot be decoded under the declared encoding.
	ErrDecode = errors.New("cannot decode input")
	// ErrBufferLimit is returned when a whole-buffer format outgrows its ceiling.
	ErrBufferLimit = errors.New("buffered input exceeds limit")
	// ErrContainer is returned when a binary container cannot be read.
	ErrContainer = errors.New("unreadable container")
	// ErrFinished is returned when input arrives after Finish.
	ErrFinished = errors.New("parser already finished")
	// ErrInvalidDelimiter is returned for a delimiter that cannot separate fields.
	ErrInvalidDelimiter = errors.New("invalid delimiter")
)

// UnknownFormatError reports a format name that no parser handles.
type UnknownFormatError struct {
	Name string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown format %q", e.Name)
}
