package ntr

import (
	"errors"
	"fmt"
	"io"
)

// ErrMalformedContainer indicates a bad magic, a truncated or misaligned
// chunk, or a payload that does not match its own declared layout.
var ErrMalformedContainer = errors.New("ntr: malformed container")

// SectionError records which container and chunk a codec error came from.
type SectionError struct {
	Magic string
	Chunk string
	Err   error
}

func (e *SectionError) Error() string {
	switch {
	case e.Magic == "":
		return fmt.Sprintf("%s: %v", e.Chunk, e.Err)
	case e.Chunk != "":
		return fmt.Sprintf("%s/%s: %v", e.Magic, e.Chunk, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Magic, e.Err)
}

func (e *SectionError) Unwrap() error {
	return e.Err
}

// Wrap annotates err with the container and chunk it relates to. Short
// reads are reported as ErrMalformedContainer. A nil err returns nil.
func Wrap(magic, chunk string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = fmt.Errorf("%w: %v", ErrMalformedContainer, io.ErrUnexpectedEOF)
	}
	return &SectionError{Magic: magic, Chunk: chunk, Err: err}
}

// Malformed returns an ErrMalformedContainer for the given chunk with a
// formatted description.
func Malformed(magic, chunk, format string, a ...interface{}) error {
	return Wrap(magic, chunk, malformed(format, a...))
}
