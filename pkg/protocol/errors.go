package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrEmpty is returned when decoding a zero-length datagram.
	ErrEmpty = errors.New("empty datagram")
	// ErrTruncated is returned when a datagram is shorter than its layout requires.
	ErrTruncated = errors.New("truncated datagram")
	// ErrUnknownTag is returned for a tag byte that names no message.
	ErrUnknownTag = errors.New("unknown message tag")
	// ErrTooManyEntries is returned when encoding a list longer than 255 entries.
	ErrTooManyEntries = errors.New("too many list entries")
)

// DecodeError describes why a datagram could not be decoded.
type DecodeError struct {
	Tag  byte
	Need int
	Have int
	Err  error
}

func (e *DecodeError) Error() string {
	if errors.Is(e.Err, ErrTruncated) {
		return fmt.Sprintf("decode tag 0x%02x: %v: need %d bytes, have %d", e.Tag, e.Err, e.Need, e.Have)
	}
	return fmt.Sprintf("decode tag 0x%02x: %v", e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func truncated(tag byte, need, have int) error {
	return &DecodeError{Tag: tag, Need: need, Have: have, Err: ErrTruncated}
}
