package archive2

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTruncated fewer bytes are available than a fixed-width field requires
	ErrTruncated = errors.New("truncated")
	// ErrInvalidControlWord the LDM control word is negative, zero or absurdly large
	ErrInvalidControlWord = errors.New("invalid control word")
	// ErrCorruptSegment the decompressor rejected a segment
	ErrCorruptSegment = errors.New("corrupt segment")
	// ErrSegmentSizeMismatch consumed compressed bytes disagree with the control word (strict mode)
	ErrSegmentSizeMismatch = errors.New("segment size mismatch")
	// ErrUnknownMessageType the message header carries a type outside the defined set
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrCountOutOfRange a count field read from the stream is above the sanity ceiling
	ErrCountOutOfRange = errors.New("count out of range")
	// ErrMalformedHeader a text field holds non-text bytes, or header fields contradict each other
	ErrMalformedHeader = errors.New("malformed header")
	// ErrUnexpectedTrailingBytes a segment ends in a partial record that is not zero padding
	ErrUnexpectedTrailingBytes = errors.New("unexpected trailing bytes")
)

// DecodeError wraps one of the sentinel errors above with the position it was hit at.
// Segment is -1 and MessageType is 0 when they don't apply.
type DecodeError struct {
	Err         error
	Offset      int64 // file offset for stream errors, offset inside the decompressed segment for record errors
	Segment     int
	MessageType MessageType
	Code        uint8 // raw type byte for ErrUnknownMessageType
	Detail      string
}

func (e *DecodeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Err.Error())
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	fmt.Fprintf(&sb, " (offset %d", e.Offset)
	if e.Segment >= 0 {
		fmt.Fprintf(&sb, ", segment %d", e.Segment)
	}
	if e.MessageType != 0 {
		fmt.Fprintf(&sb, ", message type %d", e.MessageType)
	}
	sb.WriteString(")")
	return sb.String()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newError(err error, offset int64, format string, args ...interface{}) *DecodeError {
	return &DecodeError{
		Err:     err,
		Offset:  offset,
		Segment: -1,
		Detail:  fmt.Sprintf(format, args...),
	}
}

// withContext fills in segment and message context on a DecodeError produced deeper in
// the stack. Offsets inside a window are rebased onto base.
func withContext(err error, segment int, base int64, mt MessageType) error {
	var de *DecodeError
	if !errors.As(err, &de) {
		return err
	}
	out := *de
	if out.Segment < 0 {
		out.Segment = segment
		out.Offset += base
	}
	if out.MessageType == 0 {
		out.MessageType = mt
	}
	return &out
}
