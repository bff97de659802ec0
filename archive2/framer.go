package archive2

import (
	"encoding/binary"
)

// Record is one message record cut out of a decompressed segment. The slices alias the
// segment buffer.
type Record struct {
	Offset  int    // offset of the record inside the decompressed segment
	Frame   []byte // legacy CTM header, all nil in practice
	Header  []byte // MessageHeaderLength bytes
	Payload []byte
}

// Body trims the payload window to the length the message header declares, when that
// length fits in the window. Fixed records are padded out to DefaultMetadataRecordLength.
func (r Record) Body(h MessageHeader) []byte {
	declared := 2*int(h.MessageSize) - MessageHeaderLength
	if declared < 0 || declared > len(r.Payload) {
		return r.Payload
	}
	return r.Payload[:declared]
}

// Framer cuts decompressed segments into message records.
type Framer struct {
	framing Framing
}

// NewFramer for the given framing mode.
func NewFramer(framing Framing) *Framer {
	return &Framer{framing: framing}
}

// Records partitions a segment into consecutive records. A trailing partial record is
// dropped when it is nothing but zero padding and is an error otherwise.
func (f *Framer) Records(data []byte) ([]Record, error) {
	records := make([]Record, 0, len(data)/DefaultMetadataRecordLength+1)
	for off := 0; off < len(data); {
		rest := data[off:]

		n, err := f.recordLength(rest, off)
		if err != nil {
			return nil, err
		}
		if n > len(rest) {
			// zero padding is dropped from any segment, not only the last one in the file
			if allZero(rest) {
				break
			}
			return nil, newError(ErrUnexpectedTrailingBytes, int64(off), "%d byte partial record", len(rest))
		}

		rec := rest[:n]
		records = append(records, Record{
			Offset:  off,
			Frame:   rec[:LegacyCTMHeaderLength],
			Header:  rec[LegacyCTMHeaderLength : LegacyCTMHeaderLength+MessageHeaderLength],
			Payload: rec[LegacyCTMHeaderLength+MessageHeaderLength:],
		})
		off += n
	}
	return records, nil
}

// recordLength works out how long the record at the front of rest is. A length past the
// end of rest means a partial record.
func (f *Framer) recordLength(rest []byte, off int) (int, error) {
	const headerEnd = LegacyCTMHeaderLength + MessageHeaderLength
	if f.framing != FramingSized || len(rest) < headerEnd {
		return DefaultMetadataRecordLength, nil
	}
	if MessageType(rest[LegacyCTMHeaderLength+3]) != DigitalRadarDataGenericFormat {
		return DefaultMetadataRecordLength, nil
	}

	// message 31 is variable length, the size counts halfwords from the message header on
	size := int(binary.BigEndian.Uint16(rest[LegacyCTMHeaderLength:]))
	n := LegacyCTMHeaderLength + 2*size
	if n < headerEnd {
		return 0, &DecodeError{
			Err:         ErrMalformedHeader,
			Offset:      int64(off),
			Segment:     -1,
			MessageType: DigitalRadarDataGenericFormat,
			Detail:      "message size smaller than its header",
		}
	}
	if n > len(rest) {
		return 0, &DecodeError{
			Err:         ErrTruncated,
			Offset:      int64(off),
			Segment:     -1,
			MessageType: DigitalRadarDataGenericFormat,
			Detail:      "message runs past the end of the segment",
		}
	}
	return n, nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// DecodeMessageHeader decodes the 16 byte message header (User 3.2.4.1).
func DecodeMessageHeader(b []byte) (MessageHeader, error) {
	c := NewCursor(b)
	h := MessageHeader{
		MessageSize:         c.Uint16("message size"),
		RDARedundantChannel: c.Uint8("redundant channel"),
	}
	code := c.Uint8("message type")
	h.IDSequenceNumber = c.Uint16("id sequence number")
	h.JulianDate = c.Uint16("julian date")
	h.MillisOfDay = c.Uint32("milliseconds of day")
	h.NumMessageSegments = c.Uint16("number of message segments")
	h.MessageSegmentNum = c.Uint16("message segment number")
	if err := c.Err(); err != nil {
		return MessageHeader{}, err
	}

	mt, err := ParseMessageType(code)
	if err != nil {
		if de, ok := err.(*DecodeError); ok {
			de.Offset = 3
		}
		return MessageHeader{}, err
	}
	h.MessageType = mt

	if h.Segmented() && (h.MessageSegmentNum < 1 || h.MessageSegmentNum > h.NumMessageSegments) {
		return MessageHeader{}, &DecodeError{
			Err:         ErrMalformedHeader,
			Offset:      14,
			Segment:     -1,
			MessageType: mt,
			Detail:      "segment number outside the segment count",
		}
	}
	return h, nil
}
