package archive2

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Message is a complete, decoded message.
type Message struct {
	Header MessageHeader
	// Segment and Offset locate the record that completed the message: its LDM record and
	// its offset inside the decompressed data.
	Segment int
	Offset  int
	// Raw is the payload, concatenated across records for segmented messages.
	Raw []byte
	// Payload is the typed value (*Message31, *ClutterFilterMap, *RDAStatus, ...) or nil
	// for types without a registered decoder.
	Payload interface{}
}

// frame is a record paired with its decoded header.
type frame struct {
	segment int
	record  Record
	header  MessageHeader
}

// decodeFrames cuts a segment into records and decodes every message header.
func decodeFrames(seg *Segment, framer *Framer) ([]frame, error) {
	records, err := framer.Records(seg.Data)
	if err != nil {
		return nil, withContext(err, seg.Index, 0, 0)
	}

	messageCounts := map[MessageType]int{}
	frames := make([]frame, 0, len(records))
	for _, rec := range records {
		header, err := DecodeMessageHeader(rec.Header)
		if err != nil {
			return nil, withContext(err, seg.Index, int64(rec.Offset+LegacyCTMHeaderLength), 0)
		}
		logrus.Tracef("  Message Type %d (segments: %d size: %d)", header.MessageType, header.NumMessageSegments, header.MessageSize)
		messageCounts[header.MessageType]++
		frames = append(frames, frame{segment: seg.Index, record: rec, header: header})
	}

	// helpful for debugging
	logrus.Debugf("  found %s messages in this record", color.CyanString("%d", len(frames)))
	for msgType, count := range messageCounts {
		logrus.Debugf("    type %02d had %d messages", uint8(msgType), count)
	}
	return frames, nil
}

type groupKey struct {
	messageType MessageType
	sequence    uint16
}

type group struct {
	parts [][]byte
	have  int
}

// Reassembler joins the records of segmented messages (NumMessageSegments > 1). Records of
// one message share a type and id sequence number; their bodies are concatenated in
// segment number order once every part has been seen.
type Reassembler struct {
	pending map[groupKey]*group
}

// NewReassembler with nothing pending.
func NewReassembler() *Reassembler {
	return &Reassembler{pending: map[groupKey]*group{}}
}

// Add takes one record body. It returns the whole payload and true when h completes its
// message; messages that fit in one record come straight back.
func (r *Reassembler) Add(h MessageHeader, body []byte) ([]byte, bool, error) {
	if !h.Segmented() {
		return body, true, nil
	}

	key := groupKey{messageType: h.MessageType, sequence: h.IDSequenceNumber}
	g, ok := r.pending[key]
	if !ok {
		g = &group{parts: make([][]byte, h.NumMessageSegments)}
		r.pending[key] = g
	}
	if len(g.parts) != int(h.NumMessageSegments) {
		return nil, false, &DecodeError{
			Err:         ErrMalformedHeader,
			Segment:     -1,
			MessageType: h.MessageType,
			Detail:      fmt.Sprintf("message %d changed segment count from %d to %d", h.IDSequenceNumber, len(g.parts), h.NumMessageSegments),
		}
	}
	idx := int(h.MessageSegmentNum) - 1
	if idx < 0 || idx >= len(g.parts) {
		return nil, false, &DecodeError{
			Err:         ErrMalformedHeader,
			Segment:     -1,
			MessageType: h.MessageType,
			Detail:      fmt.Sprintf("message %d has segment %d of %d", h.IDSequenceNumber, h.MessageSegmentNum, len(g.parts)),
		}
	}
	if g.parts[idx] != nil {
		return nil, false, &DecodeError{
			Err:         ErrMalformedHeader,
			Segment:     -1,
			MessageType: h.MessageType,
			Detail:      fmt.Sprintf("message %d repeats segment %d", h.IDSequenceNumber, h.MessageSegmentNum),
		}
	}
	g.parts[idx] = body
	g.have++
	if g.have < len(g.parts) {
		return nil, false, nil
	}

	delete(r.pending, key)
	size := 0
	for _, p := range g.parts {
		size += len(p)
	}
	payload := make([]byte, 0, size)
	for _, p := range g.parts {
		payload = append(payload, p...)
	}
	return payload, true, nil
}

// Pending is the number of messages still waiting on records.
func (r *Reassembler) Pending() int {
	return len(r.pending)
}

// Finish reports messages that never received all their records.
func (r *Reassembler) Finish() error {
	if len(r.pending) == 0 {
		return nil
	}
	var first *groupKey
	for key := range r.pending {
		key := key
		if first == nil || key.messageType < first.messageType ||
			(key.messageType == first.messageType && key.sequence < first.sequence) {
			first = &key
		}
	}
	g := r.pending[*first]
	return &DecodeError{
		Err:         ErrTruncated,
		Segment:     -1,
		MessageType: first.messageType,
		Detail: fmt.Sprintf("%d messages incomplete, message %d ended with %d of %d segments",
			len(r.pending), first.sequence, g.have, len(g.parts)),
	}
}

// assembler turns frames into messages: reassembly first, then payload decoding.
type assembler struct {
	cfg   Config
	parts *Reassembler
}

func newAssembler(cfg Config) *assembler {
	return &assembler{cfg: cfg, parts: NewReassembler()}
}

// add returns nil without an error while a segmented message is incomplete.
func (a *assembler) add(f frame) (*Message, error) {
	h := f.header
	raw, done, err := a.parts.Add(h, f.record.Body(h))
	if err != nil {
		return nil, withContext(err, f.segment, int64(f.record.Offset), 0)
	}
	if !done {
		return nil, nil
	}

	payload, err := DecodePayload(h.MessageType, raw, a.cfg)
	if err != nil {
		base := int64(f.record.Offset + LegacyCTMHeaderLength + MessageHeaderLength)
		if h.Segmented() {
			// offsets point into the reassembled payload
			base = 0
		}
		return nil, withContext(err, f.segment, base, h.MessageType)
	}

	return &Message{
		Header:  h,
		Segment: f.segment,
		Offset:  f.record.Offset,
		Raw:     raw,
		Payload: payload,
	}, nil
}

func (a *assembler) finish() error {
	return a.parts.Finish()
}
