package archive2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// BoundedSegmentReader hands out at most a fixed number of bytes from the underlying
// reader. It sits between the file and the bzip2 decompressor so the decompressor can
// never run into the next LDM record's control word.
type BoundedSegmentReader struct {
	r         io.Reader
	remaining int64
	read      int64
	short     bool
}

// NewBoundedSegmentReader limits r to n bytes.
func NewBoundedSegmentReader(r io.Reader, n int64) *BoundedSegmentReader {
	return &BoundedSegmentReader{r: r, remaining: n}
}

func (b *BoundedSegmentReader) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.r.Read(p)
	b.read += int64(n)
	b.remaining -= int64(n)
	if err == io.EOF && b.remaining > 0 {
		b.short = true
	}
	return n, err
}

// BytesRead is the number of bytes pulled from the underlying reader so far.
func (b *BoundedSegmentReader) BytesRead() int64 { return b.read }

// Remaining is how many bytes of the window have not been handed out yet.
func (b *BoundedSegmentReader) Remaining() int64 { return b.remaining }

// Short reports whether the underlying reader ended before the window was exhausted.
func (b *BoundedSegmentReader) Short() bool { return b.short }

// Drain discards whatever is left of the window, leaving the underlying reader at its end.
func (b *BoundedSegmentReader) Drain() (int64, error) {
	return io.Copy(io.Discard, b)
}

// Segment is one decompressed LDM compressed record (RDA/RPG 7.3.4).
type Segment struct {
	Index    int    // ordinal of the record in the file, from 0
	Offset   int64  // file offset of the control word
	Size     int64  // compressed length declared by the control word
	Consumed int64  // compressed bytes the decompressor actually used
	Data     []byte // decompressed contents
}

// CompressedSegment is an LDM record that has been read off the stream but not inflated.
type CompressedSegment struct {
	Index  int
	Offset int64
	Data   []byte
}

// Inflate decompresses the record. It is safe to call from any goroutine.
func (cs *CompressedSegment) Inflate(cfg Config) (*Segment, error) {
	seg := &Segment{
		Index:  cs.Index,
		Offset: cs.Offset,
		Size:   int64(len(cs.Data)),
	}
	data, consumed, err := inflateWindow(cs.Data, cfg.MaxDecompressedSize)
	if err != nil {
		return nil, &DecodeError{Err: ErrCorruptSegment, Offset: cs.Offset, Segment: cs.Index, Detail: err.Error()}
	}
	seg.Data = data
	seg.Consumed = consumed
	if err := checkConsumed(seg, cfg); err != nil {
		return nil, err
	}
	return seg, nil
}

// SegmentStream walks the LDM records of an archive file. It owns the file position: each
// control word is found by adding the previous record's declared length, so the stream is
// inherently sequential and a failure ends it for good.
type SegmentStream struct {
	r      io.Reader
	cfg    Config
	size   int64
	offset int64
	index  int
	err    error
}

// NewSegmentStream reads LDM records from r, which is positioned at file offset offset.
// size is the total length of the file, or -1 if unknown (the stream then ends at a clean
// EOF before a control word).
func NewSegmentStream(r io.Reader, offset, size int64, cfg Config) *SegmentStream {
	return &SegmentStream{
		r:      r,
		cfg:    cfg,
		size:   size,
		offset: offset,
	}
}

// Offset is the file offset of the next control word.
func (s *SegmentStream) Offset() int64 { return s.offset }

// Count is the number of records read so far.
func (s *SegmentStream) Count() int { return s.index }

// Next reads, bounds and decompresses the next LDM record. It returns io.EOF once the file
// is exhausted.
func (s *SegmentStream) Next() (*Segment, error) {
	cs, err := s.NextCompressed()
	if err != nil {
		return nil, err
	}

	seg, err := cs.Inflate(s.cfg)
	if err != nil {
		s.err = err
		return nil, err
	}
	logrus.Tracef("  record %d decompressed to %d bytes", seg.Index, len(seg.Data))
	return seg, nil
}

// NextCompressed reads the next LDM record without decompressing it. The bytes still come
// through a BoundedSegmentReader, so the file position ends exactly on the next control word.
func (s *SegmentStream) NextCompressed() (*CompressedSegment, error) {
	if s.err != nil {
		return nil, s.err
	}

	start := s.offset
	c, err := s.controlWord()
	if err != nil {
		s.err = err
		return nil, err
	}

	bounded := NewBoundedSegmentReader(s.r, c)
	data, err := io.ReadAll(bounded)
	if err != nil {
		s.err = err
		return nil, err
	}
	if bounded.Remaining() > 0 {
		s.err = s.errorf(ErrTruncated, start, "record ended %d bytes early", bounded.Remaining())
		return nil, s.err
	}

	cs := &CompressedSegment{Index: s.index, Offset: start, Data: data}
	s.offset += ControlWordLength + c
	s.index++
	return cs, nil
}

// controlWord reads and validates the size of the next LDM record.
func (s *SegmentStream) controlWord() (int64, error) {
	if s.size >= 0 {
		if s.offset >= s.size {
			return 0, io.EOF
		}
		if left := s.size - s.offset; left < ControlWordLength {
			return 0, s.errorf(ErrTruncated, s.offset, "control word needs %d bytes, %d left", ControlWordLength, left)
		}
	}

	var cw [ControlWordLength]byte
	n, err := io.ReadFull(s.r, cw[:])
	switch {
	case err == io.EOF && s.size < 0:
		return 0, io.EOF
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		return 0, s.errorf(ErrTruncated, s.offset, "control word needs %d bytes, got %d", ControlWordLength, n)
	case err != nil:
		return 0, err
	}

	raw := int32(binary.BigEndian.Uint32(cw[:]))
	c := int64(raw)
	if c < 0 && s.cfg.AllowNegativeControlWord {
		// the size can be negative, but you just interpret it as positive (RDA/RPG 7.3.4)
		c = -c
	}
	if c <= 0 || c > s.cfg.MaxSegmentSize {
		return 0, s.errorf(ErrInvalidControlWord, s.offset, "control word %d", raw)
	}
	if s.size >= 0 && s.offset+ControlWordLength+c > s.size {
		return 0, s.errorf(ErrTruncated, s.offset, "record of %d bytes runs past the end of the file (%d)", c, s.size)
	}

	logrus.Debugf("LDM Compressed Record (%s bytes)", color.CyanString("%d", c))
	return c, nil
}

func (s *SegmentStream) errorf(err error, offset int64, format string, args ...interface{}) error {
	return &DecodeError{
		Err:     err,
		Offset:  offset,
		Segment: s.index,
		Detail:  fmt.Sprintf(format, args...),
	}
}

// inflate drains a bzip2 stream, returning the output and the number of compressed bytes
// the decompressor consumed.
func inflate(r io.Reader, limit int64) ([]byte, int64, error) {
	zr, err := bzip2.NewReader(r, nil)
	if err != nil {
		return nil, 0, err
	}
	defer zr.Close()

	data, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, zr.InputOffset, err
	}
	if int64(len(data)) > limit {
		return nil, zr.InputOffset, fmt.Errorf("%w: more than %d bytes", errDecompressedSize, limit)
	}
	return data, zr.InputOffset, nil
}

var errDecompressedSize = errors.New("decompressed size limit exceeded")

// inflateWindow decompresses the first bzip2 stream of an LDM record. A record whose control
// word overstates the stream leaves bytes behind that the decompressor reads as the header
// of another stream; in that case the stream that did end cleanly is returned, with consumed
// short of the window.
func inflateWindow(window []byte, limit int64) ([]byte, int64, error) {
	data, consumed, err := inflate(bytes.NewReader(window), limit)
	if err == nil || errors.Is(err, errDecompressedSize) {
		return data, consumed, err
	}

	// a failed header read consumes at most 4 bytes past the end of the previous stream
	lo, hi := consumed-8, consumed
	if lo < 1 {
		lo = 1
	}
	if last := int64(len(window)) - 1; hi > last {
		hi = last
	}
	for n := lo; n <= hi; n++ {
		d, used, e := inflate(bytes.NewReader(window[:n]), limit)
		if e == nil && used == n {
			return d, n, nil
		}
	}
	return nil, consumed, err
}

func checkConsumed(seg *Segment, cfg Config) error {
	if seg.Consumed == seg.Size {
		return nil
	}
	if cfg.Strict {
		return &DecodeError{
			Err:     ErrSegmentSizeMismatch,
			Offset:  seg.Offset,
			Segment: seg.Index,
			Detail:  fmt.Sprintf("control word %d, decompressor consumed %d", seg.Size, seg.Consumed),
		}
	}
	logrus.Warnf("LDM record %d: control word says %s bytes, decompressor consumed %s",
		seg.Index, color.CyanString("%d", seg.Size), color.YellowString("%d", seg.Consumed))
	return nil
}
