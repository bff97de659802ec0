package archive2

import (
	"io"
	"os"
)

// Reader decodes an archive file lazily, one message at a time.
type Reader struct {
	VolumeHeader VolumeHeader

	cfg    Config
	stream *SegmentStream
	framer *Framer
	asm    *assembler
	queue  []frame
	closer io.Closer
	err    error
}

// Open an archive file on disk. The Reader must be closed.
func Open(filename string, cfg Config) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	r, err := NewReader(file, info.Size(), cfg)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// NewReader decodes the volume header from r and prepares to stream its messages. size is
// the length of the whole file, or -1 when it isn't known up front.
func NewReader(r io.Reader, size int64, cfg Config) (*Reader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// the gist of the file format is documented in RDA/RPG 7.3.6
	// but in short:
	//  - read in 24 byte Volume Header
	//  - read in 1 LDM Compressed Record - this is the metadata record
	//  - read in N LDM Compressed Records - these are the data records
	vh, err := DecodeVolumeHeader(r)
	if err != nil {
		return nil, err
	}

	return &Reader{
		VolumeHeader: vh,
		cfg:          cfg,
		stream:       NewSegmentStream(r, VolumeHeaderLength, size, cfg),
		framer:       NewFramer(cfg.Framing),
		asm:          newAssembler(cfg),
	}, nil
}

// Next returns the next complete message, or io.EOF once the file is exhausted. Any other
// error ends the decode: every later call returns it again.
func (r *Reader) Next() (*Message, error) {
	if r.err != nil {
		return nil, r.err
	}
	msg, err := r.next()
	if err != nil {
		r.err = err
	}
	return msg, err
}

func (r *Reader) next() (*Message, error) {
	for {
		for len(r.queue) > 0 {
			f := r.queue[0]
			r.queue = r.queue[1:]

			msg, err := r.asm.add(f)
			if err != nil {
				return nil, err
			}
			if msg != nil {
				return msg, nil
			}
		}

		seg, err := r.stream.Next()
		if err == io.EOF {
			if err := r.asm.finish(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		} else if err != nil {
			return nil, err
		}

		frames, err := decodeFrames(seg, r.framer)
		if err != nil {
			return nil, err
		}
		r.queue = frames
	}
}

// Segments is the number of LDM records decoded so far.
func (r *Reader) Segments() int {
	return r.stream.Count()
}

// Offset is the file offset the reader has reached.
func (r *Reader) Offset() int64 {
	return r.stream.Offset()
}

// Close releases the file opened by Open. It is a no-op for readers from NewReader.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
