package archive2

import (
	"context"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Archive wrapper for fully decoded archive 2 data files.
type Archive struct {
	VolumeHeader VolumeHeader
	Messages     []*Message

	// radials keyed by elevation number
	ElevationScans map[int][]*Message31

	ClutterFilterMaps []*ClutterFilterMap

	// the metadata record will contain a single Message Type 2 which comes in handy
	// in other parts of the decoding for version-specific handling.
	Status *RDAStatus

	MessageCounts map[MessageType]int
	Segments      int
}

func newArchive(vh VolumeHeader) *Archive {
	return &Archive{
		VolumeHeader:   vh,
		ElevationScans: make(map[int][]*Message31),
		MessageCounts:  make(map[MessageType]int),
	}
}

func (ar2 *Archive) add(msg *Message) {
	ar2.Messages = append(ar2.Messages, msg)
	ar2.MessageCounts[msg.Header.MessageType]++

	switch p := msg.Payload.(type) {
	case *Message31:
		// instead of having every message dump data out, we'll just look at the 0-1 degree data
		if p.Header.AzimuthAngle < 1 {
			logrus.Trace(p)
		}
		elv := int(p.Header.ElevationNumber)
		ar2.ElevationScans[elv] = append(ar2.ElevationScans[elv], p)
	case *ClutterFilterMap:
		logrus.Debug(p)
		ar2.ClutterFilterMaps = append(ar2.ClutterFilterMaps, p)
	case *RDAStatus:
		// we'll keep the first one - it should be the metadata record's
		if ar2.Status == nil {
			logrus.Debug(p)
			ar2.Status = p
		}
	}
}

// Elevations returns the elevation numbers present, in ascending order.
func (ar2 *Archive) Elevations() []int {
	elevations := make([]int, 0, len(ar2.ElevationScans))
	for elv := range ar2.ElevationScans {
		elevations = append(elevations, elv)
	}
	sort.Ints(elevations)
	return elevations
}

// DecodeFile decodes a whole archive file from disk.
func DecodeFile(ctx context.Context, filename string, cfg Config) (*Archive, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	return DecodeAll(ctx, file, info.Size(), cfg)
}

// DecodeAll decodes every message of the archive in r. size is the file length, or -1 if
// unknown. With cfg.Workers above 1 the LDM records are still read off r by a single
// goroutine, which owns the file position, while the workers decompress and frame them; the
// messages are then assembled in file order.
func DecodeAll(ctx context.Context, r io.Reader, size int64, cfg Config) (*Archive, error) {
	if cfg.Workers <= 1 {
		return decodeSequential(ctx, r, size, cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vh, err := DecodeVolumeHeader(r)
	if err != nil {
		return nil, err
	}
	logrus.Info(vh.Filename())

	stream := NewSegmentStream(r, VolumeHeaderLength, size, cfg)
	framer := NewFramer(cfg.Framing)

	var (
		mtx     sync.Mutex
		results = make(map[int][]frame)
	)

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan *CompressedSegment, cfg.Workers)

	g.Go(func() error {
		defer close(jobs)
		for {
			cs, err := stream.NextCompressed()
			if err == io.EOF {
				return nil
			} else if err != nil {
				return err
			}
			select {
			case jobs <- cs:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	for i := 0; i < cfg.Workers; i++ {
		g.Go(func() error {
			for cs := range jobs {
				seg, err := cs.Inflate(cfg)
				if err != nil {
					return err
				}
				frames, err := decodeFrames(seg, framer)
				if err != nil {
					return err
				}
				mtx.Lock()
				results[seg.Index] = frames
				mtx.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	ar2 := newArchive(vh)
	ar2.Segments = stream.Count()
	asm := newAssembler(cfg)
	for idx := 0; idx < ar2.Segments; idx++ {
		for _, f := range results[idx] {
			msg, err := asm.add(f)
			if err != nil {
				return nil, err
			}
			if msg != nil {
				ar2.add(msg)
			}
		}
	}
	if err := asm.finish(); err != nil {
		return nil, err
	}

	logDecoded(ar2)
	return ar2, nil
}

func decodeSequential(ctx context.Context, r io.Reader, size int64, cfg Config) (*Archive, error) {
	reader, err := NewReader(r, size, cfg)
	if err != nil {
		return nil, err
	}
	logrus.Info(reader.VolumeHeader.Filename())

	ar2 := newArchive(reader.VolumeHeader)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := reader.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		ar2.add(msg)
	}
	ar2.Segments = reader.Segments()

	logDecoded(ar2)
	return ar2, nil
}

func logDecoded(ar2 *Archive) {
	logrus.Debugf("decoded %s messages from %s LDM records",
		color.CyanString("%d", len(ar2.Messages)), color.CyanString("%d", ar2.Segments))
	for msgType, count := range ar2.MessageCounts {
		logrus.Debugf("    type %02d had %d messages", uint8(msgType), count)
	}
}
