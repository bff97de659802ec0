package archive2

import (
	"fmt"
	"time"
)

// Clutter filter opcodes (User 3.2.4.14)
const (
	OpCodeBypassFilter   = 0
	OpCodeBypassMapInCtl = 1
	OpCodeForceFilter    = 2
)

// ClutterFilterMap - Clutter Filter Map (User 3.2.4.14). Every count is read from the
// stream, so a map decodes to exactly as many elevations, azimuths and zones as it declares.
type ClutterFilterMap struct {
	GenerationDate    uint16 // days since 1/1/1970
	GenerationTime    uint16 // minutes past midnight GMT
	ElevationSegments []ElevationSegment
}

// ElevationSegment of the clutter filter map, normally one azimuth segment per degree.
type ElevationSegment struct {
	AzimuthSegments []AzimuthSegment
}

// AzimuthSegment lists the range zones of one azimuth, ordered by end range.
type AzimuthSegment struct {
	RangeZones []RangeZone
}

// RangeZone applies OpCode out to EndRange (km).
type RangeZone struct {
	OpCode   uint16
	EndRange uint16
}

// Generated is when the map was produced.
func (m *ClutterFilterMap) Generated() time.Time {
	return julianTime(int64(m.GenerationDate), int64(m.GenerationTime)*60*1000)
}

// RangeZoneCount is the total number of zones across all elevations and azimuths.
func (m *ClutterFilterMap) RangeZoneCount() int {
	total := 0
	for _, elv := range m.ElevationSegments {
		for _, az := range elv.AzimuthSegments {
			total += len(az.RangeZones)
		}
	}
	return total
}

func (m *ClutterFilterMap) String() string {
	return fmt.Sprintf("Message 15 - %d elevation segments, %d range zones, generated %v",
		len(m.ElevationSegments), m.RangeZoneCount(), m.Generated())
}

// DecodeClutterFilterMap walks the three nested levels of a clutter filter map with a
// single cursor: each elevation declares its azimuth count and each azimuth its range zone
// count, so there is no way to find a segment without consuming everything before it.
// Counts above maxCount fail with ErrCountOutOfRange before anything is allocated for them.
func DecodeClutterFilterMap(c *Cursor, maxCount int) (*ClutterFilterMap, error) {
	m := &ClutterFilterMap{
		GenerationDate: c.Uint16("map generation date"),
		GenerationTime: c.Uint16("map generation time"),
	}
	numElevations := readCount(c, maxCount, "elevation segment count", 2)
	if err := c.Err(); err != nil {
		return nil, err
	}

	m.ElevationSegments = make([]ElevationSegment, numElevations)
	for e := range m.ElevationSegments {
		numAzimuths := readCount(c, maxCount, "azimuth segment count", 2)
		if err := c.Err(); err != nil {
			return nil, err
		}

		azimuths := make([]AzimuthSegment, numAzimuths)
		for a := range azimuths {
			numZones := readCount(c, maxCount, "range zone count", 4)
			if err := c.Err(); err != nil {
				return nil, err
			}

			zones := make([]RangeZone, numZones)
			for z := range zones {
				zones[z] = RangeZone{
					OpCode:   c.Uint16("op code"),
					EndRange: c.Uint16("end range"),
				}
			}
			if err := c.Err(); err != nil {
				return nil, err
			}
			azimuths[a].RangeZones = zones
		}
		m.ElevationSegments[e].AzimuthSegments = azimuths
	}
	return m, nil
}

// readCount reads a 2 byte count and checks it against the ceiling and against what is left
// of the window, given that each counted element takes at least minSize bytes.
func readCount(c *Cursor, maxCount int, field string, minSize int) int {
	start := c.Pos()
	n := int(c.Uint16(field))
	if c.Err() != nil {
		return 0
	}
	if n > maxCount {
		c.Fail(newError(ErrCountOutOfRange, int64(start), "%s %d exceeds %d", field, n, maxCount))
		return 0
	}
	if need := n * minSize; need > c.Remaining() {
		c.Fail(newError(ErrTruncated, int64(c.Pos()), "%s %d needs at least %d bytes, %d left", field, n, need, c.Remaining()))
		return 0
	}
	return n
}
