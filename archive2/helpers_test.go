package archive2

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/dsnet/compress/bzip2"
	"github.com/stretchr/testify/require"
)

func volumeHeaderBytes(name string, date, millis int32, icao string) []byte {
	b := make([]byte, VolumeHeaderLength)
	copy(b[0:12], name)
	binary.BigEndian.PutUint32(b[12:], uint32(date))
	binary.BigEndian.PutUint32(b[16:], uint32(millis))
	copy(b[20:24], icao)
	return b
}

type recordSpec struct {
	messageType uint8
	sequence    uint16
	segments    uint16
	segment     uint16
	payload     []byte
}

func messageHeaderBytes(rs recordSpec) []byte {
	hdr := make([]byte, MessageHeaderLength)
	binary.BigEndian.PutUint16(hdr[0:], uint16((MessageHeaderLength+len(rs.payload)+1)/2))
	hdr[3] = rs.messageType
	binary.BigEndian.PutUint16(hdr[4:], rs.sequence)
	binary.BigEndian.PutUint16(hdr[6:], 18512)
	binary.BigEndian.PutUint32(hdr[8:], 19886000)
	segments := rs.segments
	if segments == 0 {
		segments = 1
	}
	segment := rs.segment
	if segment == 0 {
		segment = 1
	}
	binary.BigEndian.PutUint16(hdr[12:], segments)
	binary.BigEndian.PutUint16(hdr[14:], segment)
	return hdr
}

// fixedRecord lays a message out in a 2432 byte record.
func fixedRecord(rs recordSpec) []byte {
	rec := make([]byte, DefaultMetadataRecordLength)
	copy(rec[LegacyCTMHeaderLength:], messageHeaderBytes(rs))
	copy(rec[LegacyCTMHeaderLength+MessageHeaderLength:], rs.payload)
	return rec
}

// sizedRecord lays a message out in a record exactly as long as its header declares.
func sizedRecord(rs recordSpec) []byte {
	rec := make([]byte, LegacyCTMHeaderLength)
	rec = append(rec, messageHeaderBytes(rs)...)
	return append(rec, rs.payload...)
}

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := bzip2.NewWriter(&buf, nil)
	require.NoError(t, err)
	_, err = zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func controlWord(n int32) []byte {
	b := make([]byte, ControlWordLength)
	binary.BigEndian.PutUint32(b, uint32(n))
	return b
}

// ldmRecords compresses each segment and prefixes it with its control word.
func ldmRecords(t *testing.T, segments ...[]byte) []byte {
	t.Helper()
	var out []byte
	for _, seg := range segments {
		z := compress(t, seg)
		out = append(out, controlWord(int32(len(z)))...)
		out = append(out, z...)
	}
	return out
}

func buildArchive(t *testing.T, segments ...[]byte) []byte {
	t.Helper()
	out := volumeHeaderBytes("AR2V0006.001", 18512, 19886000, "KTST")
	return append(out, ldmRecords(t, segments...)...)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

type beWriter struct {
	bytes.Buffer
}

func (w *beWriter) put(values ...interface{}) *beWriter {
	for _, v := range values {
		if err := binary.Write(&w.Buffer, binary.BigEndian, v); err != nil {
			panic(err)
		}
	}
	return w
}

// encodeClutterFilterMap is the inverse of DecodeClutterFilterMap.
func encodeClutterFilterMap(m *ClutterFilterMap) []byte {
	w := &beWriter{}
	w.put(m.GenerationDate, m.GenerationTime, uint16(len(m.ElevationSegments)))
	for _, elv := range m.ElevationSegments {
		w.put(uint16(len(elv.AzimuthSegments)))
		for _, az := range elv.AzimuthSegments {
			w.put(uint16(len(az.RangeZones)))
			for _, z := range az.RangeZones {
				w.put(z.OpCode, z.EndRange)
			}
		}
	}
	return w.Bytes()
}

func sampleClutterFilterMap(elevations, azimuths int) *ClutterFilterMap {
	m := &ClutterFilterMap{GenerationDate: 18510, GenerationTime: 725}
	m.ElevationSegments = make([]ElevationSegment, elevations)
	for e := range m.ElevationSegments {
		azs := make([]AzimuthSegment, azimuths)
		for a := range azs {
			// vary the zone count so the offsets don't line up by accident
			zones := make([]RangeZone, 1+(a+e)%3)
			for z := range zones {
				zones[z] = RangeZone{OpCode: uint16((a + z) % 3), EndRange: uint16(20 * (z + 1))}
			}
			zones[len(zones)-1].EndRange = 511
			azs[a].RangeZones = zones
		}
		m.ElevationSegments[e].AzimuthSegments = azs
	}
	return m
}

type genericHeaderSpec struct {
	radar    string
	azimuth  float32
	elev     float32
	elevNum  uint8
	pointers []uint32
}

func genericHeaderBytes(hs genericHeaderSpec) []byte {
	b := make([]byte, GenericRadarDataHeaderLength)
	copy(b[0:4], hs.radar)
	binary.BigEndian.PutUint32(b[4:], 43200000)
	binary.BigEndian.PutUint16(b[8:], 18512)
	binary.BigEndian.PutUint16(b[10:], 7)
	binary.BigEndian.PutUint32(b[12:], math.Float32bits(hs.azimuth))
	b[16] = 0
	binary.BigEndian.PutUint16(b[18:], 4000)
	b[20] = 1
	b[21] = radialStatusIntermediateRadialData
	b[22] = hs.elevNum
	b[23] = 1
	binary.BigEndian.PutUint32(b[24:], math.Float32bits(hs.elev))
	binary.BigEndian.PutUint16(b[30:], uint16(len(hs.pointers)))
	for i, p := range hs.pointers {
		binary.BigEndian.PutUint32(b[32+4*i:], p)
	}
	return b
}

func rdaStatusBytes(build uint16) []byte {
	w := &beWriter{}
	for i := 0; i < 27; i++ {
		switch i {
		case 7:
			w.put(int16(212))
		case 9:
			w.put(build)
		default:
			w.put(uint16(i))
		}
	}
	w.put(make([]byte, 20))
	return w.Bytes()
}
