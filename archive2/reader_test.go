package archive2

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// segmentedRecords splits payload across as many fixed records as it takes.
func segmentedRecords(messageType uint8, sequence uint16, payload []byte, chunk int) []byte {
	parts := (len(payload) + chunk - 1) / chunk
	var out []byte
	for i := 0; i < parts; i++ {
		end := (i + 1) * chunk
		if end > len(payload) {
			end = len(payload)
		}
		out = append(out, fixedRecord(recordSpec{
			messageType: messageType,
			sequence:    sequence,
			segments:    uint16(parts),
			segment:     uint16(i + 1),
			payload:     payload[i*chunk : end],
		})...)
	}
	return out
}

func radial(elevNum uint8, azimuth float32) []byte {
	return concat(
		genericHeaderBytes(genericHeaderSpec{
			radar:    "KTST",
			azimuth:  azimuth,
			elev:     0.5 * float32(elevNum),
			elevNum:  elevNum,
			pointers: []uint32{0, 0, 0, GenericRadarDataHeaderLength},
		}),
		momentBlock("REF", 8, 2, 66, []uint16{0, 1, 66, 130}),
	)
}

type testVolume struct {
	clutter []byte
	file    []byte
}

// newTestVolume lays out a metadata LDM record (status, a clutter map spread over several
// records, adaptation data) followed by two LDM records of radials.
func newTestVolume(t *testing.T) testVolume {
	clutter := encodeClutterFilterMap(sampleClutterFilterMap(2, 360))
	metadata := concat(
		fixedRecord(recordSpec{messageType: 2, payload: rdaStatusBytes(1900)}),
		segmentedRecords(15, 1, clutter, 2400),
		fixedRecord(recordSpec{messageType: 18, payload: []byte{0xca, 0xfe}}),
	)

	var first, second []byte
	for az := 0; az < 6; az++ {
		first = append(first, fixedRecord(recordSpec{messageType: 31, payload: radial(1, float32(az)*0.5)})...)
		second = append(second, fixedRecord(recordSpec{messageType: 31, payload: radial(2, float32(az)*0.5)})...)
	}
	return testVolume{
		clutter: clutter,
		file:    buildArchive(t, metadata, first, second),
	}
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "KTST20200906_053126_V06")
	require.NoError(t, os.WriteFile(filename, data, 0644))
	return filename
}

func TestReader(t *testing.T) {
	vol := newTestVolume(t)

	r, err := Open(writeTemp(t, vol.file), DefaultConfig())
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "AR2V0006.001", r.VolumeHeader.Name)
	assert.Equal(t, "KTST", r.VolumeHeader.ICAO)

	var messages []*Message
	for {
		msg, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		messages = append(messages, msg)
	}
	require.Len(t, messages, 3+12)

	assert.Equal(t, RDAStatusData, messages[0].Header.MessageType)
	assert.IsType(t, &RDAStatus{}, messages[0].Payload)

	clutter := messages[1]
	assert.Equal(t, ClutterFilterMapData, clutter.Header.MessageType)
	assert.Equal(t, vol.clutter, clutter.Raw)
	require.IsType(t, &ClutterFilterMap{}, clutter.Payload)
	assert.Len(t, clutter.Payload.(*ClutterFilterMap).ElevationSegments, 2)
	assert.Equal(t, 0, clutter.Segment)

	adaptation := messages[2]
	assert.Equal(t, RDAAdaptationData, adaptation.Header.MessageType)
	assert.Nil(t, adaptation.Payload)
	assert.Equal(t, []byte{0xca, 0xfe}, adaptation.Raw)

	for i, msg := range messages[3:] {
		require.IsType(t, &Message31{}, msg.Payload)
		m31 := msg.Payload.(*Message31)
		assert.Equal(t, 1+i/6, msg.Segment)
		assert.Equal(t, uint8(1+i/6), m31.Header.ElevationNumber)
		assert.Equal(t, (i%6)*DefaultMetadataRecordLength, msg.Offset)
		assert.Equal(t, []uint16{0, 1, 66, 130}, m31.REFData.Data)
	}

	assert.Equal(t, 3, r.Segments())
	assert.Equal(t, int64(len(vol.file)), r.Offset())

	// EOF sticks
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}

func TestReader_UnknownMessageType(t *testing.T) {
	records := concat(
		fixedRecord(recordSpec{messageType: 31, payload: radial(1, 0)}),
		fixedRecord(recordSpec{messageType: 19}),
	)
	file := buildArchive(t, fixedRecord(recordSpec{messageType: 2, payload: rdaStatusBytes(1900)}), records)

	r, err := NewReader(readerOnly{r: bytesReader(file)}, -1, DefaultConfig())
	require.NoError(t, err)

	_, err = r.Next()
	require.NoError(t, err)

	// the whole LDM record is framed before any of its messages come out
	_, err = r.Next()
	require.ErrorIs(t, err, ErrUnknownMessageType)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Segment)
	assert.Equal(t, uint8(19), de.Code)
	assert.Equal(t, int64(DefaultMetadataRecordLength+LegacyCTMHeaderLength+3), de.Offset)

	_, again := r.Next()
	assert.Equal(t, err, again)
}

func TestReader_PayloadErrorContext(t *testing.T) {
	bad := concat(genericHeaderBytes(genericHeaderSpec{radar: "KTST", pointers: []uint32{68}}), []byte("DXYZ"), make([]byte, 8))
	file := buildArchive(t,
		fixedRecord(recordSpec{messageType: 2, payload: rdaStatusBytes(1900)}),
		concat(
			fixedRecord(recordSpec{messageType: 31, payload: radial(1, 0)}),
			fixedRecord(recordSpec{messageType: 31, payload: bad}),
		),
	)

	_, err := DecodeAll(testContext(t), bytesReader(file), int64(len(file)), DefaultConfig())
	require.ErrorIs(t, err, ErrMalformedHeader)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Segment)
	assert.Equal(t, DigitalRadarDataGenericFormat, de.MessageType)
	assert.Equal(t, int64(DefaultMetadataRecordLength+LegacyCTMHeaderLength+MessageHeaderLength+GenericRadarDataHeaderLength), de.Offset)
}

func TestReader_IncompleteMessage(t *testing.T) {
	clutter := encodeClutterFilterMap(sampleClutterFilterMap(2, 360))
	records := segmentedRecords(15, 4, clutter, 2400)
	// drop the last record of the map
	file := buildArchive(t, records[:len(records)-DefaultMetadataRecordLength])

	r, err := NewReader(bytesReader(file), int64(len(file)), DefaultConfig())
	require.NoError(t, err)
	_, err = r.Next()
	require.ErrorIs(t, err, ErrTruncated)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, ClutterFilterMapData, de.MessageType)
}

func TestNewReader_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	_, err := NewReader(bytesReader(newTestVolume(t).file), -1, cfg)
	assert.Error(t, err)

	_, err = NewReader(bytesReader([]byte("AR2V0006")), -1, DefaultConfig())
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Open(filepath.Join(t.TempDir(), "missing"), DefaultConfig())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
