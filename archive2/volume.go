package archive2

import (
	"io"

	"github.com/sirupsen/logrus"
)

// DecodeVolumeHeader reads the 24 byte Volume Header Record (RDA/RPG 7.3.3) from the top
// of an archive file. Nothing past the header is consumed.
func DecodeVolumeHeader(r io.Reader) (VolumeHeader, error) {
	buf := make([]byte, VolumeHeaderLength)
	n, err := io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return VolumeHeader{}, newError(ErrTruncated, int64(n), "volume header needs %d bytes, got %d", VolumeHeaderLength, n)
	} else if err != nil {
		return VolumeHeader{}, err
	}

	c := NewCursor(buf)
	vh := VolumeHeader{
		Name: c.Text(12, "volume name"),
		Date: c.Int32("volume date"),
		Time: c.Int32("volume time"),
		ICAO: c.Text(4, "icao"),
	}
	if err := c.Err(); err != nil {
		return VolumeHeader{}, err
	}

	logrus.Debugf("Volume Header %s %s @ %v", vh.Filename(), vh.ICAO, vh.Valid())
	return vh, nil
}
