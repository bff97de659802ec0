// Package archive2 provides structs and functions for decoding NEXRAD Archive II files.
//
// The documents used and referenced in this package:
//  • RDA/RPG: https://www.roc.noaa.gov/wsr88d/PublicDocs/ICDs/2620002T.pdf (high level details)
//  • User: https://www.roc.noaa.gov/wsr88d/PublicDocs/ICDs/2620010H.pdf (bulk of the format)
package archive2

import "time"

const (
	radialStatusStartOfElevationScan   = 0
	radialStatusIntermediateRadialData = 1
	radialStatusEndOfElevation         = 2
	radialStatusBeginningOfVolumeScan  = 3
	radialStatusEndOfVolumeScan        = 4
	radialStatusStartNewElevation      = 5

	// VolumeHeaderLength is the fixed preamble at the top of every archive file
	VolumeHeaderLength = 24

	// ControlWordLength prefixes every LDM compressed record
	ControlWordLength = 4

	// LegacyCTMHeaderLength sits in front of every message header
	LegacyCTMHeaderLength = 12

	// MessageHeaderLength is the size of the header that follows the CTM header
	MessageHeaderLength = 16

	// DefaultMetadataRecordLength is the size of every record regardless of its contents
	DefaultMetadataRecordLength = 2432

	// PayloadLength is what is left of a fixed record after the CTM and message headers
	PayloadLength = DefaultMetadataRecordLength - LegacyCTMHeaderLength - MessageHeaderLength
)

// VolumeHeader for NEXRAD Archive II Data Streams (RDA/RPG 7.3.3)
type VolumeHeader struct {
	Name string // eg "AR2V0006.001", tape filename and extension number
	Date int32  // data's valid date (julian day since 1970)
	Time int32  // data's valid time (milliseconds past midnight)
	ICAO string // radar identifier
}

// Filename for this archive file
func (vh VolumeHeader) Filename() string {
	return vh.Name
}

// Date and time this data is valid for
func (vh VolumeHeader) Valid() time.Time {
	return julianTime(int64(vh.Date), int64(vh.Time))
}

// MessageHeader provides a high level description for a particular message. (User 3.2.4.1)
type MessageHeader struct {
	MessageSize         uint16 // halfwords, counted from the start of this header
	RDARedundantChannel uint8
	MessageType         MessageType
	IDSequenceNumber    uint16
	JulianDate          uint16
	MillisOfDay         uint32
	NumMessageSegments  uint16
	MessageSegmentNum   uint16
}

// Date the message was generated
func (h MessageHeader) Date() time.Time {
	return julianTime(int64(h.JulianDate), int64(h.MillisOfDay))
}

// Segmented reports whether the message spans more than one record.
func (h MessageHeader) Segmented() bool {
	return h.NumMessageSegments > 1
}

// julianTime converts the NEXRAD date convention (days since 1970-01-01, counted from 1)
// and milliseconds past midnight into a time.
func julianTime(days, millis int64) time.Time {
	return time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(days-1) * time.Hour * 24).
		Add(time.Duration(millis) * time.Millisecond)
}

// See the individual messageXX.go files for message specific types.
