package archive2

import (
	"fmt"
	"time"
)

const (
	// GenericRadarDataHeaderLength is the fixed part of Message 31, up to and including the
	// ninth data block pointer.
	GenericRadarDataHeaderLength = 68

	genericDataBlockPointers = 9
)

// GenericRadarDataHeader is the non-data portions of Message31 (User 3.2.4.17)
type GenericRadarDataHeader struct {
	RadarIdentifier              string  // ICAO (eg KMPX for Minneapolis)
	CollectionTime               uint32  // Radial data collection time in milliseconds past midnight GMT
	CollectionDate               uint16  // Current Julian date - 2440586.5
	AzimuthNumber                uint16  // Radial number within elevation scan
	AzimuthAngle                 float32 // Azimuth angle at which radial data was collected
	CompressionIndicator         uint8   // Indicates if message type 31 is compressed and what method of compression is used. The Data Header Block is not compressed.
	RadialLength                 uint16  // Uncompressed length of the radial in bytes including the Data Header block length
	AzimuthResolutionSpacingCode uint8   // Code for the Azimuthal spacing between adjacent radials. 1 = .5 degrees, 2 = 1degree
	RadialStatus                 uint8
	ElevationNumber              uint8 // Elevation number within volume scan
	CutSectorNumber              uint8 // Sector Number within cut
	ElevationAngle               float32
	RadialSpotBlankingStatus     uint8 // Spot blanking status for current radial, elevation scan and volume scan
	AzimuthIndexingMode          uint8 // Azimuth indexing value (Set if azimuth angle is keyed to constant angles)
	DataBlockCount               uint16
	// offsets from the start of this header to the VOL, ELV, RAD, REF, VEL, SW, ZDR, PHI and RHO blocks, 0 when absent
	DataBlockPointers [genericDataBlockPointers]uint32
}

func (h GenericRadarDataHeader) String() string {
	return fmt.Sprintf("Message 31 - %s @ %v deg=%.2f tilt=%.2f",
		h.RadarIdentifier,
		h.Date(),
		h.AzimuthAngle,
		h.ElevationAngle,
	)
}

// Date and time this data is valid for
func (h GenericRadarDataHeader) Date() time.Time {
	return julianTime(int64(h.CollectionDate), int64(h.CollectionTime))
}

// AzimuthResolutionSpacing returns the spacing in degrees
func (h GenericRadarDataHeader) AzimuthResolutionSpacing() float32 {
	if h.AzimuthResolutionSpacingCode == 1 {
		return 0.5
	}
	return 1
}

// DecodeGenericRadarDataHeader reads the fixed 68 byte header at the cursor.
func DecodeGenericRadarDataHeader(c *Cursor) (GenericRadarDataHeader, error) {
	if c.Remaining() < GenericRadarDataHeaderLength {
		err := newError(ErrTruncated, int64(c.Pos()), "generic radar data header needs %d bytes, %d left",
			GenericRadarDataHeaderLength, c.Remaining())
		c.Fail(err)
		return GenericRadarDataHeader{}, err
	}

	h := GenericRadarDataHeader{
		RadarIdentifier: c.Text(4, "radar identifier"),
		CollectionTime:  c.Uint32("collection time"),
		CollectionDate:  c.Uint16("collection date"),
		AzimuthNumber:   c.Uint16("azimuth number"),
		AzimuthAngle:    c.Float32("azimuth angle"),
	}
	h.CompressionIndicator = c.Uint8("compression indicator")
	c.Skip(1, "spare")
	h.RadialLength = c.Uint16("radial length")
	h.AzimuthResolutionSpacingCode = c.Uint8("azimuth resolution spacing")
	h.RadialStatus = c.Uint8("radial status")
	h.ElevationNumber = c.Uint8("elevation number")
	h.CutSectorNumber = c.Uint8("cut sector number")
	h.ElevationAngle = c.Float32("elevation angle")
	h.RadialSpotBlankingStatus = c.Uint8("radial spot blanking status")
	h.AzimuthIndexingMode = c.Uint8("azimuth indexing mode")
	h.DataBlockCount = c.Uint16("data block count")
	for i := range h.DataBlockPointers {
		h.DataBlockPointers[i] = c.Uint32("data block pointer")
	}
	if err := c.Err(); err != nil {
		return GenericRadarDataHeader{}, err
	}
	return h, nil
}

// Message31 - Digital Radar Data Generic Format (User 3.2.4.17)
type Message31 struct {
	Header        GenericRadarDataHeader
	VolumeData    *VolumeData
	ElevationData *ElevationData
	RadialData    *RadialData
	REFData       *DataMoment
	VELData       *DataMoment
	SWData        *DataMoment
	ZDRData       *DataMoment
	PHIData       *DataMoment
	RHOData       *DataMoment
	CFPData       *DataMoment
}

func (m31 *Message31) String() string {
	return m31.Header.String()
}

// Moment returns the data moment by its block name ("REF", "VEL", "SW ", ...), nil when
// the radial doesn't carry it.
func (m31 *Message31) Moment(name string) *DataMoment {
	switch name {
	case "REF":
		return m31.REFData
	case "VEL":
		return m31.VELData
	case "SW ", "SW":
		return m31.SWData
	case "ZDR":
		return m31.ZDRData
	case "PHI":
		return m31.PHIData
	case "RHO":
		return m31.RHOData
	case "CFP":
		return m31.CFPData
	}
	return nil
}

// DecodeMessage31 reads the generic header and then follows its data block pointers. The
// cursor must sit at the start of the message 31 payload since pointers are relative to it.
// Builds that carry more blocks than the header has room for keep the extra pointers right
// after it.
func DecodeMessage31(c *Cursor) (*Message31, error) {
	base := c.Pos()
	header, err := DecodeGenericRadarDataHeader(c)
	if err != nil {
		return nil, err
	}
	m31 := &Message31{Header: header}

	pointers := header.DataBlockPointers[:]
	if extra := int(header.DataBlockCount) - genericDataBlockPointers; extra > 0 {
		for i := 0; i < extra; i++ {
			pointers = append(pointers, c.Uint32("data block pointer"))
		}
		if err := c.Err(); err != nil {
			return nil, err
		}
	}

	for _, ptr := range pointers {
		if ptr == 0 {
			continue
		}
		c.Seek(base+int(ptr), "data block pointer")
		if err := m31.decodeBlock(c); err != nil {
			return nil, err
		}
	}
	return m31, nil
}

func (m31 *Message31) decodeBlock(c *Cursor) error {
	start := c.Pos()
	// DataBlock is sort of like the header for the blocks of data. These 4 bytes are
	// normally found at the top of tables XVII-[BEFH] (User 3.2.4.17)
	c.Skip(1, "data block type")
	name := string(c.Bytes(3, "data block name"))
	if err := c.Err(); err != nil {
		return err
	}

	switch name {
	case "VOL":
		m31.VolumeData = decodeVolumeData(c)
	case "ELV":
		m31.ElevationData = decodeElevationData(c)
	case "RAD":
		m31.RadialData = decodeRadialData(c)
	case "REF", "VEL", "SW ", "ZDR", "PHI", "RHO", "CFP":
		moment := decodeDataMoment(c)
		switch name {
		case "REF":
			m31.REFData = moment
		case "VEL":
			m31.VELData = moment
		case "SW ":
			m31.SWData = moment
		case "ZDR":
			m31.ZDRData = moment
		case "PHI":
			m31.PHIData = moment
		case "RHO":
			m31.RHOData = moment
		case "CFP":
			m31.CFPData = moment
		}
	default:
		c.Fail(newError(ErrMalformedHeader, int64(start), "data block - unknown type %q", name))
	}
	return c.Err()
}

// GenericDataMoment is a generic data wrapper for momentary data. ex: REF, VEL, SW data (User 3.2.4.17.2)
type GenericDataMoment struct {
	// data block type and data moment name are retrieved separately
	NumberDataMomentGates         uint16  // Number of data moment gates for current radial
	DataMomentRange               uint16  // Range to center of first range gate
	DataMomentRangeSampleInterval uint16  // Size of data moment sample interval
	TOVER                         uint16  // Threshold parameter which specifies the minimum difference in echo power between two resolution gates for them not to be labeled "overlayed"
	SNRThreshold                  int16   // SNR threshold for valid data
	ControlFlags                  uint8   // Indicates special control features
	DataWordSize                  uint8   // Number of bits (DWS) used for storing data for each Data Moment gate
	Scale                         float32 // Scale value used to convert Data Moments from integer to floating point data
	Offset                        float32 // Offset value used to convert Data Moments from integer to floating point data
}

// VolumeData wraps information about the Volume being extracted (User 3.2.4.17.3)
type VolumeData struct {
	LRTUP                          uint16 // Size of data block in bytes
	VersionMajor                   uint8
	VersionMinor                   uint8
	Lat                            float32
	Long                           float32
	SiteHeight                     int16
	FeedhornHeight                 uint16
	CalibrationConstant            float32
	SHVTXPowerHor                  float32
	SHVTXPowerVer                  float32
	SystemDifferentialReflectivity float32
	InitialSystemDifferentialPhase float32
	VolumeCoveragePatternNumber    uint16
	ProcessingStatus               uint16
}

func decodeVolumeData(c *Cursor) *VolumeData {
	return &VolumeData{
		LRTUP:                          c.Uint16("LRTUP"),
		VersionMajor:                   c.Uint8("version major"),
		VersionMinor:                   c.Uint8("version minor"),
		Lat:                            c.Float32("latitude"),
		Long:                           c.Float32("longitude"),
		SiteHeight:                     c.Int16("site height"),
		FeedhornHeight:                 c.Uint16("feedhorn height"),
		CalibrationConstant:            c.Float32("calibration constant"),
		SHVTXPowerHor:                  c.Float32("horizontal tx power"),
		SHVTXPowerVer:                  c.Float32("vertical tx power"),
		SystemDifferentialReflectivity: c.Float32("system differential reflectivity"),
		InitialSystemDifferentialPhase: c.Float32("initial system differential phase"),
		VolumeCoveragePatternNumber:    c.Uint16("volume coverage pattern"),
		ProcessingStatus:               c.Uint16("processing status"),
	}
}

// ElevationData wraps Message 31 elevation data (User 3.2.4.17.4)
type ElevationData struct {
	LRTUP      uint16  // Size of data block in bytes
	ATMOS      int16   // Atmospheric Attenuation Factor
	CalibConst float32 // Scaling constant used by the Signal Processor for this elevation to calculate reflectivity
}

func decodeElevationData(c *Cursor) *ElevationData {
	return &ElevationData{
		LRTUP:      c.Uint16("LRTUP"),
		ATMOS:      c.Int16("atmospheric attenuation"),
		CalibConst: c.Float32("calibration constant"),
	}
}

// RadialData wraps Message 31 radial data (User 3.2.4.17.5)
type RadialData struct {
	LRTUP              uint16 // Size of data block in bytes
	UnambiguousRange   uint16 // Unambiguous range, interval size
	NoiseLevelHorz     float32
	NoiseLevelVert     float32
	NyquistVelocity    uint16
	CalibConstHorzChan float32
	CalibConstVertChan float32
}

func decodeRadialData(c *Cursor) *RadialData {
	rd := &RadialData{
		LRTUP:            c.Uint16("LRTUP"),
		UnambiguousRange: c.Uint16("unambiguous range"),
		NoiseLevelHorz:   c.Float32("horizontal noise level"),
		NoiseLevelVert:   c.Float32("vertical noise level"),
		NyquistVelocity:  c.Uint16("nyquist velocity"),
	}
	c.Skip(2, "spares")
	rd.CalibConstHorzChan = c.Float32("horizontal calibration constant")
	rd.CalibConstVertChan = c.Float32("vertical calibration constant")
	return rd
}

// DataMoment wraps all Momentary data records. ex: REF, VEL, SW data. Data interpretation provided by User 3.2.4.17.6.
type DataMoment struct {
	GenericDataMoment
	Data []uint16 // one raw value per gate
}

func decodeDataMoment(c *Cursor) *DataMoment {
	m := GenericDataMoment{}
	c.Skip(4, "reserved")
	m.NumberDataMomentGates = c.Uint16("number of gates")
	m.DataMomentRange = c.Uint16("data moment range")
	m.DataMomentRangeSampleInterval = c.Uint16("range sample interval")
	m.TOVER = c.Uint16("TOVER")
	m.SNRThreshold = c.Int16("SNR threshold")
	m.ControlFlags = c.Uint8("control flags")
	m.DataWordSize = c.Uint8("data word size")
	m.Scale = c.Float32("scale")
	m.Offset = c.Float32("offset")
	if c.Err() != nil {
		return nil
	}

	data := make([]uint16, m.NumberDataMomentGates)
	switch m.DataWordSize {
	case 8:
		raw := c.Bytes(len(data), "gate data")
		for i := range raw {
			data[i] = uint16(raw[i])
		}
	case 16:
		for i := range data {
			data[i] = c.Uint16("gate data")
		}
	default:
		c.Fail(newError(ErrMalformedHeader, int64(c.Pos()), "data word size %d", m.DataWordSize))
	}
	return &DataMoment{GenericDataMoment: m, Data: data}
}

const (
	// MomentDataBelowThreshold stands in for a raw value of 0, signal below threshold.
	MomentDataBelowThreshold = 999

	// MomentDataFolded stands in for a raw value of 1, range folded.
	MomentDataFolded = 998
)

// ScaledData automatically scales the nexrad moment values to their actual values.
// For all data moment integer values N = 0 indicates received signal is below
// threshold and N = 1 indicates range folded data. Actual data range is N = 2
// through 255, or 1023 for data resolution size 8, and 10 bits respectively.
func (d *DataMoment) ScaledData() []float32 {
	scaledData := make([]float32, len(d.Data))
	for idx, val := range d.Data {
		if val == 0 {
			// below threshold
			scaledData[idx] = MomentDataBelowThreshold
		} else if val == 1 {
			// range folded
			scaledData[idx] = MomentDataFolded
		} else {
			scaledData[idx] = scaleUint(val, d.GenericDataMoment.Offset, d.GenericDataMoment.Scale)
		}
	}
	return scaledData
}

// scaleUint converts unsigned integer data that can be converted to floating point
// data using the Scale and Offset fields, i.e., F = (N - OFFSET) / SCALE where
// N is the integer data value and F is the resulting floating point value. A
// scale value of 0 indicates floating point moment data for each range gate.
func scaleUint(n uint16, offset, scale float32) float32 {
	val := float32(n)
	if scale == 0 {
		return val
	}
	return (val - offset) / scale
}
