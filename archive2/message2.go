package archive2

import "fmt"

// RDAStatusLength is the part of Message 2 that is decoded, through the alarm codes and spares.
const RDAStatusLength = 27*2 + 20

// RDAStatus RDA Status Data (User 3.2.4.6)
type RDAStatus struct {
	RDAStatus                       uint16
	OperabilityStatus               uint16
	ControlStatus                   uint16
	AuxPowerGeneratorState          uint16
	AvgTxPower                      uint16
	HorizRefCalibCorr               int16
	DataTxEnabled                   uint16
	VolumeCoveragePatternNum        int16
	RDAControlAuth                  uint16
	RDABuild                        uint16
	OperationalMode                 uint16
	SuperResStatus                  uint16
	ClutterMitigationDecisionStatus uint16
	AvsetStatus                     uint16
	RDAAlarmSummary                 uint16
	CommandAck                      uint16
	ChannelControlStatus            uint16
	SpotBlankingStatus              uint16
	BypassMapGenDate                uint16
	BypassMapGenTime                uint16
	ClutterFilterMapGenDate         uint16
	ClutterFilterMapGenTime         uint16
	VertRefCalibCorr                int16
	TransitionPwrSourceStatus       uint16
	RMSControlStatus                uint16
	PerformanceCheckStatus          uint16
	AlarmCodes                      uint16
}

// BuildNumber decodes the RDA build. Builds before 17 stored it times 10, later ones times 100.
func (s *RDAStatus) BuildNumber() float32 {
	build := float32(s.RDABuild)
	if build/100 > 2 {
		return build / 100
	}
	return build / 10
}

func (s *RDAStatus) String() string {
	return fmt.Sprintf("Message 2 - RDA build %.2f vcp=%d", s.BuildNumber(), s.VolumeCoveragePatternNum)
}

// DecodeRDAStatus reads Message 2 at the cursor.
func DecodeRDAStatus(c *Cursor) (*RDAStatus, error) {
	s := &RDAStatus{
		RDAStatus:                       c.Uint16("rda status"),
		OperabilityStatus:               c.Uint16("operability status"),
		ControlStatus:                   c.Uint16("control status"),
		AuxPowerGeneratorState:          c.Uint16("aux power generator state"),
		AvgTxPower:                      c.Uint16("average tx power"),
		HorizRefCalibCorr:               c.Int16("horizontal reflectivity calibration correction"),
		DataTxEnabled:                   c.Uint16("data transmission enabled"),
		VolumeCoveragePatternNum:        c.Int16("volume coverage pattern"),
		RDAControlAuth:                  c.Uint16("rda control authorization"),
		RDABuild:                        c.Uint16("rda build"),
		OperationalMode:                 c.Uint16("operational mode"),
		SuperResStatus:                  c.Uint16("super resolution status"),
		ClutterMitigationDecisionStatus: c.Uint16("clutter mitigation decision status"),
		AvsetStatus:                     c.Uint16("avset status"),
		RDAAlarmSummary:                 c.Uint16("rda alarm summary"),
		CommandAck:                      c.Uint16("command acknowledgment"),
		ChannelControlStatus:            c.Uint16("channel control status"),
		SpotBlankingStatus:              c.Uint16("spot blanking status"),
		BypassMapGenDate:                c.Uint16("bypass map generation date"),
		BypassMapGenTime:                c.Uint16("bypass map generation time"),
		ClutterFilterMapGenDate:         c.Uint16("clutter filter map generation date"),
		ClutterFilterMapGenTime:         c.Uint16("clutter filter map generation time"),
		VertRefCalibCorr:                c.Int16("vertical reflectivity calibration correction"),
		TransitionPwrSourceStatus:       c.Uint16("transition power source status"),
		RMSControlStatus:                c.Uint16("rms control status"),
		PerformanceCheckStatus:          c.Uint16("performance check status"),
		AlarmCodes:                      c.Uint16("alarm codes"),
	}
	c.Skip(20, "spares")
	if err := c.Err(); err != nil {
		return nil, err
	}
	return s, nil
}
