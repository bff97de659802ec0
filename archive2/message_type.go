package archive2

import "fmt"

// MessageType identifies the layout of a message payload (User Table II). Only the values
// declared below exist; ParseMessageType is the only way to get one from the stream.
type MessageType uint8

const (
	DigitalRadarData              MessageType = 1
	RDAStatusData                 MessageType = 2
	PerformanceMaintenanceData    MessageType = 3
	RDAConsoleMessage             MessageType = 4
	RDAVolumeCoveragePattern      MessageType = 5
	RDAControlCommand             MessageType = 6
	RPGVolumeCoveragePattern      MessageType = 7
	ClutterCensorZones            MessageType = 8
	RequestForData                MessageType = 9
	RPGConsoleMessage             MessageType = 10
	LoopBackTestRDA               MessageType = 11
	LoopBackTestRPG               MessageType = 12
	ClutterFilterBypassMap        MessageType = 13
	Spare14                       MessageType = 14
	ClutterFilterMapData          MessageType = 15
	ReservedFAA16                 MessageType = 16
	ReservedFAA17                 MessageType = 17
	RDAAdaptationData             MessageType = 18
	Reserved20                    MessageType = 20
	Reserved21                    MessageType = 21
	Reserved22                    MessageType = 22
	Reserved23                    MessageType = 23
	ReservedFAA24                 MessageType = 24
	ReservedFAA25                 MessageType = 25
	ReservedFAA26                 MessageType = 26
	DigitalRadarDataGenericFormat MessageType = 31
)

var messageTypeNames = map[MessageType]string{
	DigitalRadarData:              "Digital Radar Data",
	RDAStatusData:                 "RDA Status Data",
	PerformanceMaintenanceData:    "Performance/Maintenance Data",
	RDAConsoleMessage:             "Console Message (RDA)",
	RDAVolumeCoveragePattern:      "Volume Coverage Pattern (RDA)",
	RDAControlCommand:             "RDA Control Commands",
	RPGVolumeCoveragePattern:      "Volume Coverage Pattern (RPG)",
	ClutterCensorZones:            "Clutter Censor Zones",
	RequestForData:                "Request for Data",
	RPGConsoleMessage:             "Console Message (RPG)",
	LoopBackTestRDA:               "Loop Back Test (RDA)",
	LoopBackTestRPG:               "Loop Back Test (RPG)",
	ClutterFilterBypassMap:        "Clutter Filter Bypass Map",
	Spare14:                       "Spare",
	ClutterFilterMapData:          "Clutter Filter Map",
	ReservedFAA16:                 "Reserved (FAA/RMS 16)",
	ReservedFAA17:                 "Reserved (FAA/RMS 17)",
	RDAAdaptationData:             "RDA Adaptation Data",
	Reserved20:                    "Reserved (20)",
	Reserved21:                    "Reserved (21)",
	Reserved22:                    "Reserved (22)",
	Reserved23:                    "Reserved (23)",
	ReservedFAA24:                 "Reserved (FAA/RMS 24)",
	ReservedFAA25:                 "Reserved (FAA/RMS 25)",
	ReservedFAA26:                 "Reserved (FAA/RMS 26)",
	DigitalRadarDataGenericFormat: "Digital Radar Data Generic Format",
}

// ParseMessageType maps the raw header byte onto a MessageType. Codes outside the table
// fail with ErrUnknownMessageType: their payload layout is unknown.
func ParseMessageType(code uint8) (MessageType, error) {
	mt := MessageType(code)
	if _, ok := messageTypeNames[mt]; !ok {
		return 0, &DecodeError{
			Err:     ErrUnknownMessageType,
			Segment: -1,
			Code:    code,
			Detail:  fmt.Sprintf("code %d", code),
		}
	}
	return mt, nil
}

func (mt MessageType) String() string {
	if name, ok := messageTypeNames[mt]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", uint8(mt))
}
