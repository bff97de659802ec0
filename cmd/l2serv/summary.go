package main

import (
	"context"
	"io"
	"time"

	"github.com/jddeal/nexrad-l2/archive2"
)

// decode runs the decoder over r and records how it went.
func (s *server) decode(ctx context.Context, source string, r io.Reader, size int64) (*archive2.Archive, error) {
	start := time.Now()
	ar2, err := archive2.DecodeAll(ctx, r, size, s.cfg.Decoder)
	s.metrics.observeDecode(source, ar2, err, time.Since(start))
	return ar2, err
}

type volumeSummary struct {
	ICAO       string                             `json:"icao"`
	Volume     string                             `json:"volume"`
	Valid      time.Time                          `json:"valid"`
	LDMRecords int                                `json:"ldm_records"`
	Messages   map[string]int                     `json:"messages"`
	RDABuild   float32                            `json:"rda_build,omitempty"`
	VCP        int16                              `json:"vcp,omitempty"`
	Elevations []*archive2.GenericRadarDataHeader `json:"elevations"`
}

func summarize(ar2 *archive2.Archive) volumeSummary {
	summary := volumeSummary{
		ICAO:       ar2.VolumeHeader.ICAO,
		Volume:     ar2.VolumeHeader.Filename(),
		Valid:      ar2.VolumeHeader.Valid(),
		LDMRecords: ar2.Segments,
		Messages:   make(map[string]int, len(ar2.MessageCounts)),
		Elevations: make([]*archive2.GenericRadarDataHeader, 0, len(ar2.ElevationScans)),
	}
	for mt, count := range ar2.MessageCounts {
		summary.Messages[mt.String()] = count
	}
	if ar2.Status != nil {
		summary.RDABuild = ar2.Status.BuildNumber()
		summary.VCP = ar2.Status.VolumeCoveragePatternNum
	}
	// first radial of every elevation
	for _, elv := range ar2.Elevations() {
		summary.Elevations = append(summary.Elevations, &ar2.ElevationScans[elv][0].Header)
	}
	return summary
}

type clutterElevation struct {
	AzimuthSegments int `json:"azimuth_segments"`
	RangeZones      int `json:"range_zones"`
}

type clutterSummary struct {
	Generated  time.Time          `json:"generated"`
	RangeZones int                `json:"range_zones"`
	Elevations []clutterElevation `json:"elevations"`
}

func summarizeClutter(m *archive2.ClutterFilterMap) clutterSummary {
	summary := clutterSummary{
		Generated:  m.Generated(),
		RangeZones: m.RangeZoneCount(),
		Elevations: make([]clutterElevation, len(m.ElevationSegments)),
	}
	for i, elv := range m.ElevationSegments {
		summary.Elevations[i].AzimuthSegments = len(elv.AzimuthSegments)
		for _, az := range elv.AzimuthSegments {
			summary.Elevations[i].RangeZones += len(az.RangeZones)
		}
	}
	return summary
}
