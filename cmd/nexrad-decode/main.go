package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"sort"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/jddeal/nexrad-l2/archive2"
	"github.com/jddeal/nexrad-l2/config"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

var cli struct {
	Args struct {
		Filename string
	} `positional-args:"yes" required:"yes"`
	LogLevel         string `short:"l" long:"log-level" description:"logging level, overrides the config file" choice:"error" choice:"warn" choice:"info" choice:"debug" choice:"trace"`
	Config           string `short:"c" long:"config" description:"YAML or TOML config file"`
	Strict           bool   `long:"strict" description:"fail when a segment's compressed length disagrees with its control word"`
	Workers          int    `short:"w" long:"workers" description:"decode LDM records on this many goroutines"`
	Framing          string `long:"framing" description:"how records are cut out of a segment" choice:"fixed" choice:"sized"`
	ShowVolumeHeader bool   `long:"show-volume-header" description:"dumps out the contents of the Volume Header"`
	Progress         bool   `long:"progress" description:"show a progress bar while reading the file"`
	CPUProfile       string `long:"cpu-profile" description:"write a CPU profile here, inspect with go tool pprof"`
}

func main() {

	// parse the input args
	_, err := flags.Parse(&cli)
	if err != nil {
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		logrus.Error(err)
		os.Exit(1)
	}

	level, err := cfg.LogLevel()
	if err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
	logrus.SetLevel(level)

	if cli.CPUProfile != "" {
		f, err := os.Create(cli.CPUProfile)
		if err != nil {
			logrus.Error(err)
			os.Exit(1)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// decode it
	logrus.Info(color.CyanString("decoding %s", cli.Args.Filename))
	ar2, err := decode(ctx, cli.Args.Filename, cfg.Decoder)
	if err != nil {
		reportError(err)
		pprof.StopCPUProfile()
		os.Exit(1)
	}

	printSummary(os.Stdout, ar2)
}

// loadConfig layers the flags over the config file over the defaults.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if cli.Config != "" {
		var err error
		if cfg, err = config.LoadConfig(cli.Config); err != nil {
			return nil, err
		}
	}

	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.Strict {
		cfg.Decoder.Strict = true
	}
	if cli.Workers > 0 {
		cfg.Decoder.Workers = cli.Workers
	}
	if cli.Framing != "" {
		cfg.Decoder.Framing = archive2.Framing(cli.Framing)
	}
	return cfg, cfg.Validate()
}

func decode(ctx context.Context, filename string, cfg archive2.Config) (*archive2.Archive, error) {
	if !cli.Progress {
		return archive2.DecodeFile(ctx, filename, cfg)
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	bar := pb.Full.Start64(info.Size())
	bar.Set(pb.Bytes, true)
	defer bar.Finish()
	return archive2.DecodeAll(ctx, bar.NewProxyReader(file), info.Size(), cfg)
}

func reportError(err error) {
	var de *archive2.DecodeError
	if !errors.As(err, &de) {
		logrus.Error(err)
		return
	}
	fields := logrus.Fields{"offset": de.Offset}
	if de.Segment >= 0 {
		fields["segment"] = de.Segment
	}
	if de.MessageType != 0 {
		fields["message_type"] = de.MessageType.String()
	}
	if errors.Is(err, archive2.ErrUnknownMessageType) {
		fields["code"] = de.Code
	}
	logrus.WithFields(fields).Error(color.RedString(err.Error()))
}

func printSummary(w io.Writer, ar2 *archive2.Archive) {
	vh := ar2.VolumeHeader
	if cli.ShowVolumeHeader {
		fmt.Fprintf(w, "%s %s\n", color.CyanString("Name:"), vh.Name)
		fmt.Fprintf(w, "%s %d\n", color.CyanString("Date:"), vh.Date)
		fmt.Fprintf(w, "%s %d\n", color.CyanString("Time:"), vh.Time)
		fmt.Fprintf(w, "%s %s\n", color.CyanString("ICAO:"), vh.ICAO)
	}

	fmt.Fprintf(w, "%s %s valid %s, %d LDM records, %d messages\n",
		color.GreenString(vh.ICAO), vh.Filename(), vh.Valid().Format("2006-01-02 15:04:05Z"),
		ar2.Segments, len(ar2.Messages))
	if ar2.Status != nil {
		fmt.Fprintf(w, "  RDA build %.2f, VCP %d\n", ar2.Status.BuildNumber(), ar2.Status.VolumeCoveragePatternNum)
	}

	types := make([]int, 0, len(ar2.MessageCounts))
	for mt := range ar2.MessageCounts {
		types = append(types, int(mt))
	}
	sort.Ints(types)
	for _, mt := range types {
		msgType := archive2.MessageType(mt)
		fmt.Fprintf(w, "  type %02d %-40s %s\n", mt, msgType, color.CyanString("%d", ar2.MessageCounts[msgType]))
	}

	for _, elv := range ar2.Elevations() {
		radials := ar2.ElevationScans[elv]
		fmt.Fprintf(w, "  elevation %2d: %.2f deg, %d radials\n", elv, radials[0].Header.ElevationAngle, len(radials))
	}
	for _, m := range ar2.ClutterFilterMaps {
		fmt.Fprintf(w, "  %s\n", m)
	}
}
