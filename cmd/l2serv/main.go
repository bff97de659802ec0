package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/jddeal/nexrad-l2/archive2"
	"github.com/jddeal/nexrad-l2/config"
)

var cli struct {
	Config   string `short:"c" long:"config" description:"YAML or TOML config file"`
	LogLevel string `short:"l" long:"log-level" description:"logging level, overrides the config file" choice:"error" choice:"warn" choice:"info" choice:"debug" choice:"trace"`
}

var errBadArchiveName = errors.New("bad archive file name")

type server struct {
	cfg     *config.Config
	svc     s3iface.S3API
	metrics *metrics
	now     func() time.Time
}

func main() {
	if _, err := flags.Parse(&cli); err != nil {
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if cli.Config != "" {
		var err error
		if cfg, err = config.LoadConfig(cli.Config); err != nil {
			logrus.Fatal(err)
		}
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	level, err := cfg.LogLevel()
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.SetLevel(level)

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.AnonymousCredentials,
		Region:      aws.String(cfg.Server.Region),
	})
	if err != nil {
		logrus.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	s := &server{
		cfg:     cfg,
		svc:     s3.New(sess),
		metrics: newMetrics(reg),
		now:     time.Now,
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      s.router(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	}

	logrus.Infof("listening on %s", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil {
		logrus.Fatal(err)
	}
}

func (s *server) router(metricsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)
	r.HandleFunc("/l2", s.siteListHandler)
	r.HandleFunc("/l2/{site}", s.listFilesHandler)
	r.HandleFunc("/l2/{site}/{fn}", s.metaHandler)
	r.HandleFunc("/l2/{site}/{fn}/clutter", s.clutterHandler)

	r.HandleFunc("/l2-realtime/{site}/{volume}.json", s.realtimeMetaHandler)

	r.Handle("/metrics", metricsHandler)
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument tags every request with an id, logs it and records its metrics.
func (s *server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)

		route := req.URL.Path
		if tmpl, err := mux.CurrentRoute(req).GetPathTemplate(); err == nil {
			route = tmpl
		}

		entry := logrus.WithFields(logrus.Fields{
			"request_id": id,
			"route":      route,
		})
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req.WithContext(withRequestLogger(req.Context(), entry)))

		elapsed := time.Since(start)
		s.metrics.observeRequest(req.Method, route, rec.status, elapsed)
		entry.WithFields(logrus.Fields{
			"method":   req.Method,
			"path":     req.URL.Path,
			"status":   rec.status,
			"duration": elapsed,
		}).Info("request")
	})
}

type loggerKey struct{}

func withRequestLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry)
}

func requestLogger(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("writing response: %v", err)
	}
}

// writeError maps lookup and decode failures onto status codes.
func writeError(w http.ResponseWriter, req *http.Request, err error) {
	status := http.StatusInternalServerError
	var aerr awserr.Error
	var de *archive2.DecodeError
	switch {
	case errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == s3.ErrCodeNoSuchBucket):
		status = http.StatusNotFound
	case errors.Is(err, errNoSuchVolume):
		status = http.StatusNotFound
	case errors.Is(err, errBadArchiveName), errors.Is(err, errBadVolume):
		status = http.StatusBadRequest
	case errors.As(err, &de):
		status = http.StatusUnprocessableEntity
	}
	requestLogger(req.Context()).WithError(err).Warn("request failed")
	http.Error(w, err.Error(), status)
}

func (s *server) siteListHandler(w http.ResponseWriter, req *http.Request) {
	// check yesterday to get a list of all radars
	t := s.now().UTC().AddDate(0, 0, -1)
	resp, err := s.svc.ListObjectsV2WithContext(req.Context(), &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.cfg.Server.Bucket),
		Prefix:    aws.String(t.Format("2006/01/02/")),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		writeError(w, req, err)
		return
	}

	sites := make([]string, 0, len(resp.CommonPrefixes))
	for _, d := range resp.CommonPrefixes {
		sites = append(sites, filepath.Base(*d.Prefix))
	}
	writeJSON(w, sites)
}

func (s *server) listDay(ctx context.Context, day time.Time, site string) ([]string, error) {
	resp, err := s.svc.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Server.Bucket),
		Prefix: aws.String(day.Format("2006/01/02/") + site),
	})
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(resp.Contents))
	for _, d := range resp.Contents {
		files = append(files, filepath.Base(*d.Key))
	}
	return files, nil
}

func (s *server) listFilesHandler(w http.ResponseWriter, req *http.Request) {
	site := mux.Vars(req)["site"]
	recent := s.cfg.Server.RecentFiles

	now := s.now().UTC()
	files, err := s.listDay(req.Context(), now, site)
	if err != nil {
		writeError(w, req, err)
		return
	}

	if len(files) < recent {
		pastFiles, err := s.listDay(req.Context(), now.AddDate(0, 0, -1), site)
		if err != nil {
			writeError(w, req, err)
			return
		}
		files = append(pastFiles, files...)
	}

	if len(files) > recent {
		files = files[len(files)-recent:]
	}
	writeJSON(w, files)
}

// loadArchive fetches an archive file such as KOKX20210902_000428_V06 and decodes it.
func (s *server) loadArchive(ctx context.Context, fn string) (*archive2.Archive, error) {
	if len(fn) < 19 {
		return nil, fmt.Errorf("%w: %q", errBadArchiveName, fn)
	}
	site := fn[:4]
	date, err := time.Parse("20060102_150405", fn[4:19])
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errBadArchiveName, fn)
	}

	obj, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Server.Bucket),
		Key:    aws.String(date.Format("2006/01/02/") + site + "/" + fn),
	})
	if err != nil {
		return nil, err
	}
	defer obj.Body.Close()

	size := int64(-1)
	if obj.ContentLength != nil {
		size = *obj.ContentLength
	}
	return s.decode(ctx, "archive", obj.Body, size)
}

func (s *server) metaHandler(w http.ResponseWriter, req *http.Request) {
	fn := mux.Vars(req)["fn"]

	ar2, err := s.loadArchive(req.Context(), fn)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, summarize(ar2))
}

func (s *server) clutterHandler(w http.ResponseWriter, req *http.Request) {
	fn := mux.Vars(req)["fn"]

	ar2, err := s.loadArchive(req.Context(), fn)
	if err != nil {
		writeError(w, req, err)
		return
	}

	maps := make([]clutterSummary, 0, len(ar2.ClutterFilterMaps))
	for _, m := range ar2.ClutterFilterMaps {
		maps = append(maps, summarizeClutter(m))
	}
	writeJSON(w, maps)
}
