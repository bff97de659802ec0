package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/jddeal/nexrad-l2/archive2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// metrics holds the Prometheus metrics served on /metrics
type metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	decodesTotal       *prometheus.CounterVec
	decodeDuration     *prometheus.HistogramVec
	decodedMessages    *prometheus.CounterVec
	decodedSegments    prometheus.Counter
	decodeErrorsByKind *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "l2serv_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "l2serv_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		decodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "l2serv_decodes_total",
				Help: "Archive decodes by source and result",
			},
			[]string{"source", "status"},
		),

		decodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "l2serv_decode_duration_seconds",
				Help:    "Time spent decoding a volume",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"source"},
		),

		decodedMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "l2serv_decoded_messages_total",
				Help: "Decoded messages by message type",
			},
			[]string{"message_type"},
		),

		decodedSegments: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "l2serv_decoded_ldm_records_total",
				Help: "LDM compressed records decoded",
			},
		),

		decodeErrorsByKind: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "l2serv_decode_errors_total",
				Help: "Decode failures by error kind",
			},
			[]string{"kind"},
		),
	}
}

func (m *metrics) observeRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *metrics) observeDecode(source string, ar2 *archive2.Archive, err error, elapsed time.Duration) {
	m.decodeDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if err != nil {
		m.decodesTotal.WithLabelValues(source, statusError).Inc()
		m.decodeErrorsByKind.WithLabelValues(errorKind(err)).Inc()
		return
	}
	m.decodesTotal.WithLabelValues(source, statusSuccess).Inc()
	m.decodedSegments.Add(float64(ar2.Segments))
	for mt, count := range ar2.MessageCounts {
		m.decodedMessages.WithLabelValues(strconv.Itoa(int(mt))).Add(float64(count))
	}
}

var errorKinds = []struct {
	err  error
	kind string
}{
	{archive2.ErrTruncated, "truncated"},
	{archive2.ErrInvalidControlWord, "invalid_control_word"},
	{archive2.ErrCorruptSegment, "corrupt_segment"},
	{archive2.ErrSegmentSizeMismatch, "segment_size_mismatch"},
	{archive2.ErrUnknownMessageType, "unknown_message_type"},
	{archive2.ErrCountOutOfRange, "count_out_of_range"},
	{archive2.ErrMalformedHeader, "malformed_header"},
	{archive2.ErrUnexpectedTrailingBytes, "unexpected_trailing_bytes"},
}

func errorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "other"
}
