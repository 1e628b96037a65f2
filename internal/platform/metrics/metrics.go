// Package metrics sends counters and timings to a DogStatsD agent. With no
// agent address configured every call is a no-op.
package metrics

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog"
)

// Metric names.
const (
	PredictionCount      = "prediction.count"
	PredictionLatency    = "prediction.latency"
	ValidationRejections = "validation.rejected"
	SubmissionConflicts  = "submission.conflict"
	SubmissionDiscarded  = "submission.discarded"
	SessionsCreated      = "session.created"
)

// Recorder is the narrow metrics surface used by the domain packages.
type Recorder interface {
	Incr(name string, tags ...string)
	Timing(name string, d time.Duration, tags ...string)
}

// Config configures the statsd client.
type Config struct {
	Addr        string
	Namespace   string
	Tags        []string
	SampleRate  float64
	Environment string
}

// StatsdRecorder implements Recorder on top of a statsd client.
type StatsdRecorder struct {
	client statsd.ClientInterface
	rate   float64
	logger zerolog.Logger
}

// New builds a recorder. An empty address yields a recorder backed by the
// statsd no-op client.
func New(cfg Config, logger zerolog.Logger) (*StatsdRecorder, error) {
	rate := cfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}
	if cfg.Addr == "" {
		return &StatsdRecorder{client: &statsd.NoOpClient{}, rate: rate, logger: logger}, nil
	}

	tags := append([]string(nil), cfg.Tags...)
	if cfg.Environment != "" {
		tags = append(tags, Tag("env", cfg.Environment))
	}
	opts := []statsd.Option{statsd.WithTags(tags), statsd.WithoutTelemetry()}
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace+"."))
	}
	client, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("create statsd client: %w", err)
	}
	logger.Info().Str("addr", cfg.Addr).Strs("tags", tags).Msg("metrics client initialized")
	return &StatsdRecorder{client: client, rate: rate, logger: logger}, nil
}

func (r *StatsdRecorder) Incr(name string, tags ...string) {
	if err := r.client.Incr(name, tags, r.rate); err != nil {
		r.logger.Warn().Err(err).Str("metric", name).Msg("statsd incr failed")
	}
}

func (r *StatsdRecorder) Timing(name string, d time.Duration, tags ...string) {
	if err := r.client.Timing(name, d, tags, r.rate); err != nil {
		r.logger.Warn().Err(err).Str("metric", name).Msg("statsd timing failed")
	}
}

// Close flushes buffered metrics.
func (r *StatsdRecorder) Close() error {
	return r.client.Close()
}

// Tag formats a statsd tag.
func Tag(key, value string) string {
	return key + ":" + value
}

// Nop discards everything.
type Nop struct{}

func (Nop) Incr(string, ...string)                  {}
func (Nop) Timing(string, time.Duration, ...string) {}
