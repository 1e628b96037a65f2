package nutrition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nutripredict/nutripredict/internal/platform/metrics"
	"github.com/nutripredict/nutripredict/internal/platform/middleware"
)

// Predictor performs a classification. *Client implements it.
type Predictor interface {
	Predict(ctx context.Context, m PatientMeasurement) (*PredictionResult, error)
}

// Backend is the full prediction service surface used by the dashboard.
type Backend interface {
	Predictor
	Stats(ctx context.Context) (*ModelStats, error)
	Health(ctx context.Context) (*HealthStatus, error)
}

// SessionStore keeps live sessions. Values leaving the store are closed.
type SessionStore interface {
	Set(key string, value io.Closer) error
	Get(key string) (io.Closer, bool)
	Delete(key string)
}

type Service struct {
	schema   Schema
	backend  Backend
	sessions SessionStore
	metrics  metrics.Recorder
	logger   zerolog.Logger
}

// NewService wires the workflow. sessions may be nil for stateless use
// (the CLI); rec may be nil to disable metrics.
func NewService(schema Schema, backend Backend, sessions SessionStore, rec metrics.Recorder, logger zerolog.Logger) (*Service, error) {
	if !schema.Valid() {
		return nil, fmt.Errorf("unknown measurement schema %q", schema)
	}
	if backend == nil {
		return nil, errors.New("prediction backend is required")
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		schema:   schema,
		backend:  backend,
		sessions: sessions,
		metrics:  rec,
		logger:   logger,
	}, nil
}

func (s *Service) Schema() Schema { return s.schema }

// NewSession creates and stores an idle form session.
func (s *Service) NewSession() (*Session, error) {
	if s.sessions == nil {
		return nil, errors.New("sessions are not enabled")
	}
	sess := NewSession(uuid.NewString(), s.schema)
	if err := s.sessions.Set(sess.ID(), sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	s.metrics.Incr(metrics.SessionsCreated)
	return sess, nil
}

// Session looks up a live session.
func (s *Service) Session(id string) (*Session, error) {
	if s.sessions == nil {
		return nil, ErrSessionNotFound
	}
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess, ok := v.(*Session)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// CloseSession tears a session down and forgets it.
func (s *Service) CloseSession(id string) error {
	if _, err := s.Session(id); err != nil {
		return err
	}
	s.sessions.Delete(id)
	return nil
}

// Submit runs one submission of sess: validation, then at most one
// prediction request. The returned error is ErrInvalidInput,
// ErrSubmissionInFlight, a discard error, or the prediction failure; in
// every case the view reflects the session afterwards.
func (s *Service) Submit(ctx context.Context, sess *Session) (SessionView, error) {
	sub, errs, err := sess.begin(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			s.metrics.Incr(metrics.ValidationRejections, metrics.Tag("schema", string(s.schema)))
			s.logger.Debug().
				Str("request_id", middleware.RequestIDFromContext(ctx)).
				Str("session_id", sess.ID()).
				Strs("fields", errs.Fields()).
				Msg("submission rejected by validation")
		case errors.Is(err, ErrSubmissionInFlight):
			s.metrics.Incr(metrics.SubmissionConflicts)
		}
		return sess.Snapshot(), err
	}

	eval, predictErr := s.predict(sub.ctx, sub.measurement)
	if discardErr := sess.finish(sub, eval, predictErr); discardErr != nil {
		s.metrics.Incr(metrics.SubmissionDiscarded)
		s.logger.Info().
			Str("session_id", sess.ID()).
			Err(discardErr).
			Msg("prediction reply discarded")
		return sess.Snapshot(), discardErr
	}
	return sess.Snapshot(), predictErr
}

// Evaluate is the stateless path: validate, map, predict. On rejection it
// returns the validation result and ErrInvalidInput without calling the
// service.
func (s *Service) Evaluate(ctx context.Context, in FormInput) (*Evaluation, ValidationResult, error) {
	errs := Validate(s.schema, in)
	if !errs.OK() {
		s.metrics.Incr(metrics.ValidationRejections, metrics.Tag("schema", string(s.schema)))
		return nil, errs, ErrInvalidInput
	}
	eval, err := s.predict(ctx, ToMeasurement(s.schema, in))
	return eval, errs, err
}

func (s *Service) predict(ctx context.Context, m PatientMeasurement) (*Evaluation, error) {
	start := time.Now()
	res, err := s.backend.Predict(ctx, m)
	latency := time.Since(start)
	rid := middleware.RequestIDFromContext(ctx)

	if err != nil {
		kind := errorKind(err)
		s.metrics.Incr(metrics.PredictionCount, metrics.Tag("outcome", "failure"), metrics.Tag("kind", kind))
		s.metrics.Timing(metrics.PredictionLatency, latency, metrics.Tag("outcome", "failure"))
		s.logger.Warn().
			Err(err).
			Str("request_id", rid).
			Str("kind", kind).
			Dur("latency", latency).
			Msg("prediction failed")
		return nil, err
	}

	risk := DescribeRisk(res.RiskLevel)
	s.metrics.Incr(metrics.PredictionCount, metrics.Tag("outcome", "success"), metrics.Tag("risk", risk.Key))
	s.metrics.Timing(metrics.PredictionLatency, latency, metrics.Tag("outcome", "success"))
	evt := s.logger.Info()
	if !risk.Known() {
		evt = s.logger.Warn()
	}
	evt.
		Str("request_id", rid).
		Int("risk_level", res.RiskLevel).
		Str("risk", risk.Key).
		Float64("probability", res.Probability).
		Dur("latency", latency).
		Msg("prediction completed")

	return &Evaluation{
		Measurement: m,
		Prediction:  *res,
		Risk:        risk,
		Insights:    BuildInsights(m, *res),
	}, nil
}

// ModelStats passes through the service's model metadata.
func (s *Service) ModelStats(ctx context.Context) (*ModelStats, error) {
	return s.backend.Stats(ctx)
}

// ServiceHealth passes through the service's health status.
func (s *Service) ServiceHealth(ctx context.Context) (*HealthStatus, error) {
	return s.backend.Health(ctx)
}
