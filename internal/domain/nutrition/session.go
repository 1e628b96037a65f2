package nutrition

import (
	"context"
	"sync"
	"time"
)

// State is the position of a form session in the submission workflow.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateInvalid    State = "invalid"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

// Session owns one form: its field values, the last validation errors and
// the last result or failure. At most one submission is in flight; a reply
// that arrives after Reset or Close is dropped.
type Session struct {
	id     string
	schema Schema

	mu         sync.Mutex
	input      FormInput
	errors     ValidationResult
	state      State
	result     *Evaluation
	failure    string
	generation uint64
	cancel     context.CancelFunc
	closed     bool
	updatedAt  time.Time
}

// NewSession creates an idle session with an empty form.
func NewSession(id string, schema Schema) *Session {
	return &Session{
		id:        id,
		schema:    schema,
		errors:    ValidationResult{},
		state:     StateIdle,
		updatedAt: time.Now().UTC(),
	}
}

func (s *Session) ID() string { return s.id }

// SessionView is a point-in-time copy of a session for rendering.
type SessionView struct {
	ID        string           `json:"id"`
	Schema    Schema           `json:"schema"`
	State     State            `json:"state"`
	Input     FormInput        `json:"input"`
	Errors    ValidationResult `json:"errors,omitempty"`
	Result    *Evaluation      `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CanSubmit bool             `json:"can_submit"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Snapshot copies the session state.
func (s *Session) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := make(ValidationResult, len(s.errors))
	for k, v := range s.errors {
		errs[k] = v
	}
	return SessionView{
		ID:        s.id,
		Schema:    s.schema,
		State:     s.state,
		Input:     s.input,
		Errors:    errs,
		Result:    s.result,
		Error:     s.failure,
		CanSubmit: !s.closed && s.state != StateSubmitting,
		UpdatedAt: s.updatedAt,
	}
}

// Edit stores a field value and clears that field's error. Editing an
// invalid form returns it to idle; other fields keep their errors until the
// next submit.
func (s *Session) Edit(field, value string) error {
	if _, ok := s.schema.Rule(field); !ok {
		return ErrUnknownField
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.input.Set(field, value)
	delete(s.errors, field)
	if s.state == StateInvalid {
		s.state = StateIdle
	}
	s.touch()
	return nil
}

// Reset clears the result, failure and errors and returns to idle. Field
// values are kept so a retry is a single submit. A request still in flight
// is cancelled and its reply discarded.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.abandonLocked()
	s.state = StateIdle
	s.errors = ValidationResult{}
	s.result = nil
	s.failure = ""
	s.touch()
	return nil
}

// Close tears the session down. An in-flight request is cancelled and its
// reply will not be applied. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.abandonLocked()
	return nil
}

func (s *Session) abandonLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
}

func (s *Session) touch() { s.updatedAt = time.Now().UTC() }

// submission is one accepted submit attempt.
type submission struct {
	generation  uint64
	measurement PatientMeasurement
	ctx         context.Context
	cancel      context.CancelFunc
}

// begin validates the current form and, when it is clean, moves to
// submitting. It returns ErrInvalidInput with the errors when the form is
// rejected and ErrSubmissionInFlight when a request is already outstanding.
func (s *Session) begin(ctx context.Context) (*submission, ValidationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, ErrSessionClosed
	}
	if s.state == StateSubmitting {
		return nil, nil, ErrSubmissionInFlight
	}

	s.state = StateValidating
	errs := Validate(s.schema, s.input)
	s.errors = errs
	s.result = nil
	s.failure = ""
	s.touch()
	if !errs.OK() {
		s.state = StateInvalid
		return nil, errs, ErrInvalidInput
	}

	subCtx, cancel := context.WithCancel(ctx)
	s.generation++
	s.cancel = cancel
	s.state = StateSubmitting
	return &submission{
		generation:  s.generation,
		measurement: ToMeasurement(s.schema, s.input),
		ctx:         subCtx,
		cancel:      cancel,
	}, errs, nil
}

// finish applies the outcome of a submission. It returns a non-nil error
// only when the outcome was discarded because the session was reset or
// closed in the meantime.
func (s *Session) finish(sub *submission, eval *Evaluation, predictErr error) error {
	sub.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if sub.generation != s.generation {
		return ErrSubmissionDiscarded
	}
	s.cancel = nil
	if predictErr != nil {
		s.state = StateFailed
		s.failure = UserMessage(predictErr)
	} else {
		s.state = StateSuccess
		s.result = eval
	}
	s.touch()
	return nil
}
