package nutrition

import (
	"context"
	"errors"
	"testing"
)

func TestSession_InitialState(t *testing.T) {
	sess := NewSession("s1", SchemaHemoglobin)
	v := sess.Snapshot()
	if v.ID != "s1" || v.State != StateIdle || !v.CanSubmit {
		t.Errorf("unexpected initial view %+v", v)
	}
	if v.Result != nil || v.Error != "" || len(v.Errors) != 0 {
		t.Errorf("expected empty session, got %+v", v)
	}
}

func TestSession_EditUnknownField(t *testing.T) {
	sess := NewSession("s1", SchemaHemoglobin)
	if err := sess.Edit(FieldArmCircumference, "12"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
	if err := sess.Edit("zinc", "1"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	sess := NewSession("s1", SchemaHemoglobin)
	if _, _, err := sess.begin(context.Background()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	v := sess.Snapshot()
	v.Errors[FieldAge] = "tampered"
	if got := sess.Snapshot().Errors[FieldAge]; got == "tampered" {
		t.Error("snapshot errors share memory with the session")
	}
}

func TestSession_BeginTakesLatestValues(t *testing.T) {
	sess := NewSession("s1", SchemaHemoglobin)
	fillValid(t, sess)
	if err := sess.Edit(FieldWeight, "12.5"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	sub, _, err := sess.begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if sub.measurement.WeightKg != 12.5 {
		t.Errorf("expected latest weight, got %v", sub.measurement.WeightKg)
	}
	if err := sess.finish(sub, &Evaluation{}, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}
}

func TestSession_ResetCancelsInFlightContext(t *testing.T) {
	sess := NewSession("s1", SchemaHemoglobin)
	fillValid(t, sess)
	sub, _, err := sess.begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := sess.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	select {
	case <-sub.ctx.Done():
	default:
		t.Error("expected submission context to be cancelled")
	}
	if err := sess.finish(sub, &Evaluation{}, nil); !errors.Is(err, ErrSubmissionDiscarded) {
		t.Errorf("expected discard, got %v", err)
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	sess := NewSession("s1", SchemaHemoglobin)
	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := sess.Reset(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if _, _, err := sess.begin(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}
