package metrics

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNew_NoAddrIsNoop(t *testing.T) {
	r, err := New(Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Incr(PredictionCount, Tag("outcome", "success"))
	r.Timing(PredictionLatency, time.Millisecond)
	if err := r.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestStatsdRecorder_SendsToAgent(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp not available: %v", err)
	}
	defer conn.Close()

	r, err := New(Config{
		Addr:        conn.LocalAddr().String(),
		Namespace:   "nutripredict",
		Environment: "test",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Incr(PredictionCount, Tag("risk", "high"))
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	buf := make([]byte, 1024)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(buf[:n])
	for _, want := range []string{"nutripredict.prediction.count:1|c", "risk:high", "env:test"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}

func TestTag(t *testing.T) {
	if got := Tag("outcome", "failure"); got != "outcome:failure" {
		t.Errorf("unexpected tag %q", got)
	}
}

func TestNop_SatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.Incr(SessionsCreated)
	r.Timing(PredictionLatency, time.Second)
}
