package telemetry

import (
	"testing"

	"github.com/posthog/posthog-go"
)

type recordingEnqueuer struct {
	messages []posthog.Message
	closed   bool
}

func (r *recordingEnqueuer) Enqueue(msg posthog.Message) error {
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingEnqueuer) Close() error {
	r.closed = true
	return nil
}

func TestTrack_AttachesStandardProperties(t *testing.T) {
	rec := &recordingEnqueuer{}
	c := newClientWithEnqueuer(rec, "1.2.3")

	c.Track(EventTasksGenerated, Properties{"task_count": 5})

	if len(rec.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(rec.messages))
	}
	capture, ok := rec.messages[0].(posthog.Capture)
	if !ok {
		t.Fatalf("message type = %T, want posthog.Capture", rec.messages[0])
	}
	if capture.Event != EventTasksGenerated {
		t.Errorf("event = %q, want %q", capture.Event, EventTasksGenerated)
	}
	if capture.Properties["task_count"] != 5 {
		t.Error("custom property lost")
	}
	if capture.Properties["engine_version"] != "1.2.3" {
		t.Error("engine_version missing")
	}
	if capture.Properties["$process_person_profile"] != false {
		t.Error("person profile processing must be disabled")
	}
	if capture.DistinctId == "" {
		t.Error("anonymous distinct id missing")
	}
}

func TestClose_FlushesUnderlyingClient(t *testing.T) {
	rec := &recordingEnqueuer{}
	c := newClientWithEnqueuer(rec, "dev")
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !rec.closed {
		t.Error("underlying client not closed")
	}
}

func TestEnabled_EnvOptOut(t *testing.T) {
	for _, v := range []string{"off", "0", "false"} {
		t.Setenv("TASKFORGE_TELEMETRY", v)
		if Enabled() {
			t.Errorf("Enabled() = true with TASKFORGE_TELEMETRY=%s", v)
		}
	}
	t.Setenv("TASKFORGE_TELEMETRY", "")
	if !Enabled() {
		t.Error("Enabled() = false with no opt-out set")
	}
}

func TestNewClient_NoKeyIsNoop(t *testing.T) {
	c := NewClient("", "dev")
	if _, ok := c.(NoopClient); !ok {
		t.Errorf("NewClient with empty key = %T, want NoopClient", c)
	}
}
