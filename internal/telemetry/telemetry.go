// Package telemetry provides anonymous usage analytics for the engine:
// opt-out via environment, anonymous id only, async dispatch that never
// blocks or fails a generation.
package telemetry

import (
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
)

// Event names emitted by the engine.
const (
	EventTasksGenerated     = "tasks_generated"
	EventDuplicatesDetected = "duplicates_detected"
	EventTasksMerged        = "tasks_merged"
	EventGenerationFailed   = "generation_failed"
)

// Properties is a type alias for event properties.
type Properties = map[string]any

// Client is the interface for telemetry clients. The abstraction exists
// so engine code tracks unconditionally and tests swap in a recorder.
type Client interface {
	// Track sends an event asynchronously and returns immediately.
	Track(event string, properties Properties)

	// Close flushes pending events and shuts the client down.
	Close() error
}

// Enabled reports the consent state. Telemetry is on unless the user
// set TASKFORGE_TELEMETRY=off (or "0" / "false").
func Enabled() bool {
	switch os.Getenv("TASKFORGE_TELEMETRY") {
	case "off", "0", "false":
		return false
	}
	return true
}

// enqueuer is the slice of the PostHog client we use, extracted so
// tests can substitute a recorder.
type enqueuer interface {
	io.Closer
	Enqueue(msg posthog.Message) error
}

// PostHogClient wraps the PostHog SDK for async telemetry.
type PostHogClient struct {
	mu      sync.RWMutex
	client  enqueuer
	anonID  string
	version string
}

// NewClient builds the telemetry client: a PostHog-backed one when an
// API key is present and consent holds, a no-op otherwise. Errors from
// SDK construction degrade to the no-op client; telemetry must never
// break the tool.
func NewClient(apiKey, version string) Client {
	if apiKey == "" || !Enabled() {
		return NoopClient{}
	}
	ph, err := posthog.NewWithConfig(apiKey, posthog.Config{
		BatchSize: 10,
		Interval:  time.Second,
		Logger:    quietLogger{},
	})
	if err != nil {
		return NoopClient{}
	}
	return &PostHogClient{
		client:  ph,
		anonID:  uuid.New().String(),
		version: version,
	}
}

func newClientWithEnqueuer(enq enqueuer, version string) *PostHogClient {
	return &PostHogClient{client: enq, anonID: uuid.New().String(), version: version}
}

// Track enqueues one event with the standard property set attached.
func (c *PostHogClient) Track(event string, properties Properties) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return
	}

	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}
	props.Set("os", runtime.GOOS)
	props.Set("arch", runtime.GOARCH)
	props.Set("engine_version", c.version)
	// Anonymous events only: no person profiles.
	props.Set("$process_person_profile", false)

	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: c.anonID,
		Event:      event,
		Properties: props,
	})
}

// Close flushes the queue. The SDK bounds the wait internally.
func (c *PostHogClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// NoopClient discards every event.
type NoopClient struct{}

func (NoopClient) Track(string, Properties) {}
func (NoopClient) Close() error             { return nil }

// quietLogger keeps PostHog transport noise out of CLI output.
type quietLogger struct{}

func (quietLogger) Debugf(string, ...interface{}) {}
func (quietLogger) Logf(string, ...interface{})   {}
func (quietLogger) Warnf(string, ...interface{})  {}
func (quietLogger) Errorf(string, ...interface{}) {}
