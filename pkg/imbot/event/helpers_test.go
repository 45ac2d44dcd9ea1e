package event_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/imbot/pkg/imbot/event"
)

type testEvent struct {
	event.Base
	Value int
}

type otherEvent struct {
	event.Base
	Name string
}

type cancellableEvent struct {
	event.CancellableBase
}

type gatedEvent struct {
	event.Base
	allow bool
}

func (e *gatedEvent) ShouldBroadcast() bool { return e.allow }

type neverLoggedEvent struct{ event.Base }

func (*neverLoggedEvent) NeverLogged() {}

type exemptEvent struct{ event.Base }

func (*exemptEvent) LogExempt() {}

type receiptEvent struct{ event.Base }

func (*receiptEvent) MessageReceipt() {}

type testScope struct {
	logger  *slog.Logger
	verbose bool
}

func (s *testScope) Logger() *slog.Logger      { return s.logger }
func (s *testScope) ShowVerboseEventLog() bool { return s.verbose }

type verboseEvent struct {
	event.Base
	scope event.Scope
}

func (*verboseEvent) Verbose() {}

func (e *verboseEvent) Scope() event.Scope { return e.scope }

type scopedEvent struct {
	event.Base
	scope event.Scope
}

func (e *scopedEvent) Scope() event.Scope { return e.scope }

// logBuffer is a concurrency-safe sink for JSON log lines.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// lines decodes every captured record.
func (b *logBuffer) lines(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

// eventLines returns the records written for delivered events.
func (b *logBuffer) eventLines(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, m := range b.lines(t) {
		if m["msg"] == "event" {
			out = append(out, m)
		}
	}
	return out
}

func newTestLogger() (*slog.Logger, *logBuffer) {
	buf := &logBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// recordingMetrics captures calls made to the metrics recorder.
type recordingMetrics struct {
	mu         sync.Mutex
	broadcasts []string
	listeners  int
	failures   int
	suppressed map[string]string // event type -> reason
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{suppressed: make(map[string]string)}
}

func (m *recordingMetrics) RecordBroadcast(_ context.Context, eventType string, _ time.Duration, _ bool, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, eventType)
}

func (m *recordingMetrics) RecordListener(_ context.Context, _, _ string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners++
	if err != nil {
		m.failures++
	}
}

func (m *recordingMetrics) RecordSuppressed(_ context.Context, eventType, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressed[eventType] = reason
}

func newTestBroadcaster(t *testing.T) (*event.Broadcaster, *logBuffer) {
	t.Helper()
	logger, buf := newTestLogger()
	return event.NewBroadcaster(event.BroadcasterConfig{Logger: logger}), buf
}

// recorder collects labels in invocation order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, label)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// subscribe registers a listener that records label and then runs fn.
func subscribe(t *testing.T, b *event.Broadcaster, rec *recorder, label string, p event.Priority, fn func(event.Event) error) *event.Listener {
	t.Helper()
	l, err := b.Channel().SubscribeAlways(context.Background(), func(_ context.Context, e event.Event) error {
		rec.add(label)
		if fn != nil {
			return fn(e)
		}
		return nil
	}, event.WithPriority(p), event.WithName(label))
	require.NoError(t, err)
	return l
}
