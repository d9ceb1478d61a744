package credcore

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"
)

type sinkFunc func(context.Context, AuditEvent)

func (f sinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

func TestAuditDispatcherFlushesOnClose(t *testing.T) {
	sink := &captureSink{}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: EventLoginSuccess, UserID: "u1"})
	}
	d.Close()

	got := sink.byType(EventLoginSuccess)
	if len(got) != 5 {
		t.Fatalf("delivered %d events, want 5", len(got))
	}
	if got[0].UserID != "u1" {
		t.Fatalf("unexpected event: %+v", got[0])
	}
}

func TestAuditDispatcherDisabledIsNil(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, &captureSink{})
	if d != nil {
		t.Fatal("disabled dispatcher should be nil")
	}

	// nil receivers must be safe.
	d.Emit(context.Background(), AuditEvent{EventType: EventLoginFailure})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestAuditDispatcherDropIfFullCountsDrops(t *testing.T) {
	block := make(chan struct{})
	slow := sinkFunc(func(context.Context, AuditEvent) { <-block })

	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, slow)

	// First event occupies the worker, second fills the buffer, the rest drop.
	for i := 0; i < 6; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: EventRefreshFailure})
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events with a full buffer")
	}

	close(block)
	d.Close()
}

func TestAuditDispatcherEmitAfterCloseIsNoOp(t *testing.T) {
	sink := &captureSink{}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4}, sink)
	d.Close()

	d.Emit(context.Background(), AuditEvent{EventType: EventLogout})
	if got := sink.byType(EventLogout); len(got) != 0 {
		t.Fatalf("event delivered after close: %+v", got)
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Unix(1700000000, 0).UTC(),
		EventType: EventResetConfirmed,
		UserID:    "u9",
		Success:   true,
	})

	var decoded AuditEvent
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.EventType != EventResetConfirmed || !decoded.Success {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
	if buf.Bytes()[buf.Len()-1] != '\n' {
		t.Fatal("expected trailing newline")
	}
}

func TestChannelSinkDeliversToChannel(t *testing.T) {
	sink := NewChannelSink(2)
	sink.Emit(context.Background(), AuditEvent{EventType: EventEmailChanged})

	select {
	case event := <-sink.Events():
		if event.EventType != EventEmailChanged {
			t.Fatalf("EventType = %q", event.EventType)
		}
	default:
		t.Fatal("no event in channel")
	}
}
