package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for all nil handlers")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout enabled for debug")
	}
	logger := slog.New(h).With(slog.String(FieldJobID, "j"))
	logger.Debug("debug only")
	logger.Info("both")

	if bytes.Contains(infoBuf.Bytes(), []byte("debug only")) {
		t.Fatal("info handler should not receive debug records")
	}
	if !bytes.Contains(debugBuf.Bytes(), []byte("debug only")) || !bytes.Contains(infoBuf.Bytes(), []byte(`"job_id":"j"`)) {
		t.Fatalf("unexpected output info=%q debug=%q", infoBuf.String(), debugBuf.String())
	}
}
