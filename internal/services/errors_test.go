package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"karaoke/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "render", "probe", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"render", "probe", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestEncodeErrorMatchesMarker(t *testing.T) {
	encodeErr := &services.EncodeError{Binary: "ffmpeg", ExitCode: 1, Stderr: "Invalid data found when processing input\n"}
	wrapped := fmt.Errorf("file a.mp4: %w", encodeErr)
	if !errors.Is(wrapped, services.ErrEncode) {
		t.Fatalf("expected EncodeError to match ErrEncode")
	}
	var target *services.EncodeError
	if !errors.As(wrapped, &target) || target.ExitCode != 1 {
		t.Fatalf("expected errors.As to recover EncodeError, got %v", target)
	}
	if !strings.Contains(wrapped.Error(), "Invalid data found") {
		t.Fatalf("expected stderr in message, got %q", wrapped.Error())
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrValidation, "layout", "validate", "overlap", nil), services.KindValidation},
		{&services.EncodeError{Binary: "ffmpeg", ExitCode: 1}, services.KindEncode},
		{services.Wrap(services.ErrTimeout, "render", "encode", "deadline", context.DeadlineExceeded), services.KindTimeout},
		{services.Wrap(services.ErrCancelled, "render", "encode", "", context.Canceled), services.KindCancelled},
		{errors.New("mystery"), services.KindInternal},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
