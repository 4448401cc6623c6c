package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrCancelled     = errors.New("cancelled")
	ErrEncode        = errors.New("encode failed")
	ErrPartialBatch  = errors.New("partial batch failure")
	ErrFatalJob      = errors.New("fatal job error")
)

// Error kinds recorded on per-file results.
const (
	KindValidation    = "validation"
	KindEncode        = "encode"
	KindTimeout       = "timeout"
	KindCancelled     = "cancelled"
	KindNotFound      = "not_found"
	KindConfiguration = "configuration"
	KindExternalTool  = "external_tool"
	KindInternal      = "internal"
)

// EncodeError reports a non-zero exit from the external encoder. Stderr is kept
// verbatim so operators can see the encoder's own diagnosis.
type EncodeError struct {
	Binary   string
	ExitCode int
	Stderr   string
}

func (e *EncodeError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s exited with status %d", e.Binary, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Binary, e.ExitCode, lastLines(stderr, 5))
}

// Is lets errors.Is(err, ErrEncode) match any *EncodeError.
func (e *EncodeError) Is(target error) bool {
	return target == ErrEncode
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to the short classification stored on file records.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrEncode):
		return KindEncode
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrExternalTool):
		return KindExternalTool
	default:
		return KindInternal
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

func lastLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= n {
		return strings.Join(lines, " | ")
	}
	return strings.Join(lines[len(lines)-n:], " | ")
}
