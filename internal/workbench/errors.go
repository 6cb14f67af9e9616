package workbench

import (
	"errors"
	"fmt"
	"strings"

	"himyc/internal/store"
)

var (
	ErrPrecondition = errors.New("precondition failed")
	ErrValidation   = errors.New("validation error")
	ErrLocked       = errors.New("project locked")
)

// Wrap tags err with marker and an operation context. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Hint returns a short operator-facing suggestion for err, or "".
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, store.ErrRunNotFound):
		return "run not found, refresh and reselect"
	case errors.Is(err, ErrLocked):
		return "another himyc command is using this project; retry when it finishes"
	case errors.Is(err, store.ErrCharacterNotFound):
		return "import the character catalog first"
	case errors.Is(err, store.ErrTrackNotFound):
		return "import the subtitle track for this language first"
	case errors.Is(err, ErrPrecondition):
		return "check the episode's imported data and retry"
	}
	return ""
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "workbench failure"
	}
	return strings.Join(parts, ": ")
}
