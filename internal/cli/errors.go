package cli

import (
	"fmt"
	"strings"

	"github.com/mark3labs/endpointgen/internal/errors"
	genspec "github.com/mark3labs/endpointgen/internal/spec"
)

var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// friendlyError turns loader and generation errors into usage errors that
// carry their location and hints. Other errors pass through unchanged.
func friendlyError(err error) error {
	if err == nil {
		return nil
	}
	var se *genspec.SpecError
	if errors.As(err, &se) {
		msg := fmt.Sprintf("spec: %s", se.Message)
		if se.Location != "" {
			msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
		}
		if se.JSONPointer != "" {
			msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
		}
		return newUsageError(msg)
	}
	var agg *errors.Aggregate
	if errors.As(err, &agg) {
		return newUsageError(withHints("generate: "+agg.Error(), err))
	}
	if errors.CodeOf(err) != "" {
		return newUsageError(withHints("generate: "+err.Error(), err))
	}
	return err
}

func withHints(msg string, err error) string {
	hints := errors.GetAllHints(err)
	if len(hints) == 0 {
		return msg
	}
	return msg + "\nHint: " + strings.Join(hints, "\nHint: ")
}
