package executor

import (
	"errors"
	"fmt"
)

// ConfigError reports an unsupported operation, function, join type, or
// predicate operator. Configuration errors are raised eagerly at tree build
// or first dispatch, are never retried, and are always fatal to the query.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string {
	return "config: " + e.msg
}

// configErrorf builds a ConfigError with fmt-style formatting.
func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// PermissionError reports a denied table access. Permission errors are fatal
// and never retried, even under the fault-tolerant wrapper.
type PermissionError struct {
	Table string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: table %q", e.Table)
}

// IsPermissionError reports whether err is (or wraps) a PermissionError.
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
