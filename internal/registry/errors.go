package registry

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrClosed is returned by Reload after Close.
var ErrClosed = errors.New("registry: closed")

// ConfigurationError reports invalid administrative input. Registry state is
// left unchanged when one is returned.
type ConfigurationError struct {
	Field string
	Value any
	Msg   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s (got %T %v)", e.Field, e.Msg, e.Value, e.Value)
}

// StatusCode maps the error to 400 for the HTTP layer.
func (e *ConfigurationError) StatusCode() int { return http.StatusBadRequest }

// IsConfigurationError reports whether err is a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
