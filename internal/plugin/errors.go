package plugin

import (
	"context"
	"errors"
	"fmt"
)

// ErrSkip is returned by Perform when a plugin inspects an event and
// declines it. It is reported as Skipped and never disables the plugin.
var ErrSkip = errors.New("plugin: event skipped")

// InvocationError wraps a failure raised by a plugin during Perform.
type InvocationError struct {
	Plugin string
	Err    error
	// Panic holds the recovered value when Perform panicked.
	Panic any
}

func (e *InvocationError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("plugin %s panicked: %v", e.Plugin, e.Panic)
	}
	return fmt.Sprintf("plugin %s: %v", e.Plugin, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// IsInvocationError reports whether err is a plugin invocation failure.
func IsInvocationError(err error) bool {
	var ie *InvocationError
	return errors.As(err, &ie)
}

// Call invokes p.Perform, converting a panic into an *InvocationError.
// Errors other than ErrSkip are wrapped in *InvocationError as well.
func Call(ctx context.Context, id string, p Plugin, payload Payload, extra ...any) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = &InvocationError{Plugin: id, Err: fmt.Errorf("panic: %v", r), Panic: r}
		}
	}()
	v, err = p.Perform(ctx, payload, extra...)
	if err != nil && !errors.Is(err, ErrSkip) {
		var ie *InvocationError
		if !errors.As(err, &ie) {
			err = &InvocationError{Plugin: id, Err: err}
		}
		v = nil
	}
	return v, err
}
