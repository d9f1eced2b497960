package engine

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/datalens/pkg/parser"
)

// Error kinds. Every error returned by an Engine wraps exactly one of them.
var (
	// ErrFormat reports input that cannot be parsed as the declared format.
	ErrFormat = errors.New("format error")
	// ErrState reports a request that is not valid in the session's state.
	ErrState = errors.New("invalid session state")
	// ErrResource reports input that exceeds a configured limit.
	ErrResource = errors.New("resource limit exceeded")
	// ErrConfig reports a session configuration that cannot be honored.
	ErrConfig = errors.New("invalid session config")
)

// classify wraps a parser error in its error kind.
func classify(err error) error {
	if errors.Is(err, parser.ErrBufferLimit) {
		return fmt.Errorf("%w: %w", ErrResource, err)
	}

	return fmt.Errorf("%w: %w", ErrFormat, err)
}

func stateError(op string, s State) error {
	return fmt.Errorf("%w: %s in state %s", ErrState, op, s)
}
