package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
)

// Error kinds. A *TemporalError matches its kind with errors.Is.
var (
	ErrWorkflowNotFound       = errors.New("workflow not found")
	ErrWorkflowAlreadyStarted = errors.New("workflow already started")
	ErrClientClosed           = errors.New("client closed")
	ErrDeadlineExceeded       = errors.New("deadline exceeded")

	// ErrRejected covers requests the server refused outright: an unknown
	// namespace, an invalid argument or missing permission. Retrying will
	// not help.
	ErrRejected = errors.New("request rejected")

	// ErrUnavailable is everything else, typically a connection failure.
	ErrUnavailable = errors.New("temporal unavailable")
)

// TemporalError is a failed client call.
type TemporalError struct {
	Op         string
	Kind       error
	WorkflowID string
	Err        error
}

func (e *TemporalError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.WorkflowID != "" {
		msg += fmt.Sprintf(" [workflowID=%s]", e.WorkflowID)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *TemporalError) Unwrap() error { return e.Err }

func (e *TemporalError) Is(target error) bool { return errors.Is(e.Kind, target) }

func wrapTemporalError(op string, err error, workflowID string) error {
	if err == nil {
		return nil
	}
	return &TemporalError{Op: op, Kind: errorKind(err), WorkflowID: workflowID, Err: err}
}

func errorKind(err error) error {
	var (
		notFound  *serviceerror.NotFound
		started   *serviceerror.WorkflowExecutionAlreadyStarted
		namespace *serviceerror.NamespaceNotFound
		invalid   *serviceerror.InvalidArgument
		denied    *serviceerror.PermissionDenied
		deadline  *serviceerror.DeadlineExceeded
	)
	switch {
	case errors.As(err, &notFound):
		return ErrWorkflowNotFound
	case errors.As(err, &started):
		return ErrWorkflowAlreadyStarted
	case errors.As(err, &namespace), errors.As(err, &invalid), errors.As(err, &denied):
		return ErrRejected
	case errors.As(err, &deadline), errors.Is(err, context.DeadlineExceeded):
		return ErrDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return ErrClientClosed
	default:
		return ErrUnavailable
	}
}

func IsWorkflowAlreadyStarted(err error) bool { return errors.Is(err, ErrWorkflowAlreadyStarted) }

func IsWorkflowNotFound(err error) bool { return errors.Is(err, ErrWorkflowNotFound) }
