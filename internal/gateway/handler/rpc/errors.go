package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connectrpc.com/connect"

	"mcsrc/internal/jarindex"
	"mcsrc/internal/javadoc"
)

var (
	errNoJar          = errors.New("no jar loaded")
	errUnknownVersion = errors.New("unknown minecraft version")
	errInvalid        = errors.New("invalid argument")
)

func toViewerError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, errNoJar):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, errUnknownVersion):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, errInvalid):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, javadoc.ErrAuthRequired):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, jarindex.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case strings.Contains(msg, "not found"), strings.Contains(msg, "unknown"):
		return connect.NewError(connect.CodeNotFound, err)
	default:
		return connect.NewError(connect.CodeInternal, fmt.Errorf("viewer failed: %w", err))
	}
}
