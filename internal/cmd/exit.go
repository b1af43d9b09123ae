package cmd

import (
	"errors"

	"github.com/tphakala/go-zscaler"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitAuth        = 3
	ExitNotFound    = 4
	ExitRateLimited = 5
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	var (
		authErr     *zscaler.AuthenticationError
		notFoundErr *zscaler.NotFoundError
		rateErr     *zscaler.RateLimitError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &authErr):
		return ExitAuth
	case errors.As(err, &notFoundErr):
		return ExitNotFound
	case errors.As(err, &rateErr):
		return ExitRateLimited
	default:
		return ExitError
	}
}
