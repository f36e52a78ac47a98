package diag

import (
	"context"
	"errors"
)

// Exit codes shared by every subcommand.
const (
	ExitOK        = 0
	ExitUsage     = 2
	ExitIO        = 3 // I/O, locked files and anything unclassified
	ExitData      = 4
	ExitCancelled = 130
)

// ExitCode classifies err. Cancellation wins over everything else; only
// sentinels are consulted, never message text.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled), errors.Is(err, ErrCancelled):
		return ExitCancelled
	case IsDataError(err):
		return ExitData
	case errors.Is(err, ErrConfig):
		return ExitUsage
	default:
		return ExitIO
	}
}
