// Package soc defines the shared error taxonomy for the InSOC services.
// Controllers at the transport edge map these sentinels to status codes;
// everything below wraps them with %w so errors.Is keeps working.
package soc

import (
	"errors"

	"github.com/CyNexa/InSOC/internal/eventlog"
	"github.com/CyNexa/InSOC/internal/services/feed"
)

var (
	// ErrValidation marks a malformed or unacceptable request.
	ErrValidation = errors.New("invalid request")

	// ErrAuth marks a missing or wrong bearer token.
	ErrAuth = errors.New("unauthorized")

	// ErrExecutor marks a failed block-action command.
	ErrExecutor = errors.New("action executor failed")

	// ErrStoreUnavailable aliases the event log's storage sentinel so
	// callers can match on a single package.
	ErrStoreUnavailable = eventlog.ErrUnavailable

	// ErrReplay aliases the feed's mid-replay read failure.
	ErrReplay = feed.ErrReplay
)
