package types

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for event classification and sheet synchronization.
// Matched with errors.Is; context values are attached via goerr.V at wrap
// sites.
var (
	// Event builder errors: the event is rejected but the webhook is still
	// acknowledged to avoid redelivery storms.
	ErrUnsupportedEvent = goerr.New("unsupported slack event")
	ErrMalformedEvent   = goerr.New("malformed slack event")

	// User directory errors: per-update degradation, never fatal to a batch.
	ErrUserLookupFailed = goerr.New("user info lookup failed")
	ErrRateLimited      = goerr.New("slack API rate limited")

	// Synchronizer errors, fatal to the current flush cycle. Row match
	// failures are per-update no-ops and carry no sentinel.
	ErrSpreadsheetNotFound = goerr.New("spreadsheet not found")
	ErrWorksheetNotFound   = goerr.New("worksheet not found")
	ErrWorksheetProvision  = goerr.New("failed to provision worksheet")
)

// Context keys for error values
const (
	SpreadsheetKey = "spreadsheet"
	WorksheetKey   = "worksheet"
	UserIDKey      = "user_id"
	RetryAfterKey  = "retry_after"
)
