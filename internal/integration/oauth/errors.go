package oauth

import "errors"

var (
	ErrUnsupportedProvider = errors.New("unsupported_provider")
	ErrNotConfigured       = errors.New("not_configured")
	ErrInvalidState        = errors.New("invalid_state")
	ErrStateMismatch       = errors.New("state_mismatch")
	ErrMissingCode         = errors.New("missing_code")
	ErrMissingRealmID      = errors.New("missing_realm_id")
	ErrExchangeFailed      = errors.New("exchange_failed")
	ErrAccessDenied        = errors.New("access_denied")
)

// Reason maps a connect failure to the short code carried on the redirect back to the app.
func Reason(err error) string {
	for _, known := range []error{
		ErrUnsupportedProvider,
		ErrNotConfigured,
		ErrInvalidState,
		ErrStateMismatch,
		ErrMissingCode,
		ErrMissingRealmID,
		ErrExchangeFailed,
		ErrAccessDenied,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "save_failed"
}
