package supervisor

import "errors"

// Operation-time error taxonomy, spec §7. Errors surfaced asynchronously
// on the event bus (SessionFailed.Error) are plain strings, not these
// sentinels — only start_session/stop_session report synchronously.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrSessionNotFound = errors.New("session not found")
)
