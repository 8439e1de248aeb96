package errors

import "fmt"

// Handshake rejections. Clients only ever see a generic reject; the
// distinction exists for logs and tests.
var (
	ErrTokenMalformed        = fmt.Errorf("token malformed")
	ErrTokenExpired          = fmt.Errorf("token expired")
	ErrTokenSignatureInvalid = fmt.Errorf("token signature invalid")
	ErrUnknownSubject        = fmt.Errorf("token subject unknown")
)

var (
	ErrDuplicateSession = fmt.Errorf("session already registered")
	ErrUnknownSession   = fmt.Errorf("session not registered")
	ErrStoreUnavailable = fmt.Errorf("message store unavailable")
	ErrDeliveryFailure  = fmt.Errorf("event delivery failed")
	ErrUnknownRoom      = fmt.Errorf("room not in catalog")
	ErrEmptyWords       = fmt.Errorf("no censored words have been found")
	ErrWorkerPanic      = fmt.Errorf("worker panic")
)
