package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrInvalidPayload = fmt.Errorf("invalid telemetry payload")

	ErrMalformedEnvelope    = fmt.Errorf("malformed envelope")
	ErrUnknownType          = fmt.Errorf("unknown message type")
	ErrAlreadyInGroup       = fmt.Errorf("user already belongs to a group")
	ErrNotInGroup           = fmt.Errorf("user does not belong to a group")
	ErrNotSameGroup         = fmt.Errorf("sender and recipient are not in the same group")
	ErrSenderMismatch       = fmt.Errorf("envelope sender does not match connection identity")
	ErrRecipientUnreachable = fmt.Errorf("recipient unreachable")
	ErrNotConnected         = fmt.Errorf("user is not connected")
	ErrSinkClosed           = fmt.Errorf("sink closed")
	ErrDeliveryTimeout      = fmt.Errorf("delivery timeout")
	ErrMessagePanic         = fmt.Errorf("panic while routing message")

	ErrInvalidIdentity = fmt.Errorf("invalid user identity")
	ErrInvalidPolicy   = fmt.Errorf("invalid policy")
)
