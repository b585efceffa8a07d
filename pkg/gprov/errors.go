package gprov

import "errors"

// Generic provisioning layer errors.
var (
	ErrFrameTooShort    = errors.New("gprov: frame too short")
	ErrUnknownType      = errors.New("gprov: unknown message type")
	ErrNonZeroAckPad    = errors.New("gprov: acknowledgment padding must be zero")
	ErrUnknownBearerOp  = errors.New("gprov: unknown bearer control op code")
	ErrFCSMismatch      = errors.New("gprov: fcs mismatch")
	ErrAckTimeout       = errors.New("gprov: no acknowledgment within the ack timeout")
	ErrSegmentOutOfRange = errors.New("gprov: segment index out of range")
)
