package provisioning

import (
	"errors"
	"fmt"

	"github.com/meshwire/provisioner/pkg/gprov"
)

// ProvisioningFail reports an opcode mismatch, a capability parse
// failure, a confirmation mismatch, or an explicit PROVISIONING_FAILED
// from the device. It is fatal to the session and closes the link with
// LinkCloseReason Reason.
type ProvisioningFail struct {
	Reason gprov.LinkCloseReason
	Err    error
}

func (e *ProvisioningFail) Error() string {
	return fmt.Sprintf("provisioning: failed (close reason %v): %v", e.Reason, e.Err)
}

func (e *ProvisioningFail) Unwrap() error { return e.Err }

func newFail(err error) *ProvisioningFail {
	return &ProvisioningFail{Reason: gprov.ReasonFail, Err: err}
}

// ProvisioningTimeout reports a transport-level timeout during
// provisioning. It is fatal to the session and closes the link with
// LinkCloseReason ReasonTimeout.
type ProvisioningTimeout struct {
	Err error
}

func (e *ProvisioningTimeout) Error() string {
	return fmt.Sprintf("provisioning: timed out: %v", e.Err)
}

func (e *ProvisioningTimeout) Unwrap() error { return e.Err }

// Sentinel causes wrapped by the typed errors above.
var (
	ErrOpcodeMismatch        = errors.New("provisioning: unexpected opcode")
	ErrCapabilitiesMalformed = errors.New("provisioning: malformed capabilities")
	ErrPublicKeyMalformed    = errors.New("provisioning: malformed public key")
	ErrConfirmationMismatch  = errors.New("provisioning: confirmation value mismatch")
	ErrDeviceReportedFailure = errors.New("provisioning: device reported PROVISIONING_FAILED")

	// ErrScanTimeout is returned by Scan when no beacon with a parsable
	// device UUID arrives before the timeout elapses.
	ErrScanTimeout = errors.New("provisioning: scan timed out")
)
