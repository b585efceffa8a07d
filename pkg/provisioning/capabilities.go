package provisioning

import "github.com/meshwire/provisioner/pkg/bitbuf"

// Capabilities is the informational record parsed from a device's
// PROVISIONING_CAPABILITIES body: how many elements it exposes, which
// public key and OOB algorithms it supports, and the OOB size/action
// parameters for each supported method. It does not affect provisioning
// behavior under this specification, which fixes every authentication
// parameter to No-OOB, but a malformed body still fails the invitation
// phase.
type Capabilities struct {
	NumElements      uint8
	Algorithms       uint16
	PublicKeyType    uint8
	StaticOOBType    uint8
	OutputOOBSize    uint8
	OutputOOBAction  uint16
	InputOOBSize     uint8
	InputOOBAction   uint16
}

// ParseCapabilities decodes the 11-byte body that follows the
// PROVISIONING_CAPABILITIES opcode.
func ParseCapabilities(body []byte) (Capabilities, error) {
	b := bitbuf.NewReader(body)

	numElements, err := b.PullU8()
	if err != nil {
		return Capabilities{}, ErrCapabilitiesMalformed
	}
	algorithms, err := b.PullU16()
	if err != nil {
		return Capabilities{}, ErrCapabilitiesMalformed
	}
	pubKeyType, err := b.PullU8()
	if err != nil {
		return Capabilities{}, ErrCapabilitiesMalformed
	}
	staticOOB, err := b.PullU8()
	if err != nil {
		return Capabilities{}, ErrCapabilitiesMalformed
	}
	outSize, err := b.PullU8()
	if err != nil {
		return Capabilities{}, ErrCapabilitiesMalformed
	}
	outAction, err := b.PullU16()
	if err != nil {
		return Capabilities{}, ErrCapabilitiesMalformed
	}
	inSize, err := b.PullU8()
	if err != nil {
		return Capabilities{}, ErrCapabilitiesMalformed
	}
	inAction, err := b.PullU16()
	if err != nil {
		return Capabilities{}, ErrCapabilitiesMalformed
	}

	return Capabilities{
		NumElements:     numElements,
		Algorithms:      algorithms,
		PublicKeyType:   pubKeyType,
		StaticOOBType:   staticOOB,
		OutputOOBSize:   outSize,
		OutputOOBAction: outAction,
		InputOOBSize:    inSize,
		InputOOBAction:  inAction,
	}, nil
}
