package provisioning

import "github.com/meshwire/provisioner/pkg/crypto"

// sessionState is the mutable scratch state accumulated across the four
// provisioning phases for one provisioning_device call. It is never
// reused across sessions and never overlaps phases.
type sessionState struct {
	keyPair      *crypto.P256KeyPair
	pubX, pubY   []byte
	devX, devY   []byte
	ecdhX        []byte

	invite         []byte
	capabilitiesRaw []byte
	capabilities   Capabilities
	start          []byte

	authValue []byte

	confirmationSalt []byte
	confirmationKey  []byte
	randomProv       []byte
	randomDevice     []byte

	provisioningSalt []byte
	sessionKey       []byte
	sessionNonce     []byte
}

func newSessionState() *sessionState {
	return &sessionState{authValue: make([]byte, 16)}
}
