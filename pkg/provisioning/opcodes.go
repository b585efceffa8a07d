package provisioning

// Provisioning PDU opcodes (first byte of every provisioning transaction).
const (
	OpInvite              = 0x00
	OpCapabilities         = 0x01
	OpStart                = 0x02
	OpPublicKey            = 0x03
	OpInputComplete        = 0x04
	OpConfirmation         = 0x05
	OpRandom               = 0x06
	OpData                 = 0x07
	OpComplete             = 0x08
	OpFailed               = 0x09
)

// DefaultAttentionDuration is the attention_duration sent in the
// invitation phase.
const DefaultAttentionDuration = 5
