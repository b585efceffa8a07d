package gprov

// Link is a provisioning session handle: the device being addressed,
// the locally chosen link id, the reason the link was last closed, and
// a transaction counter. Layer does not read or advance
// TransactionNumber; GProv frames carry no transaction number.
type Link struct {
	DeviceUUID        [16]byte
	LinkID            [4]byte
	CloseReason       LinkCloseReason
	TransactionNumber uint8
}
