package network

// HardContext is per-send/receive scratch state: whether the PDU is a
// control message (8-byte MIC) or access message (4-byte MIC), its TTL,
// and its 24-bit sequence number. On send, Seq is filled in by the layer
// from the network record's allocator; on receive, it is recovered from
// the deobfuscated header and surfaced to the caller for replay policing.
type HardContext struct {
	IsCtrlMsg bool
	TTL       uint8
	Seq       uint32
}

// SoftContext carries the addressing and network-selection fields that
// accompany a transport PDU through the network layer.
type SoftContext struct {
	SrcAddr     [2]byte
	DstAddr     [2]byte
	NetworkName string
}
