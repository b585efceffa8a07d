package network

import (
	"fmt"

	"github.com/meshwire/provisioner/pkg/bitbuf"
	"github.com/meshwire/provisioner/pkg/crypto"
	"github.com/meshwire/provisioner/pkg/netstore"
)

const pecbPlaintextSize = 16

// buildNonce composes the 13-byte network nonce: 0x00, (ctl|ttl), a
// 3-byte seq, a 2-byte src, two zero bytes, and the 4-byte iv_index.
func buildNonce(ctlTTL byte, seq uint32, src [2]byte, ivIndex uint32) []byte {
	n := bitbuf.New()
	n.PushU8(0x00)
	n.PushU8(ctlTTL)
	n.PushU24(seq)
	n.PushBytes(src[:])
	n.PushU8(0x00)
	n.PushU8(0x00)
	n.PushU32(ivIndex)
	return n.Bytes()
}

// buildPECBPlaintext composes the 16-byte plaintext block fed into e()
// to derive the privacy obfuscation keystream: five zero bytes, the
// 4-byte iv_index, and the 7-byte privacy random.
func buildPECBPlaintext(ivIndex uint32, privacyRandom []byte) []byte {
	p := bitbuf.New()
	p.PushU8(0x00)
	p.PushU8(0x00)
	p.PushU8(0x00)
	p.PushU8(0x00)
	p.PushU8(0x00)
	p.PushU32(ivIndex)
	p.PushBytes(privacyRandom)
	return p.Bytes()
}

func xor6(a, b []byte) []byte {
	out := make([]byte, 6)
	for i := 0; i < 6; i++ {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// BuildOutboundPDU constructs a complete network PDU for transportPDU,
// using hard.Seq as the sequence number. It does not allocate a sequence
// number from record; Layer.Send does that before calling it.
func BuildOutboundPDU(record *netstore.NetworkRecord, soft SoftContext, hard HardContext, transportPDU []byte) ([]byte, error) {
	if len(soft.DstAddr) != 2 {
		return nil, ErrBadDstAddr
	}

	mat, err := crypto.K2(record.NetKey, []byte{0x00})
	if err != nil {
		return nil, fmt.Errorf("network: derive security material: %w", err)
	}

	ivi := byte(record.IVIndex&0x01) << 7
	ctl := byte(0x00)
	if hard.IsCtrlMsg {
		ctl = 0x80
	}
	ttl := hard.TTL & 0x7F
	ctlTTL := ctl | ttl

	nonce := buildNonce(ctlTTL, hard.Seq, soft.SrcAddr, record.IVIndex)

	tagSize := crypto.AccessMICSize
	if hard.IsCtrlMsg {
		tagSize = crypto.ControlMICSize
	}

	plaintext := append(append([]byte{}, soft.DstAddr[:]...), transportPDU...)
	sealed, err := crypto.SealCCM(mat.EncryptionKey, nonce, plaintext, tagSize)
	if err != nil {
		return nil, fmt.Errorf("network: seal pdu: %w", err)
	}

	encDst := sealed[0:2]
	encTransportPDU := sealed[2 : len(sealed)-tagSize]
	netMic := sealed[len(sealed)-tagSize:]

	privacyInput := append(append(append([]byte{}, encDst...), encTransportPDU...), netMic...)
	privacyRandom := privacyInput[0:7]

	pecb, err := crypto.E(mat.PrivacyKey, buildPECBPlaintext(record.IVIndex, privacyRandom))
	if err != nil {
		return nil, fmt.Errorf("network: compute pecb: %w", err)
	}

	header := bitbuf.New()
	header.PushU8(ctlTTL)
	header.PushU24(hard.Seq)
	header.PushBytes(soft.SrcAddr[:])
	obfuscated := xor6(header.Bytes(), pecb[0:6])

	out := bitbuf.New()
	out.PushU8(ivi | mat.NID)
	out.PushBytes(obfuscated)
	out.PushBytes(encDst)
	out.PushBytes(encTransportPDU)
	out.PushBytes(netMic)
	return out.Bytes(), nil
}

// ParseInboundPDU reverses BuildOutboundPDU given the record already
// selected by nid. It returns the recovered HardContext, SoftContext,
// and transport PDU, or ErrMicMismatch if authentication fails.
func ParseInboundPDU(record *netstore.NetworkRecord, pdu []byte) (HardContext, SoftContext, []byte, error) {
	if len(pdu) < 14 {
		return HardContext{}, SoftContext{}, nil, ErrPDUTooShort
	}

	mat, err := crypto.K2(record.NetKey, []byte{0x00})
	if err != nil {
		return HardContext{}, SoftContext{}, nil, fmt.Errorf("network: derive security material: %w", err)
	}

	privacyRandom := pdu[7:14]

	pecb, err := crypto.E(mat.PrivacyKey, buildPECBPlaintext(record.IVIndex, privacyRandom))
	if err != nil {
		return HardContext{}, SoftContext{}, nil, fmt.Errorf("network: compute pecb: %w", err)
	}

	clear := xor6(pdu[1:7], pecb[0:6])

	var hard HardContext
	hard.IsCtrlMsg = clear[0]&0x80 != 0
	hard.TTL = clear[0] & 0x7F
	hard.Seq = uint32(clear[1])<<16 | uint32(clear[2])<<8 | uint32(clear[3])

	var src [2]byte
	copy(src[:], clear[4:6])

	tagSize := crypto.AccessMICSize
	if hard.IsCtrlMsg {
		tagSize = crypto.ControlMICSize
	}
	if len(pdu) < 7+2+tagSize {
		return HardContext{}, SoftContext{}, nil, ErrPDUTooShort
	}

	nonce := buildNonce(clear[0], hard.Seq, src, record.IVIndex)

	ciphertext := pdu[7:]
	plaintext, err := crypto.OpenCCM(mat.EncryptionKey, nonce, ciphertext, tagSize)
	if err != nil {
		return HardContext{}, SoftContext{}, nil, ErrMicMismatch
	}

	var soft SoftContext
	soft.SrcAddr = src
	copy(soft.DstAddr[:], plaintext[0:2])
	soft.NetworkName = record.Name

	transportPDU := plaintext[2:]
	return hard, soft, transportPDU, nil
}
