package gprov

import (
	"github.com/meshwire/provisioner/pkg/bitbuf"
)

// Frame is a decoded generic provisioning header: the 2-bit type and its
// 6 type-specific upper bits, plus whatever bytes follow the header
// byte. Per-type decoders interpret Body further.
type Frame struct {
	Type   MessageType
	Upper6 uint8
	Body   []byte
}

// encodeHeader packs type and upper6 into the single header byte.
func encodeHeader(t MessageType, upper6 uint8) uint8 {
	return (upper6 << 2) | uint8(t)&0x03
}

// DecodeFrame splits raw into its header byte and body.
func DecodeFrame(raw []byte) (Frame, error) {
	if len(raw) < 1 {
		return Frame{}, ErrFrameTooShort
	}
	b := bitbuf.NewReader(raw)
	header, _ := b.PullU8()

	return Frame{
		Type:   MessageType(header & 0x03),
		Upper6: header >> 2,
		Body:   b.PullRemaining(),
	}, nil
}

// EncodeStart builds a START frame: header(segN) || total_length(u16) ||
// fcs(u8) || content.
func EncodeStart(segN uint8, totalLength uint16, fcs uint8, content []byte) []byte {
	b := bitbuf.New()
	b.PushU8(encodeHeader(TypeStart, segN))
	b.PushU16(totalLength)
	b.PushU8(fcs)
	b.PushBytes(content)
	return b.Bytes()
}

// DecodeStart parses a START frame's body into its fields.
func DecodeStart(f Frame) (segN uint8, totalLength uint16, fcs uint8, content []byte, err error) {
	if f.Type != TypeStart {
		return 0, 0, 0, nil, ErrUnknownType
	}
	b := bitbuf.NewReader(f.Body)
	totalLength, err = b.PullU16()
	if err != nil {
		return 0, 0, 0, nil, ErrFrameTooShort
	}
	fcs, err = b.PullU8()
	if err != nil {
		return 0, 0, 0, nil, ErrFrameTooShort
	}
	return f.Upper6, totalLength, fcs, b.PullRemaining(), nil
}

// EncodeAck builds an empty ACKNOWLEDGMENT frame.
func EncodeAck() []byte {
	return []byte{encodeHeader(TypeAcknowledgment, 0)}
}

// DecodeAck validates that f is a well-formed ACKNOWLEDGMENT: its upper
// 6 bits must be zero. Any bytes after the header are not examined.
func DecodeAck(f Frame) error {
	if f.Type != TypeAcknowledgment {
		return ErrUnknownType
	}
	if f.Upper6 != 0 {
		return ErrNonZeroAckPad
	}
	return nil
}

// EncodeContinuation builds a CONTINUATION frame carrying the given
// 1-based segment index and its content.
func EncodeContinuation(segIndex uint8, content []byte) []byte {
	b := bitbuf.New()
	b.PushU8(encodeHeader(TypeContinuation, segIndex))
	b.PushBytes(content)
	return b.Bytes()
}

// DecodeContinuation parses a CONTINUATION frame's segment index and
// content.
func DecodeContinuation(f Frame) (segIndex uint8, content []byte, err error) {
	if f.Type != TypeContinuation {
		return 0, nil, ErrUnknownType
	}
	return f.Upper6, f.Body, nil
}

// EncodeLinkOpen builds a BEARER_CONTROL LINK_OPEN frame carrying the
// 16-byte device UUID.
func EncodeLinkOpen(deviceUUID [16]byte) []byte {
	b := bitbuf.New()
	b.PushU8(encodeHeader(TypeBearerControl, uint8(OpLinkOpen)))
	b.PushBytes(deviceUUID[:])
	return b.Bytes()
}

// EncodeLinkAck builds an empty BEARER_CONTROL LINK_ACK frame.
func EncodeLinkAck() []byte {
	return []byte{encodeHeader(TypeBearerControl, uint8(OpLinkAck))}
}

// EncodeLinkClose builds a BEARER_CONTROL LINK_CLOSE frame carrying the
// 1-byte close reason.
func EncodeLinkClose(reason LinkCloseReason) []byte {
	b := bitbuf.New()
	b.PushU8(encodeHeader(TypeBearerControl, uint8(OpLinkClose)))
	b.PushU8(uint8(reason))
	return b.Bytes()
}

// DecodeBearerControl parses a BEARER_CONTROL frame's op code and body.
func DecodeBearerControl(f Frame) (op BearerOpCode, body []byte, err error) {
	if f.Type != TypeBearerControl {
		return 0, nil, ErrUnknownType
	}
	op = BearerOpCode(f.Upper6)
	switch op {
	case OpLinkOpen, OpLinkAck, OpLinkClose:
		return op, f.Body, nil
	default:
		return 0, nil, ErrUnknownBearerOp
	}
}
