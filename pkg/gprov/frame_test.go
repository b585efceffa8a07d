package gprov

import (
	"bytes"
	"testing"
)

func TestDecodeFrame_TooShort(t *testing.T) {
	if _, err := DecodeFrame(nil); err != ErrFrameTooShort {
		t.Errorf("DecodeFrame(nil): got %v, want ErrFrameTooShort", err)
	}
}

func TestAck_EncodeDecode(t *testing.T) {
	f, err := DecodeFrame(EncodeAck())
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if err := DecodeAck(f); err != nil {
		t.Errorf("DecodeAck: %v", err)
	}
}

func TestDecodeAck_RejectsNonZeroPadding(t *testing.T) {
	raw := []byte{encodeHeader(TypeAcknowledgment, 0x3F)}
	f, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if err := DecodeAck(f); err != ErrNonZeroAckPad {
		t.Errorf("DecodeAck: got %v, want ErrNonZeroAckPad", err)
	}
}

func TestBearerControl_LinkOpenRoundTrip(t *testing.T) {
	var uuid [16]byte
	for i := range uuid {
		uuid[i] = byte(i)
	}

	f, err := DecodeFrame(EncodeLinkOpen(uuid))
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	op, body, err := DecodeBearerControl(f)
	if err != nil {
		t.Fatalf("DecodeBearerControl: %v", err)
	}
	if op != OpLinkOpen {
		t.Errorf("op = %v, want OpLinkOpen", op)
	}
	if !bytes.Equal(body, uuid[:]) {
		t.Errorf("body = %x, want %x", body, uuid)
	}
}

func TestBearerControl_LinkCloseRoundTrip(t *testing.T) {
	f, err := DecodeFrame(EncodeLinkClose(ReasonFail))
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	op, body, err := DecodeBearerControl(f)
	if err != nil {
		t.Fatalf("DecodeBearerControl: %v", err)
	}
	if op != OpLinkClose {
		t.Errorf("op = %v, want OpLinkClose", op)
	}
	if len(body) != 1 || LinkCloseReason(body[0]) != ReasonFail {
		t.Errorf("body = %x, want [0x02]", body)
	}
}

func TestDecodeBearerControl_RejectsUnknownOp(t *testing.T) {
	raw := []byte{encodeHeader(TypeBearerControl, 0x3F)}
	f, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if _, _, err := DecodeBearerControl(f); err != ErrUnknownBearerOp {
		t.Errorf("DecodeBearerControl: got %v, want ErrUnknownBearerOp", err)
	}
}
