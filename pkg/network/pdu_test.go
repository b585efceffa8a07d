package network

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/meshwire/provisioner/pkg/netstore"
)

func testNetworkRecord() *netstore.NetworkRecord {
	netKey, _ := hex.DecodeString("7dd7364590d191dad46ae2d6f3e8e8e0")
	return &netstore.NetworkRecord{
		Name:    "test_net",
		NetKey:  netKey,
		IVIndex: 0x12345678,
	}
}

// S1: network round-trip, access PDU.
func TestBuildParsePDU_AccessRoundTrip(t *testing.T) {
	record := testNetworkRecord()

	soft := SoftContext{
		SrcAddr:     [2]byte{0x00, 0x01},
		DstAddr:     [2]byte{0x00, 0x02},
		NetworkName: record.Name,
	}
	hard := HardContext{IsCtrlMsg: false, TTL: 3, Seq: 0x000007}
	transportPDU := []byte{0xAA, 0xBB}

	pdu, err := BuildOutboundPDU(record, soft, hard, transportPDU)
	if err != nil {
		t.Fatalf("BuildOutboundPDU: %v", err)
	}

	wantLen := 1 + 6 + 2 + len(transportPDU) + 4
	if len(pdu) != wantLen {
		t.Errorf("pdu length = %d, want %d", len(pdu), wantLen)
	}

	gotHard, gotSoft, gotTransport, err := ParseInboundPDU(record, pdu)
	if err != nil {
		t.Fatalf("ParseInboundPDU: %v", err)
	}

	if gotHard.IsCtrlMsg != hard.IsCtrlMsg {
		t.Errorf("IsCtrlMsg = %v, want %v", gotHard.IsCtrlMsg, hard.IsCtrlMsg)
	}
	if gotHard.Seq != hard.Seq {
		t.Errorf("Seq = %d, want %d", gotHard.Seq, hard.Seq)
	}
	if gotSoft.SrcAddr != soft.SrcAddr {
		t.Errorf("SrcAddr = %x, want %x", gotSoft.SrcAddr, soft.SrcAddr)
	}
	if gotSoft.DstAddr != soft.DstAddr {
		t.Errorf("DstAddr = %x, want %x", gotSoft.DstAddr, soft.DstAddr)
	}
	if !bytes.Equal(gotTransport, transportPDU) {
		t.Errorf("transportPDU = %x, want %x", gotTransport, transportPDU)
	}
}

// S2: control PDU, long MIC. Output is 4 bytes longer than the access
// variant for the same payload.
func TestBuildParsePDU_ControlRoundTrip(t *testing.T) {
	record := testNetworkRecord()

	soft := SoftContext{
		SrcAddr:     [2]byte{0x00, 0x01},
		DstAddr:     [2]byte{0x00, 0x02},
		NetworkName: record.Name,
	}
	hard := HardContext{IsCtrlMsg: true, TTL: 3, Seq: 0x000007}
	transportPDU := []byte{0xAA, 0xBB}

	accessPDU, err := BuildOutboundPDU(record, soft, HardContext{IsCtrlMsg: false, TTL: 3, Seq: 7}, transportPDU)
	if err != nil {
		t.Fatalf("BuildOutboundPDU (access): %v", err)
	}
	controlPDU, err := BuildOutboundPDU(record, soft, hard, transportPDU)
	if err != nil {
		t.Fatalf("BuildOutboundPDU (control): %v", err)
	}

	if len(controlPDU) != len(accessPDU)+4 {
		t.Errorf("control pdu length = %d, access pdu length = %d, want exactly +4", len(controlPDU), len(accessPDU))
	}

	gotHard, _, gotTransport, err := ParseInboundPDU(record, controlPDU)
	if err != nil {
		t.Fatalf("ParseInboundPDU: %v", err)
	}
	if !gotHard.IsCtrlMsg {
		t.Error("IsCtrlMsg = false, want true")
	}
	if !bytes.Equal(gotTransport, transportPDU) {
		t.Errorf("transportPDU = %x, want %x", gotTransport, transportPDU)
	}
}

// Testable property 2: flipping any single bit outside the ivi/nid byte
// causes decode to reject with ErrMicMismatch (or a short-frame error,
// which is an even stronger rejection).
func TestParseInboundPDU_BitFlipRejected(t *testing.T) {
	record := testNetworkRecord()
	soft := SoftContext{
		SrcAddr:     [2]byte{0x00, 0x01},
		DstAddr:     [2]byte{0x00, 0x02},
		NetworkName: record.Name,
	}
	hard := HardContext{IsCtrlMsg: false, TTL: 3, Seq: 1}

	pdu, err := BuildOutboundPDU(record, soft, hard, []byte("hello mesh"))
	if err != nil {
		t.Fatalf("BuildOutboundPDU: %v", err)
	}

	for i := 1; i < len(pdu); i++ {
		for bit := 0; bit < 8; bit++ {
			flipped := append([]byte{}, pdu...)
			flipped[i] ^= 1 << bit

			_, _, _, err := ParseInboundPDU(record, flipped)
			if err == nil {
				t.Fatalf("byte %d bit %d: decode succeeded after bit flip, want rejection", i, bit)
			}
		}
	}
}

// Testable property 4: PDUs built with consecutive seq values (10, 11)
// on the same network differ by exactly 1 in recovered seq.
func TestBuildOutboundPDU_SeqMonotonicityRecoverable(t *testing.T) {
	record := testNetworkRecord()
	soft := SoftContext{
		SrcAddr:     [2]byte{0x00, 0x01},
		DstAddr:     [2]byte{0x00, 0x02},
		NetworkName: record.Name,
	}

	pdu1, err := BuildOutboundPDU(record, soft, HardContext{Seq: 10}, []byte{0x01})
	if err != nil {
		t.Fatalf("BuildOutboundPDU: %v", err)
	}
	pdu2, err := BuildOutboundPDU(record, soft, HardContext{Seq: 11}, []byte{0x01})
	if err != nil {
		t.Fatalf("BuildOutboundPDU: %v", err)
	}

	h1, _, _, err := ParseInboundPDU(record, pdu1)
	if err != nil {
		t.Fatalf("ParseInboundPDU pdu1: %v", err)
	}
	h2, _, _, err := ParseInboundPDU(record, pdu2)
	if err != nil {
		t.Fatalf("ParseInboundPDU pdu2: %v", err)
	}

	if h2.Seq != h1.Seq+1 {
		t.Errorf("seq2 - seq1 = %d, want 1", h2.Seq-h1.Seq)
	}
}
