package crypto

import (
	"bytes"
	"testing"
)

func TestK2_FieldSizesAndNIDRange(t *testing.T) {
	netKey := bytes.Repeat([]byte{0x7d, 0xd7}, 8)

	mat, err := K2(netKey, []byte{0x00})
	if err != nil {
		t.Fatalf("K2: %v", err)
	}

	if mat.NID&0x80 != 0 {
		t.Errorf("NID has high bit set: %#x", mat.NID)
	}
	if len(mat.EncryptionKey) != 16 {
		t.Errorf("EncryptionKey length = %d, want 16", len(mat.EncryptionKey))
	}
	if len(mat.PrivacyKey) != 16 {
		t.Errorf("PrivacyKey length = %d, want 16", len(mat.PrivacyKey))
	}
}

func TestK2_Deterministic(t *testing.T) {
	netKey := bytes.Repeat([]byte{0x01}, 16)

	m1, err := K2(netKey, []byte{0x00})
	if err != nil {
		t.Fatalf("K2: %v", err)
	}
	m2, err := K2(netKey, []byte{0x00})
	if err != nil {
		t.Fatalf("K2: %v", err)
	}

	if m1.NID != m2.NID || !bytes.Equal(m1.EncryptionKey, m2.EncryptionKey) || !bytes.Equal(m1.PrivacyKey, m2.PrivacyKey) {
		t.Errorf("K2 not deterministic for the same inputs")
	}
}

func TestK2_DistinctKeysProduceDistinctMaterial(t *testing.T) {
	k1 := bytes.Repeat([]byte{0x01}, 16)
	k2 := bytes.Repeat([]byte{0x02}, 16)

	m1, err := K2(k1, []byte{0x00})
	if err != nil {
		t.Fatalf("K2: %v", err)
	}
	m2, err := K2(k2, []byte{0x00})
	if err != nil {
		t.Fatalf("K2: %v", err)
	}

	if bytes.Equal(m1.EncryptionKey, m2.EncryptionKey) {
		t.Errorf("distinct network keys produced the same encryption key")
	}
}
