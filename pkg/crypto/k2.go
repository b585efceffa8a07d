package crypto

import "fmt"

// k2Salt is s1("smk2"), the fixed salt for the k2 derivation function.
var k2Salt = func() []byte {
	salt, err := S1([]byte("smk2"))
	if err != nil {
		panic("crypto: k2 salt derivation failed: " + err.Error())
	}
	return salt
}()

// K2Material holds the three fields the k2 derivation function produces
// from a network key: the network identifier used for inbound PDU
// dispatch, and the encryption/privacy keys used to build and obfuscate
// network PDUs.
type K2Material struct {
	NID           byte
	EncryptionKey []byte
	PrivacyKey    []byte
}

// K2 derives (nid, encryption_key, privacy_key) from a network key n and
// an input p, following the mesh profile's k2 function:
//
//	T  = AES-CMAC_s1("smk2")(n)
//	T1 = AES-CMAC_T(p || 0x01)
//	T2 = AES-CMAC_T(T1 || p || 0x02)
//	T3 = AES-CMAC_T(T2 || p || 0x03)
//	k2 = (T1 || T2 || T3) mod 2^263
//
// The modulus drops everything but the low 7 bits of T1 and all of T2/T3,
// which is exactly NID || EncryptionKey || PrivacyKey.
func K2(n, p []byte) (*K2Material, error) {
	t, err := AESCMAC(k2Salt, n)
	if err != nil {
		return nil, fmt.Errorf("crypto: k2 T: %w", err)
	}

	t1, err := AESCMAC(t, append(append([]byte{}, p...), 0x01))
	if err != nil {
		return nil, fmt.Errorf("crypto: k2 T1: %w", err)
	}

	t2, err := AESCMAC(t, append(append(append([]byte{}, t1...), p...), 0x02))
	if err != nil {
		return nil, fmt.Errorf("crypto: k2 T2: %w", err)
	}

	t3, err := AESCMAC(t, append(append(append([]byte{}, t2...), p...), 0x03))
	if err != nil {
		return nil, fmt.Errorf("crypto: k2 T3: %w", err)
	}

	return &K2Material{
		NID:           t1[len(t1)-1] & 0x7F,
		EncryptionKey: t2,
		PrivacyKey:    t3,
	}, nil
}
