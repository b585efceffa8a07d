package crypto

import (
	"crypto/aes"
	"fmt"

	"github.com/aead/cmac"
)

// zeroKey is the all-zero 128-bit key used by s1.
var zeroKey = make([]byte, 16)

// AESCMAC computes AES-CMAC(key, msg) per NIST SP 800-38B, returning a
// 16-byte MAC. This is the `aes_cmac` primitive the mesh profile's salt
// and key derivation functions (s1, k1, k2) and the provisioning layer's
// confirmation/random exchange are all built on.
func AESCMAC(key, msg []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: aes cipher for cmac: %w", err)
	}
	mac, err := cmac.Sum(msg, block, block.BlockSize())
	if err != nil {
		return nil, fmt.Errorf("crypto: cmac: %w", err)
	}
	return mac, nil
}

// S1 is the mesh profile's salt generation function: s1(m) = AES-CMAC_0(m).
func S1(m []byte) ([]byte, error) {
	return AESCMAC(zeroKey, m)
}

// K1 is the mesh profile's derivation function:
// k1(n, salt, p) = AES-CMAC_{AES-CMAC_salt(n)}(p).
func K1(n, salt, p []byte) ([]byte, error) {
	t, err := AESCMAC(salt, n)
	if err != nil {
		return nil, err
	}
	return AESCMAC(t, p)
}
