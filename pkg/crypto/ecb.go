package crypto

import (
	"crypto/aes"
	"fmt"
)

// E is the mesh profile's raw AES-128 single-block ECB encryption primitive,
// e(key, plaintext) -> 16 bytes. It has no mode of operation beyond a
// single block and is used to build the Privacy ECB (PECB) that obfuscates
// network PDU headers.
func E(key, plaintext []byte) ([]byte, error) {
	if len(plaintext) != aesBlockSize {
		return nil, fmt.Errorf("crypto: e() plaintext must be %d bytes, got %d", aesBlockSize, len(plaintext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: e() cipher: %w", err)
	}

	out := make([]byte, aesBlockSize)
	block.Encrypt(out, plaintext)
	return out, nil
}
