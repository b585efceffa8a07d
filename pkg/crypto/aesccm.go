// AES-CCM implementation for the mesh network layer.
// Implements AES-128-CCM as defined in NIST 800-38C and RFC 3610.
// The mesh profile requires AES-CCM with a 16-byte key, a 13-byte nonce,
// and a MIC that is 4 bytes for access PDUs or 8 bytes for control PDUs.
// Associated data is always empty at the network layer.

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"errors"
)

// Mesh network-layer AES-CCM constants (mesh profile Section 3.8.6).
const (
	// CCMKeySize is the AES-128 key size in bytes.
	CCMKeySize = 16

	// CCMNonceSize is the network nonce size in bytes.
	CCMNonceSize = 13

	// AccessMICSize is the MIC length for access PDUs.
	AccessMICSize = 4

	// ControlMICSize is the MIC length for control PDUs.
	ControlMICSize = 8

	// aesBlockSize is the AES block size (always 16 bytes).
	aesBlockSize = 16
)

// Errors
var (
	ErrAESCCMInvalidKeySize     = errors.New("crypto: invalid key size, must be 16 bytes")
	ErrAESCCMInvalidNonceSize   = errors.New("crypto: invalid nonce size, must be 13 bytes")
	ErrAESCCMInvalidTagSize     = errors.New("crypto: invalid tag size, must be 4 or 8 bytes")
	ErrAESCCMCiphertextTooShort = errors.New("crypto: ciphertext too short for tag size")
	ErrAESCCMAuthFailed         = errors.New("crypto: MIC authentication failed")
)

// AESCCM is an AES-128-CCM cipher instance with a tag size fixed at
// construction time — 4 bytes for access messages, 8 bytes for control.
type AESCCM struct {
	block   cipher.Block
	tagSize int
	lenSize int // L: length field size, fixed at 15-13=2 for mesh's 13-byte nonce
}

// NewAESCCM builds an AES-128-CCM cipher for the mesh network nonce size
// (13 bytes) with the given MIC length. tagSize must be AccessMICSize or
// ControlMICSize.
func NewAESCCM(key []byte, tagSize int) (*AESCCM, error) {
	if len(key) != CCMKeySize {
		return nil, ErrAESCCMInvalidKeySize
	}
	if tagSize != AccessMICSize && tagSize != ControlMICSize {
		return nil, ErrAESCCMInvalidTagSize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return &AESCCM{
		block:   block,
		tagSize: tagSize,
		lenSize: 15 - CCMNonceSize,
	}, nil
}

// TagSize returns the configured MIC length.
func (c *AESCCM) TagSize() int {
	return c.tagSize
}

// Seal encrypts and authenticates plaintext. aad is almost always empty at
// the network layer, but the parameter is kept for CCM generality (the
// provisioning layer's data-phase CCM call also has no AAD).
// Returns ciphertext || MIC.
func (c *AESCCM) Seal(nonce, plaintext, aad []byte) ([]byte, error) {
	if len(nonce) != CCMNonceSize {
		return nil, ErrAESCCMInvalidNonceSize
	}

	tag := c.computeTag(nonce, plaintext, aad)

	ciphertext := make([]byte, len(plaintext)+c.tagSize)
	s0 := c.generateS0(nonce)
	for i := 0; i < c.tagSize; i++ {
		ciphertext[len(plaintext)+i] = tag[i] ^ s0[i]
	}

	c.ctrCrypt(nonce, ciphertext[:len(plaintext)], plaintext)

	return ciphertext, nil
}

// Open decrypts and verifies ciphertext || MIC, returning the plaintext.
func (c *AESCCM) Open(nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != CCMNonceSize {
		return nil, ErrAESCCMInvalidNonceSize
	}
	if len(ciphertext) < c.tagSize {
		return nil, ErrAESCCMCiphertextTooShort
	}

	encryptedData := ciphertext[:len(ciphertext)-c.tagSize]
	encryptedTag := ciphertext[len(ciphertext)-c.tagSize:]

	s0 := c.generateS0(nonce)
	receivedTag := make([]byte, c.tagSize)
	for i := 0; i < c.tagSize; i++ {
		receivedTag[i] = encryptedTag[i] ^ s0[i]
	}

	plaintext := make([]byte, len(encryptedData))
	c.ctrCrypt(nonce, plaintext, encryptedData)

	expectedTag := c.computeTag(nonce, plaintext, aad)

	if subtle.ConstantTimeCompare(receivedTag, expectedTag[:c.tagSize]) != 1 {
		return nil, ErrAESCCMAuthFailed
	}

	return plaintext, nil
}

// computeTag computes the CBC-MAC authentication tag (RFC 3610 Section 2.2).
func (c *AESCCM) computeTag(nonce, plaintext, aad []byte) []byte {
	var b0 [aesBlockSize]byte
	flags := byte(0)
	if len(aad) > 0 {
		flags |= 1 << 6
	}
	flags |= byte((c.tagSize-2)/2) << 3
	flags |= byte(c.lenSize - 1)

	b0[0] = flags
	copy(b0[1:1+CCMNonceSize], nonce)
	c.putLength(b0[1+CCMNonceSize:], len(plaintext))

	mac := make([]byte, aesBlockSize)
	c.block.Encrypt(mac, b0[:])

	if len(aad) > 0 {
		var aadBlock [aesBlockSize]byte
		aadLen := len(aad)
		var headerLen int

		if aadLen < (1<<16)-(1<<8) {
			binary.BigEndian.PutUint16(aadBlock[0:2], uint16(aadLen))
			headerLen = 2
		} else if aadLen < (1 << 32) {
			aadBlock[0] = 0xFF
			aadBlock[1] = 0xFE
			binary.BigEndian.PutUint32(aadBlock[2:6], uint32(aadLen))
			headerLen = 6
		} else {
			aadBlock[0] = 0xFF
			aadBlock[1] = 0xFF
			binary.BigEndian.PutUint64(aadBlock[2:10], uint64(aadLen))
			headerLen = 10
		}

		firstBlockAAD := aesBlockSize - headerLen
		if firstBlockAAD > len(aad) {
			firstBlockAAD = len(aad)
		}
		copy(aadBlock[headerLen:], aad[:firstBlockAAD])

		for i := 0; i < aesBlockSize; i++ {
			mac[i] ^= aadBlock[i]
		}
		c.block.Encrypt(mac, mac)

		remaining := aad[firstBlockAAD:]
		for len(remaining) > 0 {
			var block [aesBlockSize]byte
			n := copy(block[:], remaining)
			remaining = remaining[n:]
			for i := 0; i < aesBlockSize; i++ {
				mac[i] ^= block[i]
			}
			c.block.Encrypt(mac, mac)
		}
	}

	remaining := plaintext
	for len(remaining) > 0 {
		var block [aesBlockSize]byte
		n := copy(block[:], remaining)
		remaining = remaining[n:]
		for i := 0; i < aesBlockSize; i++ {
			mac[i] ^= block[i]
		}
		c.block.Encrypt(mac, mac)
	}

	return mac[:c.tagSize]
}

// generateS0 computes S_0 = E(K, A_0), the keystream block that masks the tag.
func (c *AESCCM) generateS0(nonce []byte) []byte {
	var a0 [aesBlockSize]byte
	a0[0] = byte(c.lenSize - 1)
	copy(a0[1:1+CCMNonceSize], nonce)

	s0 := make([]byte, aesBlockSize)
	c.block.Encrypt(s0, a0[:])
	return s0
}

// ctrCrypt runs CTR mode starting from counter 1 (NIST 800-38C Appendix A.3).
func (c *AESCCM) ctrCrypt(nonce []byte, dst, src []byte) {
	var ctr [aesBlockSize]byte
	ctr[0] = byte(c.lenSize - 1)
	copy(ctr[1:1+CCMNonceSize], nonce)
	ctr[aesBlockSize-1] = 1

	var keystream [aesBlockSize]byte
	for i := 0; i < len(src); i += aesBlockSize {
		c.block.Encrypt(keystream[:], ctr[:])

		end := i + aesBlockSize
		if end > len(src) {
			end = len(src)
		}
		for j := i; j < end; j++ {
			dst[j] = src[j] ^ keystream[j-i]
		}

		incrementCounter(ctr[aesBlockSize-c.lenSize:])
	}
}

func (c *AESCCM) putLength(dst []byte, length int) {
	for i := c.lenSize - 1; i >= 0; i-- {
		dst[i] = byte(length)
		length >>= 8
	}
}

func incrementCounter(ctr []byte) {
	for i := len(ctr) - 1; i >= 0; i-- {
		ctr[i]++
		if ctr[i] != 0 {
			break
		}
	}
}

// SealCCM encrypts plaintext under key/nonce with the requested MIC length
// and empty associated data. This is the `aes_ccm` primitive from the mesh
// profile used directly by the network and provisioning layers.
func SealCCM(key, nonce, plaintext []byte, tagSize int) ([]byte, error) {
	ccm, err := NewAESCCM(key, tagSize)
	if err != nil {
		return nil, err
	}
	return ccm.Seal(nonce, plaintext, nil)
}

// OpenCCM decrypts ciphertext||MIC under key/nonce with empty associated
// data, verifying the MIC of the requested length.
func OpenCCM(key, nonce, ciphertext []byte, tagSize int) ([]byte, error) {
	ccm, err := NewAESCCM(key, tagSize)
	if err != nil {
		return nil, err
	}
	return ccm.Open(nonce, ciphertext, nil)
}
