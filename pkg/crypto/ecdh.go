package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"fmt"
)

// P-256 constants for the provisioning layer's public-key exchange.
const (
	// P256PrivateKeySizeBytes is the raw scalar size.
	P256PrivateKeySizeBytes = 32

	// P256CoordinateSizeBytes is the size of each of X and Y.
	P256CoordinateSizeBytes = 32

	// p256UncompressedSizeBytes is 0x04 || X || Y as produced by crypto/ecdh.
	p256UncompressedSizeBytes = 65
)

var ErrInvalidPublicKey = errors.New("crypto: invalid P-256 public key")

// P256KeyPair is an ephemeral ECDH key pair generated for one provisioning
// session (mesh profile Section 3.5: provisioner and device each generate
// one NIST P-256 key pair for the exchange phase).
type P256KeyPair struct {
	priv *ecdh.PrivateKey
}

// GenerateP256KeyPair generates a new ephemeral P-256 key pair.
func GenerateP256KeyPair() (*P256KeyPair, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate P-256 key: %w", err)
	}
	return &P256KeyPair{priv: priv}, nil
}

// PublicXY returns the public key's X and Y coordinates, 32 bytes each,
// in the order the provisioning PDU transmits them (0x03 || X || Y).
func (kp *P256KeyPair) PublicXY() (x, y []byte) {
	pub := kp.priv.PublicKey().Bytes()
	return pub[1:33], pub[33:65]
}

// ECDHSharedX computes the ECDH shared secret with a peer's public key,
// given as separate X and Y coordinates, and returns only the X coordinate
// (32 bytes). The mesh profile defines the shared secret as x-only.
func (kp *P256KeyPair) ECDHSharedX(peerX, peerY []byte) ([]byte, error) {
	if len(peerX) != P256CoordinateSizeBytes || len(peerY) != P256CoordinateSizeBytes {
		return nil, ErrInvalidPublicKey
	}

	raw := make([]byte, p256UncompressedSizeBytes)
	raw[0] = 0x04
	copy(raw[1:33], peerX)
	copy(raw[33:65], peerY)

	peerPub, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	secret, err := kp.priv.ECDH(peerPub)
	if err != nil {
		return nil, fmt.Errorf("crypto: ECDH: %w", err)
	}

	return secret, nil
}
