package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Signer signs serialized Solana transactions with the wallet keypair. Venue
// APIs return unsigned transactions with the fee payer in the first signature
// slot; Signer fills that slot.
type Signer struct {
	key ed25519.PrivateKey
}

// NewSigner creates a Signer for the given keypair.
func NewSigner(key ed25519.PrivateKey) (*Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("crypto: private key is %d bytes, want %d", len(key), ed25519.PrivateKeySize)
	}
	return &Signer{key: key}, nil
}

// PublicKey returns the wallet address in base58.
func (s *Signer) PublicKey() string {
	return base58.Encode(s.key.Public().(ed25519.PublicKey))
}

// SignTransaction takes a base64 serialized transaction, signs its message
// with the wallet key into the fee-payer slot, and returns the signed
// transaction in base64 together with the base58 signature.
//
// Wire layout: a compact-u16 signature count, then count 64-byte signatures,
// then the message bytes. Only the message is signed.
func (s *Signer) SignTransaction(txBase64 string) (signedBase64, signature string, err error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", "", fmt.Errorf("crypto: decode transaction: %w", err)
	}

	numSigs, sigOffset, err := readCompactU16(raw)
	if err != nil {
		return "", "", fmt.Errorf("crypto: parse transaction: %w", err)
	}
	if numSigs < 1 {
		return "", "", errors.New("crypto: transaction reserves no signature slots")
	}
	msgOffset := sigOffset + numSigs*ed25519.SignatureSize
	if msgOffset >= len(raw) {
		return "", "", errors.New("crypto: transaction shorter than its signature table")
	}

	sig := ed25519.Sign(s.key, raw[msgOffset:])
	copy(raw[sigOffset:sigOffset+ed25519.SignatureSize], sig)

	return base64.StdEncoding.EncodeToString(raw), base58.Encode(sig), nil
}

// readCompactU16 decodes the Solana compact-u16 length prefix, returning the
// value and the number of bytes consumed.
func readCompactU16(raw []byte) (value, n int, err error) {
	for shift := 0; n < 3; shift += 7 {
		if n >= len(raw) {
			return 0, 0, errors.New("truncated compact-u16")
		}
		b := raw[n]
		n++
		value |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, n, nil
		}
	}
	return 0, 0, errors.New("compact-u16 too long")
}
