// Package crypto provides wallet key management and transaction signing for
// the Solana venues.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	// saltLen is the random salt length in bytes.
	saltLen = 16
	// aesKeyLen is the derived AES-256 key length.
	aesKeyLen = 32
	// currentVersion is the encrypted-key JSON schema version.
	currentVersion = 1
)

// encryptedKeyJSON is the on-disk format for an encrypted wallet seed.
type encryptedKeyJSON struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`       // base64 standard encoding
	Nonce      string `json:"nonce"`      // base64 standard encoding
	Ciphertext string `json:"ciphertext"` // base64 standard encoding
}

// KeyConfig carries the information LoadKeypair needs to resolve the wallet's
// ed25519 seed. Populate the fields from environment variables or the config
// file.
type KeyConfig struct {
	// RawSeed is the hex-encoded 32-byte ed25519 seed (with or without 0x
	// prefix). If non-empty, LoadKeypair uses it directly.
	RawSeed string

	// EncryptedKeyPath is the path to a JSON file produced by EncryptSeed.
	EncryptedKeyPath string

	// KeyPassword decrypts the file at EncryptedKeyPath.
	KeyPassword string
}

// EncryptSeed encrypts a hex-encoded ed25519 seed with a password using
// PBKDF2-HMAC-SHA256 key derivation and AES-256-GCM authenticated encryption.
// It returns the JSON blob suitable for writing to disk.
func EncryptSeed(seedHex, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}

	seed, err := decodeSeed(seedHex)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generating salt: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, seed, nil)

	out := encryptedKeyJSON{
		Version:    currentVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecryptSeed decrypts a JSON blob produced by EncryptSeed, returning the raw
// 32-byte seed.
func DecryptSeed(encryptedJSON []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}

	var stored encryptedKeyJSON
	if err := json.Unmarshal(encryptedJSON, &stored); err != nil {
		return nil, fmt.Errorf("crypto: parsing encrypted key JSON: %w", err)
	}
	if stored.Version != currentVersion {
		return nil, fmt.Errorf("crypto: unsupported version %d", stored.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(stored.Nonce)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding ciphertext: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}

	seed, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.New("crypto: decryption failed (wrong password or corrupted file)")
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypto: decrypted seed is %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	return seed, nil
}

// LoadKeypair resolves the wallet keypair from cfg: a raw hex seed wins, an
// encrypted key file is the fallback. Credentials are validated here, at
// construction time, so a misconfigured wallet fails the process at startup
// instead of on the first trade.
func LoadKeypair(cfg KeyConfig) (ed25519.PrivateKey, error) {
	if cfg.RawSeed != "" {
		seed, err := decodeSeed(cfg.RawSeed)
		if err != nil {
			return nil, err
		}
		return ed25519.NewKeyFromSeed(seed), nil
	}

	if cfg.EncryptedKeyPath == "" {
		return nil, errors.New("crypto: no wallet key configured (set raw seed or encrypted key path)")
	}
	blob, err := os.ReadFile(cfg.EncryptedKeyPath)
	if err != nil {
		return nil, fmt.Errorf("crypto: reading %s: %w", cfg.EncryptedKeyPath, err)
	}
	seed, err := DecryptSeed(blob, cfg.KeyPassword)
	if err != nil {
		return nil, err
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func decodeSeed(seedHex string) ([]byte, error) {
	seedHex = strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid seed hex: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypto: expected %d-byte seed, got %d bytes", ed25519.SeedSize, len(seed))
	}
	return seed, nil
}
