package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for merchant and vendor credentials. Login is a rare
// operation relative to ledger movements, so memory is kept moderate and the
// time cost raised instead.
const (
	argon2Time    = 3
	argon2Memory  = 32 * 1024 // 32MB
	argon2Threads = 2
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// Argon2HashService implements ports.HashService using Argon2id.
type Argon2HashService struct{}

// NewArgon2HashService creates a new Argon2id hash service.
func NewArgon2HashService() *Argon2HashService {
	return &Argon2HashService{}
}

// Hash generates an Argon2id hash of the password.
// Returns format: $argon2id$v=19$m=32768,t=3,p=2$<salt>$<hash>
func (s *Argon2HashService) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks a password against a stored Argon2id hash. The parameters are
// read from the hash itself, so credentials written under earlier parameter
// choices keep verifying after a tuning change.
func (s *Argon2HashService) Verify(password string, encodedHash string) (bool, error) {
	salt, hash, params, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false, err
	}

	otherHash := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, params.keyLen)

	return subtle.ConstantTimeCompare(hash, otherHash) == 1, nil
}

type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

// decodeArgon2Hash parses the encoded hash string.
func decodeArgon2Hash(encodedHash string) (salt, hash []byte, params argon2Params, err error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, params, fmt.Errorf("invalid credential hash: expected 6 parts, got %d", len(parts))
	}

	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	_, err = fmt.Sscanf(parts[2], "v=%d", &version)
	if err != nil {
		return nil, nil, params, fmt.Errorf("parsing version: %w", err)
	}
	if version > argon2.Version {
		return nil, nil, params, fmt.Errorf("argon2 version %d not supported", version)
	}

	_, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads)
	if err != nil {
		return nil, nil, params, fmt.Errorf("parsing params: %w", err)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding salt: %w", err)
	}

	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding hash: %w", err)
	}

	params.keyLen = uint32(len(hash))

	return salt, hash, params, nil
}
