// Package auth verifies admin credentials against Argon2id password hashes
// stored in PHC string format.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/newsletter/internal/secret"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters used for newly created hashes.
const (
	DefaultMemory      uint32 = 19 * 1024
	DefaultIterations  uint32 = 2
	DefaultParallelism uint8  = 1
	DefaultSaltLength         = 16
	DefaultKeyLength          = 32
)

var (
	// ErrInvalidHash means the stored hash is not an Argon2id PHC string.
	ErrInvalidHash = errors.New("invalid argon2id PHC hash")
	// ErrPasswordMismatch means the password does not produce the stored hash.
	ErrPasswordMismatch = errors.New("password does not match")
)

var b64 = base64.RawStdEncoding

// Params are the Argon2id cost parameters embedded in a PHC string.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
}

// phcHash is a parsed "$argon2id$v=19$m=..,t=..,p=..$salt$key" string.
type phcHash struct {
	params Params
	salt   []byte
	key    []byte
}

func parsePHC(encoded string) (*phcHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 5 segments", ErrInvalidHash)
	}
	if parts[1] != "argon2id" {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("%w: version: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidHash, version)
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return nil, fmt.Errorf("%w: params: %v", ErrInvalidHash, err)
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return nil, fmt.Errorf("%w: zero cost parameter", ErrInvalidHash)
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("%w: key: %v", ErrInvalidHash, err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidHash)
	}

	return &phcHash{params: p, salt: salt, key: key}, nil
}

// VerifyPassword checks supplied against the PHC-encoded expected hash using
// the cost parameters stored in the hash.
func VerifyPassword(expected, supplied secret.Value) error {
	h, err := parsePHC(expected.ExposeString())
	if err != nil {
		return err
	}

	got := argon2.IDKey(supplied.Expose(), h.salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, uint32(len(h.key)))
	if subtle.ConstantTimeCompare(got, h.key) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

// HashPassword returns a PHC string for password using the default parameters
// and a random salt.
func HashPassword(password secret.Value) (secret.Value, error) {
	return HashPasswordWithParams(password, Params{
		Memory:      DefaultMemory,
		Iterations:  DefaultIterations,
		Parallelism: DefaultParallelism,
	})
}

// HashPasswordWithParams is HashPassword with explicit cost parameters.
func HashPasswordWithParams(password secret.Value, p Params) (secret.Value, error) {
	salt := make([]byte, DefaultSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return secret.Value{}, fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey(password.Expose(), salt, p.Iterations, p.Memory, p.Parallelism, DefaultKeyLength)
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key))

	return secret.New(encoded), nil
}
