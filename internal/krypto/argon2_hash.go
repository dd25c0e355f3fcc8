package krypto

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen   = 16
	digestLen = 32

	argon2Variant = "argon2id"
)

var ErrInvalidArgon2Hash = errors.New("invalid argon2 hash")

// Argon2Params are the cost parameters for the argon2id algorithm. They
// control how expensive it is to brute-force a leaked digest.
//
// The parameters are provided explicitly by the caller, there is no hidden
// global configuration. Production code should use InteractiveArgon2Params,
// tests can use MinArgon2Params to stay fast.
type Argon2Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

// InteractiveArgon2Params returns cost parameters suitable for interactive
// logins, following the OWASP recommendation for argon2id.
func InteractiveArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryKiB:   47104,
		Iterations:  1,
		Parallelism: 1,
	}
}

// MinArgon2Params returns the cheapest parameters the argon2id algorithm
// accepts. Only meant for automated tests.
func MinArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryKiB:   8,
		Iterations:  1,
		Parallelism: 1,
	}
}

// Argon2Hash is a salted argon2id digest of a secret. It is one-way, the
// secret is never recovered from it.
//
// Because every digest embeds its own random salt, hashing the same input
// twice yields different digests. Digests are therefore never compared
// with string equality, use MatchBytes.
type Argon2Hash struct {
	Variant     string
	Version     int
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	Salt        []byte
	Hash        []byte
}

// HashArgon2 hashes data using the argon2id algorithm with a random salt
// and the provided cost parameters.
func HashArgon2(data []byte, p Argon2Params) (Argon2Hash, error) {
	salt, err := genRandomBytes(saltLen)
	if err != nil {
		return Argon2Hash{}, err
	}

	return hashWithSalt(data, salt, p), nil
}

// HashArgon2WithKey hashes data using the key as a deterministic salt.
// The same (data, key) pair always yields the same digest, which makes the
// result usable as a blind index for lookups. The cost of that determinism
// is that equal inputs are recognizable, so only use this where that is
// acceptable.
func HashArgon2WithKey(data []byte, key Key, p Argon2Params) (Argon2Hash, error) {
	if len(key.value) == 0 {
		return Argon2Hash{}, ErrInvalidKey
	}

	return hashWithSalt(data, key.value, p), nil
}

func hashWithSalt(data, salt []byte, p Argon2Params) Argon2Hash {
	hash := argon2.IDKey(data, salt, p.Iterations, p.MemoryKiB, p.Parallelism, digestLen)

	return Argon2Hash{
		Variant:     argon2Variant,
		Version:     argon2.Version,
		MemoryKiB:   p.MemoryKiB,
		Iterations:  p.Iterations,
		Parallelism: p.Parallelism,
		Salt:        salt,
		Hash:        hash,
	}
}

// MatchBytes reports if data hashes to the same digest using the salt and
// cost parameters embedded in h. The comparison is constant-time.
//
// Matching uses the parameters stored in h, not the current configuration,
// so digests created with older cost settings keep matching.
func (h Argon2Hash) MatchBytes(data []byte) bool {
	if h.Variant != argon2Variant || h.Version != argon2.Version {
		return false
	}

	candidate := argon2.IDKey(data, h.Salt, h.Iterations, h.MemoryKiB, h.Parallelism, uint32(len(h.Hash)))
	return subtle.ConstantTimeCompare(candidate, h.Hash) == 1
}

// ParseArgon2Hash parses a hash in the PHC string format:
// $argon2id$v=19$m=47104,t=1,p=1$<base64 salt>$<base64 hash>
func ParseArgon2Hash(raw string) (Argon2Hash, error) {
	parts := strings.Split(raw, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Argon2Hash{}, fmt.Errorf("%w: wrong number of segments", ErrInvalidArgon2Hash)
	}

	h := Argon2Hash{
		Variant: parts[1],
	}

	if h.Variant != argon2Variant {
		return Argon2Hash{}, fmt.Errorf("%w: unsupported variant %q", ErrInvalidArgon2Hash, h.Variant)
	}

	if _, err := fmt.Sscanf(parts[2], "v=%d", &h.Version); err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: malformed version", ErrInvalidArgon2Hash)
	}

	if h.Version != argon2.Version {
		return Argon2Hash{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidArgon2Hash, h.Version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.MemoryKiB, &h.Iterations, &h.Parallelism); err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: malformed cost parameters", ErrInvalidArgon2Hash)
	}

	var err error
	h.Salt, err = base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: malformed salt", ErrInvalidArgon2Hash)
	}

	h.Hash, err = base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: malformed hash", ErrInvalidArgon2Hash)
	}

	return h, nil
}

// String returns the hash in the PHC string format.
func (h Argon2Hash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		h.Variant,
		h.Version,
		h.MemoryKiB,
		h.Iterations,
		h.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Hash),
	)
}

func (h Argon2Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Argon2Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseArgon2Hash(string(text))
	if err != nil {
		return err
	}

	*h = parsed

	return nil
}

// Scan implements the sql.Scanner interface.
func (h *Argon2Hash) Scan(src any) error {
	s, ok := src.(string)
	if !ok {
		return fmt.Errorf("cannot scan %T into Argon2Hash", src)
	}

	return h.UnmarshalText([]byte(s))
}
