package krypto

import (
	"encoding/hex"
	"errors"
	"log/slog"
)

const (
	// tokenLen is the number of random bytes in a token, 32 bytes is
	// 256 bits of entropy.
	tokenLen = 32
)

var ErrInvalidToken = errors.New("invalid token")

// Token is a random token that is sent to an account holder out-of-band,
// usually via email. Presenting it back is proof of control over that
// channel.
//
// The only time a token should be provided in plaintext is as part of
// the outbound message. Tokens are confidential and should never be
// exposed in logs or persisted in plaintext, only their digests are
// ever stored.
type Token [tokenLen]byte

// GenerateToken creates a new random token.
//
// It panics if the operating system randomness source fails. That is the
// single unrecoverable condition in this package: continuing would
// silently hand out guessable tokens.
func GenerateToken() Token {
	b, err := genRandomBytes(tokenLen)
	if err != nil {
		panic(err)
	}
	return [tokenLen]byte(b)
}

// ParseToken parses a token from its hex representation.
func ParseToken(raw string) (Token, error) {
	if len(raw) != tokenLen*2 {
		return [tokenLen]byte{}, ErrInvalidToken
	}

	b, err := hex.DecodeString(raw)
	if err != nil {
		return [tokenLen]byte{}, ErrInvalidToken
	}

	return [tokenLen]byte(b), nil
}

// String returns the hex representation of the token. As opposed to a
// Password this is allowed, we need to embed tokens in emails.
func (t Token) String() string {
	return hex.EncodeToString(t[:])
}

// LogValue implements the slog.Valuer interface.
func (t Token) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}
