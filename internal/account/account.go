package account

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cleanyhq/cleany/internal/email"
	"github.com/cleanyhq/cleany/internal/krypto"
)

// Kind discriminates the three account types. All kinds share the same
// credential lifecycle, an email address is unique within its kind.
type Kind string

const (
	KindUser    Kind = "user"
	KindPartner Kind = "partner"
	KindAdmin   Kind = "admin"
)

var ErrInvalidKind = errors.New("invalid account kind")

// ParseKind parses a kind from a string.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindUser, KindPartner, KindAdmin:
		return Kind(raw), nil
	}
	return Kind(""), ErrInvalidKind
}

// Account contains the credential state for a user, partner or admin.
//
// The three digest fields each govern one flow and are never conflated:
//   - ActivationHash is set once at creation and never rotated. It is
//     consumed by the activation flow but remains stored afterwards.
//   - RememberHash is set on login with remember enabled, cleared on
//     logout and overwritten by a subsequent login.
//   - ResetHash and ResetSentAt are set together on a reset request and
//     cleared together when the reset completes.
//
// Digest fields are only ever populated from values computed by the
// Service, never from caller-supplied input.
type Account struct {
	ID             uuid.UUID
	Kind           Kind
	Name           string
	Email          email.Address
	PasswordHash   krypto.Argon2Hash
	Activated      bool
	ActivatedAt    *time.Time
	ActivationHash krypto.Argon2Hash
	RememberHash   *krypto.Argon2Hash
	ResetHash      *krypto.Argon2Hash
	ResetSentAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// authenticated reports if the candidate token matches the given digest.
//
// This is the single authentication primitive behind the activation,
// remember and reset flows, they differ only in which digest they check.
// A nil digest means the account has no active token of that kind and can
// never be authenticated by that flow.
func authenticated(digest *krypto.Argon2Hash, candidate krypto.Token) bool {
	if digest == nil {
		return false
	}
	return digest.MatchBytes(candidate[:])
}
