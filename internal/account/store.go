package account

import (
	"context"

	"github.com/google/uuid"

	"github.com/cleanyhq/cleany/internal/email"
)

// Filter is used to filter accounts.
// Returned accounts must match all the provided fields.
// If a field is empty or nil, it's ignored.
type Filter struct {
	IDs       []uuid.UUID
	Kinds     []Kind
	Emails    []email.Address
	Activated *bool
}

// Store provides access to the account store.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)

	// FindAccounts queries outside of a transaction. Used by read-only
	// operations that should not take the write lock.
	FindAccounts(ctx context.Context, filter *Filter) ([]Account, error)
}

// Tx is a transaction. If an error occurs on any of the Create/Update/Find
// methods, the transaction is considered to have failed and should be
// rolled back. Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	CreateAccount(a *Account) error
	UpdateAccount(a *Account) error
	FindAccounts(filter *Filter) ([]Account, error)
}
