package db

import (
	"database/sql"

	"github.com/cleanyhq/cleany/internal/account"
)

type Tx struct {
	tx    *sql.Tx
	store *Store
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// CreateAccount creates an account in the database.
func (t *Tx) CreateAccount(a *account.Account) error {
	return insertAccount(t.store.newQuery(), t.tx.Exec, a)
}

// UpdateAccount updates an account in the database.
// It returns errorz.ErrNotFound if no account is found.
func (t *Tx) UpdateAccount(a *account.Account) error {
	return updateAccount(t.store.newQuery(), t.tx.Exec, a)
}

// FindAccounts queries for accounts based on the provided filter.
// It returns an empty slice if no accounts are found.
func (t *Tx) FindAccounts(filter *account.Filter) ([]account.Account, error) {
	return selectAccounts(t.store.newQuery(), t.tx.Query, filter)
}
