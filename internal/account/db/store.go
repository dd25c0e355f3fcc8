package db

import (
	"context"
	"database/sql"

	"github.com/cleanyhq/cleany/internal/account"
	"github.com/cleanyhq/cleany/internal/db"
	"github.com/cleanyhq/cleany/internal/krypto"
)

// Store is responsible for persisting accounts in a SQLite database.
//
// Email addresses are encrypted at rest. Lookups by email go through a
// blind index column, a deterministic keyed hash of the address.
type Store struct {
	writeDB       *sql.DB
	readDB        *sql.DB
	encryptor     *krypto.Encryptor
	blindIndexKey krypto.Key
	hashParams    krypto.Argon2Params
}

// New creates a new Store. The write and read handles may be the same
// *sql.DB, but production setups open them with different options.
func New(writeDB, readDB *sql.DB, encryptor *krypto.Encryptor, blindIndexKey krypto.Key, hashParams krypto.Argon2Params) *Store {
	return &Store{
		writeDB:       writeDB,
		readDB:        readDB,
		encryptor:     encryptor,
		blindIndexKey: blindIndexKey,
		hashParams:    hashParams,
	}
}

func (s *Store) newQuery() db.Query {
	return db.Query{
		Encryptor:     s.encryptor,
		BlindIndexKey: s.blindIndexKey,
		HashParams:    s.hashParams,
	}
}

// BeginTx starts a new transaction on the write handle.
func (s *Store) BeginTx(ctx context.Context) (account.Tx, error) {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{
		tx:    tx,
		store: s,
	}, nil
}

// FindAccounts queries for accounts outside of a transaction, using the
// read handle.
func (s *Store) FindAccounts(ctx context.Context, filter *account.Filter) ([]account.Account, error) {
	return selectAccounts(s.newQuery(), func(query string, params ...any) (*sql.Rows, error) {
		return s.readDB.QueryContext(ctx, query, params...)
	}, filter)
}
