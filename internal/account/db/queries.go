package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/cleanyhq/cleany/internal/account"
	"github.com/cleanyhq/cleany/internal/db"
	"github.com/cleanyhq/cleany/internal/email"
	"github.com/cleanyhq/cleany/internal/errorz"
	"github.com/cleanyhq/cleany/internal/krypto"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)

func insertAccount(q db.Query, ef execFunc, a *account.Account) error {
	if a.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	q.Unsafe(`INSERT INTO accounts (id, kind, name, email_encrypted, email_blind_index, password_hash, activated, activated_at, activation_hash, remember_hash, reset_hash, reset_sent_at, created_at, updated_at) VALUES (`)
	q.Params(a.ID, string(a.Kind), a.Name)
	q.Unsafe(`, `)
	q.ParamEncrypted([]byte(a.Email))
	q.Unsafe(`, `)
	q.ParamBlindIndex([]byte(a.Email))
	q.Unsafe(`, `)
	q.Params(
		a.PasswordHash.String(),
		a.Activated,
		a.ActivatedAt,
		a.ActivationHash.String(),
		nullableHash(a.RememberHash),
		nullableHash(a.ResetHash),
		a.ResetSentAt,
		a.CreatedAt,
		a.UpdatedAt,
	)
	q.Unsafe(`)`)

	s, params, err := q.Get()
	if err != nil {
		return err
	}

	_, err = ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func updateAccount(q db.Query, ef execFunc, a *account.Account) error {
	q.Unsafe(`UPDATE accounts SET `)

	q.Unsafe(`kind = `)
	q.Param(string(a.Kind))

	q.Unsafe(`, name = `)
	q.Param(a.Name)

	q.Unsafe(`, email_encrypted = `)
	q.ParamEncrypted([]byte(a.Email))

	q.Unsafe(`, email_blind_index = `)
	q.ParamBlindIndex([]byte(a.Email))

	q.Unsafe(`, password_hash = `)
	q.Param(a.PasswordHash.String())

	q.Unsafe(`, activated = `)
	q.Param(a.Activated)

	q.Unsafe(`, activated_at = `)
	q.Param(a.ActivatedAt)

	q.Unsafe(`, activation_hash = `)
	q.Param(a.ActivationHash.String())

	q.Unsafe(`, remember_hash = `)
	q.Param(nullableHash(a.RememberHash))

	q.Unsafe(`, reset_hash = `)
	q.Param(nullableHash(a.ResetHash))

	q.Unsafe(`, reset_sent_at = `)
	q.Param(a.ResetSentAt)

	q.Unsafe(`, created_at = `)
	q.Param(a.CreatedAt)

	q.Unsafe(`, updated_at = `)
	q.Param(a.UpdatedAt)

	q.Unsafe(` WHERE id = `)
	q.Param(a.ID)

	s, params, err := q.Get()
	if err != nil {
		return err
	}

	result, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("account not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func selectAccounts(q db.Query, qf queryFunc, f *account.Filter) ([]account.Account, error) {
	q.Unsafe(`SELECT id, kind, name, email_encrypted, password_hash, activated, activated_at, activation_hash, remember_hash, reset_hash, reset_sent_at, created_at, updated_at FROM accounts WHERE 1=1 `)

	if len(f.IDs) > 0 {
		q.Unsafe(`AND id IN (`)
		q.Params(anySlice(f.IDs)...)
		q.Unsafe(`) `)
	}

	if len(f.Kinds) > 0 {
		q.Unsafe(`AND kind IN (`)
		q.Params(anySlice(f.Kinds)...)
		q.Unsafe(`) `)
	}

	if len(f.Emails) > 0 {
		q.Unsafe(`AND email_blind_index IN (`)
		for i, addr := range f.Emails {
			if i > 0 {
				q.Unsafe(`, `)
			}
			q.ParamBlindIndex([]byte(addr))
		}
		q.Unsafe(`) `)
	}

	if f.Activated != nil {
		q.Unsafe(`AND activated = `)
		q.Param(*f.Activated)
	}

	q.Unsafe(` ORDER BY created_at ASC`)

	s, params, err := q.Get()
	if err != nil {
		return nil, err
	}

	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]account.Account, 0)
	for rows.Next() {
		var (
			a            account.Account
			kind         string
			rememberHash sql.NullString
			resetHash    sql.NullString
		)

		emailBytes := q.DecryptionTarget()
		err := rows.Scan(
			&a.ID,
			&kind,
			&a.Name,
			emailBytes,
			&a.PasswordHash,
			&a.Activated,
			&a.ActivatedAt,
			&a.ActivationHash,
			&rememberHash,
			&resetHash,
			&a.ResetSentAt,
			&a.CreatedAt,
			&a.UpdatedAt,
		)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		a.Kind, err = account.ParseKind(kind)
		if err != nil {
			return nil, err
		}

		a.Email, err = email.ParseAddress(string(emailBytes.Data))
		if err != nil {
			return nil, err
		}

		a.RememberHash, err = scanNullableHash(rememberHash)
		if err != nil {
			return nil, err
		}

		a.ResetHash, err = scanNullableHash(resetHash)
		if err != nil {
			return nil, err
		}

		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

// nullableHash maps an optional digest to its SQL value. The digest
// columns are NULL when the corresponding flow has no active token.
func nullableHash(h *krypto.Argon2Hash) any {
	if h == nil {
		return nil
	}
	return h.String()
}

func scanNullableHash(s sql.NullString) (*krypto.Argon2Hash, error) {
	if !s.Valid {
		return nil, nil
	}

	h, err := krypto.ParseArgon2Hash(s.String)
	if err != nil {
		return nil, err
	}

	return &h, nil
}

func anySlice[T any](s []T) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}
