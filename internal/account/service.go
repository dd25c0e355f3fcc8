package account

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cleanyhq/cleany/internal/email"
	"github.com/cleanyhq/cleany/internal/errorz"
	"github.com/cleanyhq/cleany/internal/krypto"
)

var (
	ErrDuplicateAccount = errors.New("duplicate account")
)

// Emailer is used to send templated emails.
type Emailer interface {
	Send(ctx context.Context, template string, to email.Address, data any) error
}

// ErrFunc is a function that handles errors from worker goroutines.
type ErrFunc func(error)

// ServiceConfig is the configuration for the Service.
type ServiceConfig struct {
	// WorkerTimeout is the max duration worker goroutines are allowed
	// to take before they are cancelled.
	WorkerTimeout time.Duration
	// ResetTokenExpiry is the duration a password reset token is valid,
	// measured from the moment it was issued. No sliding window.
	ResetTokenExpiry time.Duration
	// HashParams are the argon2id cost parameters for all digests created
	// by the service. Provided once at construction, production and test
	// environments inject different costs here.
	HashParams krypto.Argon2Params
	// BaseURL is the public base URL embedded in token links.
	BaseURL *url.URL
}

// Service provides the credential lifecycle rules shared by all account
// kinds: activation of new accounts, password logins with an optional
// remember capability, and time-bounded password resets.
//
// The service holds no mutable state of its own, every operation is a
// function of its inputs and the stored account record. Concurrent
// operations on the same account resolve as last-write-wins in the store.
type Service struct {
	store      Store
	emailer    Emailer
	wg         *sync.WaitGroup
	errHandler ErrFunc
	cfg        ServiceConfig

	// comparisonHash is used to burn a comparison when no account was
	// found, so response timing does not reveal whether one exists.
	comparisonHash krypto.Argon2Hash

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store, emailer Emailer, errHandler ErrFunc, cfg ServiceConfig) (*Service, error) {
	tok := krypto.GenerateToken()

	hash, err := krypto.HashArgon2(tok[:], cfg.HashParams)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		store:          s,
		emailer:        emailer,
		wg:             &sync.WaitGroup{},
		errHandler:     errHandler,
		cfg:            cfg,
		comparisonHash: hash,
		NowFunc:        time.Now,
	}

	return svc, nil
}

// Wait waits for all open workers to finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Draft is the input for registering a new account.
type Draft struct {
	Kind     Kind
	Name     string
	Email    email.Address
	Password Password
}

func (d Draft) validate() error {
	var errs []error
	if _, err := ParseKind(string(d.Kind)); err != nil {
		errs = append(errs, errorz.Keyed{Key: "kind", Err: err})
	}
	if d.Name == "" {
		errs = append(errs, errorz.Keyed{Key: "name", Err: errors.New("is required")})
	}
	if len(errs) > 0 {
		return errorz.InvalidInput(errs)
	}
	return nil
}

// Register registers a new account with the provided draft.
//
// The main work of this method is done in a separate goroutine. The
// returned error does not indicate whether an account was actually
// created. This is by design to prevent information leakage.
func (s *Service) Register(_ context.Context, d Draft) error {
	if err := d.validate(); err != nil {
		return err
	}

	// Hash the password before starting the worker, callers should see
	// validation errors synchronously.
	pwdHash, err := d.Password.Hash(s.cfg.HashParams)
	if err != nil {
		return err
	}

	// The actual work is done in a separate goroutine to prevent:
	// - Waiting for the email to be sent slowing down the response.
	// - Information leakage. Timing differences between existing and
	//   non-existing accounts could enable enumeration attacks.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		wCtx, cancel := context.WithTimeout(context.Background(), s.cfg.WorkerTimeout)
		defer cancel()

		if err := s.startActivation(wCtx, d, pwdHash); err != nil {
			s.errHandler(err)
		}
	}()

	return nil
}

// startActivation creates the account record with its activation digest
// and emails an activation link to the address.
//
// The activation digest is written exactly once here. It is never rotated
// or re-issued: if an account with the same kind and email already exists,
// ErrDuplicateAccount is reported regardless of its activation state.
func (s *Service) startActivation(ctx context.Context, d Draft, pwdHash krypto.Argon2Hash) error {
	now := s.NowFunc()

	token := krypto.GenerateToken()

	activationHash, err := krypto.HashArgon2(token[:], s.cfg.HashParams)
	if err != nil {
		return err
	}

	acc := Account{
		ID:             uuid.New(),
		Kind:           d.Kind,
		Name:           d.Name,
		Email:          d.Email,
		PasswordHash:   pwdHash,
		Activated:      false,
		ActivationHash: activationHash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.inTx(ctx, func(tx Tx) error {
		existing, txErr := tx.FindAccounts(&Filter{
			Kinds:  []Kind{d.Kind},
			Emails: []email.Address{d.Email},
		})
		if txErr != nil {
			return txErr
		}

		if len(existing) > 0 {
			return ErrDuplicateAccount
		}

		return tx.CreateAccount(&acc)
	})
	if err != nil {
		return err
	}

	// Sending could fail independently of the transaction. This is an
	// acceptable risk for now: the account holder can ask support to
	// remove the record and register again. If that becomes unacceptable
	// we need to consider some kind of outbox pattern.
	return s.emailer.Send(ctx, "account-activation", acc.Email, TokenLink{
		Name: acc.Name,
		URL:  s.tokenURL("activations", acc, token),
	})
}

// TokenLink is the data rendered into token-bearing emails.
type TokenLink struct {
	Name string
	URL  string
}

// tokenURL builds the link embedded in an outbound email. This is the only
// place a plaintext token leaves the service.
func (s *Service) tokenURL(path string, acc Account, token krypto.Token) string {
	q := url.Values{
		"kind":  {string(acc.Kind)},
		"email": {string(acc.Email)},
		"token": {token.String()},
	}

	u := s.cfg.BaseURL.JoinPath(path)
	u.RawQuery = q.Encode()
	return u.String()
}

// ActivateRequest identifies an account and carries the candidate
// activation token.
type ActivateRequest struct {
	Kind  Kind
	Email email.Address
	Token krypto.Token
}

// ActivateResult reports the outcome of an activation.
type ActivateResult struct {
	// AlreadyActivated is true when the account was in the activated
	// state before this call. Re-activation is a benign no-op, not an
	// error.
	AlreadyActivated bool
}

// Activate attempts to move an account from unactivated to activated.
// The transition is one-way, there is no path back.
//
// It returns errorz.ErrNotFound if no account matches the request and
// errorz.ErrUnauthenticated if the token does not match the activation
// digest. Neither may be surfaced verbatim to unauthenticated callers.
func (s *Service) Activate(ctx context.Context, req ActivateRequest) (ActivateResult, error) {
	var result ActivateResult

	err := s.inTx(ctx, func(tx Tx) error {
		accounts, err := tx.FindAccounts(&Filter{
			Kinds:  []Kind{req.Kind},
			Emails: []email.Address{req.Email},
		})
		if err != nil {
			return err
		}

		if len(accounts) != 1 {
			return fmt.Errorf("no account for activation request: %w", errorz.ErrNotFound)
		}

		acc := accounts[0]

		if acc.Activated {
			// Terminal state, nothing to do and nothing to reject.
			result.AlreadyActivated = true
			return nil
		}

		if !acc.ActivationHash.MatchBytes(req.Token[:]) {
			return fmt.Errorf("activation token mismatch: %w", errorz.ErrUnauthenticated)
		}

		now := s.NowFunc()
		acc.Activated = true
		acc.ActivatedAt = &now
		acc.UpdatedAt = now

		return tx.UpdateAccount(&acc)
	})

	return result, err
}

// Credentials identify an account by kind and email and carry its login
// secret.
type Credentials struct {
	Kind     Kind
	Email    email.Address
	Password Password
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Account Account
	// RememberToken is only set when the login asked to be remembered.
	// Its digest has been stored, the plaintext goes into a client-held
	// credential and is never persisted.
	RememberToken *krypto.Token
}

// Login checks the provided credentials and, when remember is true, issues
// a remember token whose digest replaces any previously stored one.
//
// All failures surface as errorz.ErrUnauthenticated: an unknown account, a
// wrong password and a not-yet-activated account are indistinguishable to
// the caller.
func (s *Service) Login(ctx context.Context, c Credentials, remember bool) (LoginResult, error) {
	accounts, err := s.store.FindAccounts(ctx, &Filter{
		Kinds:  []Kind{c.Kind},
		Emails: []email.Address{c.Email},
	})
	if err != nil {
		return LoginResult{}, err
	}

	if len(accounts) != 1 {
		// Even if no account is found we compare against a hash, so
		// response timing does not reveal whether the account exists.
		_ = c.Password.Match(s.comparisonHash)
		return LoginResult{}, fmt.Errorf("no such account: %w", errorz.ErrUnauthenticated)
	}

	acc := accounts[0]

	if !c.Password.Match(acc.PasswordHash) {
		return LoginResult{}, fmt.Errorf("password mismatch: %w", errorz.ErrUnauthenticated)
	}

	if !acc.Activated {
		return LoginResult{}, fmt.Errorf("account not activated: %w", errorz.ErrUnauthenticated)
	}

	result := LoginResult{Account: acc}

	if remember {
		token, err := s.remember(ctx, &acc)
		if err != nil {
			return LoginResult{}, err
		}
		result.Account = acc
		result.RememberToken = &token
	}

	return result, nil
}

// remember issues a new remember token for the account and stores its
// digest, replacing any previous one. The digest is hashed before the
// transaction starts, hashing is slow and must not hold the write lock.
func (s *Service) remember(ctx context.Context, acc *Account) (krypto.Token, error) {
	token := krypto.GenerateToken()

	hash, err := krypto.HashArgon2(token[:], s.cfg.HashParams)
	if err != nil {
		return krypto.Token{}, err
	}

	err = s.inTx(ctx, func(tx Tx) error {
		acc.RememberHash = &hash
		acc.UpdatedAt = s.NowFunc()
		return tx.UpdateAccount(acc)
	})
	if err != nil {
		return krypto.Token{}, err
	}

	return token, nil
}

// ResumeSession authenticates a client-held remember token against the
// stored remember digest. There is no expiry on remember tokens, validity
// is solely "digest still present and matches".
func (s *Service) ResumeSession(ctx context.Context, id uuid.UUID, token krypto.Token) (Account, error) {
	accounts, err := s.store.FindAccounts(ctx, &Filter{
		IDs: []uuid.UUID{id},
	})
	if err != nil {
		return Account{}, err
	}

	if len(accounts) != 1 {
		return Account{}, fmt.Errorf("no such account: %w", errorz.ErrUnauthenticated)
	}

	acc := accounts[0]

	if !authenticated(acc.RememberHash, token) {
		return Account{}, fmt.Errorf("remember token mismatch: %w", errorz.ErrUnauthenticated)
	}

	return acc, nil
}

// Logout clears the remember digest for the account, immediately and
// permanently invalidating any outstanding remember token. There is no
// grace period.
func (s *Service) Logout(ctx context.Context, id uuid.UUID) error {
	return s.inTx(ctx, func(tx Tx) error {
		accounts, err := tx.FindAccounts(&Filter{
			IDs: []uuid.UUID{id},
		})
		if err != nil {
			return err
		}

		if len(accounts) != 1 {
			return fmt.Errorf("no account to log out: %w", errorz.ErrNotFound)
		}

		acc := accounts[0]
		acc.RememberHash = nil
		acc.UpdatedAt = s.NowFunc()

		return tx.UpdateAccount(&acc)
	})
}

// RequestPasswordReset requests a password reset for the account with the
// provided kind and email address. Similar to Register, the main work is
// done in a separate goroutine and no output is returned that would reveal
// whether the account exists. The caller always reports "check your mail".
func (s *Service) RequestPasswordReset(_ context.Context, kind Kind, addr email.Address) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		wCtx, cancel := context.WithTimeout(context.Background(), s.cfg.WorkerTimeout)
		defer cancel()

		if err := s.startPasswordReset(wCtx, kind, addr); err != nil {
			s.errHandler(err)
		}
	}()
}

func (s *Service) startPasswordReset(ctx context.Context, kind Kind, addr email.Address) error {
	now := s.NowFunc()

	token := krypto.GenerateToken()

	resetHash, err := krypto.HashArgon2(token[:], s.cfg.HashParams)
	if err != nil {
		return err
	}

	var acc Account
	err = s.inTx(ctx, func(tx Tx) error {
		accounts, txErr := tx.FindAccounts(&Filter{
			Kinds:     []Kind{kind},
			Emails:    []email.Address{addr},
			Activated: ptr(true),
		})
		if txErr != nil {
			return txErr
		}

		if len(accounts) != 1 {
			return fmt.Errorf("no account for reset request: %w", errorz.ErrNotFound)
		}

		acc = accounts[0]

		// Both fields move together, a reset digest without its
		// issuance time would be unexpirable.
		acc.ResetHash = &resetHash
		acc.ResetSentAt = &now
		acc.UpdatedAt = now

		return tx.UpdateAccount(&acc)
	})
	if err != nil {
		return err
	}

	// Like in startActivation, a failed send is an acceptable risk, the
	// account holder can simply request another reset.
	return s.emailer.Send(ctx, "password-reset-request", acc.Email, TokenLink{
		Name: acc.Name,
		URL:  s.tokenURL("password-resets", acc, token),
	})
}

// ResetRequest identifies an account and carries the candidate reset token.
type ResetRequest struct {
	Kind  Kind
	Email email.Address
	Token krypto.Token
}

// ValidateResetToken runs the reset gates without mutating anything. It is
// meant for the step where the caller shows the "choose a new password"
// form before actually updating.
//
// The returned errors distinguish the failing gate for operators and logs:
// errorz.ErrNotFound (unknown account), errorz.ErrUnauthenticated (account
// not activated or token mismatch) and errorz.ErrExpired (reset window
// elapsed). Callers must collapse all three into one generic response for
// unauthenticated clients.
func (s *Service) ValidateResetToken(ctx context.Context, req ResetRequest) error {
	accounts, err := s.store.FindAccounts(ctx, &Filter{
		Kinds:  []Kind{req.Kind},
		Emails: []email.Address{req.Email},
	})
	if err != nil {
		return err
	}

	if len(accounts) != 1 {
		return fmt.Errorf("no account for reset validation: %w", errorz.ErrNotFound)
	}

	return s.resetGates(accounts[0], req.Token)
}

// resetGates evaluates the reset gates in their required order:
// activated and token matches, then the expiry window.
func (s *Service) resetGates(acc Account, token krypto.Token) error {
	if !acc.Activated || acc.ResetSentAt == nil || !authenticated(acc.ResetHash, token) {
		return fmt.Errorf("reset token rejected: %w", errorz.ErrUnauthenticated)
	}

	if s.NowFunc().Sub(*acc.ResetSentAt) > s.cfg.ResetTokenExpiry {
		return fmt.Errorf("reset token issued at %s: %w", acc.ResetSentAt, errorz.ErrExpired)
	}

	return nil
}

// CompleteReset sets a new password if the reset token passes all gates.
// On success the reset digest is cleared, making the token single-use: a
// second attempt with the same token fails with errorz.ErrUnauthenticated.
func (s *Service) CompleteReset(ctx context.Context, req ResetRequest, newPassword Password) error {
	if len(newPassword.plain) == 0 {
		// Reject before any lookup or mutation.
		return fmt.Errorf("new password: %w", ErrInvalidPassword)
	}

	// Hash outside the transaction, hashing is deliberately slow.
	pwdHash, err := newPassword.Hash(s.cfg.HashParams)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx Tx) error {
		accounts, err := tx.FindAccounts(&Filter{
			Kinds:  []Kind{req.Kind},
			Emails: []email.Address{req.Email},
		})
		if err != nil {
			return err
		}

		if len(accounts) != 1 {
			return fmt.Errorf("no account for reset: %w", errorz.ErrNotFound)
		}

		acc := accounts[0]

		if err := s.resetGates(acc, req.Token); err != nil {
			return err
		}

		acc.PasswordHash = pwdHash
		acc.ResetHash = nil
		acc.ResetSentAt = nil
		acc.UpdatedAt = s.NowFunc()

		return tx.UpdateAccount(&acc)
	})
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	return tx.Commit()
}

func ptr[T any](v T) *T {
	return &v
}
