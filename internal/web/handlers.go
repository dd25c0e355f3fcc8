package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/cleanyhq/cleany/internal/account"
	"github.com/cleanyhq/cleany/internal/email"
	"github.com/cleanyhq/cleany/internal/errorz"
	"github.com/cleanyhq/cleany/internal/krypto"
)

const (
	invalidActivationLink = "invalid activation link"
	invalidResetLink      = "invalid or expired reset link"
)

var kindRule = validation.In("user", "partner", "admin")

type registerInput struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (i *registerInput) FromJSON(r io.Reader) error {
	return json.NewDecoder(r).Decode(i)
}

func (i registerInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Kind, validation.Required, kindRule),
		validation.Field(&i.Name, validation.Required, validation.Length(1, 256)),
		validation.Field(&i.Email, validation.Required, is.Email, validation.Length(0, 512)),
		validation.Field(&i.Password, validation.Required, validation.Length(8, 512)),
	)
}

func (i registerInput) draft() (account.Draft, error) {
	kind, err := account.ParseKind(i.Kind)
	if err != nil {
		return account.Draft{}, err
	}

	addr, err := email.ParseAddress(i.Email)
	if err != nil {
		return account.Draft{}, err
	}

	pwd, err := account.ParsePassword(i.Password)
	if err != nil {
		return account.Draft{}, err
	}

	return account.Draft{
		Kind:     kind,
		Name:     i.Name,
		Email:    addr,
		Password: pwd,
	}, nil
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := in.FromJSON(r.Body); err != nil {
		renderError(w, "invalid request data", http.StatusBadRequest)
		return
	}

	if err := in.Validate(); err != nil {
		render(w, err, http.StatusBadRequest)
		return
	}

	draft, err := in.draft()
	if err != nil {
		renderError(w, "invalid request data", http.StatusBadRequest)
		return
	}

	if err := s.deps.Service.Register(r.Context(), draft); err != nil {
		s.logError(r, err)

		var invalid errorz.InvalidInput
		if errors.As(err, &invalid) {
			renderError(w, "invalid request data", http.StatusBadRequest)
			return
		}

		renderInternalError(w)
		return
	}

	// Whether an account was created is decided asynchronously, the
	// response is the same either way.
	render(w, messageResponse{Message: checkInboxMessage}, http.StatusAccepted)
}

type activateInput struct {
	Kind  string `json:"kind"`
	Email string `json:"email"`
	Token string `json:"token"`
}

func (i *activateInput) FromJSON(r io.Reader) error {
	return json.NewDecoder(r).Decode(i)
}

func (i activateInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Kind, validation.Required, kindRule),
		validation.Field(&i.Email, validation.Required, is.Email, validation.Length(0, 512)),
		validation.Field(&i.Token, validation.Required),
	)
}

func (i activateInput) request() (account.ActivateRequest, error) {
	kind, err := account.ParseKind(i.Kind)
	if err != nil {
		return account.ActivateRequest{}, err
	}

	addr, err := email.ParseAddress(i.Email)
	if err != nil {
		return account.ActivateRequest{}, err
	}

	token, err := krypto.ParseToken(i.Token)
	if err != nil {
		return account.ActivateRequest{}, err
	}

	return account.ActivateRequest{
		Kind:  kind,
		Email: addr,
		Token: token,
	}, nil
}

type activateResponse struct {
	AlreadyActivated bool `json:"already_activated"`
}

func (s *Server) activate(w http.ResponseWriter, r *http.Request) {
	var in activateInput
	if err := in.FromJSON(r.Body); err != nil {
		renderError(w, "invalid request data", http.StatusBadRequest)
		return
	}

	if err := in.Validate(); err != nil {
		render(w, err, http.StatusBadRequest)
		return
	}

	req, err := in.request()
	if err != nil {
		renderError(w, invalidActivationLink, http.StatusUnprocessableEntity)
		return
	}

	result, err := s.deps.Service.Activate(r.Context(), req)
	if err != nil {
		s.logError(r, err)

		// An unknown account and a wrong token get the same response.
		if errors.Is(err, errorz.ErrNotFound) || errors.Is(err, errorz.ErrUnauthenticated) {
			renderError(w, invalidActivationLink, http.StatusUnprocessableEntity)
			return
		}

		renderInternalError(w)
		return
	}

	render(w, activateResponse{AlreadyActivated: result.AlreadyActivated}, http.StatusOK)
}

type loginInput struct {
	Kind     string `json:"kind"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

func (i *loginInput) FromJSON(r io.Reader) error {
	return json.NewDecoder(r).Decode(i)
}

func (i loginInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Kind, validation.Required, kindRule),
		validation.Field(&i.Email, validation.Required, is.Email, validation.Length(0, 512)),
		validation.Field(&i.Password, validation.Required, validation.Length(8, 512)),
	)
}

type accountView struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func viewAccount(acc account.Account) accountView {
	return accountView{
		ID:    acc.ID.String(),
		Kind:  string(acc.Kind),
		Name:  acc.Name,
		Email: string(acc.Email),
	}
}

type loginResponse struct {
	Account       accountView `json:"account"`
	RememberToken string      `json:"remember_token,omitempty"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := in.FromJSON(r.Body); err != nil {
		renderError(w, "invalid request data", http.StatusBadRequest)
		return
	}

	if err := in.Validate(); err != nil {
		render(w, err, http.StatusBadRequest)
		return
	}

	kind, err := account.ParseKind(in.Kind)
	if err != nil {
		renderUnauthorized(w)
		return
	}

	addr, err := email.ParseAddress(in.Email)
	if err != nil {
		renderUnauthorized(w)
		return
	}

	pwd, err := account.ParsePassword(in.Password)
	if err != nil {
		renderUnauthorized(w)
		return
	}

	result, err := s.deps.Service.Login(r.Context(), account.Credentials{
		Kind:     kind,
		Email:    addr,
		Password: pwd,
	}, in.Remember)
	if err != nil {
		s.logError(r, err)

		if errors.Is(err, errorz.ErrUnauthenticated) {
			renderUnauthorized(w)
			return
		}

		renderInternalError(w)
		return
	}

	res := loginResponse{Account: viewAccount(result.Account)}
	if result.RememberToken != nil {
		res.RememberToken = result.RememberToken.String()
	}

	render(w, res, http.StatusOK)
}

type sessionInput struct {
	AccountID     string `json:"account_id"`
	RememberToken string `json:"remember_token"`
}

func (i *sessionInput) FromJSON(r io.Reader) error {
	return json.NewDecoder(r).Decode(i)
}

func (i sessionInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.AccountID, validation.Required, is.UUID),
		validation.Field(&i.RememberToken, validation.Required),
	)
}

func (i sessionInput) parse() (uuid.UUID, krypto.Token, error) {
	id, err := uuid.Parse(i.AccountID)
	if err != nil {
		return uuid.Nil, krypto.Token{}, err
	}

	token, err := krypto.ParseToken(i.RememberToken)
	if err != nil {
		return uuid.Nil, krypto.Token{}, err
	}

	return id, token, nil
}

func (s *Server) resumeSession(w http.ResponseWriter, r *http.Request) {
	var in sessionInput
	if err := in.FromJSON(r.Body); err != nil {
		renderError(w, "invalid request data", http.StatusBadRequest)
		return
	}

	if err := in.Validate(); err != nil {
		render(w, err, http.StatusBadRequest)
		return
	}

	id, token, err := in.parse()
	if err != nil {
		renderUnauthorized(w)
		return
	}

	acc, err := s.deps.Service.ResumeSession(r.Context(), id, token)
	if err != nil {
		s.logError(r, err)

		if errors.Is(err, errorz.ErrUnauthenticated) {
			renderUnauthorized(w)
			return
		}

		renderInternalError(w)
		return
	}

	render(w, viewAccount(acc), http.StatusOK)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var in sessionInput
	if err := in.FromJSON(r.Body); err != nil {
		renderError(w, "invalid request data", http.StatusBadRequest)
		return
	}

	if err := in.Validate(); err != nil {
		render(w, err, http.StatusBadRequest)
		return
	}

	id, token, err := in.parse()
	if err != nil {
		renderUnauthorized(w)
		return
	}

	// The caller proves possession of the remember token before the
	// digest is cleared.
	if _, err := s.deps.Service.ResumeSession(r.Context(), id, token); err != nil {
		s.logError(r, err)

		if errors.Is(err, errorz.ErrUnauthenticated) {
			renderUnauthorized(w)
			return
		}

		renderInternalError(w)
		return
	}

	if err := s.deps.Service.Logout(r.Context(), id); err != nil {
		s.logError(r, err)
		renderInternalError(w)
		return
	}

	render(w, messageResponse{Message: "logged out"}, http.StatusOK)
}

type resetRequestInput struct {
	Kind  string `json:"kind"`
	Email string `json:"email"`
}

func (i *resetRequestInput) FromJSON(r io.Reader) error {
	return json.NewDecoder(r).Decode(i)
}

func (i resetRequestInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Kind, validation.Required, kindRule),
		validation.Field(&i.Email, validation.Required, is.Email, validation.Length(0, 512)),
	)
}

func (s *Server) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var in resetRequestInput
	if err := in.FromJSON(r.Body); err != nil {
		renderError(w, "invalid request data", http.StatusBadRequest)
		return
	}

	if err := in.Validate(); err != nil {
		render(w, err, http.StatusBadRequest)
		return
	}

	kind, err := account.ParseKind(in.Kind)
	if err != nil {
		renderError(w, "invalid request data", http.StatusBadRequest)
		return
	}

	addr, err := email.ParseAddress(in.Email)
	if err != nil {
		renderError(w, "invalid request data", http.StatusBadRequest)
		return
	}

	s.deps.Service.RequestPasswordReset(r.Context(), kind, addr)

	render(w, messageResponse{Message: checkInboxMessage}, http.StatusAccepted)
}

type resetTokenInput struct {
	Kind        string `json:"kind"`
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password,omitempty"`
}

func (i *resetTokenInput) FromJSON(r io.Reader) error {
	return json.NewDecoder(r).Decode(i)
}

func (i resetTokenInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Kind, validation.Required, kindRule),
		validation.Field(&i.Email, validation.Required, is.Email, validation.Length(0, 512)),
		validation.Field(&i.Token, validation.Required),
	)
}

func (i resetTokenInput) validateWithPassword() error {
	if err := i.Validate(); err != nil {
		return err
	}

	return validation.ValidateStruct(&i,
		validation.Field(&i.NewPassword, validation.Required, validation.Length(8, 512)),
	)
}

func (i resetTokenInput) request() (account.ResetRequest, error) {
	kind, err := account.ParseKind(i.Kind)
	if err != nil {
		return account.ResetRequest{}, err
	}

	addr, err := email.ParseAddress(i.Email)
	if err != nil {
		return account.ResetRequest{}, err
	}

	token, err := krypto.ParseToken(i.Token)
	if err != nil {
		return account.ResetRequest{}, err
	}

	return account.ResetRequest{
		Kind:  kind,
		Email: addr,
		Token: token,
	}, nil
}

// resetRejected covers all reset gate failures. They are collapsed into
// one response, only the logs tell them apart.
func resetRejected(err error) bool {
	return errors.Is(err, errorz.ErrNotFound) ||
		errors.Is(err, errorz.ErrUnauthenticated) ||
		errors.Is(err, errorz.ErrExpired)
}

func (s *Server) validateResetToken(w http.ResponseWriter, r *http.Request) {
	var in resetTokenInput
	if err := in.FromJSON(r.Body); err != nil {
		renderError(w, "invalid request data", http.StatusBadRequest)
		return
	}

	if err := in.Validate(); err != nil {
		render(w, err, http.StatusBadRequest)
		return
	}

	req, err := in.request()
	if err != nil {
		renderError(w, invalidResetLink, http.StatusUnprocessableEntity)
		return
	}

	if err := s.deps.Service.ValidateResetToken(r.Context(), req); err != nil {
		s.logError(r, err)

		if resetRejected(err) {
			renderError(w, invalidResetLink, http.StatusUnprocessableEntity)
			return
		}

		renderInternalError(w)
		return
	}

	render(w, messageResponse{Message: "reset link is valid"}, http.StatusOK)
}

func (s *Server) completeReset(w http.ResponseWriter, r *http.Request) {
	var in resetTokenInput
	if err := in.FromJSON(r.Body); err != nil {
		renderError(w, "invalid request data", http.StatusBadRequest)
		return
	}

	if err := in.validateWithPassword(); err != nil {
		render(w, err, http.StatusBadRequest)
		return
	}

	req, err := in.request()
	if err != nil {
		renderError(w, invalidResetLink, http.StatusUnprocessableEntity)
		return
	}

	pwd, err := account.ParsePassword(in.NewPassword)
	if err != nil {
		renderError(w, "invalid request data", http.StatusBadRequest)
		return
	}

	if err := s.deps.Service.CompleteReset(r.Context(), req, pwd); err != nil {
		s.logError(r, err)

		if resetRejected(err) {
			renderError(w, invalidResetLink, http.StatusUnprocessableEntity)
			return
		}

		if errors.Is(err, account.ErrInvalidPassword) {
			renderError(w, "invalid request data", http.StatusBadRequest)
			return
		}

		renderInternalError(w)
		return
	}

	render(w, messageResponse{Message: "password updated"}, http.StatusOK)
}
