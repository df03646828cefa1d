package httpapi

import (
	"errors"
	"net/http"

	"assistanthub/internal/assistanthub/auth"
	"assistanthub/internal/assistanthub/router"
)

var errAccountsDisabled = errors.New("accounts are not enabled")

type credentials struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	CaptchaID     string `json:"captcha_id"`
	CaptchaAnswer string `json:"captcha_answer"`
}

type verifyRequest struct {
	Challenge string `json:"challenge"`
	Code      string `json:"code"`
}

type loginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (s *Server) handleCaptcha(w http.ResponseWriter, r *http.Request) {
	if s.opts.Accounts == nil {
		encode(w, http.StatusNotFound, nil, errAccountsDisabled)
		return
	}
	encode(w, http.StatusOK, s.opts.Accounts.NewCaptcha(), nil)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if s.opts.Accounts == nil {
		encode(w, http.StatusNotFound, nil, errAccountsDisabled)
		return
	}
	var in credentials
	if err := decode(r, &in); err != nil {
		encode(w, http.StatusBadRequest, nil, err)
		return
	}
	switch err := s.opts.Accounts.SignUp(in.Username, in.Password); {
	case errors.Is(err, auth.ErrMissingCredentials):
		encode(w, http.StatusBadRequest, nil, err)
	case errors.Is(err, auth.ErrUserExists):
		encode(w, http.StatusConflict, nil, err)
	case err != nil:
		encode(w, http.StatusInternalServerError, nil, err)
	default:
		encode(w, http.StatusCreated, map[string]string{"username": in.Username}, nil)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.opts.Accounts == nil {
		encode(w, http.StatusNotFound, nil, errAccountsDisabled)
		return
	}
	var in credentials
	if err := decode(r, &in); err != nil {
		encode(w, http.StatusBadRequest, nil, err)
		return
	}
	challenge, err := s.opts.Accounts.Login(in.Username, in.Password, in.CaptchaID, in.CaptchaAnswer)
	switch {
	case errors.Is(err, auth.ErrCaptcha):
		encode(w, http.StatusBadRequest, nil, err)
	case err != nil:
		encode(w, http.StatusUnauthorized, nil, err)
	default:
		encode(w, http.StatusOK, map[string]string{"challenge": challenge}, nil)
	}
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if s.opts.Accounts == nil {
		encode(w, http.StatusNotFound, nil, errAccountsDisabled)
		return
	}
	var in verifyRequest
	if err := decode(r, &in); err != nil {
		encode(w, http.StatusBadRequest, nil, err)
		return
	}
	token, user, err := s.opts.Accounts.VerifySecondFactor(in.Challenge, in.Code)
	if err != nil {
		encode(w, http.StatusUnauthorized, nil, err)
		return
	}
	encode(w, http.StatusOK, loginResult{Token: token, Username: user}, nil)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.opts.Accounts != nil {
		s.opts.Accounts.Logout(bearerToken(r))
	}
	encode(w, http.StatusOK, nil, nil)
}

func (s *Server) handleBots(w http.ResponseWriter, r *http.Request) {
	encode(w, http.StatusOK, router.Profiles(), nil)
}
