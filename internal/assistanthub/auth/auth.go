package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"assistanthub/pkg/state"
)

var (
	ErrMissingCredentials = errors.New("both username and password are required")
	ErrUserExists         = errors.New("this username already exists")
	ErrInvalidLogin       = errors.New("invalid username or password")
	ErrCaptcha            = errors.New("incorrect captcha answer")
	ErrSecondFactor       = errors.New("invalid verification code")
	ErrUnknownChallenge   = errors.New("login challenge expired or unknown")
)

const (
	challengeTTL = 5 * time.Minute
	captchaTTL   = 2 * time.Minute
	// maxSecondFactorAttempts wrong codes discard the challenge.
	maxSecondFactorAttempts = 3
)

type account struct {
	Username  string    `json:"username"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

type accountsFile struct {
	Accounts []account `json:"accounts"`
}

type Captcha struct {
	ID       string `json:"id"`
	Question string `json:"question"`
}

type challenge struct {
	username string
	expires  time.Time
	failures int
}

type pendingCaptcha struct {
	answer  int
	expires time.Time
}

type Options struct {
	// StorePath persists password hashes. Empty keeps accounts in memory.
	StorePath        string
	SecondFactorCode string
	LogPrefix        string
	Now              func() time.Time
}

// Accounts handles sign-up and the captcha, password, second factor login flow.
type Accounts struct {
	opts Options

	mu         sync.Mutex
	users      map[string]account
	captchas   map[string]pendingCaptcha
	challenges map[string]challenge
	tokens     map[string]string
}

func New(opts Options) (*Accounts, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	a := &Accounts{
		opts:       opts,
		users:      map[string]account{},
		captchas:   map[string]pendingCaptcha{},
		challenges: map[string]challenge{},
		tokens:     map[string]string{},
	}
	if strings.TrimSpace(opts.StorePath) == "" {
		return a, nil
	}
	f, err := state.LoadJSONFile[accountsFile](opts.StorePath)
	if err != nil {
		return nil, fmt.Errorf("load accounts %s: %w", opts.StorePath, err)
	}
	for _, acc := range f.Accounts {
		a.users[acc.Username] = acc
	}
	return a, nil
}

func (a *Accounts) SignUp(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.users[username]; ok {
		return ErrUserExists
	}
	a.users[username] = account{Username: username, Hash: string(hash), CreatedAt: a.opts.Now()}
	if err := a.persistLocked(); err != nil {
		log.Printf("%s accounts persist failed: err=%v", a.opts.LogPrefix, err)
	}
	log.Printf("%s account created: user=%s", a.opts.LogPrefix, username)
	return nil
}

// NewCaptcha issues a single-use arithmetic question valid for captchaTTL.
func (a *Accounts) NewCaptcha() Captcha {
	x, y := rand.IntN(10)+1, rand.IntN(10)+1
	id := uuid.NewString()
	now := a.opts.Now()
	a.mu.Lock()
	for k, c := range a.captchas {
		if now.After(c.expires) {
			delete(a.captchas, k)
		}
	}
	a.captchas[id] = pendingCaptcha{answer: x + y, expires: now.Add(captchaTTL)}
	a.mu.Unlock()
	return Captcha{ID: id, Question: fmt.Sprintf("What is %d + %d?", x, y)}
}

// Login checks the captcha and password and returns a second-factor challenge id.
// The captcha is consumed whatever the outcome.
func (a *Accounts) Login(username, password, captchaID, captchaAnswer string) (string, error) {
	username = strings.TrimSpace(username)

	a.mu.Lock()
	want, ok := a.captchas[captchaID]
	delete(a.captchas, captchaID)
	acc, known := a.users[username]
	a.mu.Unlock()

	got, err := strconv.Atoi(strings.TrimSpace(captchaAnswer))
	if !ok || err != nil || got != want.answer || a.opts.Now().After(want.expires) {
		return "", ErrCaptcha
	}
	if !known || bcrypt.CompareHashAndPassword([]byte(acc.Hash), []byte(password)) != nil {
		return "", ErrInvalidLogin
	}

	id := uuid.NewString()
	a.mu.Lock()
	a.challenges[id] = challenge{username: username, expires: a.opts.Now().Add(challengeTTL)}
	a.mu.Unlock()
	return id, nil
}

// VerifySecondFactor completes a login and returns the bearer token.
func (a *Accounts) VerifySecondFactor(challengeID, code string) (string, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch, ok := a.challenges[challengeID]
	if !ok || a.opts.Now().After(ch.expires) {
		delete(a.challenges, challengeID)
		return "", "", ErrUnknownChallenge
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), []byte(a.opts.SecondFactorCode)) != 1 {
		ch.failures++
		if ch.failures >= maxSecondFactorAttempts {
			delete(a.challenges, challengeID)
			log.Printf("%s login challenge discarded: user=%s failures=%d", a.opts.LogPrefix, ch.username, ch.failures)
		} else {
			a.challenges[challengeID] = ch
		}
		return "", "", ErrSecondFactor
	}
	delete(a.challenges, challengeID)
	token := uuid.NewString()
	a.tokens[token] = ch.username
	log.Printf("%s login: user=%s", a.opts.LogPrefix, ch.username)
	return token, ch.username, nil
}

// User returns the username bound to token.
func (a *Accounts) User(token string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.tokens[strings.TrimSpace(token)]
	return u, ok
}

func (a *Accounts) Logout(token string) {
	a.mu.Lock()
	delete(a.tokens, strings.TrimSpace(token))
	a.mu.Unlock()
}

func (a *Accounts) persistLocked() error {
	if strings.TrimSpace(a.opts.StorePath) == "" {
		return nil
	}
	f := accountsFile{Accounts: make([]account, 0, len(a.users))}
	for _, acc := range a.users {
		f.Accounts = append(f.Accounts, acc)
	}
	return state.SaveJSONFileIndented(a.opts.StorePath, f)
}
