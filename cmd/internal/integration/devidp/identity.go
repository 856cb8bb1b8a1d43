// Package devidp is an in-memory stand-in for Cognito used when AUTH_MODE=hmac.
// Accounts live only as long as the process. Confirmation codes are written to the log.
package devidp

import (
	"fmt"
	"math/rand/v2"
	cognitoclient "slotwise/cmd/internal/integration/aws/cognito"
	"slotwise/cmd/internal/utils"
	"sync"
	"time"

	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/bcrypt"
)

type account struct {
	sub       string
	hash      []byte
	code      string
	confirmed bool
}

type Provider struct {
	mu       sync.Mutex
	accounts map[string]*account
	secret   []byte
	ttl      time.Duration
	cost     int
}

func New(secret []byte, ttl time.Duration) *Provider {
	return &Provider{
		accounts: make(map[string]*account),
		secret:   secret,
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
	}
}

func (p *Provider) SignUp(user *cognitoclient.User) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), p.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.accounts[user.Email]; ok {
		return "", apiError("UsernameExistsException", "account already exists")
	}

	acc := &account{
		sub:  uuid.NewString(),
		hash: hash,
		code: fmt.Sprintf("%06d", rand.IntN(1_000_000)),
	}
	p.accounts[user.Email] = acc
	log.Infof("confirmation code for %s: %s", user.Email, acc.code)
	return acc.sub, nil
}

func (p *Provider) SignIn(login *cognitoclient.UserLogin) (*cognitoclient.AuthCreate, error) {
	p.mu.Lock()
	acc, ok := p.accounts[login.Email]
	p.mu.Unlock()

	if !ok {
		return nil, apiError("UserNotFoundException", "user does not exist")
	}
	if !acc.confirmed {
		return nil, apiError("UserNotConfirmedException", "user is not confirmed")
	}
	if bcrypt.CompareHashAndPassword(acc.hash, []byte(login.Password)) != nil {
		return nil, apiError("NotAuthorizedException", "incorrect username or password")
	}

	token, err := utils.SignHMACToken(p.secret, acc.sub, login.Email, p.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &cognitoclient.AuthCreate{AccessToken: token, IDToken: token}, nil
}

func (p *Provider) ConfirmAccount(confirmation *cognitoclient.UserConfirmation) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	acc, ok := p.accounts[confirmation.Email]
	if !ok {
		return apiError("UserNotFoundException", "user does not exist")
	}
	if acc.code != confirmation.Code {
		return apiError("CodeMismatchException", "invalid verification code")
	}
	acc.confirmed = true
	return nil
}

func (p *Provider) AdminDeleteUser(email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.accounts, email)
	return nil
}

func apiError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message, Fault: smithy.FaultClient}
}
