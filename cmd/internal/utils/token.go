package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const tokenDataKey = "token_data"

var ErrNoTokenData = errors.New("no token data in context")

type TokenData struct {
	Sub   string
	Email string
}

type TokenParser interface {
	Parse(ctx context.Context, raw string) (*TokenData, error)
}

// KeySource hands out the verification keys for a single parse. The context
// bounds any key fetch the source has to make.
type KeySource func(ctx context.Context) jwt.Keyfunc

type tokenClaims struct {
	Email    string `json:"email,omitempty"`
	TokenUse string `json:"token_use,omitempty"`
	jwt.RegisteredClaims
}

// JWTParser checks signature, expiry and (optionally) issuer of a bearer token.
type JWTParser struct {
	keys   KeySource
	parser *jwt.Parser
}

func NewJWTParser(keys KeySource, methods []string, opts ...jwt.ParserOption) *JWTParser {
	opts = append(opts, jwt.WithValidMethods(methods), jwt.WithExpirationRequired())
	return &JWTParser{keys: keys, parser: jwt.NewParser(opts...)}
}

// NewHMACParser is meant for local development and tests, where there is no identity provider.
func NewHMACParser(secret []byte) *JWTParser {
	keyfunc := func(*jwt.Token) (any, error) { return secret, nil }
	return NewJWTParser(func(context.Context) jwt.Keyfunc { return keyfunc }, []string{jwt.SigningMethodHS256.Alg()})
}

func (p *JWTParser) Parse(ctx context.Context, raw string) (*TokenData, error) {
	claims := &tokenClaims{}
	_, err := p.parser.ParseWithClaims(raw, claims, p.keys(ctx))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("invalid token: missing subject")
	}
	return &TokenData{Sub: claims.Subject, Email: claims.Email}, nil
}

func SignHMACToken(secret []byte, sub, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func SetTokenDataCtx(c echo.Context, data *TokenData) {
	c.Set(tokenDataKey, data)
}

func ParseTokenDataCtx(c echo.Context) (*TokenData, error) {
	data, ok := c.Get(tokenDataKey).(*TokenData)
	if !ok || data == nil {
		return nil, ErrNoTokenData
	}
	return data, nil
}
