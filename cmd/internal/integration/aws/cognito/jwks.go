package cognitoclient

import (
	"context"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKS resolves the keys a Cognito user pool signs its tokens with.
// The set is fetched on creation and refreshed in the background. An unknown
// key id triggers at most one extra fetch per five minutes.
type JWKS struct {
	issuer string
	kf     keyfunc.Keyfunc
}

// NewJWKS fetches the key set of a user pool. Background refreshes stop when ctx is done.
func NewJWKS(ctx context.Context, region, userPoolID string) (*JWKS, error) {
	issuer := fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
	return NewJWKSFromURL(ctx, issuer+"/.well-known/jwks.json", issuer)
}

func NewJWKSFromURL(ctx context.Context, url, issuer string) (*JWKS, error) {
	kf, err := keyfunc.NewDefaultCtx(ctx, []string{url})
	if err != nil {
		return nil, fmt.Errorf("loading JWKS from %s: %w", url, err)
	}
	return &JWKS{issuer: issuer, kf: kf}, nil
}

func (j *JWKS) Issuer() string {
	return j.issuer
}

// KeyfuncCtx satisfies utils.KeySource. A refresh for an unknown key id is
// bound to ctx.
func (j *JWKS) KeyfuncCtx(ctx context.Context) jwt.Keyfunc {
	return j.kf.KeyfuncCtx(ctx)
}
