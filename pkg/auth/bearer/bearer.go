// Package bearer builds raw identities from the Authorization header.
//
// It performs no validation. A bearer token becomes a Credential, with
// the token's unverified "sub" claim as the principal name hint when the
// token is a JWT. Validation is left to the Augmentor's Authenticator.
package bearer

import (
	"net/http"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/lakegate/pkg/auth"
)

// Provider is an auth.IdentityProvider for bearer tokens.
type Provider struct{}

// Ensure Provider implements auth.IdentityProvider at compile time.
var _ auth.IdentityProvider = Provider{}

// Identify returns:
//   - an anonymous identity when there is no Authorization header
//   - an identity carrying an auth.Credential for a Bearer token
//   - an identity without credentials for any other scheme, which the
//     Augmentor rejects
func (Provider) Identify(r *http.Request) *auth.Identity {
	header := r.Header.Get("Authorization")
	if header == "" {
		return auth.AnonymousIdentity()
	}

	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return auth.NewIdentity(auth.IdentityParams{Subject: scheme})
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return auth.NewIdentity(auth.IdentityParams{})
	}

	hint := subjectHint(token)
	return auth.NewIdentity(auth.IdentityParams{
		Subject:     hint,
		Credentials: []any{auth.Credential{PrincipalName: hint, Token: token}},
	})
}

// subjectHint returns the unverified sub claim of a JWT, or "".
func subjectHint(token string) string {
	if strings.Count(token, ".") != 2 {
		return ""
	}
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}
