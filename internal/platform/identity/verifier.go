package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt"
	"go.uber.org/fx"

	cfgpkg "github.com/fatflowers/resumely/pkg/config"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Claims carries the fields of an access token the service reads.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Identity is the verified caller.
type Identity struct {
	UserID string
	Email  string
}

// Verifier checks HS256 access tokens issued by the auth provider.
type Verifier interface {
	Verify(token string) (*Identity, error)
}

type HMACVerifier struct {
	secret   []byte
	audience string
}

func NewVerifier(cfg *cfgpkg.Config) Verifier {
	return &HMACVerifier{secret: []byte(cfg.Auth.JWTSecret), audience: cfg.Auth.Audience}
}

// Verify validates signature, expiry and audience and returns the token subject.
func (v *HMACVerifier) Verify(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: signing secret is not configured", ErrInvalidToken)
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

var Module = fx.Options(
	fx.Provide(NewVerifier),
)
