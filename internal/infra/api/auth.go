package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"translation-queue/internal/infra/logging"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// OwnerClaims identify the account a request acts for. Subject is the
// owner id.
type OwnerClaims struct {
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 tokens from the Authorization header or the
// session cookie.
type Authenticator struct {
	secret     []byte
	cookieName string
}

func NewAuthenticator(secret, cookieName string) *Authenticator {
	if cookieName == "" {
		cookieName = "session"
	}
	return &Authenticator{secret: []byte(secret), cookieName: cookieName}
}

// Mint signs a token for ownerID valid for ttl.
func (a *Authenticator) Mint(ownerID string, ttl time.Duration) (string, error) {
	if ownerID == "" {
		return "", ErrInvalidToken
	}
	now := time.Now()
	claims := OwnerClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   ownerID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// OwnerFromRequest returns the verified owner id of r.
func (a *Authenticator) OwnerFromRequest(r *http.Request) (string, error) {
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
		return "", ErrInvalidToken
	}
	if c, err := r.Cookie(a.cookieName); err == nil && c.Value != "" {
		return a.parse(c.Value)
	}
	return "", ErrMissingToken
}

func (a *Authenticator) parse(tok string) (string, error) {
	claims := &OwnerClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Authenticate puts the owner id of a valid token into the request context.
// Requests without a token continue anonymously; a bad token is a 401.
// A nil authenticator or empty secret disables the check.
func Authenticate(a *Authenticator, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if a == nil || len(a.secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := a.OwnerFromRequest(r)
			switch {
			case errors.Is(err, ErrMissingToken):
				next.ServeHTTP(w, r)
			case err != nil:
				logging.With(r.Context(), logger).Debug().Err(err).Msg("rejected token")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
			default:
				next.ServeHTTP(w, r.WithContext(logging.WithOwnerID(r.Context(), owner)))
			}
		})
	}
}
