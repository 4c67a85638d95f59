// Package auth resolves opaque bearer credentials to live Principals.
// Token issuance belongs to the external auth service; this package only
// verifies, then re-reads the account row so role/ban state is current at
// connection time rather than at token-mint time.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/devconnect/realtime-service/internal/domain/model"
	"github.com/devconnect/realtime-service/internal/store"
)

var (
	// ErrInvalidCredential: malformed, expired or badly signed token.
	ErrInvalidCredential = errors.New("auth: invalid credential")
	// ErrPrincipalNotFound: valid signature, but the account is gone.
	ErrPrincipalNotFound = errors.New("auth: principal not found")
	// ErrPrincipalBanned: the account exists and is banned.
	ErrPrincipalBanned = errors.New("auth: principal banned")
)

// Claims carries only registered claims; the subject is the principal id.
// Role and ban status are deliberately NOT in the token: they can go stale
// between issuance and connection, so they come from a fresh store read.
type Claims struct {
	jwt.RegisteredClaims
}

type Resolver struct {
	secret []byte
	store  store.Store
}

func NewResolver(secret string, s store.Store) *Resolver {
	return &Resolver{secret: []byte(secret), store: s}
}

// Resolve validates the credential and returns the current Principal.
// Read-only: no session state is created here.
func (r *Resolver) Resolve(ctx context.Context, credential string) (*model.Principal, error) {
	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredential
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidCredential
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidCredential
	}

	principal, err := r.store.PrincipalByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPrincipalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth: resolving principal %d: %w", id, err)
	}
	if principal.Banned {
		return nil, ErrPrincipalBanned
	}
	return principal, nil
}

// Mint signs a token for a principal id. Used by the dev-token CLI command
// and by tests; production tokens come from the external auth service with
// the same secret.
func Mint(secret string, principalID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(principalID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}
