package middleware

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/keylinehq/keyline/pkg/audit"
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/store"
	"github.com/keylinehq/keyline/pkg/token"
)

type contextKey string

const (
	bearerKey  contextKey = "bearer"
	accountKey contextKey = "account"
)

// NewContext attaches a resolved account and bearer to a context. Endpoint
// tests use it to stand in for the middleware.
func NewContext(ctx context.Context, account *model.Account, b bearer.Bearer) context.Context {
	ctx = context.WithValue(ctx, accountKey, account)
	return context.WithValue(ctx, bearerKey, b)
}

// BearerFromContext returns the authenticated bearer placed by Authenticator
func BearerFromContext(ctx context.Context) (bearer.Bearer, bool) {
	b, ok := ctx.Value(bearerKey).(bearer.Bearer)
	return b, ok
}

// AccountFromContext returns the resolved account placed by Authenticator
func AccountFromContext(ctx context.Context) (*model.Account, bool) {
	a, ok := ctx.Value(accountKey).(*model.Account)
	return a, ok
}

// Authenticator resolves the request's account and bearer. API tokens are
// opaque secrets matched by digest; user sessions are HS256 JWTs whose jti
// claim references the backing token row, so revoking the row kills the
// session.
type Authenticator struct {
	accounts  store.AccountsStore
	tokens    store.TokensStore
	users     store.UsersStore
	jwtSecret []byte
}

// NewAuthenticator creates the authentication middleware. The JWT secret
// defaults to the KEYLINE_JWT_SECRET environment variable.
func NewAuthenticator(accounts store.AccountsStore, tokens store.TokensStore, users store.UsersStore, jwtSecret []byte) *Authenticator {
	if len(jwtSecret) == 0 {
		jwtSecret = []byte(os.Getenv("KEYLINE_JWT_SECRET"))
	}
	return &Authenticator{
		accounts:  accounts,
		tokens:    tokens,
		users:     users,
		jwtSecret: jwtSecret,
	}
}

// Middleware resolves the {account} path variable and the Authorization
// header. A missing header yields an anonymous bearer rather than a 401;
// whether anonymous access suffices is the endpoint's decision.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountRef := mux.Vars(r)["account"]
		account, err := a.accounts.FindAccount(accountRef)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Account not found"))
			return
		}

		ctx := context.WithValue(r.Context(), accountKey, account)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			ctx = context.WithValue(ctx, bearerKey, bearer.Anonymous(account.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		credential := strings.TrimPrefix(authHeader, "Bearer ")
		if credential == authHeader {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Malformed authorization header"))
			return
		}

		b, err := a.authenticate(account, credential, r.RemoteAddr)
		if err != nil {
			audit.Log(audit.AuthnEvent{
				AccountID:    account.ID,
				ClientIP:     r.RemoteAddr,
				Success:      false,
				ErrorMessage: err.Error(),
			})
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Invalid credentials"))
			return
		}

		audit.Log(audit.AuthnEvent{
			BearerKind: b.Kind.String(),
			BearerID:   b.ID,
			AccountID:  account.ID,
			ClientIP:   r.RemoteAddr,
			Success:    true,
		})

		ctx = context.WithValue(ctx, bearerKey, b)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var (
	errTokenExpired = errors.New("token expired")
	errWrongAccount = errors.New("token belongs to another account")
)

// authenticate resolves a credential to a bearer. JWT session tokens and
// opaque API tokens both end at a token row; the row's bearer record gives
// the role.
func (a *Authenticator) authenticate(account *model.Account, credential, clientIP string) (bearer.Bearer, error) {
	secret, isSession, err := a.parseSession(credential)
	if err != nil {
		return bearer.Bearer{}, err
	}
	if !isSession {
		secret = credential
	}

	row, err := a.tokens.FindTokenByDigest(token.Digest(secret))
	if err != nil {
		return bearer.Bearer{}, err
	}

	if row.AccountID != account.ID {
		return bearer.Bearer{}, errWrongAccount
	}
	if row.Expiry != nil && row.Expiry.Before(time.Now()) {
		return bearer.Bearer{}, errTokenExpired
	}

	grants, err := a.tokens.TokenPermissions(row.ID)
	if err != nil {
		return bearer.Bearer{}, err
	}

	b := bearer.Bearer{
		ID:        row.BearerID,
		AccountID: row.AccountID,
		Grants:    grants,
	}

	switch row.BearerType {
	case model.TokenBearerUser:
		user, err := a.users.FindUser(row.AccountID, row.BearerID)
		if err != nil {
			return bearer.Bearer{}, err
		}
		b.Kind = bearer.KindUser
		b.Role = bearer.Role(user.RoleName)
	case model.TokenBearerProduct:
		b.Kind = bearer.KindProduct
		b.Role = bearer.RoleProduct
	case model.TokenBearerLicense:
		b.Kind = bearer.KindLicense
		b.Role = bearer.RoleLicense
	default:
		return bearer.Bearer{}, errors.New("unknown bearer type")
	}

	if !b.Role.Valid() {
		return bearer.Bearer{}, errors.New("unknown role")
	}

	return b, nil
}

// parseSession extracts the token secret from a JWT session credential.
// Opaque API tokens are not JWTs; they fall through with isSession false.
func (a *Authenticator) parseSession(credential string) (secret string, isSession bool, err error) {
	if strings.Count(credential, ".") != 2 {
		return "", false, nil
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", false, err
	}
	if claims.ID == "" {
		return "", false, errors.New("session token missing jti")
	}
	return claims.ID, true, nil
}

// IssueSession signs a JWT session credential around a token secret. The
// jti carries the secret whose digest identifies the backing row, so the
// session and the row revoke together.
func (a *Authenticator) IssueSession(secret string, bearerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    "keyline",
		Subject:   bearerID,
		ID:        secret,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
}
