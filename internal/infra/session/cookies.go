// Package session keeps browser state in cookies: a signed workspace id and
// the sealed bearer token.
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// WorkspaceCookie carries the signed workspace id.
	WorkspaceCookie = "sid"
	// TokenCookie carries the sealed bearer token.
	TokenCookie = "token"

	issuer        = "insights-bff"
	workspaceType = "workspace"
	tokenMaxAge   = 365 * 24 * time.Hour
	nonceSize     = 24
)

// ErrInvalidCookie is returned for missing, tampered or expired cookies.
var ErrInvalidCookie = errors.New("invalid session cookie")

// Options configures Cookies.
type Options struct {
	Secret string
	TTL    time.Duration
	Secure bool
}

// Cookies reads and writes the BFF's cookies.
type Cookies struct {
	secret []byte
	key    [32]byte
	ttl    time.Duration
	secure bool
}

// New creates a cookie codec. The sealing key is derived from the secret.
func New(opts Options) *Cookies {
	return &Cookies{
		secret: []byte(opts.Secret),
		key:    sha256.Sum256([]byte("token:" + opts.Secret)),
		ttl:    opts.TTL,
		secure: opts.Secure,
	}
}

// workspaceClaims are the claims of the sid cookie.
type workspaceClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// SetWorkspace writes the sid cookie for workspace id.
func (c *Cookies) SetWorkspace(w http.ResponseWriter, id string) error {
	now := time.Now()
	claims := workspaceClaims{
		Type: workspaceType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			Issuer:    issuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return fmt.Errorf("sign workspace cookie: %w", err)
	}

	http.SetCookie(w, c.cookie(WorkspaceCookie, signed, c.ttl))
	return nil
}

// WorkspaceID returns the workspace id carried by the request's sid cookie.
func (c *Cookies) WorkspaceID(r *http.Request) (string, error) {
	ck, err := r.Cookie(WorkspaceCookie)
	if err != nil {
		return "", ErrInvalidCookie
	}

	token, err := jwt.ParseWithClaims(ck.Value, &workspaceClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}

	claims, ok := token.Claims.(*workspaceClaims)
	if !ok || !token.Valid || claims.Type != workspaceType || claims.Subject == "" {
		return "", ErrInvalidCookie
	}
	return claims.Subject, nil
}

// SaveToken seals token into the token cookie.
func (c *Cookies) SaveToken(w http.ResponseWriter, token string) error {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("token nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(token), &nonce, &c.key)
	http.SetCookie(w, c.cookie(TokenCookie, base64.RawURLEncoding.EncodeToString(sealed), tokenMaxAge))
	return nil
}

// LoadToken opens the token cookie.
func (c *Cookies) LoadToken(r *http.Request) (string, bool) {
	ck, err := r.Cookie(TokenCookie)
	if err != nil {
		return "", false
	}

	sealed, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil || len(sealed) < nonceSize+secretbox.Overhead {
		return "", false
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &c.key)
	if !ok || len(plain) == 0 {
		return "", false
	}
	return string(plain), true
}

func (c *Cookies) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
