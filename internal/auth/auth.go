// Package auth decides who may change the playlist source or force a refresh.
// An admin is a device whose HWID is allow-listed, anyone presenting the admin
// password, or a holder of a token issued to one of those.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrUnauthorized is returned for every rejected credential.
var ErrUnauthorized = errors.New("unauthorized")

const issuer = "criollotv"

// Credentials is what a client may present. Any one matching field is enough.
type Credentials struct {
	HWID     string `json:"hwid"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

// Claims is the payload of an admin token.
type Claims struct {
	HWID string `json:"hwid,omitempty"`
	jwt.RegisteredClaims
}

// Authorizer checks credentials and issues admin tokens.
type Authorizer struct {
	hwids    map[string]bool
	password string
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// New builds an Authorizer. hwids are matched case-insensitively. password may
// be plain text or a bcrypt hash; empty disables password login. An empty
// secret gets a random per-process key, so tokens do not survive a restart.
func New(hwids []string, password, secret string, tokenTTL time.Duration) (*Authorizer, error) {
	a := &Authorizer{
		hwids:    make(map[string]bool, len(hwids)),
		password: password,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
	for _, h := range hwids {
		if h = normalizeHWID(h); h != "" {
			a.hwids[h] = true
		}
	}
	if a.tokenTTL <= 0 {
		a.tokenTTL = 12 * time.Hour
	}
	if secret != "" {
		a.secret = []byte(secret)
	} else {
		a.secret = make([]byte, 32)
		if _, err := rand.Read(a.secret); err != nil {
			return nil, fmt.Errorf("auth: generate token key: %w", err)
		}
	}
	return a, nil
}

func normalizeHWID(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// AdminHWIDCount is the size of the allow-list.
func (a *Authorizer) AdminHWIDCount() int { return len(a.hwids) }

// IsAdminHWID reports whether hwid is allow-listed.
func (a *Authorizer) IsAdminHWID(hwid string) bool {
	h := normalizeHWID(hwid)
	return h != "" && a.hwids[h]
}

// CheckPassword compares pw with the configured admin password.
func (a *Authorizer) CheckPassword(pw string) bool {
	if a.password == "" || pw == "" {
		return false
	}
	if isBcrypt(a.password) {
		return bcrypt.CompareHashAndPassword([]byte(a.password), []byte(pw)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(a.password), []byte(pw)) == 1
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// Authorize returns nil when any credential field grants admin rights.
func (a *Authorizer) Authorize(c Credentials) error {
	if a.IsAdminHWID(c.HWID) || a.CheckPassword(c.Password) {
		return nil
	}
	if c.Token != "" {
		if _, err := a.VerifyToken(c.Token); err == nil {
			return nil
		}
	}
	return ErrUnauthorized
}

// IssueToken signs an admin token for hwid.
func (a *Authorizer) IssueToken(hwid string) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.tokenTTL)
	claims := Claims{
		HWID: normalizeHWID(hwid),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "admin",
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return tok, exp, nil
}

// VerifyToken validates signature, issuer and expiry.
func (a *Authorizer) VerifyToken(tok string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return &claims, nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD.
func HashPassword(pw string) (string, error) {
	if pw == "" {
		return "", errors.New("empty password")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
