// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidOwnerKey   = errors.New("invalid owner key")
	ErrInvalidAdminToken = errors.New("invalid or expired admin token")
	ErrWrongPassword     = errors.New("wrong admin password")
)

// AdminTokenTTL is how long an admin login lasts.
const AdminTokenTTL = 12 * time.Hour

const adminRole = "admin"

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewOwnerUID returns a fresh owner id.
func NewOwnerUID() string {
	return uuid.NewString()
}

// GenerateOwnerKey creates an HMAC-based key for an owner.
// This is deterministic and verifiable
func GenerateOwnerKey(uid, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(uid))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateOwnerKey checks if the provided owner key is valid for the uid
func ValidateOwnerKey(uid, ownerKey, salt string) error {
	expected := GenerateOwnerKey(uid, salt)
	if !hmac.Equal([]byte(ownerKey), []byte(expected)) {
		return ErrInvalidOwnerKey
	}
	return nil
}

// CheckAdminPassword compares in constant time.
func CheckAdminPassword(given, want string) error {
	g := sha256.Sum256([]byte(given))
	w := sha256.Sum256([]byte(want))
	if want == "" || !hmac.Equal(g[:], w[:]) {
		return ErrWrongPassword
	}
	return nil
}

// AdminClaims are carried by admin bearer tokens.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueAdminToken signs an HS256 token valid for AdminTokenTTL from now.
func IssueAdminToken(secret string, now time.Time) (string, time.Time, error) {
	expires := now.Add(AdminTokenTTL)
	claims := AdminClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminRole,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, expires, nil
}

// ParseAdminToken verifies signature, expiry and role.
func ParseAdminToken(secret, tokenStr string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidAdminToken
	}
	if claims.Role != adminRole {
		return nil, ErrInvalidAdminToken
	}
	return claims, nil
}
