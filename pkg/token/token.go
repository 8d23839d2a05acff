package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleType set member role
type RoleType string

const (
	// RoleAdmin is the staff/admin role
	RoleAdmin RoleType = "admin"
	// RoleStudent is the default reporter role
	RoleStudent RoleType = "student"
)

// Claims structure for custom claims in JWT
type Claims struct {
	MemberID string `json:"user_id"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Secret Key for JWT signing and validation
var (
	JWTSecret       = []byte("secure_secret_key")
	tokenExpiration = 60 * time.Minute
)

// SetSecret replace the signing key, empty keeps the default
func SetSecret(secret string) {
	if secret != "" {
		JWTSecret = []byte(secret)
	}
}

// GenerateJWT generates a JWT token
func GenerateJWT(memberID, name, role, issuer string) (string, error) {
	claims := Claims{
		MemberID: memberID,
		Name:     name,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTSecret)
}

// ParseJWT parses a JWT and extracts the Claims
func ParseJWT(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return JWTSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.MemberID == "" {
		return nil, errors.New("token has no user id")
	}

	return claims, nil
}

// PeekJWT read the claims without verifying the signature.
// Clients use it to learn their own identity, servers must use ParseJWT.
func PeekJWT(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.MemberID == "" {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}
