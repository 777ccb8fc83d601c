package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleType set account role
type RoleType string

const (
	// RoleAdmin staff/support-desk role
	RoleAdmin RoleType = "admin"
	// RoleStudent end-user role
	RoleStudent RoleType = "student"
	// RolePartner end-user role for industry/university partners
	RolePartner RoleType = "partner"
)

// IsStaff report whether the role carries staff privilege
func IsStaff(role string) bool {
	return RoleType(role) == RoleAdmin
}

// IsEndUser report whether the role belongs to the supported end-user set
func IsEndUser(role string) bool {
	switch RoleType(role) {
	case RoleStudent, RolePartner:
		return true
	}
	return false
}

// Claims structure for custom claims in JWT
type Claims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// Secret Key for JWT signing and validation
var (
	JWTSecret       = []byte("secure_secret_key")
	tokenExpiration = 60 * time.Minute
)

// GenerateJWT generates a JWT token
func GenerateJWT(userID, role, tenantID, issuer string) (string, error) {
	claims := Claims{
		UserID:   userID,
		Role:     role,
		TenantID: tenantID,
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

	return claims, nil
}

// CheckJWTNotExpire check JWT token not expires
func CheckJWTNotExpire(t string) (bool, error) {
	if len(t) < 7 || t[:7] != "Bearer " {
		return true, errors.New("invalid or missing token")
	}

	tokenStr := t[7:]

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return JWTSecret, nil
	})

	if err != nil {
		return true, err
	}

	tokenExpire, err := token.Claims.GetExpirationTime()
	if err != nil {
		return true, nil
	}

	return tokenExpire.After(time.Now()), nil
}
