// Package auth issues and verifies the HS256 admin tokens that gate the
// moderation surface (scope=all subscriptions, deleting other devices'
// stories). There is no login flow here; tokens are minted out of band.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/syqdur/wedpxres-sub001/internal/common"
)

// Claims extends the registered claims with the admin role marker.
type Claims struct {
	jwt.RegisteredClaims
	Role string
}

const RoleAdmin = "admin"

func GenerateAdminToken(secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Role: RoleAdmin,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// VerifyAdminToken checks signature, expiry, and the admin role.
func VerifyAdminToken(tokenString string, secretKey []byte) error {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return common.ErrInvalidToken
	}

	if !token.Valid || claims.Role != RoleAdmin {
		return common.ErrInvalidToken
	}

	return nil
}
