// Package utils issues the HS256 access tokens that middleware.JWTAuth
// verifies.  Customer accounts live in an external identity service; the
// helpers here serve the seed and load test commands and the tests.
package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed token and the moment it stops being accepted.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken signs a token for userID carrying the given role.  The
// subject claim is the decimal user id; exp and iat are set from ttlMin
// minutes and the current time.  A negative ttlMin yields an already
// expired token.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
	if secret == "" {
		return AccessToken{}, errors.New("jwt secret is empty")
	}
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatUint(userID, 10),
		"role": role,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
