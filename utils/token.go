package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

type JwtCustomClaim struct {
	UserId string `json:"uid"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
	jwt.StandardClaims
}

var jwtSecret = []byte(getJwtSecret())

func getJwtSecret() string {
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		return "Costbook-Secret"
	}
	return secret
}

func tokenLifespan() time.Duration {
	hours, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil || hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// JwtGenerate signs a token for the user. The returned claim carries the
// generated jti and expiry so callers can revoke it later.
func JwtGenerate(userId string, email string, admin bool) (string, *JwtCustomClaim, error) {
	now := time.Now()
	claim := &JwtCustomClaim{
		UserId: userId,
		Email:  email,
		Admin:  admin,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   userId,
			ExpiresAt: now.Add(tokenLifespan()).Unix(),
			IssuedAt:  now.Unix(),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claim)
	token, err := t.SignedString(jwtSecret)
	if err != nil {
		return "", nil, err
	}

	return token, claim, nil
}

func JwtValidate(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return jwtSecret, nil
	})
}

// ParseClaims validates token and returns its claims.
func ParseClaims(token string) (*JwtCustomClaim, error) {
	parsed, err := JwtValidate(token)
	if err != nil {
		return nil, err
	}
	claim, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid || claim.UserId == "" {
		return nil, ErrUnauthorized
	}
	return claim, nil
}

// RevokedTokenKey is the Redis key marking a jti as logged out.
func RevokedTokenKey(jti string) string {
	return "RevokedToken:" + jti
}
