package utils

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "socialdesk"

type CustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// StateClaims is carried in the OAuth state parameter so a callback can be
// tied back to the user and platform that started the flow.
type StateClaims struct {
	UserID     int64  `json:"uid"`
	PlatformID string `json:"pid"`
	Nonce      string `json:"nonce"`
	jwt.RegisteredClaims
}

func GenerateToken(secretKey string, userID int64, email string, tokenDuration time.Duration) (string, error) {
	claims := CustomClaims{
		UserID: strconv.FormatInt(userID, 10),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	return sign(secretKey, claims)
}

func ValidateToken(secretKey, tokenString string) (*CustomClaims, error) {
	claims := &CustomClaims{}
	if err := parse(secretKey, tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func GenerateState(secretKey string, userID int64, platformID string, ttl time.Duration) (string, error) {
	nonce, err := Nonce(16)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	claims := StateClaims{
		UserID:     userID,
		PlatformID: platformID,
		Nonce:      nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	return sign(secretKey, claims)
}

func ValidateState(secretKey, state string) (*StateClaims, error) {
	claims := &StateClaims{}
	if err := parse(secretKey, state, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func sign(secretKey string, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return signedToken, nil
}

func parse(secretKey, tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return []byte(secretKey), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}
