package services

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultSessionTTL    = 10 * time.Minute
	sessionTokenAudience = "roomdesk:session"
)

var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrSessionTokenExpired = errors.New("session token expired")
)

type SessionClaims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func BuildSessionToken(secretKey []byte, userID uint, username string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now.IsZero() {
		now = time.Now()
	}
	expiresAt := now.Add(ttl)

	claims := SessionClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Audience:  jwt.ClaimStrings{sessionTokenAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func ParseSessionToken(secretKey []byte, rawToken string, now time.Time) (*SessionClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrUnauthenticated
	}
	if now.IsZero() {
		now = time.Now()
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(
		rawToken,
		claims,
		hmacKeyFunc(secretKey),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(sessionTokenAudience),
		jwt.WithExpirationRequired(),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, errors.Join(ErrUnauthenticated, ErrSessionTokenExpired)
	}
	if err != nil || !token.Valid || claims.UserID == 0 {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}
