package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/terraincognita07/roomdesk/internal/security"
	"golang.org/x/crypto/bcrypt"
)

const (
	recoveryCodePrefix      = "ROOM"
	recoveryCodeGroups      = 3
	recoveryCodeGroupLength = 4
	resetTokenAudience      = "roomdesk:password-reset"
	DefaultPasswordResetTTL = 30 * time.Minute
)

var (
	ErrPasswordResetTokenMissing       = errors.New("missing reset token")
	ErrPasswordResetTokenInvalid       = errors.New("invalid reset token")
	ErrPasswordResetTokenWrongAudience = errors.New("reset token issued for another purpose")
	ErrPasswordResetTokenExpired       = errors.New("expired reset token")
	ErrPasswordResetTokenStale         = errors.New("reset token has no password state")
)

// PasswordResetClaims ties a reset token to one user and to the password
// hash that was current when it was issued.
type PasswordResetClaims struct {
	UserID        uint   `json:"uid"`
	PasswordState string `json:"pws"`
	jwt.RegisteredClaims
}

func BuildPasswordResetToken(secretKey []byte, userID uint, passwordHash string, ttl time.Duration, now time.Time) (string, error) {
	if ttl <= 0 {
		ttl = DefaultPasswordResetTTL
	}
	if now.IsZero() {
		now = time.Now()
	}
	state := PasswordStateFingerprint(passwordHash)
	if state == "" {
		return "", ErrPasswordResetTokenStale
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, PasswordResetClaims{
		UserID:        userID,
		PasswordState: state,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Audience:  jwt.ClaimStrings{resetTokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}).SignedString(secretKey)
}

func ParsePasswordResetToken(secretKey []byte, rawToken string, now time.Time) (*PasswordResetClaims, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ErrPasswordResetTokenMissing
	}
	if now.IsZero() {
		now = time.Now()
	}

	claims := &PasswordResetClaims{}
	_, err := jwt.ParseWithClaims(
		rawToken,
		claims,
		hmacKeyFunc(secretKey),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(resetTokenAudience),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrPasswordResetTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return nil, ErrPasswordResetTokenWrongAudience
	case err != nil, claims.UserID == 0:
		return nil, ErrPasswordResetTokenInvalid
	case strings.TrimSpace(claims.PasswordState) == "":
		return nil, ErrPasswordResetTokenStale
	}
	return claims, nil
}

func hmacKeyFunc(secretKey []byte) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secretKey, nil
	}
}

// PasswordStateFingerprint changes whenever the password hash does, so a
// reset token dies with the password it was issued for.
func PasswordStateFingerprint(passwordHash string) string {
	passwordHash = strings.TrimSpace(passwordHash)
	if passwordHash == "" {
		return ""
	}
	sum := sha256.Sum256([]byte("roomdesk.reset.password-state.v1:" + passwordHash))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func IsPasswordStateFingerprintMatch(expected string, passwordHash string) bool {
	actual := PasswordStateFingerprint(passwordHash)
	if expected == "" || actual == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}

// GenerateRecoveryCodeHash returns a fresh recovery code and its bcrypt hash.
// Only the hash is stored; the code is shown to the user once.
func GenerateRecoveryCodeHash() (string, string, error) {
	code, err := GenerateRecoveryCode()
	if err != nil {
		return "", "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return code, string(hash), nil
}

func GenerateRecoveryCode() (string, error) {
	body, err := security.RandomString(recoveryCodeGroups*recoveryCodeGroupLength, security.UppercaseAlphabet+security.DigitAlphabet)
	if err != nil {
		return "", err
	}
	return formatRecoveryCode(body), nil
}

// NormalizeRecoveryCode accepts codes typed in any case, with or without the
// prefix, dashes or spaces. Input that cannot be a code is returned upper-cased
// so the bcrypt comparison simply fails.
func NormalizeRecoveryCode(raw string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	body := strings.NewReplacer(" ", "", "-", "").Replace(trimmed)
	body = strings.TrimPrefix(body, recoveryCodePrefix)
	if len(body) != recoveryCodeGroups*recoveryCodeGroupLength {
		return trimmed
	}
	return formatRecoveryCode(body)
}

func formatRecoveryCode(body string) string {
	parts := make([]string, 0, recoveryCodeGroups+1)
	parts = append(parts, recoveryCodePrefix)
	for start := 0; start < len(body); start += recoveryCodeGroupLength {
		parts = append(parts, body[start:start+recoveryCodeGroupLength])
	}
	return strings.Join(parts, "-")
}
