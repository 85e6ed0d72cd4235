// Package security holds crypto-random helpers for credentials.
package security

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strings"
)

const (
	// Ambiguous glyphs (0/O, 1/l/I) are left out so codes survive being read aloud.
	UppercaseAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	LowercaseAlphabet = "abcdefghijkmnopqrstuvwxyz"
	DigitAlphabet     = "23456789"

	minTemporaryPasswordLength = 8
	maxTemporaryPasswordTries  = 64
)

var (
	errNegativeLength = errors.New("length must be non-negative")
	errEmptyAlphabet  = errors.New("alphabet must not be empty")
	errNoMixedClasses = errors.New("could not draw a password with mixed character classes")
)

// RandomString returns an unbiased string of length drawn from alphabet.
func RandomString(length int, alphabet string) (string, error) {
	return randomStringFrom(rand.Reader, length, alphabet)
}

// TemporaryPassword returns a password that mixes upper case, lower case and
// digits, so it passes the account password policy.
func TemporaryPassword(length int) (string, error) {
	return temporaryPasswordFrom(rand.Reader, length)
}

func temporaryPasswordFrom(source io.Reader, length int) (string, error) {
	if length < minTemporaryPasswordLength {
		length = minTemporaryPasswordLength
	}

	alphabet := UppercaseAlphabet + LowercaseAlphabet + DigitAlphabet
	for attempt := 0; attempt < maxTemporaryPasswordTries; attempt++ {
		candidate, err := randomStringFrom(source, length, alphabet)
		if err != nil {
			return "", err
		}
		if strings.ContainsAny(candidate, UppercaseAlphabet) &&
			strings.ContainsAny(candidate, LowercaseAlphabet) &&
			strings.ContainsAny(candidate, DigitAlphabet) {
			return candidate, nil
		}
	}
	return "", errNoMixedClasses
}

func randomStringFrom(source io.Reader, length int, alphabet string) (string, error) {
	if length < 0 {
		return "", errNegativeLength
	}
	if length == 0 {
		return "", nil
	}
	if len(alphabet) == 0 {
		return "", errEmptyAlphabet
	}

	limit := big.NewInt(int64(len(alphabet)))
	value := make([]byte, length)
	for index := range value {
		position, err := rand.Int(source, limit)
		if err != nil {
			return "", err
		}
		value[index] = alphabet[position.Int64()]
	}
	return string(value), nil
}
