package utils

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the shortest password accepted for an admin account.
const MinPasswordLen = 8

// ErrWeakPassword is returned by HashPassword for passwords bcrypt would
// accept but the admin panel does not.
var ErrWeakPassword = errors.New("password too short")

// HashPassword returns the bcrypt hash of plain at cost.  bcrypt only reads
// the first 72 bytes; longer input is rejected by bcrypt itself.
func HashPassword(plain string, cost int) (string, error) {
	if utf8.RuneCountInString(plain) < MinPasswordLen {
		return "", ErrWeakPassword
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
