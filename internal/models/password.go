package models

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 12

// HashPassword returns the bcrypt hash of plaintext. A cost of zero uses
// DefaultBcryptCost.
func HashPassword(plaintext string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// SetPassword replaces the user's password with the hash of plaintext.
func (u *User) SetPassword(plaintext string, cost int) error {
	hash, err := HashPassword(plaintext, cost)
	if err != nil {
		return err
	}
	u.Password = hash
	return nil
}

// PasswordMatches reports whether plaintext matches the stored hash.
func (u *User) PasswordMatches(plaintext string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plaintext))
	if err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	}
	return true, nil
}

// IsHashed reports whether s looks like a bcrypt hash.
func IsHashed(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
