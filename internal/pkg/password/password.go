package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const cost = 12

// ErrTooLong rejects inputs past bcrypt's 72-byte limit instead of letting
// the algorithm silently truncate them.
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hash hashes a password with bcrypt.
func Hash(password string) (string, error) {
	if len(password) > 72 {
		return "", ErrTooLong
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// Verify compares a password with its stored hash.
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
