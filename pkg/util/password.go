package util

import (
	"golang.org/x/crypto/bcrypt"
)

// Cost above the bcrypt default; login latency stays acceptable.
const bcryptCost = 12

// HashPassword derives a salted bcrypt hash for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
