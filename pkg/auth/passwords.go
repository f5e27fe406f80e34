package auth

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for passwords people choose.
	BcryptCost = 12
	// TemporaryBcryptCost is used for generated passwords, e.g. the accounts
	// a member import creates in bulk. Authenticate rehashes them at
	// BcryptCost on first sign in.
	TemporaryBcryptCost = bcrypt.DefaultCost
)

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	return hash(password, BcryptCost)
}

// HashTemporaryPassword hashes a generated password at TemporaryBcryptCost.
func HashTemporaryPassword(password string) (string, error) {
	return hash(password, TemporaryBcryptCost)
}

func hash(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(hashed), nil
}

// CheckPassword compares a password with a hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func needsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err == nil && cost < BcryptCost
}
