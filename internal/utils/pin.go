package utils

import (
	"fmt"    // Error wrapping
	"regexp" // PIN shape check

	"trading_ledger/internal/domain" // Error kinds

	"golang.org/x/crypto/bcrypt" // PIN hashing
)

// PINHashCost is the bcrypt cost used for new PIN hashes
var PINHashCost = bcrypt.DefaultCost

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// IsValidPIN checks that pin is exactly four ASCII digits
func IsValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

// HashPIN returns a salted bcrypt hash of pin
func HashPIN(pin string) (string, error) {
	if !IsValidPIN(pin) {
		return "", fmt.Errorf("%w: PIN must be exactly 4 digits", domain.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), PINHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPIN compares candidate against storedHash. Malformed candidates are
// rejected before any hashing happens; the caller only learns true or false.
func VerifyPIN(storedHash, candidate string) bool {
	if storedHash == "" || !IsValidPIN(candidate) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(candidate)) == nil
}
