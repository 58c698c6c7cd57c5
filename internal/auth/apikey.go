package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Merchant API keys look like pk_<prefix>_<secret>. The prefix is the
// public lookup handle; the secret half is only ever stored as a bcrypt
// hash.
const apiKeyScheme = "pk"

var ErrMalformedAPIKey = errors.New("malformed api key")

// NewAPIKey mints a key. The full key is returned exactly once, at issue
// time.
func NewAPIKey() (full, prefix, hash string, err error) {
	prefix = strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	secret := strings.ReplaceAll(uuid.NewString(), "-", "")
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", err
	}
	return fmt.Sprintf("%s_%s_%s", apiKeyScheme, prefix, secret), prefix, string(h), nil
}

// SplitAPIKey pulls the lookup prefix and secret out of a presented key.
func SplitAPIKey(key string) (prefix, secret string, err error) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 || parts[0] != apiKeyScheme || parts[1] == "" || parts[2] == "" {
		return "", "", ErrMalformedAPIKey
	}
	return parts[1], parts[2], nil
}

// VerifyAPIKeySecret compares a presented secret against the stored hash.
func VerifyAPIKeySecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
