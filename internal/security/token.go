package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Connect tokens authenticate a program's event channel against the
// collector. A token is an HMAC-SHA256 over the namespace and an expiry
// timestamp, keyed with the shared secret; the client generates it right
// before dialing and the collector verifies it during the upgrade.

// GenerateToken creates a connect token for the given namespace.
// ttl must be a positive duration.
func GenerateToken(secret, namespace string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}

	// The expiry is stored directly in the token so validation needs no
	// shared state beyond the secret.
	expiresAt := time.Now().Add(ttl).Unix()

	message := fmt.Sprintf("%s:%d", namespace, expiresAt)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	signature := hex.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("%d:%s", expiresAt, signature), nil
}

// ValidateToken checks a connect token for the given namespace. A false
// result with a nil error means the signature did not match.
func ValidateToken(secret, namespace, token string) (bool, error) {
	if secret == "" {
		return false, fmt.Errorf("secret cannot be empty")
	}

	var expiresAt int64
	var signature string
	_, err := fmt.Sscanf(token, "%d:%s", &expiresAt, &signature)
	if err != nil {
		return false, fmt.Errorf("invalid token format: %w", err)
	}

	expirationTime := time.Unix(expiresAt, 0)
	if time.Now().After(expirationTime) {
		return false, fmt.Errorf("token has expired (expired at %s)", expirationTime.Format(time.RFC3339))
	}

	// The message must match the one signed during generation, including the
	// expiry.
	message := fmt.Sprintf("%s:%d", namespace, expiresAt)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	expectedSignature := hex.EncodeToString(h.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expectedSignature)) {
		return false, nil
	}

	return true, nil
}
