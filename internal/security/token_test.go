package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name      string
		secret    string
		namespace string
		ttl       time.Duration
		wantErr   bool
	}{
		{
			name:      "Valid token generation",
			secret:    "test-secret",
			namespace: "/program",
			ttl:       10 * time.Minute,
			wantErr:   false,
		},
		{
			name:      "Empty secret",
			secret:    "",
			namespace: "/program",
			ttl:       10 * time.Minute,
			wantErr:   true,
		},
		{
			name:      "Zero ttl",
			secret:    "test-secret",
			namespace: "/program",
			ttl:       0,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.secret, tt.namespace, tt.ttl)

			if (err != nil) != tt.wantErr {
				t.Errorf("GenerateToken() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			// Token format is expiresAt:signature.
			parts := strings.Split(token, ":")
			if len(parts) != 2 {
				t.Errorf("Token format incorrect, expected timestamp:signature, got %s", token)
				return
			}
			if len(parts[0]) == 0 {
				t.Errorf("Token timestamp is empty")
			}
		})
	}
}

func TestTokenGenerationAndValidation(t *testing.T) {
	secret := "test-secret"
	namespace := "/program"

	token, err := GenerateToken(secret, namespace, 10*time.Minute)
	assert.NoError(t, err, "Token generation should not fail")
	assert.NotEmpty(t, token, "Generated token should not be empty")

	parts := strings.Split(token, ":")
	assert.Len(t, parts, 2, "Token should have two parts separated by colon")

	valid, err := ValidateToken(secret, namespace, token)
	assert.NoError(t, err, "Validation of a fresh token should not fail")
	assert.True(t, valid, "Freshly generated token should be valid")
}

func TestValidateToken_Expired(t *testing.T) {
	secret := "test-secret"
	namespace := "/program"

	// Hand-build a token that expired an hour ago.
	expiresAtPast := time.Now().Add(-1 * time.Hour).Unix()
	messagePast := fmt.Sprintf("%s:%d", namespace, expiresAtPast)
	hPast := hmac.New(sha256.New, []byte(secret))
	hPast.Write([]byte(messagePast))
	pastToken := fmt.Sprintf("%d:%s", expiresAtPast, hex.EncodeToString(hPast.Sum(nil)))

	valid, err := ValidateToken(secret, namespace, pastToken)
	assert.Error(t, err, "Validation of an expired token should return an error")
	if err != nil {
		assert.Contains(t, err.Error(), "token has expired")
	}
	assert.False(t, valid)

	// And a short-lived token that expires while we wait.
	shortToken, err := GenerateToken(secret, namespace, 5*time.Millisecond)
	assert.NoError(t, err)
	assert.NotEmpty(t, shortToken)

	time.Sleep(1100 * time.Millisecond) // Expiry has second granularity.

	validAfterWait, errAfterWait := ValidateToken(secret, namespace, shortToken)
	if errAfterWait != nil {
		assert.Contains(t, errAfterWait.Error(), "token has expired")
		assert.False(t, validAfterWait)
	}
}

func TestValidateToken_InvalidFormat(t *testing.T) {
	valid, err := ValidateToken("test-secret", "/program", "invalid-token-format")
	assert.Error(t, err)
	assert.False(t, valid)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("test-secret", "/program", 5*time.Minute)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	valid, err := ValidateToken("wrong-secret", "/program", token)
	assert.NoError(t, err) // Signature mismatch is not an error, just invalid.
	assert.False(t, valid)
}

func TestValidateToken_WrongNamespace(t *testing.T) {
	token, err := GenerateToken("test-secret", "/program", 5*time.Minute)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	valid, err := ValidateToken("test-secret", "/other", token)
	assert.NoError(t, err)
	assert.False(t, valid)
}

func TestGenerateToken_EmptySecret(t *testing.T) {
	_, err := GenerateToken("", "/program", time.Minute)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "secret cannot be empty")
}

func TestValidateToken_EmptySecret(t *testing.T) {
	_, err := ValidateToken("", "/program", "123:abc")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "secret cannot be empty")
}

func TestGenerateToken_NonPositiveTTL(t *testing.T) {
	_, err := GenerateToken("secret", "/program", 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ttl must be positive")

	_, err = GenerateToken("secret", "/program", -1*time.Second)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ttl must be positive")
}
