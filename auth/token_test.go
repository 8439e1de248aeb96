package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-gateway/errors"
)

const (
	testSecret = "unit-test-secret"
	testIssuer = "chat-gateway"
)

func TestVerifier_Roundtrip(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier(testSecret, testIssuer)

	// Given a freshly minted token
	token, err := GenerateToken(testSecret, testIssuer, "user-42", "alice", time.Hour)
	req.NoError(err)

	// When it is verified
	identity, err := verifier.Verify(token)

	// Then the identity is recovered
	req.NoError(err)
	req.Equal("user-42", identity.ID)
	req.Equal("alice", identity.Username)
}

func TestVerifier_UsernameDefaultsToUserID(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier(testSecret, testIssuer)

	token, err := GenerateToken(testSecret, testIssuer, "user-42", "", time.Hour)
	req.NoError(err)

	identity, err := verifier.Verify(token)
	req.NoError(err)
	req.Equal("user-42", identity.Username)
}

func TestVerifier_Expired(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier(testSecret, testIssuer)

	// Given a token that expired an hour ago
	token, err := GenerateToken(testSecret, testIssuer, "user-42", "alice", -time.Hour)
	req.NoError(err)

	// Then verification reports the expiry
	_, err = verifier.Verify(token)
	req.ErrorIs(err, errors.ErrTokenExpired)
}

func TestVerifier_WrongKey(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier(testSecret, testIssuer)

	token, err := GenerateToken("another-secret", testIssuer, "user-42", "alice", time.Hour)
	req.NoError(err)

	_, err = verifier.Verify(token)
	req.ErrorIs(err, errors.ErrTokenSignatureInvalid)
}

func TestVerifier_Malformed(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier(testSecret, testIssuer)

	for _, credential := range []string{"", "garbage", "a.b.c"} {
		_, err := verifier.Verify(credential)
		req.ErrorIs(err, errors.ErrTokenMalformed, "credential=%q", credential)
	}
}

func TestVerifier_MissingSubject(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier(testSecret, testIssuer)

	// Given a validly signed token with no user id
	token, err := GenerateToken(testSecret, testIssuer, "", "alice", time.Hour)
	req.NoError(err)

	_, err = verifier.Verify(token)
	req.ErrorIs(err, errors.ErrUnknownSubject)
}
