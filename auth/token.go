// Package auth verifies the bearer credentials presented during the
// websocket handshake. Token issuance belongs to the account
// collaborator; GenerateToken exists for the tokengen tool and tests.
package auth

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chat-gateway/domain"
	"chat-gateway/errors"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Verifier checks bearer tokens synchronously; a pure HMAC validation,
// cheap enough for the handshake path.
type Verifier struct {
	key    []byte
	issuer string
}

func NewVerifier(secret, issuer string) Verifier {
	return Verifier{key: []byte(secret), issuer: issuer}
}

// Verify parses and validates the credential and yields the caller's
// identity. Failures map onto the gateway taxonomy; callers must reject
// the handshake without detailing the cause to the client.
func (v Verifier) Verify(credential string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(credential, &CustomClaims{},
		func(*jwt.Token) (interface{}, error) { return v.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		switch {
		case stderrors.Is(err, jwt.ErrTokenExpired):
			return domain.Identity{}, errors.ErrTokenExpired
		case stderrors.Is(err, jwt.ErrTokenSignatureInvalid):
			return domain.Identity{}, errors.ErrTokenSignatureInvalid
		default:
			return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrTokenMalformed, err)
		}
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return domain.Identity{}, errors.ErrTokenSignatureInvalid
	}
	if claims.UserID == "" {
		return domain.Identity{}, errors.ErrUnknownSubject
	}

	username := claims.Username
	if username == "" {
		username = claims.UserID
	}
	return domain.Identity{ID: claims.UserID, Username: username}, nil
}

// GenerateToken creates a signed JWT for a specific user.
func GenerateToken(secret, issuer, userID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
