package auth

import (
	"github.com/restokit/restaurant-billing/internal/domain"
)

// Credentials is the credential service: password hashing plus access tokens.
type Credentials struct {
	tokens     *TokenManager
	bcryptCost int
	minLength  int
}

// NewCredentials wires a credential service.
func NewCredentials(tokens *TokenManager, bcryptCost, passwordMinLength int) *Credentials {
	return &Credentials{tokens: tokens, bcryptCost: bcryptCost, minLength: passwordMinLength}
}

// CheckStrength applies the password policy.
func (c *Credentials) CheckStrength(secret string) error {
	return ValidatePasswordStrength(secret, c.minLength)
}

// Hash returns the bcrypt hash of secret.
func (c *Credentials) Hash(secret string) (string, error) {
	return HashPassword(secret, c.bcryptCost)
}

// Verify reports whether secret matches hash.
func (c *Credentials) Verify(secret, hash string) bool {
	return ComparePassword(hash, secret) == nil
}

// IssueToken signs an access token for user.
func (c *Credentials) IssueToken(user *domain.User) (domain.IssuedToken, error) {
	token, expiresAt, err := c.tokens.GenerateToken(user)
	if err != nil {
		return domain.IssuedToken{}, err
	}
	return domain.IssuedToken{Token: token, ExpiresAt: expiresAt}, nil
}

// VerifyToken returns the actor asserted by a valid token.
func (c *Credentials) VerifyToken(token string) (domain.Actor, error) {
	claims, err := c.tokens.ParseToken(token)
	if err != nil {
		return domain.Actor{}, err
	}
	return domain.Actor{ID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}
