package apiclient

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the backend session token the console reads.
type Claims struct {
	jwt.RegisteredClaims
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
}

// AgentID is the agent the token was issued to.
func (c *Claims) AgentID() string {
	return c.Subject
}

// ParseClaims decodes the token payload without verifying the signature.
// The backend verifies tokens; the console only needs to know who it is.
func ParseClaims(token string) (*Claims, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parsing session token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("session token has no subject")
	}
	return claims, nil
}

// Claims decodes the current session token.
func (c *Client) Claims() (*Claims, error) {
	return ParseClaims(c.Token())
}
