// Package middleware provides HTTP middleware for the console API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// AgentIDKey is the context key for the authenticated agent.
	AgentIDKey ContextKey = "agent_id"
	// BusinessIDKey is the context key for the business named in the token.
	BusinessIDKey ContextKey = "business_id"
)

// Claims are the claims of a console UI token.
type Claims struct {
	jwt.RegisteredClaims
	BusinessID string `json:"business_id"`
}

// Auth verifies the HS256 bearer token issued to the console UI. When agentID
// is set, tokens issued to any other agent are refused.
func Auth(jwtSecret, agentID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "missing or malformed authorization header")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			}, jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				writeJSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			if agentID != "" && claims.Subject != agentID {
				writeJSONError(w, http.StatusForbidden, "token was issued to another agent")
				return
			}

			ctx := context.WithValue(r.Context(), AgentIDKey, claims.Subject)
			ctx = context.WithValue(ctx, BusinessIDKey, claims.BusinessID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reads the token from the Authorization header, or from the
// access_token query parameter for EventSource clients that cannot set
// headers.
func bearerToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if t := r.URL.Query().Get("access_token"); t != "" {
		return t, true
	}
	return "", false
}

// GetAgentID gets the agent ID from context.
func GetAgentID(ctx context.Context) string {
	if v, ok := ctx.Value(AgentIDKey).(string); ok {
		return v
	}
	return ""
}

// GetBusinessID gets the business ID from context.
func GetBusinessID(ctx context.Context) string {
	if v, ok := ctx.Value(BusinessIDKey).(string); ok {
		return v
	}
	return ""
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
