package testutil

import (
	"context"
	"net/http"
	"time"

	"trustplane/internal/platform/middleware"
)

// WithBearerToken attaches a bearer token to the request, the way an
// authenticated operator client would.
func WithBearerToken(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// WithOperator mints a short-lived token for the operator and attaches it to
// the request. This simulates a fully authenticated operator call; the auth
// middleware does the context plumbing.
func WithOperator(req *http.Request, jwt *middleware.JWTService, operatorID string) (*http.Request, error) {
	token, err := jwt.GenerateToken(operatorID, 5*time.Minute)
	if err != nil {
		return nil, err
	}
	return WithBearerToken(req, token), nil
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
