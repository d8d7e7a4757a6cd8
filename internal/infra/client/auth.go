package client

import (
	"context"
	"net/http"

	"github.com/boddenberg/insights-bff-go/internal/domain"
)

// AuthClient calls the upstream login and registration endpoints.
type AuthClient struct {
	upstream *upstream
	tenantID string
}

// Login exchanges credentials for a bearer token.
func (c *AuthClient) Login(ctx context.Context, email, password string) (string, error) {
	ctx, span := tracer.Start(ctx, "AuthClient.Login")
	defer span.End()

	req := &domain.LoginRequest{Email: email, Password: password}

	result, err := c.upstream.call(ctx, "auth", http.MethodPost, "/auth/login", nil, "", req, func(resp *response) (any, error) {
		v, err := decodeJSON(resp.body)
		if err != nil {
			return nil, &domain.ErrNetwork{Service: "auth", Err: err}
		}
		data, _ := asObject(v)
		token := stringOr(data, "token", "")
		if resp.ok() && token != "" {
			return token, nil
		}
		return nil, &domain.ErrAuth{Message: stringOr(data, "error", domain.MsgLoginFailed)}
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Register creates an account. It never authenticates the caller.
func (c *AuthClient) Register(ctx context.Context, name, email, password string) error {
	ctx, span := tracer.Start(ctx, "AuthClient.Register")
	defer span.End()

	req := &domain.RegisterRequest{
		TenantID: c.tenantID,
		Email:    email,
		Password: password,
		Name:     name,
	}

	_, err := c.upstream.call(ctx, "auth", http.MethodPost, "/auth/register", nil, "", req, func(resp *response) (any, error) {
		v, err := decodeJSON(resp.body)
		if err != nil {
			return nil, &domain.ErrNetwork{Service: "auth", Err: err}
		}
		data, _ := asObject(v)
		if resp.ok() && truthy(data, "success") {
			return nil, nil
		}
		return nil, &domain.ErrAuth{Message: stringOr(data, "error", domain.MsgRegistrationFailed)}
	})
	return err
}
