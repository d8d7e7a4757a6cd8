// Package service holds the BFF's application state: auth flows, the
// per-browser workspace and the dashboard data-and-render lifecycle.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/insights-bff-go/internal/domain"
	"github.com/boddenberg/insights-bff-go/internal/infra/observability"
	"github.com/boddenberg/insights-bff-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

// AuthService validates auth forms and forwards them to the commerce API.
type AuthService struct {
	client  port.AuthClient
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(client port.AuthClient, metrics *observability.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{client: client, metrics: metrics, logger: logger}
}

// ============================================================
// Login: POST /login
// ============================================================

func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Session{}, &domain.ErrValidation{Field: "email", Message: "Email is required"}
	}
	if password == "" {
		return domain.Session{}, &domain.ErrValidation{Field: "password", Message: "Password is required"}
	}

	start := time.Now()
	token, err := s.client.Login(ctx, email, password)
	s.metrics.RecordRequestDuration("login", time.Since(start))
	if err != nil {
		recordFailure(s.metrics, s.logger, "auth", err)
		return domain.Session{}, err
	}

	s.logger.Info("login succeeded", zap.String("email", email))
	return domain.Session{Token: token}, nil
}

// ============================================================
// Register: POST /register
// ============================================================

func (s *AuthService) Register(ctx context.Context, name, email, password string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	switch {
	case name == "":
		return &domain.ErrValidation{Field: "name", Message: "Name is required"}
	case email == "":
		return &domain.ErrValidation{Field: "email", Message: "Email is required"}
	case password == "":
		return &domain.ErrValidation{Field: "password", Message: "Password is required"}
	}

	start := time.Now()
	err := s.client.Register(ctx, name, email, password)
	s.metrics.RecordRequestDuration("register", time.Since(start))
	if err != nil {
		recordFailure(s.metrics, s.logger, "auth", err)
		return err
	}

	s.logger.Info("registration succeeded", zap.String("email", email))
	return nil
}
