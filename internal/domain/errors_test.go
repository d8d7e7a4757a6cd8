package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/boddenberg/insights-bff-go/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", &domain.ErrValidation{Field: "email", Message: "Email is required"}, "Email is required"},
		{"auth", &domain.ErrAuth{Message: "Invalid credentials"}, "Invalid credentials"},
		{"wrapped auth", fmt.Errorf("login: %w", &domain.ErrAuth{Message: "Login failed"}), "Login failed"},
		{"network", &domain.ErrNetwork{Service: "auth", Err: errors.New("dial tcp: refused")}, "Network error"},
		{"fetch", &domain.ErrFetch{Resource: "trends", Status: 500, Message: domain.MsgTrendsFailed}, "Failed to fetch trends"},
		{"other", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.UserMessage(tt.err))
		})
	}
}

func TestNetworkErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := &domain.ErrNetwork{Service: "metrics", Err: cause}

	assert.ErrorIs(t, err, cause)
}

func TestDateRangeComplete(t *testing.T) {
	assert.False(t, domain.DateRange{}.Complete())
	assert.False(t, domain.DateRange{Start: "2024-01-01"}.Complete())
	assert.False(t, domain.DateRange{End: "2024-01-31"}.Complete())
	assert.True(t, domain.DateRange{Start: "2024-01-01", End: "2024-01-31"}.Complete())
}
