package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/molino-api/internal/domain"
)

func TestAsAuthError_Clasificacion(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want domain.AuthErrorKind
	}{
		{"auth error directo", domain.NewAuthError(domain.AuthRateLimited, ""), domain.AuthRateLimited},
		{"auth error envuelto", fmt.Errorf("login: %w", domain.ErrInvalidCredentials), domain.AuthInvalidCredentials},
		{"deadline", context.DeadlineExceeded, domain.AuthNetworkUnavailable},
		{"deadline envuelto", fmt.Errorf("query: %w", context.DeadlineExceeded), domain.AuthNetworkUnavailable},
		{"error genérico", errors.New("boom"), domain.AuthUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.AsAuthError(tc.in)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, got.Kind)
		})
	}
	assert.Nil(t, domain.AsAuthError(nil))
}

func TestAuthError_IsComparaVariante(t *testing.T) {
	err := fmt.Errorf("sign in: %w", &domain.AuthError{Kind: domain.AuthUnconfirmedAccount, Reason: "pendiente"})
	assert.ErrorIs(t, err, domain.ErrUnconfirmedAccount)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthError_Message(t *testing.T) {
	assert.Contains(t, domain.ErrInvalidCredentials.Message(), "inválidos")
	assert.Contains(t, domain.ErrRateLimited.Message(), "Demasiados intentos")
	assert.Equal(t, "cuenta sin molino", domain.NewAuthError(domain.AuthUnknown, "cuenta sin molino").Message())
	assert.NotEmpty(t, (&domain.AuthError{Kind: domain.AuthUnknown}).Message())
}
