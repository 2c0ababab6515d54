package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/molino-api/pkg/jwt"
)

const (
	testSecret = "test-secret-key-for-unit-tests"
	testIssuer = "molino-api-test"
)

func testSubject() pkgjwt.Subject {
	return pkgjwt.Subject{
		UserID:    "00000000-0000-0000-0000-000000000001",
		MillID:    "00000000-0000-0000-0000-000000000002",
		Role:      "operator",
		Email:     "operario@molino.co",
		SessionID: "sess-1",
	}
}

func TestJWT_GenerateAndParse_ConIdentidad(t *testing.T) {
	tok, exp, err := pkgjwt.Generate(testSecret, testIssuer, time.Hour, testSubject())
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := pkgjwt.Parse(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, testSubject(), claims.Identity())
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.Equal(t, "sess-1", claims.ID)
}

func TestJWT_TokenExpirado_RetornaError(t *testing.T) {
	// El firmado rechaza duraciones no positivas; se fuerza la expiración con un TTL mínimo.
	tok, _, err := pkgjwt.Generate(testSecret, testIssuer, time.Millisecond, testSubject())
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = pkgjwt.Parse(testSecret, tok)
	assert.Error(t, err, "token expirado debe retornar error")
}

func TestJWT_SecretIncorrecto_RetornaError(t *testing.T) {
	tok, _, err := pkgjwt.Generate(testSecret, testIssuer, time.Hour, testSubject())
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro-secret-completamente-distinto", tok)
	assert.Error(t, err, "secret incorrecto debe invalidar el token")
}

func TestJWT_SecretVacio_RetornaError(t *testing.T) {
	_, _, err := pkgjwt.Generate("", testIssuer, time.Hour, testSubject())
	assert.Error(t, err)

	_, err = pkgjwt.Parse("", "x.y.z")
	assert.Error(t, err)
}

func TestJWT_DuracionInvalida_RetornaError(t *testing.T) {
	_, _, err := pkgjwt.Generate(testSecret, testIssuer, 0, testSubject())
	assert.Error(t, err)
}
