package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// AuthErrorKind variantes de fallo de las operaciones de autenticación.
type AuthErrorKind string

const (
	AuthInvalidCredentials AuthErrorKind = "INVALID_CREDENTIALS"
	AuthUnconfirmedAccount AuthErrorKind = "UNCONFIRMED_ACCOUNT"
	AuthRateLimited        AuthErrorKind = "RATE_LIMITED"
	AuthNetworkUnavailable AuthErrorKind = "NETWORK_UNAVAILABLE"
	AuthUnknown            AuthErrorKind = "UNKNOWN"
)

// AuthError error tipado que devuelven el Session Store y el proveedor de identidad.
// Nunca es fatal: el formulario que originó la llamada lo muestra en línea.
type AuthError struct {
	Kind   AuthErrorKind
	Reason string // detalle para Unknown; opcional en el resto
	Err    error  // causa original, si existe
}

// NewAuthError construye un AuthError con motivo.
func NewAuthError(kind AuthErrorKind, reason string) *AuthError {
	return &AuthError{Kind: kind, Reason: reason}
}

func (e *AuthError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("auth %s: %s", e.Kind, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %v", e.Kind, e.Err)
	}
	return "auth " + string(e.Kind)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is permite errors.Is(err, &AuthError{Kind: ...}) comparando solo la variante.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Message frase legible para el usuario final.
func (e *AuthError) Message() string {
	switch e.Kind {
	case AuthInvalidCredentials:
		return "Email o contraseña inválidos. Revise sus credenciales e intente de nuevo."
	case AuthUnconfirmedAccount:
		return "Revise su correo y abra el enlace de confirmación antes de iniciar sesión."
	case AuthRateLimited:
		return "Demasiados intentos. Espere unos minutos antes de volver a intentarlo."
	case AuthNetworkUnavailable:
		return "No se pudo contactar el servicio de autenticación. Verifique su conexión."
	default:
		if e.Reason != "" {
			return e.Reason
		}
		return "Ocurrió un error inesperado."
	}
}

// Sentinelas para comparar con errors.Is.
var (
	ErrInvalidCredentials = &AuthError{Kind: AuthInvalidCredentials}
	ErrUnconfirmedAccount = &AuthError{Kind: AuthUnconfirmedAccount}
	ErrRateLimited        = &AuthError{Kind: AuthRateLimited}
	ErrNetworkUnavailable = &AuthError{Kind: AuthNetworkUnavailable}
)

// AsAuthError clasifica cualquier error como AuthError. nil se mantiene nil.
func AsAuthError(err error) *AuthError {
	if err == nil {
		return nil
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.As(err, &netErr) {
		return &AuthError{Kind: AuthNetworkUnavailable, Err: err}
	}
	return &AuthError{Kind: AuthUnknown, Reason: err.Error(), Err: err}
}
