package dto

import "time"

// LoginRequest entrada para login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUpRequest registro de una cuenta nueva dentro de un molino.
type SignUpRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	FullName   string `json:"full_name" validate:"omitempty,max=200"`
	Phone      string `json:"phone" validate:"omitempty,max=40"`
	Department string `json:"department" validate:"omitempty,max=100"`
	MillID     string `json:"mill_id" validate:"required,uuid"`
	Role       string `json:"role" validate:"omitempty,oneof=mill_owner manager operator accountant"`
}

// SignUpResponse resultado del registro. Session es nil si falta confirmar el email.
type SignUpResponse struct {
	ConfirmationRequired bool             `json:"confirmation_required"`
	Session              *SessionResponse `json:"session,omitempty"`
}

// ResetPasswordRequest solicita el enlace de recuperación.
type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UpdatePasswordRequest completa la recuperación con el token recibido por correo.
type UpdatePasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// ProfilePatchRequest cambios parciales de perfil; campos ausentes no se tocan.
type ProfilePatchRequest struct {
	FullName   *string `json:"full_name" validate:"omitempty,max=200"`
	Phone      *string `json:"phone" validate:"omitempty,max=40"`
	Department *string `json:"department" validate:"omitempty,max=100"`
}

// IdentityResponse identidad pública de la sesión.
type IdentityResponse struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	FullName   string `json:"full_name"`
	Phone      string `json:"phone,omitempty"`
	Department string `json:"department,omitempty"`
}

// SessionResponse estado de la sesión del navegador. Nunca incluye el token.
type SessionResponse struct {
	Resolved      bool              `json:"resolved"`
	Authenticated bool              `json:"authenticated"`
	User          *IdentityResponse `json:"user,omitempty"`
	TenantScope   string            `json:"tenant_scope,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	Permissions   []string          `json:"permissions,omitempty"`
}

// TokenResponse token de acceso para clientes de API.
type TokenResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresAt   time.Time        `json:"expires_at"`
	User        IdentityResponse `json:"user"`
}

// RedirectResponse cuerpo de una respuesta que exige navegar a otra ruta.
type RedirectResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RedirectTo string `json:"redirect_to"`
}

// LoginResponse sesión abierta y destino al que debe navegar el dashboard.
type LoginResponse struct {
	Session    SessionResponse `json:"session"`
	RedirectTo string          `json:"redirect_to,omitempty"`
}
