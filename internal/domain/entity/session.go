package entity

import "time"

// Profile metadatos editables de la identidad (no afectan rol ni token).
type Profile struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
}

// ProfileMetadata datos entregados en el registro de una cuenta nueva.
type ProfileMetadata struct {
	Profile
	MillID string
	Role   Role // vacío = operator
}

// ProfilePatch cambios parciales de perfil; nil = no tocar el campo.
type ProfilePatch struct {
	FullName   *string
	Phone      *string
	Department *string
}

// Empty informa si el patch no modifica nada.
func (p ProfilePatch) Empty() bool {
	return p.FullName == nil && p.Phone == nil && p.Department == nil
}

// Apply devuelve el perfil con el patch aplicado.
func (p ProfilePatch) Apply(base Profile) Profile {
	if p.FullName != nil {
		base.FullName = *p.FullName
	}
	if p.Phone != nil {
		base.Phone = *p.Phone
	}
	if p.Department != nil {
		base.Department = *p.Department
	}
	return base
}

// Identity quién es el usuario autenticado.
type Identity struct {
	UserID  string  `json:"user_id"`
	Email   string  `json:"email"`
	Role    Role    `json:"role"`
	Profile Profile `json:"profile"`
}

// Session sesión autenticada de un navegador.
// El token pertenece en exclusiva al Session Store; la aplicación nunca lo persiste.
type Session struct {
	Identity    Identity
	Token       string
	TenantScope string // mill_id; vacío para super_admin
	ExpiresAt   time.Time
}

// Clone copia la sesión para entregar snapshots de solo lectura.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// SameIdentity compara identidad y tenant ignorando el token (un refresh no es un cambio).
func (s *Session) SameIdentity(other *Session) bool {
	if s == nil || other == nil {
		return s == nil && other == nil
	}
	return s.Identity == other.Identity && s.TenantScope == other.TenantScope
}

// AuthEvent tipo de evento de sesión (mismos nombres que emite el proveedor externo).
type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEvent = "USER_UPDATED"
)

// SessionEvent notificación del proveedor. Session es nil en SIGNED_OUT.
type SessionEvent struct {
	Kind    AuthEvent
	Session *Session
}
