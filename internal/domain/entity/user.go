package entity

import "time"

// Role etiqueta de función del usuario dentro del molino. Conjunto cerrado.
type Role string

// Roles válidos para User.
const (
	RoleSuperAdmin Role = "super_admin"
	RoleMillOwner  Role = "mill_owner"
	RoleManager    Role = "manager"
	RoleOperator   Role = "operator"
	RoleAccountant Role = "accountant"
)

// Roles devuelve todos los roles en orden de mayor a menor alcance.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleMillOwner, RoleManager, RoleOperator, RoleAccountant}
}

// ParseRole valida un rol recibido como texto (JWT, query, body).
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles() {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Valid informa si el rol pertenece al conjunto cerrado.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Scoped informa si el rol queda confinado a un molino (todos menos super_admin).
func (r Role) Scoped() bool {
	return r != RoleSuperAdmin
}

// Estados de cuenta.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User representa un usuario del back-office (pertenece a un Mill salvo super_admin).
type User struct {
	ID             string
	MillID         string // vacío solo para super_admin
	Email          string
	PasswordHash   string // bcrypt hash, nunca plano en dominio después de persistir
	FullName       string
	Phone          string
	Department     string
	Role           Role
	Status         string // active, inactive
	EmailConfirmed bool
	LastLogin      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Active informa si la cuenta puede iniciar sesión.
func (u *User) Active() bool {
	return u != nil && u.Status == UserStatusActive
}

// Profile extrae los metadatos editables del usuario.
func (u *User) Profile() Profile {
	return Profile{FullName: u.FullName, Phone: u.Phone, Department: u.Department}
}

// Identity construye la identidad pública que viaja en la sesión.
func (u *User) Identity() Identity {
	return Identity{
		UserID:  u.ID,
		Email:   u.Email,
		Role:    u.Role,
		Profile: u.Profile(),
	}
}
