package dto

import "time"

// AccessReport datos del reporte de accesos (roles, permisos y usuarios) de un molino.
type AccessReport struct {
	MillName    string
	GeneratedAt time.Time
	GeneratedBy string
	Roles       []RoleAccessRow
	Users       []UserResponse
}

// RoleAccessRow fila del resumen por rol.
type RoleAccessRow struct {
	Role        string
	Permissions []string
	UserCount   int
}
