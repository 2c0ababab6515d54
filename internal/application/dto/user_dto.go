package dto

import "time"

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID             string     `json:"id"`
	MillID         string     `json:"mill_id,omitempty"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name"`
	Phone          string     `json:"phone,omitempty"`
	Department     string     `json:"department,omitempty"`
	Role           string     `json:"role"`
	Status         string     `json:"status"`
	EmailConfirmed bool       `json:"email_confirmed"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserListResponse listado paginado de usuarios.
type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// ChangeRoleRequest asigna un rol nuevo a un usuario.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=super_admin mill_owner manager operator accountant"`
}

// SetActiveRequest activa o desactiva una cuenta.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}
