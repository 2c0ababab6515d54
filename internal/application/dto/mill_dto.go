package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// MillResponse datos del molino (tenant) del usuario.
type MillResponse struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	LicenseNumber      string          `json:"license_number,omitempty"`
	Address            string          `json:"address,omitempty"`
	Phone              string          `json:"phone,omitempty"`
	Email              string          `json:"email,omitempty"`
	CapacityTonsPerDay decimal.Decimal `json:"capacity_tons_per_day"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
}

// NavSectionResponse sección del dashboard que el rol puede abrir.
type NavSectionResponse struct {
	Key                string `json:"key"`
	Label              string `json:"label"`
	Path               string `json:"path"`
	RequiredPermission string `json:"required_permission,omitempty"`
	RequiredRole       string `json:"required_role,omitempty"`
}
