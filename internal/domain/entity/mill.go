package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mill representa un molino de arroz: la unidad organizacional (tenant) del sistema.
type Mill struct {
	ID                 string
	Name               string
	LicenseNumber      string
	Address            string
	Phone              string
	Email              string
	CapacityTonsPerDay decimal.Decimal // NUMERIC(10,2); cero si no se declaró
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
