package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/molino-api/internal/domain"
	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/internal/domain/repository"
)

var _ repository.MillRepository = (*MillRepo)(nil)

const millColumns = `id, name, license_number, address, phone, email, capacity_tons_per_day, is_active, created_at, updated_at`

// MillRepo implementación del puerto MillRepository sobre PostgreSQL.
// capacity_tons_per_day es NUMERIC: se escanea a decimal.Decimal gracias al codec del pool.
type MillRepo struct {
	pool *pgxpool.Pool
}

// NewMillRepository construye el adaptador de persistencia para molinos.
func NewMillRepository(pool *pgxpool.Pool) *MillRepo {
	return &MillRepo{pool: pool}
}

// Create persiste un molino.
func (r *MillRepo) Create(ctx context.Context, m *entity.Mill) error {
	query := `
		INSERT INTO mills (` + millColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, query,
		m.ID, m.Name, m.LicenseNumber, m.Address, m.Phone, m.Email, m.CapacityTonsPerDay,
		m.IsActive, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert mill: %w", err)
	}
	return nil
}

// GetByID obtiene un molino por ID; (nil, nil) si no existe.
func (r *MillRepo) GetByID(ctx context.Context, id string) (*entity.Mill, error) {
	m, err := scanMill(r.pool.QueryRow(ctx, `SELECT `+millColumns+` FROM mills WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get mill by id: %w", err)
	}
	return m, nil
}

// List lista molinos ordenados por nombre.
func (r *MillRepo) List(ctx context.Context, limit, offset int) ([]*entity.Mill, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+millColumns+` FROM mills ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list mills: %w", err)
	}
	defer rows.Close()
	var list []*entity.Mill
	for rows.Next() {
		m, err := scanMill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mill: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMill(row pgx.Row) (*entity.Mill, error) {
	var m entity.Mill
	err := row.Scan(&m.ID, &m.Name, &m.LicenseNumber, &m.Address, &m.Phone, &m.Email,
		&m.CapacityTonsPerDay, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
