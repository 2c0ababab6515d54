package repository

import (
	"context"

	"github.com/jhoicas/molino-api/internal/domain/entity"
)

// MillRepository define el puerto de persistencia para Mill (tenant).
type MillRepository interface {
	Create(ctx context.Context, mill *entity.Mill) error
	GetByID(ctx context.Context, id string) (*entity.Mill, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Mill, error)
}
