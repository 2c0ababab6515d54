package repository

import (
	"context"

	"github.com/jhoicas/molino-api/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (DIP).
// Los métodos Get* devuelven (nil, nil) cuando el registro no existe.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	// ListByMill lista usuarios de un molino; millID vacío lista todos (solo super_admin).
	ListByMill(ctx context.Context, millID string, limit, offset int) ([]*entity.User, error)
	CountByMill(ctx context.Context, millID string) (int, error)
}
