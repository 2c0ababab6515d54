package usecase

import (
	"context"

	"github.com/jhoicas/molino-api/internal/application/dto"
	"github.com/jhoicas/molino-api/internal/domain"
	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/internal/domain/rbac"
	"github.com/jhoicas/molino-api/internal/domain/repository"
)

// MillUseCase consultas sobre el molino (tenant) del actor.
type MillUseCase struct {
	repo repository.MillRepository
}

// NewMillUseCase construye el caso de uso con el puerto de persistencia.
func NewMillUseCase(repo repository.MillRepository) *MillUseCase {
	return &MillUseCase{repo: repo}
}

// Current devuelve el molino de la sesión. super_admin no tiene molino propio.
func (uc *MillUseCase) Current(ctx context.Context, actor Actor) (*dto.MillResponse, error) {
	if !rbac.Can(actor.Role, rbac.MillsRead) {
		return nil, domain.ErrForbidden
	}
	if actor.MillID == "" {
		return nil, domain.ErrMillNotFound
	}
	m, err := uc.repo.GetByID(ctx, actor.MillID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrMillNotFound
	}
	return entityToMillResponse(m), nil
}

// List lista los molinos visibles: todos para super_admin, el propio para los demás.
func (uc *MillUseCase) List(ctx context.Context, actor Actor, page dto.PageRequest) ([]dto.MillResponse, error) {
	if !rbac.Can(actor.Role, rbac.MillsRead) {
		return nil, domain.ErrForbidden
	}
	if actor.Role.Scoped() {
		m, err := uc.Current(ctx, actor)
		if err != nil {
			return nil, err
		}
		return []dto.MillResponse{*m}, nil
	}
	page.DefaultPage()
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MillResponse, 0, len(list))
	for _, m := range list {
		out = append(out, *entityToMillResponse(m))
	}
	return out, nil
}

func entityToMillResponse(m *entity.Mill) *dto.MillResponse {
	return &dto.MillResponse{
		ID:                 m.ID,
		Name:               m.Name,
		LicenseNumber:      m.LicenseNumber,
		Address:            m.Address,
		Phone:              m.Phone,
		Email:              m.Email,
		CapacityTonsPerDay: m.CapacityTonsPerDay,
		IsActive:           m.IsActive,
		CreatedAt:          m.CreatedAt,
	}
}
