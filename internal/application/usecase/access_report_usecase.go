package usecase

import (
	"context"
	"time"

	"github.com/jhoicas/molino-api/internal/application/dto"
	"github.com/jhoicas/molino-api/internal/application/ports"
	"github.com/jhoicas/molino-api/internal/domain"
	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/internal/domain/rbac"
	"github.com/jhoicas/molino-api/internal/domain/repository"
)

// reportPageSize tamaño de página al recorrer los usuarios del molino.
const reportPageSize = 100

// AccessReportUseCase arma el reporte de accesos del molino: qué puede hacer cada rol
// y quién lo tiene asignado.
type AccessReportUseCase struct {
	users    repository.UserRepository
	mills    repository.MillRepository
	renderer ports.AccessReportRenderer
	now      func() time.Time
}

// NewAccessReportUseCase construye el caso de uso.
func NewAccessReportUseCase(users repository.UserRepository, mills repository.MillRepository, renderer ports.AccessReportRenderer) *AccessReportUseCase {
	return &AccessReportUseCase{users: users, mills: mills, renderer: renderer, now: time.Now}
}

// Build reúne los datos del reporte dentro del alcance del actor.
func (uc *AccessReportUseCase) Build(ctx context.Context, actor Actor) (*dto.AccessReport, error) {
	if !rbac.Can(actor.Role, rbac.UsersRead) {
		return nil, domain.ErrForbidden
	}
	scope, err := scopeOf(actor)
	if err != nil {
		return nil, err
	}

	millName := "Todos los molinos"
	if scope != "" {
		m, err := uc.mills.GetByID(ctx, scope)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, domain.ErrMillNotFound
		}
		millName = m.Name
	}

	var users []dto.UserResponse
	counts := make(map[entity.Role]int)
	for offset := 0; ; offset += reportPageSize {
		page, err := uc.users.ListByMill(ctx, scope, reportPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, u := range page {
			users = append(users, *entityToUserResponse(u))
			counts[u.Role]++
		}
		if len(page) < reportPageSize {
			break
		}
	}

	roles := make([]dto.RoleAccessRow, 0, len(entity.Roles()))
	for _, r := range entity.Roles() {
		perms := rbac.PermissionsFor(r)
		names := make([]string, len(perms))
		for i, p := range perms {
			names[i] = string(p)
		}
		roles = append(roles, dto.RoleAccessRow{Role: string(r), Permissions: names, UserCount: counts[r]})
	}

	return &dto.AccessReport{
		MillName:    millName,
		GeneratedAt: uc.now(),
		GeneratedBy: actor.UserID,
		Roles:       roles,
		Users:       users,
	}, nil
}

// Render genera el documento del reporte.
func (uc *AccessReportUseCase) Render(ctx context.Context, actor Actor) ([]byte, error) {
	report, err := uc.Build(ctx, actor)
	if err != nil {
		return nil, err
	}
	return uc.renderer.RenderAccessReport(ctx, report)
}
