package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/molino-api/internal/application/dto"
	"github.com/jhoicas/molino-api/internal/domain"
	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/internal/domain/rbac"
	"github.com/jhoicas/molino-api/internal/domain/repository"
	"github.com/jhoicas/molino-api/pkg/logger"
)

// SessionRevoker cierra todas las sesiones abiertas de un usuario.
// Lo implementa *identity.Service.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID string) int
}

// Actor quién ejecuta la operación, tomado de su sesión.
type Actor struct {
	UserID string
	Role   entity.Role
	MillID string // vacío para super_admin
}

// ActorFromSession construye el actor a partir de la sesión vigente.
func ActorFromSession(s *entity.Session) Actor {
	if s == nil {
		return Actor{}
	}
	return Actor{UserID: s.Identity.UserID, Role: s.Identity.Role, MillID: s.TenantScope}
}

// UserUseCase administración de usuarios y roles dentro del alcance del actor.
type UserUseCase struct {
	repo    repository.UserRepository
	revoker SessionRevoker
	log     *logger.Logger
}

// NewUserUseCase construye el caso de uso con el puerto de persistencia.
func NewUserUseCase(repo repository.UserRepository, revoker SessionRevoker, log *logger.Logger) *UserUseCase {
	return &UserUseCase{repo: repo, revoker: revoker, log: log.Component("users")}
}

// List lista los usuarios del molino del actor (todos para super_admin).
func (uc *UserUseCase) List(ctx context.Context, actor Actor, page dto.PageRequest) (*dto.UserListResponse, error) {
	if !rbac.Can(actor.Role, rbac.UsersRead) {
		return nil, domain.ErrForbidden
	}
	page.DefaultPage()
	scope, err := scopeOf(actor)
	if err != nil {
		return nil, err
	}
	users, err := uc.repo.ListByMill(ctx, scope, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	total, err := uc.repo.CountByMill(ctx, scope)
	if err != nil {
		return nil, err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, *entityToUserResponse(u))
	}
	return &dto.UserListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}

// GetByID obtiene un usuario visible para el actor. Fuera de su molino responde ErrNotFound.
func (uc *UserUseCase) GetByID(ctx context.Context, actor Actor, id string) (*dto.UserResponse, error) {
	if !rbac.Can(actor.Role, rbac.UsersRead) {
		return nil, domain.ErrForbidden
	}
	user, err := uc.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return entityToUserResponse(user), nil
}

// ChangeRole asigna un rol nuevo. El actor debe cubrir tanto el rol actual como el nuevo,
// y solo un super_admin otorga super_admin. Las sesiones del usuario se revocan.
func (uc *UserUseCase) ChangeRole(ctx context.Context, actor Actor, id string, role entity.Role) (*dto.UserResponse, error) {
	if !rbac.Can(actor.Role, rbac.UsersUpdate) {
		return nil, domain.ErrForbidden
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: rol desconocido %q", domain.ErrInvalidInput, role)
	}
	if id == actor.UserID {
		return nil, fmt.Errorf("%w: no puede cambiar su propio rol", domain.ErrForbidden)
	}
	user, err := uc.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if role == entity.RoleSuperAdmin && actor.Role != entity.RoleSuperAdmin {
		return nil, fmt.Errorf("%w: solo un super_admin puede otorgar super_admin", domain.ErrForbidden)
	}
	if !rbac.Covers(actor.Role, role) || !rbac.Covers(actor.Role, user.Role) {
		return nil, fmt.Errorf("%w: el rol excede los permisos del administrador", domain.ErrForbidden)
	}
	if role.Scoped() && user.MillID == "" {
		return nil, fmt.Errorf("%w: el usuario no tiene molino asignado", domain.ErrInvalidInput)
	}
	if user.Role == role {
		return entityToUserResponse(user), nil
	}

	prev := user.Role
	user.Role = role
	user.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	revoked := uc.revoker.RevokeUser(ctx, user.ID)
	uc.log.Info().
		Str("actor_id", actor.UserID).Str("user_id", user.ID).
		Str("from", string(prev)).Str("to", string(role)).
		Int("sessions_revoked", revoked).
		Msg("rol actualizado")
	return entityToUserResponse(user), nil
}

// SetActive activa o desactiva la cuenta. Desactivar revoca las sesiones abiertas.
func (uc *UserUseCase) SetActive(ctx context.Context, actor Actor, id string, active bool) (*dto.UserResponse, error) {
	if !rbac.Can(actor.Role, rbac.UsersUpdate) {
		return nil, domain.ErrForbidden
	}
	if id == actor.UserID {
		return nil, fmt.Errorf("%w: no puede cambiar el estado de su propia cuenta", domain.ErrForbidden)
	}
	user, err := uc.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !rbac.Covers(actor.Role, user.Role) {
		return nil, fmt.Errorf("%w: el usuario tiene más permisos que el administrador", domain.ErrForbidden)
	}
	status := entity.UserStatusInactive
	if active {
		status = entity.UserStatusActive
	}
	if user.Status == status {
		return entityToUserResponse(user), nil
	}
	user.Status = status
	user.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	if !active {
		uc.revoker.RevokeUser(ctx, user.ID)
	}
	uc.log.Info().Str("actor_id", actor.UserID).Str("user_id", user.ID).Str("status", status).Msg("estado de cuenta actualizado")
	return entityToUserResponse(user), nil
}

// visible carga el usuario y comprueba que esté dentro del alcance del actor.
func (uc *UserUseCase) visible(ctx context.Context, actor Actor, id string) (*entity.User, error) {
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	scope, err := scopeOf(actor)
	if err != nil {
		return nil, err
	}
	if scope != "" && user.MillID != scope {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// scopeOf molino visible para el actor; vacío = todos (super_admin).
func scopeOf(actor Actor) (string, error) {
	if !actor.Role.Scoped() {
		return "", nil
	}
	if actor.MillID == "" {
		return "", fmt.Errorf("%w: sesión sin molino", domain.ErrForbidden)
	}
	return actor.MillID, nil
}

func entityToUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:             u.ID,
		MillID:         u.MillID,
		Email:          u.Email,
		FullName:       u.FullName,
		Phone:          u.Phone,
		Department:     u.Department,
		Role:           string(u.Role),
		Status:         u.Status,
		EmailConfirmed: u.EmailConfirmed,
		LastLogin:      u.LastLogin,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
