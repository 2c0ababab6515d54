// Package memory implementa los puertos de persistencia en memoria (tests y STORAGE_DRIVER=memory).
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jhoicas/molino-api/internal/domain"
	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo usuarios en memoria. Guarda copias: mutar lo devuelto no altera el repo.
type UserRepo struct {
	mu    sync.RWMutex
	byID  map[string]*entity.User
	email map[string]string // email -> id
}

// NewUserRepository construye un repositorio vacío.
func NewUserRepository() *UserRepo {
	return &UserRepo{byID: make(map[string]*entity.User), email: make(map[string]string)}
}

func (r *UserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, ok := r.email[key]; ok {
		return domain.ErrEmailAlreadyExists
	}
	if _, ok := r.byID[user.ID]; ok {
		return domain.ErrConflict
	}
	r.byID[user.ID] = cloneUser(user)
	r.email[key] = user.ID
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.email[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return cloneUser(r.byID[id]), nil
}

func (r *UserRepo) Update(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.byID[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	key := strings.ToLower(user.Email)
	if owner, taken := r.email[key]; taken && owner != user.ID {
		return domain.ErrEmailAlreadyExists
	}
	delete(r.email, strings.ToLower(prev.Email))
	r.byID[user.ID] = cloneUser(user)
	r.email[key] = user.ID
	return nil
}

func (r *UserRepo) ListByMill(_ context.Context, millID string, limit, offset int) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.filterLocked(millID)
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if offset >= len(list) {
		return []*entity.User{}, nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	out := make([]*entity.User, len(list))
	for i, u := range list {
		out[i] = cloneUser(u)
	}
	return out, nil
}

func (r *UserRepo) CountByMill(_ context.Context, millID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.filterLocked(millID)), nil
}

func (r *UserRepo) filterLocked(millID string) []*entity.User {
	list := make([]*entity.User, 0, len(r.byID))
	for _, u := range r.byID {
		if millID == "" || u.MillID == millID {
			list = append(list, u)
		}
	}
	return list
}

func cloneUser(u *entity.User) *entity.User {
	c := *u
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}
