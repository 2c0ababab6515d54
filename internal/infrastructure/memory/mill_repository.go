package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/molino-api/internal/domain"
	"github.com/jhoicas/molino-api/internal/domain/entity"
	"github.com/jhoicas/molino-api/internal/domain/repository"
)

var _ repository.MillRepository = (*MillRepo)(nil)

// MillRepo molinos en memoria.
type MillRepo struct {
	mu    sync.RWMutex
	mills map[string]*entity.Mill
}

func NewMillRepository() *MillRepo {
	return &MillRepo{mills: make(map[string]*entity.Mill)}
}

func (r *MillRepo) Create(_ context.Context, mill *entity.Mill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mills[mill.ID]; ok {
		return domain.ErrConflict
	}
	c := *mill
	r.mills[mill.ID] = &c
	return nil
}

func (r *MillRepo) GetByID(_ context.Context, id string) (*entity.Mill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mills[id]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (r *MillRepo) List(_ context.Context, limit, offset int) ([]*entity.Mill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*entity.Mill, 0, len(r.mills))
	for _, m := range r.mills {
		c := *m
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	if offset >= len(list) {
		return []*entity.Mill{}, nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}
