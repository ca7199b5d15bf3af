package service

import (
	"context"
	"fmt"

	"clearquest/internal/model"
	"clearquest/internal/repository"
)

// Registry is the fact model registry: admin-edited, read-only at
// interview time. Absence of a fact model for a category is not an error;
// the interview degrades to "no facts required".
type Registry struct {
	repo repository.FactModelRepo
}

// NewRegistry creates the fact model registry service
func NewRegistry(repo repository.FactModelRepo) *Registry {
	return &Registry{repo: repo}
}

// FactModelForCategory returns the fact model for a category, or nil when
// none is configured.
func (r *Registry) FactModelForCategory(ctx context.Context, categoryID string) (*model.FactModel, error) {
	return r.repo.GetByCategory(ctx, categoryID)
}

// AllFactModels lists every configured fact model.
func (r *Registry) AllFactModels(ctx context.Context) ([]*model.FactModel, error) {
	return r.repo.List(ctx)
}

// CreateFactModel persists a new admin-authored fact model.
func (r *Registry) CreateFactModel(ctx context.Context, fm *model.FactModel) (*model.FactModel, error) {
	if fm.CategoryID == "" {
		return nil, fmt.Errorf("categoryId is required")
	}
	existing, err := r.repo.GetByCategory(ctx, fm.CategoryID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("fact model already exists for category %s", fm.CategoryID)
	}
	id, err := r.repo.Create(ctx, fm)
	if err != nil {
		return nil, err
	}
	fm.ID = id
	return fm, nil
}

// UpdateFactModel saves admin edits to an existing fact model.
func (r *Registry) UpdateFactModel(ctx context.Context, fm *model.FactModel) error {
	return r.repo.Update(ctx, fm)
}

// DeleteFactModel removes a fact model. Referential integrity with
// existing incidents is advisory: sessions that reference the category
// keep their collected fact state.
func (r *Registry) DeleteFactModel(ctx context.Context, id string) error {
	return r.repo.Delete(ctx, id)
}
