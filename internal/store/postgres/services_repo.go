package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
)

type ServiceRepo struct {
	db *bun.DB
}

func NewServiceRepo(db *bun.DB) *ServiceRepo {
	return &ServiceRepo{db: db}
}

var _ store.ServiceCatalog = (*ServiceRepo)(nil)

func (r *ServiceRepo) GetService(ctx context.Context, id uuid.UUID) (domain.Service, error) {
	var s domain.Service
	if err := r.db.NewSelect().Model(&s).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return domain.Service{}, classify(err)
	}
	return s, nil
}

func (r *ServiceRepo) ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	var rows []domain.Service
	q := r.db.NewSelect().Model(&rows).OrderExpr("sort_order ASC, name ASC")
	if activeOnly {
		q = q.Where("is_active")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

// UpsertService creates or replaces a catalog entry.
func (r *ServiceRepo) UpsertService(ctx context.Context, s domain.Service) (domain.Service, error) {
	m := s
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("duration_minutes = EXCLUDED.duration_minutes").
		Set("price_cents = EXCLUDED.price_cents").
		Set("modalities = EXCLUDED.modalities").
		Set("is_active = EXCLUDED.is_active").
		Set("sort_order = EXCLUDED.sort_order").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.Service{}, classify(err)
	}
	return m, nil
}
