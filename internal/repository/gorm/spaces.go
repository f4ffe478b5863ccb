package gormrepo

import (
	"context"
	"time"

	"github.com/kirinyoku/spacebook/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SpaceRepo struct {
	db *gorm.DB
}

func (r *SpaceRepo) Get(ctx context.Context, t domain.SpaceType) (*domain.Space, error) {
	const op = "gormrepo.SpaceRepo.Get"

	var m spaceModel
	if err := r.db.WithContext(ctx).Where("type = ?", string(t)).Take(&m).Error; err != nil {
		return nil, wrapErr(op, err)
	}

	s, err := m.toDomain()
	if err != nil {
		return nil, wrapErr(op, err)
	}

	return s, nil
}

func (r *SpaceRepo) List(ctx context.Context) ([]domain.Space, error) {
	const op = "gormrepo.SpaceRepo.List"

	var models []spaceModel
	if err := r.db.WithContext(ctx).Order("type").Find(&models).Error; err != nil {
		return nil, wrapErr(op, err)
	}

	out := make([]domain.Space, 0, len(models))
	for i := range models {
		s, err := models[i].toDomain()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		out = append(out, *s)
	}

	return out, nil
}

// Upsert inserts the space or overwrites every column of the existing row.
func (r *SpaceRepo) Upsert(ctx context.Context, s *domain.Space) error {
	const op = "gormrepo.SpaceRepo.Upsert"

	s.UpdatedAt = time.Now().UTC()
	m := spaceToModel(s)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "type"}},
			UpdateAll: true,
		}).
		Create(&m).Error
	if err != nil {
		return wrapErr(op, err)
	}

	return nil
}
