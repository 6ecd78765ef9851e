package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/puertonuevo/portal-api/internal/models"
)

// MaxInBatch is the largest value list accepted by a single IN lookup.
const MaxInBatch = 10

// ChildRepository reads student records.
type ChildRepository interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Child, error)
	ListByGuardian(ctx context.Context, uid string, limit int) ([]models.Child, error)
	ListByAmbientes(ctx context.Context, ambientes []string, limit int) ([]models.Child, error)
}

type childRepository struct {
	db *gorm.DB
}

// NewChildRepository creates a child repository.
func NewChildRepository(db *gorm.DB) ChildRepository {
	return &childRepository{db: db}
}

func (r *childRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Child, error) {
	if len(ids) == 0 {
		return []models.Child{}, nil
	}
	if len(ids) > MaxInBatch {
		return nil, fmt.Errorf("at most %d ids per lookup, got %d", MaxInBatch, len(ids))
	}

	var children []models.Child
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&children).Error; err != nil {
		return nil, err
	}
	return children, nil
}

func (r *childRepository) ListByGuardian(ctx context.Context, uid string, limit int) ([]models.Child, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" || strings.Contains(uid, "|") {
		return []models.Child{}, nil
	}

	query := r.db.WithContext(ctx).Where("guardian_index LIKE ? ESCAPE '\\'", "%|"+escapeLike(uid)+"|%")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var children []models.Child
	if err := query.Order("id").Find(&children).Error; err != nil {
		return nil, err
	}
	return children, nil
}

func (r *childRepository) ListByAmbientes(ctx context.Context, ambientes []string, limit int) ([]models.Child, error) {
	if len(ambientes) == 0 {
		return []models.Child{}, nil
	}
	if len(ambientes) > MaxInBatch {
		return nil, fmt.Errorf("at most %d ambientes per lookup, got %d", MaxInBatch, len(ambientes))
	}

	query := r.db.WithContext(ctx).Where("ambiente IN ?", ambientes)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var children []models.Child
	if err := query.Order("id").Find(&children).Error; err != nil {
		return nil, err
	}
	return children, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
