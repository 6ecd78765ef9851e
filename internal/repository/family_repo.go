package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/puertonuevo/portal-api/internal/models"
)

// FamilyRepository reads family user profiles.
type FamilyRepository interface {
	GetByUID(ctx context.Context, uid string) (models.FamilyProfile, error)
}

type familyRepository struct {
	db *gorm.DB
}

// NewFamilyRepository creates a family profile repository.
func NewFamilyRepository(db *gorm.DB) FamilyRepository {
	return &familyRepository{db: db}
}

func (r *familyRepository) GetByUID(ctx context.Context, uid string) (models.FamilyProfile, error) {
	var profile models.FamilyProfile
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&profile).Error
	return profile, err
}
