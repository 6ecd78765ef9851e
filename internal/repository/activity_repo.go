package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/puertonuevo/portal-api/internal/models"
)

// ActivityFilter narrows recent-activity queries. A nil Since disables the
// time filter.
type ActivityFilter struct {
	Since *time.Time
	Limit int
}

// ActivityRepository manages activity documents.
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	GetByID(ctx context.Context, id string) (models.Activity, error)
	ListRecent(ctx context.Context, filter ActivityFilter) ([]models.Activity, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository constructs an activity repository implementation.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *activityRepository) GetByID(ctx context.Context, id string) (models.Activity, error) {
	var activity models.Activity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&activity).Error
	return activity, err
}

func (r *activityRepository) ListRecent(ctx context.Context, filter ActivityFilter) ([]models.Activity, error) {
	query := r.db.WithContext(ctx).Model(&models.Activity{})

	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var activities []models.Activity
	if err := query.Order("created_at DESC").Order("id DESC").Find(&activities).Error; err != nil {
		return nil, err
	}

	return activities, nil
}

func (r *activityRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Session(&gorm.Session{SkipHooks: true}).
		Model(&models.Activity{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *activityRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Activity{}).Error
}
