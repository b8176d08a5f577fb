package gatecodes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
)

// Repository persists encrypted gate codes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, code *models.GateCode) error
	FindActive(ctx context.Context, referenceID uuid.UUID) (*models.GateCode, error)
	ListActive(ctx context.Context, referenceIDs []uuid.UUID) ([]models.GateCode, error)
	SoftDelete(ctx context.Context, referenceID uuid.UUID, at time.Time) (int64, error)
	HardDelete(ctx context.Context, referenceIDs []uuid.UUID) (int64, error)
	MarkAccessed(ctx context.Context, id uuid.UUID, accessor string, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a gate code repository to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, code *models.GateCode) error {
	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *repository) FindActive(ctx context.Context, referenceID uuid.UUID) (*models.GateCode, error) {
	var code models.GateCode
	err := r.db.WithContext(ctx).
		Where("reference_id = ? AND deleted_at IS NULL", referenceID).
		First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *repository) ListActive(ctx context.Context, referenceIDs []uuid.UUID) ([]models.GateCode, error) {
	var rows []models.GateCode
	if len(referenceIDs) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).
		Where("reference_id IN ? AND deleted_at IS NULL", referenceIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SoftDelete(ctx context.Context, referenceID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.GateCode{}).
		Where("reference_id = ? AND deleted_at IS NULL", referenceID).
		Update("deleted_at", at)
	return res.RowsAffected, res.Error
}

func (r *repository) HardDelete(ctx context.Context, referenceIDs []uuid.UUID) (int64, error) {
	if len(referenceIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("reference_id IN ?", referenceIDs).
		Delete(&models.GateCode{})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkAccessed(ctx context.Context, id uuid.UUID, accessor string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.GateCode{}).
		Where("id = ?", id).
		Updates(map[string]any{"accessed_at": at, "accessed_by": accessor}).Error
}
