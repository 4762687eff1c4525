package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"sentinelhive/internal/model"
)

// ErrHashConflict reports that a record with the same data hash already
// exists. Callers treat it as idempotent success and reuse ExistingID.
type ErrHashConflict struct {
	ExistingID uint
}

func (e *ErrHashConflict) Error() string {
	return fmt.Sprintf("data hash already stored as record %d", e.ExistingID)
}

type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Create inserts a record, relying on the unique index on data_hash to
// serialize concurrent identical writes. When the insert fails and a row
// with the same hash exists, the failure is reported as *ErrHashConflict
// carrying the winner's id; any other failure is an I/O error.
func (r *RecordRepository) Create(record *model.DataRecord) error {
	insertErr := r.db.Create(record).Error
	if insertErr == nil {
		return nil
	}

	var existing model.DataRecord
	lookupErr := r.db.Where("data_hash = ?", record.DataHash).First(&existing).Error
	if lookupErr == nil {
		return &ErrHashConflict{ExistingID: existing.ID}
	}
	if !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup record by hash failed: %w", lookupErr)
	}
	return fmt.Errorf("create record failed: %w", insertErr)
}

func (r *RecordRepository) GetByID(id uint) (*model.DataRecord, error) {
	var record model.DataRecord
	if err := r.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query record by id failed: %w", err)
	}
	return &record, nil
}

func (r *RecordRepository) GetByHash(hash string) (*model.DataRecord, error) {
	var record model.DataRecord
	if err := r.db.Where("data_hash = ?", hash).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query record by hash failed: %w", err)
	}
	return &record, nil
}

// ListRecent returns up to limit records most recent first, backed by the
// created_at index.
func (r *RecordRepository) ListRecent(limit int) ([]model.DataRecord, error) {
	var records []model.DataRecord
	if err := r.db.Order("created_at DESC, id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list records failed: %w", err)
	}
	return records, nil
}
