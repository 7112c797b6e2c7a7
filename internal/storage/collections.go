package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ai-collection/server/internal/models"
)

const insertBatchSize = 100

// CollectionStore is the gorm-backed collection gateway
type CollectionStore struct {
	sql *SQLStore
	db  *gorm.DB
	now func() time.Time
}

// NewCollectionStore creates a gateway on top of an open SQL store
func NewCollectionStore(s *SQLStore) *CollectionStore {
	return &CollectionStore{
		sql: s,
		db:  s.GetDB(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// List returns the owner's records ordered by creation time, newest first
func (s *CollectionStore) List(ctx context.Context, ownerID string) ([]models.Record, error) {
	var rows []models.CollectionRow
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	records := make([]models.Record, 0, len(rows))
	for i := range rows {
		r, err := rows[i].Record()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// Insert assigns an ID and creation time and stores the record
func (s *CollectionStore) Insert(ctx context.Context, record models.Record) (models.Record, error) {
	record.ID = uuid.NewString()
	record.CreatedAt = s.now()

	row, err := models.NewCollectionRow(record)
	if err != nil {
		return models.Record{}, err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.Record{}, fmt.Errorf("failed to insert collection: %w", err)
	}
	return record, nil
}

// BatchInsert stores every record for the owner inside one transaction.
// IDs, owner and creation time are always assigned here.
func (s *CollectionStore) BatchInsert(ctx context.Context, ownerID string, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	now := s.now()
	rows := make([]*models.CollectionRow, 0, len(records))
	for _, r := range records {
		r.ID = uuid.NewString()
		r.OwnerID = ownerID
		r.CreatedAt = now
		row, err := models.NewCollectionRow(r)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	err := s.sql.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to batch insert %d collections: %w", len(rows), err)
	}
	return nil
}

// DeleteOne removes a record; a missing ID is not an error
func (s *CollectionStore) DeleteOne(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.CollectionRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", id, err)
	}
	return nil
}

// DeleteAllByOwner removes every record of the owner
func (s *CollectionStore) DeleteAllByOwner(ctx context.Context, ownerID string) error {
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Delete(&models.CollectionRow{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear collections: %w", err)
	}
	return nil
}
