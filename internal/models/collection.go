package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// CollectionRow is the database model for a Record
type CollectionRow struct {
	ID             string         `gorm:"primaryKey;size:36"`
	OwnerID        string         `gorm:"index:idx_collections_owner_created,priority:1;size:128;not null"`
	MediaURL       string         `gorm:"size:1024;not null"`
	Platform       string         `gorm:"size:32;not null"`
	Model          string         `gorm:"size:255"`
	Prompt         string         `gorm:"type:text"`
	NegativePrompt string         `gorm:"type:text"`
	Tags           string         `gorm:"type:text"`
	Notes          string         `gorm:"type:text"`
	TensorData     datatypes.JSON `gorm:"type:json"` // null unless platform is tensor
	CreatedAt      time.Time      `gorm:"index:idx_collections_owner_created,priority:2;not null"`
}

// TableName sets the table name for GORM
func (CollectionRow) TableName() string {
	return "collections"
}

// NewCollectionRow converts a normalized record into its row form
func NewCollectionRow(r Record) (*CollectionRow, error) {
	row := &CollectionRow{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		MediaURL:       r.MediaURL,
		Platform:       string(r.Platform),
		Model:          r.Model,
		Prompt:         r.Prompt,
		NegativePrompt: r.NegativePrompt,
		Tags:           r.Tags,
		Notes:          r.Notes,
		CreatedAt:      r.CreatedAt,
	}
	if r.Tensor != nil {
		data, err := json.Marshal(r.Tensor)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tensor data: %w", err)
		}
		row.TensorData = datatypes.JSON(data)
	}
	return row, nil
}

// Record converts the row back into the domain model
func (c *CollectionRow) Record() (Record, error) {
	r := Record{
		ID:             c.ID,
		OwnerID:        c.OwnerID,
		MediaURL:       c.MediaURL,
		Platform:       Platform(c.Platform),
		Model:          c.Model,
		Prompt:         c.Prompt,
		NegativePrompt: c.NegativePrompt,
		Tags:           c.Tags,
		Notes:          c.Notes,
		CreatedAt:      c.CreatedAt,
	}
	if len(c.TensorData) > 0 && string(c.TensorData) != "null" {
		var t TensorParameters
		if err := json.Unmarshal(c.TensorData, &t); err != nil {
			return Record{}, fmt.Errorf("failed to unmarshal tensor data for %s: %w", c.ID, err)
		}
		r.Tensor = &t
	}
	return r, nil
}
