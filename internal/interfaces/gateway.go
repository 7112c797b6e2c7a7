package interfaces

import (
	"context"

	"ai-collection/server/internal/models"
)

// CollectionGateway defines the remote document store holding records
type CollectionGateway interface {
	// List returns every record of the owner, newest first
	List(ctx context.Context, ownerID string) ([]models.Record, error)

	// Insert stores a record and returns it with ID and CreatedAt assigned
	Insert(ctx context.Context, record models.Record) (models.Record, error)

	// BatchInsert stores drafts for the owner; all-or-nothing is not part of the contract
	BatchInsert(ctx context.Context, ownerID string, records []models.Record) error

	// DeleteOne removes a record by ID
	DeleteOne(ctx context.Context, id string) error

	// DeleteAllByOwner removes every record of the owner
	DeleteAllByOwner(ctx context.Context, ownerID string) error
}

// LocalCache persists the last known record list under a single key
type LocalCache interface {
	// Load returns the cached list; unreadable or corrupted content yields nil
	Load(ctx context.Context) []models.Record

	// Save replaces the cached list
	Save(ctx context.Context, records []models.Record) error
}
