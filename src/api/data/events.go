package data

import (
	"context"

	"gorm.io/gorm"

	"github.com/commonwealth-im/commonwealth-api/src/api/types"
)

// EventStore persists chain events. Records are immutable once created.
type EventStore struct {
	db *gorm.DB
}

func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) CreateEvent(ctx context.Context, ev *types.ChainEvent) error {
	return s.db.WithContext(ctx).Create(ev).Error
}
