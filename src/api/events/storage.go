package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/commonwealth-im/commonwealth-api/src/api/metrics"
	"github.com/commonwealth-im/commonwealth-api/src/api/types"
)

// RawEvent is one event as delivered by the chain-monitoring transport.
type RawEvent struct {
	Network     string
	Chain       string
	BlockNumber uint64
	Data        map[string]interface{} // includes "kind"
}

func (e RawEvent) Kind() string {
	kind, _ := e.Data["kind"].(string)
	return kind
}

// Store persists chain events.
type Store interface {
	CreateEvent(ctx context.Context, ev *types.ChainEvent) error
}

// Storage sits in front of the event store and suppresses duplicate
// deliveries within the cache's TTL window.
type Storage struct {
	store    Store
	cache    *Cache
	chain    string // fallback when the event carries no chain id
	excluded map[string]struct{}
}

func NewStorage(store Store, cache *Cache, chain string, excludedKinds []string) *Storage {
	excluded := make(map[string]struct{}, len(excludedKinds))
	for _, k := range excludedKinds {
		excluded[k] = struct{}{}
	}
	return &Storage{store: store, cache: cache, chain: chain, excluded: excluded}
}

func (s *Storage) shouldSkip(ev RawEvent) bool {
	if ev.Data == nil {
		return true
	}
	// events without an associated entity never reach the database
	if _, ok := EventToEntity(ev.Network, ev.Kind()); !ok {
		return true
	}
	_, excluded := s.excluded[ev.Kind()]
	return excluded
}

// Handle persists ev unless it is filtered or a duplicate. A nil record
// with a nil error signals downstream handlers to skip the event.
// Persistence failures propagate; retry is the transport's concern.
func (s *Storage) Handle(ctx context.Context, ev RawEvent) (*types.ChainEvent, error) {
	chain := ev.Chain
	if chain == "" {
		chain = s.chain
	}

	if s.shouldSkip(ev) {
		return nil, nil
	}

	key := Fingerprint(ev.BlockNumber, ev.Data, ev.Network, chain)

	if s.cache.Get(key) {
		log.Printf("duplicate event %s on %s/%s at block %d", key, ev.Network, chain, ev.BlockNumber)
		s.cache.Touch(key)
		metrics.DuplicateEvents.WithLabelValues(chain).Inc()
		s.publishStats()
		return nil, nil
	}

	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, fmt.Errorf("encode event data: %w", err)
	}
	record := &types.ChainEvent{
		BlockNumber: ev.BlockNumber,
		EventData:   string(payload),
		Network:     ev.Network,
		Chain:       chain,
	}
	if err := s.store.CreateEvent(ctx, record); err != nil {
		return nil, err
	}
	// the key is the hash of the data, so presence is all we keep
	s.cache.Set(key)
	metrics.EventsStored.WithLabelValues(ev.Network).Inc()
	s.publishStats()
	return record, nil
}

func (s *Storage) publishStats() {
	stats := s.cache.Stats()
	metrics.EventsCached.Set(float64(stats.Keys))
	metrics.EventCacheHits.Set(float64(stats.Hits))
	metrics.EventCacheMisses.Set(float64(stats.Misses))
}

// Consume drains the watcher channel into the storage handler until ctx
// is cancelled. Failed events are logged and dropped.
func Consume(ctx context.Context, ch <-chan RawEvent, s *Storage) {
	for {
		select {
		case ev := <-ch:
			if _, err := s.Handle(ctx, ev); err != nil {
				log.Printf("store event %s/%s block %d: %v", ev.Network, ev.Chain, ev.BlockNumber, err)
			}
		case <-ctx.Done():
			return
		}
	}
}
