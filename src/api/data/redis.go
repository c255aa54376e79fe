package data

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/commonwealth-im/commonwealth-api/src/api/events"
)

const (
	noncePrefix       = "nonce:"
	streamChainEvents = "commonwealth.chain-events"
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

func SetNonce(ctx context.Context, rdb *redis.Client, addr, nonce string) error {
	return rdb.Set(ctx, noncePrefix+addr, nonce, 5*time.Minute).Err()
}

func ConfirmNonce(ctx context.Context, rdb *redis.Client, addr string) error {
	return rdb.Set(ctx, noncePrefix+addr, "CONFIRMED", 5*time.Minute).Err()
}

func GetAndDelNonce(ctx context.Context, rdb *redis.Client, addr string) (string, error) {
	return rdb.GetDel(ctx, noncePrefix+addr).Result()
}

// ConsumeChainEvents reads events published by the per-chain adapter
// processes and forwards them to the storage consumer. Delivery is at
// least once; the dedup cache downstream absorbs redelivery.
func ConsumeChainEvents(ctx context.Context, rdb *redis.Client, out chan<- events.RawEvent) {
	lastID := "$"
	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := rdb.XRead(ctx, &redis.XReadArgs{
			Streams: []string{streamChainEvents, lastID},
			Block:   5 * time.Second,
		}).Result()
		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				log.Printf("chain event stream read: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				ev, err := decodeStreamEvent(msg.Values)
				if err != nil {
					log.Printf("chain event %s: %v", msg.ID, err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func decodeStreamEvent(values map[string]interface{}) (events.RawEvent, error) {
	var ev events.RawEvent
	ev.Network, _ = values["network"].(string)
	ev.Chain, _ = values["chain"].(string)
	if block, ok := values["block"].(string); ok {
		n, err := strconv.ParseUint(block, 10, 64)
		if err != nil {
			return ev, fmt.Errorf("bad block number %q", block)
		}
		ev.BlockNumber = n
	}
	raw, _ := values["data"].(string)
	if raw == "" {
		return ev, fmt.Errorf("missing event data")
	}
	if err := json.Unmarshal([]byte(raw), &ev.Data); err != nil {
		return ev, fmt.Errorf("decode event data: %w", err)
	}
	return ev, nil
}
