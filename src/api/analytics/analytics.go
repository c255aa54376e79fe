package analytics

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

const stream = "commonwealth.analytics"

// Community interaction events
const (
	EventUpdateStage = "Update Stage"
)

// Track describes one analytics event for the dispatcher.
type Track struct {
	Event     string
	Community string
}

// Dispatcher forwards analytics events to the analytics stream. Best
// effort only.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

func (d *Dispatcher) Dispatch(ctx context.Context, jobs []Track) {
	for _, job := range jobs {
		err := d.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			Values: map[string]interface{}{
				"event":     job.Event,
				"community": job.Community,
			},
		}).Err()
		if err != nil {
			log.Printf("publish analytics %s: %v", job.Event, err)
		}
	}
}
