package notifications

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/commonwealth-im/commonwealth-api/src/api/discord"
	"github.com/commonwealth-im/commonwealth-api/src/api/metrics"
	"github.com/commonwealth-im/commonwealth-api/src/api/types"
)

const stream = "commonwealth.notifications"

// Dispatcher fans notification jobs out to the redis stream and, when a
// community has a Discord channel, to Discord. All dispatch is best
// effort: failures are logged and never reach the caller.
type Dispatcher struct {
	db          *gorm.DB
	rdb         *redis.Client
	ds          *discordgo.Session
	frontendURL string
}

func NewDispatcher(db *gorm.DB, rdb *redis.Client, ds *discordgo.Session, frontendURL string) *Dispatcher {
	if frontendURL == "" {
		frontendURL = "https://commonwealth.im"
	}
	return &Dispatcher{db: db, rdb: rdb, ds: ds, frontendURL: frontendURL}
}

// Dispatch delivers each job in order. Meant to run on its own goroutine
// after the originating transaction has committed.
func (d *Dispatcher) Dispatch(ctx context.Context, jobs []Emit) {
	for _, job := range jobs {
		metrics.NotificationJobs.WithLabelValues(job.Category).Inc()

		err := d.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			Values: map[string]interface{}{
				"category":  job.Category,
				"thread_id": job.Data.ThreadID,
				"title":     job.Data.RootTitle,
				"community": job.Data.CommunityID,
				"author":    job.Data.AuthorAddress,
				"mentioned": job.Data.MentionedUserID,
				"created":   job.Data.CreatedAt.Unix(),
				"exclude":   strings.Join(job.ExcludeAddresses, ","),
			},
		}).Err()
		if err != nil {
			log.Printf("publish notification %s for thread %d: %v", job.Category, job.Data.ThreadID, err)
		}

		if d.ds != nil && job.Category == CategoryThreadEdit {
			d.postToDiscord(job)
		}
	}
}

func (d *Dispatcher) postToDiscord(job Emit) {
	var community types.Community
	if err := d.db.First(&community, "id = ?", job.Data.CommunityID).Error; err != nil {
		return
	}
	if community.DiscordChannelID == "" {
		return
	}

	content := fmt.Sprintf("Thread edited: **%s**\n%s/%s/discussion/%d",
		job.Data.RootTitle, d.frontendURL, job.Data.CommunityID, job.Data.ThreadID)

	if _, err := discord.SendMessageNoEmbed(d.ds, community.DiscordChannelID, content); err != nil {
		log.Printf("discord notify %s: %v", job.Data.CommunityID, err)
	}
}
