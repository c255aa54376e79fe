package notifications

import "time"

// Notification categories
const (
	CategoryThreadEdit = "thread-edit"
	CategoryNewMention = "new-mention"
)

// ThreadData carries the notification payload for thread-scoped events.
type ThreadData struct {
	CreatedAt       time.Time `json:"created_at"`
	ThreadID        uint32    `json:"thread_id"`
	RootType        string    `json:"root_type"`
	RootTitle       string    `json:"root_title"`
	CommunityID     string    `json:"community_id"`
	AuthorAddress   string    `json:"author_address"`
	AuthorCommunity string    `json:"author_community"`
	CommentText     string    `json:"comment_text,omitempty"`
	MentionedUserID uint32    `json:"mentioned_user_id,omitempty"`
}

// Emit describes one notification job for the dispatcher. The workflow
// that produces it performs no I/O itself.
type Emit struct {
	Category         string
	Data             ThreadData
	ExcludeAddresses []string
}
