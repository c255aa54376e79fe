package types

import "time"

// Thread kinds
const (
	ThreadKindDiscussion = "discussion"
	ThreadKindLink       = "link"
)

// Role permissions
const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Communities (one per chain or DAO)
type Community struct {
	ID               string `gorm:"primaryKey;size:255"`
	Name             string `gorm:"size:255;not null"`
	DefaultSymbol    string `gorm:"size:9"`
	Network          string `gorm:"size:255;index"`
	Base             string `gorm:"size:32"`
	CustomStages     string `gorm:"type:text"` // JSON array of stage names
	DiscordChannelID string `gorm:"size:64"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Topics           []Topic   `gorm:"foreignKey:CommunityID"`
	Addresses        []Address `gorm:"foreignKey:CommunityID"`
}

// Users own one or more verified addresses across communities
type User struct {
	ID        uint32 `gorm:"primaryKey"`
	Email     string `gorm:"size:255"`
	IsAdmin   bool   `gorm:"default:false"` // site-wide super admin
	CreatedAt time.Time
	UpdatedAt time.Time
	Addresses []Address `gorm:"foreignKey:UserID"`
}

// Addresses link a wallet to a user within a community
type Address struct {
	ID          uint32 `gorm:"primaryKey"`
	Address     string `gorm:"size:255;not null;index:idx_address_community,unique"`
	CommunityID string `gorm:"size:255;not null;index:idx_address_community,unique"`
	UserID      *uint32
	Verified    *time.Time
	LastActive  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	User        *User     `gorm:"foreignKey:UserID"`
	Community   Community `gorm:"foreignKey:CommunityID"`
}

// Community role assignments
type Role struct {
	ID          uint32 `gorm:"primaryKey"`
	AddressID   uint32 `gorm:"index;not null"`
	CommunityID string `gorm:"size:255;index;not null"`
	Permission  string `gorm:"size:32;not null;default:member"`
	CreatedAt   time.Time
	Address     Address `gorm:"foreignKey:AddressID"`
}

// Banned addresses, checked ahead of every mutating call
type Ban struct {
	ID          uint32 `gorm:"primaryKey"`
	CommunityID string `gorm:"size:255;index;not null"`
	Address     string `gorm:"size:255;not null"`
	CreatedAt   time.Time
}

// Thread topics
type Topic struct {
	ID          uint32 `gorm:"primaryKey"`
	Name        string `gorm:"size:255;not null"`
	CommunityID string `gorm:"size:255;index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Community   Community `gorm:"foreignKey:CommunityID"`
}

// Discussion threads
type Thread struct {
	ID          uint32 `gorm:"primaryKey"`
	CommunityID string `gorm:"size:255;index;not null"`
	AddressID   uint32 `gorm:"index;not null"`
	Kind        string `gorm:"size:32;not null;default:discussion"`
	Title       string `gorm:"type:text;not null"`
	Body        string `gorm:"type:longtext"` // percent-encoded rich-text delta
	Plaintext   string `gorm:"type:longtext"`
	URL         string `gorm:"type:text"` // link-kind threads only
	Stage       string `gorm:"size:255;default:discussion"`
	Pinned      bool   `gorm:"default:false"`
	ReadOnly    bool   `gorm:"default:false"`
	LockedAt    *time.Time
	ArchivedAt  *time.Time
	SpamAt      *time.Time `gorm:"column:marked_as_spam_at"`
	TopicID     *uint32
	// JSON-encoded {timestamp, author, body} snapshots, newest first
	VersionHistory []string `gorm:"serializer:json;type:longtext"`
	CanvasSession  string   `gorm:"type:text"`
	CanvasAction   string   `gorm:"type:text"`
	CanvasHash     string   `gorm:"type:text"`
	DiscordMeta    string   `gorm:"type:text"` // correlation blob for bot-authored threads
	LastEdited     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Address        Address   `gorm:"foreignKey:AddressID"`
	Collaborators  []Address `gorm:"many2many:collaborations;"`
	Topic          *Topic    `gorm:"foreignKey:TopicID"`
}

// Thread co-authorship join table
type Collaboration struct {
	ThreadID  uint32 `gorm:"primaryKey"`
	AddressID uint32 `gorm:"primaryKey"`
	CreatedAt time.Time
}

// Observed on-chain events, immutable once stored
type ChainEvent struct {
	ID          uint64 `gorm:"primaryKey"`
	BlockNumber uint64 `gorm:"not null"`
	EventData   string `gorm:"type:text;not null"` // raw payload JSON
	Network     string `gorm:"size:64;index;not null"`
	Chain       string `gorm:"size:255;index"`
	CreatedAt   time.Time
}

// Key/value service settings
type Setting struct {
	ID    uint32 `gorm:"primaryKey"`
	Name  string `gorm:"size:64;unique;not null"`
	Value string `gorm:"type:text"`
}

// VersionEntry is one decoded version-history snapshot.
type VersionEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
}
