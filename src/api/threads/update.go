package threads

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/commonwealth-im/commonwealth-api/src/api/analytics"
	"github.com/commonwealth-im/commonwealth-api/src/api/notifications"
	"github.com/commonwealth-im/commonwealth-api/src/api/types"
)

// Store is the persistence surface the workflow needs. Lookup methods
// return (nil, nil) when the row does not exist. ApplyPatch commits the
// staged patch plus collaborator changes in one transaction.
type Store interface {
	GetThread(ctx context.Context, id uint32) (*types.Thread, error)
	GetThreadByDiscordMeta(ctx context.Context, meta string) (*types.Thread, error)
	GetThreadWithAssociations(ctx context.Context, id uint32) (*types.Thread, error)
	IsBanned(ctx context.Context, communityID, address string) (bool, error)
	VerifiedAddressIDs(ctx context.Context, userID uint32) ([]uint32, error)
	FindRoles(ctx context.Context, communityID string, addressIDs []uint32, permissions []string) ([]types.Role, error)
	GetTopic(ctx context.Context, id uint32) (*types.Topic, error)
	FindOrCreateTopic(ctx context.Context, communityID, name string) (*types.Topic, error)
	FindCommunityAddresses(ctx context.Context, communityID string, ids []uint32) ([]types.Address, error)
	GetAddressWithUser(ctx context.Context, communityID, address string) (*types.Address, error)
	ApplyPatch(ctx context.Context, threadID uint32, patch Patch, addCollaborators, removeCollaborators []uint32) error
	TouchAddressActivity(ctx context.Context, addressID uint32) error
}

// CollaboratorChanges lists address ids to grant or revoke co-authorship.
type CollaboratorChanges struct {
	ToAdd    []uint32 `json:"toAdd"`
	ToRemove []uint32 `json:"toRemove"`
}

// UpdateThreadOptions is the parsed request for one patch update. Every
// field pointer is optional; nil means "leave unchanged".
type UpdateThreadOptions struct {
	User      *types.User
	Address   *types.Address
	Community *types.Community

	ThreadID    uint32 // 0: locate the thread by DiscordMeta instead
	DiscordMeta string

	Title *string
	Body  *string
	URL   *string
	Stage *string

	Locked   *bool
	Pinned   *bool
	Archived *bool
	Spam     *bool

	TopicID   *uint32
	TopicName *string

	Collaborators *CollaboratorChanges

	CanvasSession *string
	CanvasAction  *string
	CanvasHash    *string
}

// Service runs the thread patch-update workflow. It is stateless between
// calls; all state lives in the store and its transaction.
type Service struct {
	store     Store
	sanitizer *bluemonday.Policy
}

func NewService(store Store) *Service {
	return &Service{store: store, sanitizer: bluemonday.StrictPolicy()}
}

// GetThread loads a thread with its author, collaborators and topic.
func (s *Service) GetThread(ctx context.Context, id uint32) (*types.Thread, error) {
	thread, err := s.store.GetThreadWithAssociations(ctx, id)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, ErrThreadNotFound
	}
	return thread, nil
}

// UpdateThread applies a partial update to a thread. Each touched field
// group is independently permissioned; all staged changes commit in one
// transaction. Side effects are returned as job descriptors for the
// caller to dispatch, never performed here.
func (s *Service) UpdateThread(ctx context.Context, opts UpdateThreadOptions) (*types.Thread, []notifications.Emit, []analytics.Track, error) {
	thread, err := s.resolveThread(ctx, opts)
	if err != nil {
		return nil, nil, nil, err
	}

	banned, err := s.store.IsBanned(ctx, opts.Community.ID, opts.Address.Address)
	if err != nil {
		return nil, nil, nil, err
	}
	if banned {
		return nil, nil, nil, ErrBanned
	}

	ownedAddressIDs, err := s.store.VerifiedAddressIDs(ctx, opts.User.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	roles, err := s.store.FindRoles(ctx, opts.Community.ID, ownedAddressIDs,
		[]string{types.RoleModerator, types.RoleAdmin})
	if err != nil {
		return nil, nil, nil, err
	}
	perms := computePermissions(opts.User, thread, ownedAddressIDs, roles)
	if !perms.any() {
		return nil, nil, nil, ErrUnauthorized
	}

	now := time.Now()

	// previous revision, for version history and mention diffing
	latestVersion := ""
	if len(thread.VersionHistory) > 0 {
		if entry, err := decodeVersionEntry(thread.VersionHistory[0]); err == nil {
			latestVersion = entry.Body
		} else {
			log.Printf("thread %d: bad version history head: %v", thread.ID, err)
		}
	}

	var allAnalytics []analytics.Track

	patch := Patch{}
	patch, err = setThreadAttributes(patch, perms, thread, attributeChanges{
		Title:         opts.Title,
		Body:          opts.Body,
		URL:           opts.URL,
		CanvasSession: opts.CanvasSession,
		CanvasAction:  opts.CanvasAction,
		CanvasHash:    opts.CanvasHash,
	}, s.sanitizer, latestVersion, now, opts.Address.Address)
	if err != nil {
		return nil, nil, nil, err
	}

	if patch, err = setThreadPinned(patch, perms, opts.Pinned); err != nil {
		return nil, nil, nil, err
	}
	if patch, err = setThreadSpam(patch, perms, opts.Spam, now); err != nil {
		return nil, nil, nil, err
	}
	if patch, err = setThreadLocked(patch, perms, opts.Locked, now); err != nil {
		return nil, nil, nil, err
	}
	if patch, err = setThreadArchived(patch, perms, opts.Archived, now); err != nil {
		return nil, nil, nil, err
	}

	var trackStage bool
	if patch, trackStage, err = setThreadStage(patch, perms, opts.Stage, opts.Community); err != nil {
		return nil, nil, nil, err
	}
	if trackStage {
		allAnalytics = append(allAnalytics, analytics.Track{
			Event:     analytics.EventUpdateStage,
			Community: opts.Community.ID,
		})
	}

	if patch, err = s.setThreadTopic(ctx, patch, perms, thread, opts.TopicID, opts.TopicName); err != nil {
		return nil, nil, nil, err
	}

	toAdd, toRemove, err := s.resolveCollaborators(ctx, perms, thread, opts.Collaborators)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := s.store.ApplyPatch(ctx, thread.ID, patch, toAdd, toRemove); err != nil {
		if IsUserError(err) {
			return nil, nil, nil, err
		}
		return nil, nil, nil, fmt.Errorf("transaction failed: %w", err)
	}

	// best effort, never blocks the response
	if err := s.store.TouchAddressActivity(ctx, opts.Address.ID); err != nil {
		log.Printf("touch address %d: %v", opts.Address.ID, err)
	}

	finalThread, err := s.store.GetThreadWithAssociations(ctx, thread.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	if finalThread == nil {
		return nil, nil, nil, ErrThreadNotFound
	}

	allNotifications := []notifications.Emit{{
		Category: notifications.CategoryThreadEdit,
		Data: notifications.ThreadData{
			CreatedAt:       now,
			ThreadID:        finalThread.ID,
			RootType:        "discussion",
			RootTitle:       finalThread.Title,
			CommunityID:     finalThread.CommunityID,
			AuthorAddress:   finalThread.Address.Address,
			AuthorCommunity: finalThread.Address.CommunityID,
		},
		ExcludeAddresses: []string{opts.Address.Address},
	}}

	mentionJobs, err := s.mentionNotifications(ctx, opts.Body, latestVersion, finalThread, now)
	if err != nil {
		return nil, nil, nil, err
	}
	allNotifications = append(allNotifications, mentionJobs...)

	return finalThread, allNotifications, allAnalytics, nil
}

func (s *Service) resolveThread(ctx context.Context, opts UpdateThreadOptions) (*types.Thread, error) {
	if opts.ThreadID == 0 {
		if opts.DiscordMeta == "" {
			return nil, ErrThreadNotFound
		}
		thread, err := s.store.GetThreadByDiscordMeta(ctx, opts.DiscordMeta)
		if err != nil {
			return nil, err
		}
		if thread == nil {
			return nil, ErrThreadNotFound
		}
		return thread, nil
	}

	thread, err := s.store.GetThread(ctx, opts.ThreadID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, fmt.Errorf("%w: %d", ErrThreadNotFound, opts.ThreadID)
	}
	return thread, nil
}

func (s *Service) setThreadTopic(ctx context.Context, patch Patch, perms Permissions,
	thread *types.Thread, topicID *uint32, topicName *string) (Patch, error) {

	if topicID == nil && topicName == nil {
		return patch, nil
	}
	if err := ValidatePermissions(perms, Permissions{
		IsThreadOwner: true, IsMod: true, IsAdmin: true, IsSuperAdmin: true,
	}); err != nil {
		return patch, err
	}

	if topicID != nil {
		topic, err := s.store.GetTopic(ctx, *topicID)
		if err != nil {
			return patch, err
		}
		if topic == nil {
			return patch, ErrInvalidTopic
		}
		patch.TopicID = &topic.ID
		return patch, nil
	}

	topic, err := s.store.FindOrCreateTopic(ctx, thread.CommunityID, *topicName)
	if err != nil {
		return patch, err
	}
	patch.TopicID = &topic.ID
	return patch, nil
}

func (s *Service) resolveCollaborators(ctx context.Context, perms Permissions,
	thread *types.Thread, changes *CollaboratorChanges) ([]uint32, []uint32, error) {

	if changes == nil || (changes.ToAdd == nil && changes.ToRemove == nil) {
		return nil, nil, nil
	}
	if err := ValidatePermissions(perms, Permissions{
		IsThreadOwner: true, IsSuperAdmin: true,
	}); err != nil {
		return nil, nil, err
	}

	toAdd := uniq(changes.ToAdd)
	toRemove := uniq(changes.ToRemove)

	for _, r := range toRemove {
		for _, a := range toAdd {
			if r == a {
				return nil, nil, ErrCollaboratorsOverlap
			}
		}
	}

	if len(toAdd) > 0 {
		addresses, err := s.store.FindCommunityAddresses(ctx, thread.CommunityID, toAdd)
		if err != nil {
			return nil, nil, err
		}
		if len(addresses) != len(toAdd) {
			return nil, nil, ErrMissingCollaborators
		}
	}

	return toAdd, toRemove, nil
}

func (s *Service) mentionNotifications(ctx context.Context, body *string,
	latestVersion string, thread *types.Thread, now time.Time) ([]notifications.Emit, error) {

	if body == nil {
		return nil, nil
	}

	previous := ParseMentions(latestVersion)
	current := ParseMentions(DecodeBody(*body))
	added := NewMentions(previous, current)

	var jobs []notifications.Emit
	for _, mention := range added {
		addr, err := s.store.GetAddressWithUser(ctx, mention.Community, mention.Address)
		if err != nil || addr == nil || addr.User == nil {
			// addresses may lack users, e.g. after unlinking
			continue
		}
		jobs = append(jobs, notifications.Emit{
			Category: notifications.CategoryNewMention,
			Data: notifications.ThreadData{
				CreatedAt:       now,
				ThreadID:        thread.ID,
				RootType:        "discussion",
				RootTitle:       thread.Title,
				CommunityID:     thread.CommunityID,
				AuthorAddress:   thread.Address.Address,
				AuthorCommunity: thread.Address.CommunityID,
				CommentText:     thread.Body,
				MentionedUserID: addr.User.ID,
			},
			ExcludeAddresses: []string{thread.Address.Address},
		})
	}
	return jobs, nil
}

func uniq(ids []uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(ids))
	out := make([]uint32, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func decodeVersionEntry(raw string) (types.VersionEntry, error) {
	var entry types.VersionEntry
	err := json.Unmarshal([]byte(raw), &entry)
	return entry, err
}
