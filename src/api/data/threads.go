package data

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/commonwealth-im/commonwealth-api/src/api/threads"
	"github.com/commonwealth-im/commonwealth-api/src/api/types"
)

// ThreadStore is the gorm-backed persistence layer behind the thread
// workflow. Lookups translate gorm's not-found error into (nil, nil).
type ThreadStore struct {
	db *gorm.DB
}

func NewThreadStore(db *gorm.DB) *ThreadStore {
	return &ThreadStore{db: db}
}

func (s *ThreadStore) GetThread(ctx context.Context, id uint32) (*types.Thread, error) {
	var thread types.Thread
	err := s.db.WithContext(ctx).First(&thread, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

func (s *ThreadStore) GetThreadByDiscordMeta(ctx context.Context, meta string) (*types.Thread, error) {
	var thread types.Thread
	err := s.db.WithContext(ctx).First(&thread, "discord_meta = ?", meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

func (s *ThreadStore) GetThreadWithAssociations(ctx context.Context, id uint32) (*types.Thread, error) {
	var thread types.Thread
	err := s.db.WithContext(ctx).
		Preload("Address").
		Preload("Collaborators").
		Preload("Topic").
		First(&thread, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

func (s *ThreadStore) IsBanned(ctx context.Context, communityID, address string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&types.Ban{}).
		Where("community_id = ? AND address = ?", communityID, address).
		Count(&count).Error
	return count > 0, err
}

func (s *ThreadStore) VerifiedAddressIDs(ctx context.Context, userID uint32) ([]uint32, error) {
	var ids []uint32
	err := s.db.WithContext(ctx).Model(&types.Address{}).
		Where("user_id = ? AND verified IS NOT NULL", userID).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *ThreadStore) FindRoles(ctx context.Context, communityID string, addressIDs []uint32, permissions []string) ([]types.Role, error) {
	if len(addressIDs) == 0 {
		return nil, nil
	}
	var roles []types.Role
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND address_id IN ? AND permission IN ?",
			communityID, addressIDs, permissions).
		Find(&roles).Error
	return roles, err
}

func (s *ThreadStore) GetTopic(ctx context.Context, id uint32) (*types.Topic, error) {
	var topic types.Topic
	err := s.db.WithContext(ctx).First(&topic, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (s *ThreadStore) FindOrCreateTopic(ctx context.Context, communityID, name string) (*types.Topic, error) {
	var topic types.Topic
	err := s.db.WithContext(ctx).
		FirstOrCreate(&topic, types.Topic{Name: name, CommunityID: communityID}).Error
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (s *ThreadStore) FindCommunityAddresses(ctx context.Context, communityID string, ids []uint32) ([]types.Address, error) {
	var addresses []types.Address
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND id IN ? AND verified IS NOT NULL", communityID, ids).
		Find(&addresses).Error
	return addresses, err
}

func (s *ThreadStore) GetAddressWithUser(ctx context.Context, communityID, address string) (*types.Address, error) {
	var addr types.Address
	err := s.db.WithContext(ctx).Preload("User").
		First(&addr, "community_id = ? AND address = ?", communityID, address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// ApplyPatch commits the staged field patch plus collaborator changes in
// a single transaction. Row locking on the thread row is the only
// serialization between concurrent patches.
func (s *ThreadStore) ApplyPatch(ctx context.Context, threadID uint32, patch threads.Patch, addCollaborators, removeCollaborators []uint32) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := patchUpdates(patch)
		updates["last_edited"] = time.Now()

		if err := tx.Model(&types.Thread{}).Where("id = ?", threadID).
			Updates(updates).Error; err != nil {
			return err
		}

		for _, addressID := range addCollaborators {
			collab := types.Collaboration{ThreadID: threadID, AddressID: addressID}
			if err := tx.FirstOrCreate(&collab, collab).Error; err != nil {
				return err
			}
		}

		if len(removeCollaborators) > 0 {
			if err := tx.Where("thread_id = ? AND address_id IN ?", threadID, removeCollaborators).
				Delete(&types.Collaboration{}).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *ThreadStore) TouchAddressActivity(ctx context.Context, addressID uint32) error {
	return s.db.WithContext(ctx).Model(&types.Address{}).
		Where("id = ?", addressID).
		Update("last_active", time.Now()).Error
}

func patchUpdates(patch threads.Patch) map[string]interface{} {
	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Body != nil {
		updates["body"] = *patch.Body
	}
	if patch.Plaintext != nil {
		updates["plaintext"] = *patch.Plaintext
	}
	if patch.URL != nil {
		updates["url"] = *patch.URL
	}
	if patch.Stage != nil {
		updates["stage"] = *patch.Stage
	}
	if patch.Pinned != nil {
		updates["pinned"] = *patch.Pinned
	}
	if patch.ReadOnly != nil {
		updates["read_only"] = *patch.ReadOnly
	}
	if patch.SetLocked {
		updates["locked_at"] = patch.LockedAt
	}
	if patch.SetArchived {
		updates["archived_at"] = patch.ArchivedAt
	}
	if patch.SetSpam {
		updates["marked_as_spam_at"] = patch.SpamAt
	}
	if patch.TopicID != nil {
		updates["topic_id"] = *patch.TopicID
	}
	if patch.VersionHistory != nil {
		// map-based updates bypass the serializer, so encode here
		if encoded, err := json.Marshal(patch.VersionHistory); err == nil {
			updates["version_history"] = string(encoded)
		}
	}
	if patch.CanvasSession != nil {
		updates["canvas_session"] = *patch.CanvasSession
		if patch.CanvasAction != nil {
			updates["canvas_action"] = *patch.CanvasAction
		}
		if patch.CanvasHash != nil {
			updates["canvas_hash"] = *patch.CanvasHash
		}
	}
	return updates
}
