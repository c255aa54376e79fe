package threads

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/commonwealth-im/commonwealth-api/src/api/types"
)

// Patch is the staged field set for one update. Reducers fold their
// changes into a fresh Patch value; nothing is persisted until the whole
// patch commits in one transaction.
type Patch struct {
	Title     *string
	Body      *string
	Plaintext *string
	URL       *string
	Stage     *string
	Pinned    *bool
	ReadOnly  *bool

	SetLocked bool
	LockedAt  *time.Time

	SetArchived bool
	ArchivedAt  *time.Time

	SetSpam bool
	SpamAt  *time.Time

	TopicID *uint32

	// full replacement history, newest first; nil leaves it untouched
	VersionHistory []string

	CanvasSession *string
	CanvasAction  *string
	CanvasHash    *string
}

type attributeChanges struct {
	Title         *string
	Body          *string
	URL           *string
	CanvasSession *string
	CanvasAction  *string
	CanvasHash    *string
}

// setThreadAttributes stages title, body, url and the canvas proof
// triple. The version-history entry is staged here, after the content
// gate has passed.
func setThreadAttributes(patch Patch, perms Permissions, thread *types.Thread, in attributeChanges,
	policy *bluemonday.Policy, latestVersion string, now time.Time, actor string) (Patch, error) {

	if in.Title == nil && in.Body == nil && in.URL == nil {
		return patch, nil
	}

	if err := ValidatePermissions(perms, Permissions{
		IsThreadOwner: true, IsMod: true, IsAdmin: true, IsSuperAdmin: true,
	}); err != nil {
		return patch, err
	}

	if in.Title != nil {
		if *in.Title == "" {
			return patch, ErrNoTitle
		}
		patch.Title = in.Title
	}

	if in.Body != nil {
		if thread.Kind == types.ThreadKindDiscussion && strings.TrimSpace(DecodeBody(*in.Body)) == "" {
			return patch, ErrNoBody
		}
		patch.Body = in.Body
		plaintext := RenderPlaintext(policy, *in.Body)
		patch.Plaintext = &plaintext

		if decoded := DecodeBody(*in.Body); decoded != latestVersion {
			entry, err := json.Marshal(types.VersionEntry{
				Timestamp: now,
				Author:    actor,
				Body:      decoded,
			})
			if err == nil {
				history := make([]string, 0, len(thread.VersionHistory)+1)
				history = append(history, string(entry))
				history = append(history, thread.VersionHistory...)
				patch.VersionHistory = history
			}
		}
	}

	if in.URL != nil && thread.Kind == types.ThreadKindLink {
		if !validURL(*in.URL) {
			return patch, ErrInvalidLink
		}
		patch.URL = in.URL
	}

	if in.CanvasSession != nil {
		patch.CanvasSession = in.CanvasSession
		patch.CanvasAction = in.CanvasAction
		patch.CanvasHash = in.CanvasHash
	}

	return patch, nil
}

func setThreadPinned(patch Patch, perms Permissions, pinned *bool) (Patch, error) {
	if pinned == nil {
		return patch, nil
	}
	if err := ValidatePermissions(perms, Permissions{
		IsMod: true, IsAdmin: true, IsSuperAdmin: true,
	}); err != nil {
		return patch, err
	}
	patch.Pinned = pinned
	return patch, nil
}

func setThreadSpam(patch Patch, perms Permissions, spam *bool, now time.Time) (Patch, error) {
	if spam == nil {
		return patch, nil
	}
	if err := ValidatePermissions(perms, Permissions{
		IsMod: true, IsAdmin: true, IsSuperAdmin: true,
	}); err != nil {
		return patch, err
	}
	patch.SetSpam = true
	if *spam {
		patch.SpamAt = &now
	}
	return patch, nil
}

func setThreadLocked(patch Patch, perms Permissions, locked *bool, now time.Time) (Patch, error) {
	if locked == nil {
		return patch, nil
	}
	if err := ValidatePermissions(perms, Permissions{
		IsThreadOwner: true, IsMod: true, IsAdmin: true, IsSuperAdmin: true,
	}); err != nil {
		return patch, err
	}
	patch.ReadOnly = locked
	patch.SetLocked = true
	if *locked {
		patch.LockedAt = &now
	}
	return patch, nil
}

func setThreadArchived(patch Patch, perms Permissions, archived *bool, now time.Time) (Patch, error) {
	if archived == nil {
		return patch, nil
	}
	if err := ValidatePermissions(perms, Permissions{
		IsMod: true, IsAdmin: true, IsSuperAdmin: true,
	}); err != nil {
		return patch, err
	}
	patch.SetArchived = true
	if *archived {
		patch.ArchivedAt = &now
	}
	return patch, nil
}

// setThreadStage validates the stage against the community's custom or
// default stage list. The second return reports whether an analytics
// event should be recorded.
func setThreadStage(patch Patch, perms Permissions, stage *string, community *types.Community) (Patch, bool, error) {
	if stage == nil {
		return patch, false, nil
	}
	if err := ValidatePermissions(perms, Permissions{
		IsThreadOwner: true, IsMod: true, IsAdmin: true, IsSuperAdmin: true,
	}); err != nil {
		return patch, false, err
	}

	stages := ParseCustomStages(community.CustomStages)
	if !validStage(stages, *stage) {
		return patch, false, ErrInvalidStage
	}
	patch.Stage = stage
	return patch, true, nil
}

func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
