package threads

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/commonwealth-im/commonwealth-api/src/api/analytics"
	"github.com/commonwealth-im/commonwealth-api/src/api/notifications"
	"github.com/commonwealth-im/commonwealth-api/src/api/types"
)

// Mock store for workflow tests
type MockThreadStore struct {
	mock.Mock
}

func (m *MockThreadStore) GetThread(ctx context.Context, id uint32) (*types.Thread, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*types.Thread), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockThreadStore) GetThreadByDiscordMeta(ctx context.Context, meta string) (*types.Thread, error) {
	args := m.Called(ctx, meta)
	if t := args.Get(0); t != nil {
		return t.(*types.Thread), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockThreadStore) GetThreadWithAssociations(ctx context.Context, id uint32) (*types.Thread, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*types.Thread), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockThreadStore) IsBanned(ctx context.Context, communityID, address string) (bool, error) {
	args := m.Called(ctx, communityID, address)
	return args.Bool(0), args.Error(1)
}

func (m *MockThreadStore) VerifiedAddressIDs(ctx context.Context, userID uint32) ([]uint32, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]uint32), args.Error(1)
}

func (m *MockThreadStore) FindRoles(ctx context.Context, communityID string, addressIDs []uint32, permissions []string) ([]types.Role, error) {
	args := m.Called(ctx, communityID, addressIDs, permissions)
	return args.Get(0).([]types.Role), args.Error(1)
}

func (m *MockThreadStore) GetTopic(ctx context.Context, id uint32) (*types.Topic, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*types.Topic), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockThreadStore) FindOrCreateTopic(ctx context.Context, communityID, name string) (*types.Topic, error) {
	args := m.Called(ctx, communityID, name)
	if t := args.Get(0); t != nil {
		return t.(*types.Topic), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockThreadStore) FindCommunityAddresses(ctx context.Context, communityID string, ids []uint32) ([]types.Address, error) {
	args := m.Called(ctx, communityID, ids)
	return args.Get(0).([]types.Address), args.Error(1)
}

func (m *MockThreadStore) GetAddressWithUser(ctx context.Context, communityID, address string) (*types.Address, error) {
	args := m.Called(ctx, communityID, address)
	if a := args.Get(0); a != nil {
		return a.(*types.Address), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockThreadStore) ApplyPatch(ctx context.Context, threadID uint32, patch Patch, addCollaborators, removeCollaborators []uint32) error {
	args := m.Called(ctx, threadID, patch, addCollaborators, removeCollaborators)
	return args.Error(0)
}

func (m *MockThreadStore) TouchAddressActivity(ctx context.Context, addressID uint32) error {
	args := m.Called(ctx, addressID)
	return args.Error(0)
}

func versionEntry(t *testing.T, author, body string) string {
	t.Helper()
	raw, err := json.Marshal(types.VersionEntry{Timestamp: time.Now(), Author: author, Body: body})
	require.NoError(t, err)
	return string(raw)
}

type fixture struct {
	community *types.Community
	user      *types.User
	address   *types.Address
	thread    *types.Thread
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	community := &types.Community{ID: "edgeware", Name: "Edgeware"}
	user := &types.User{ID: 1}
	address := &types.Address{ID: 10, Address: "alice-addr", CommunityID: "edgeware", UserID: &user.ID}
	thread := &types.Thread{
		ID:          5,
		CommunityID: "edgeware",
		AddressID:   10,
		Kind:        types.ThreadKindDiscussion,
		Title:       "Original title",
		Body:        "original text",
		Stage:       "discussion",
		VersionHistory: []string{
			versionEntry(t, "alice-addr", "original text"),
		},
		Address: types.Address{ID: 10, Address: "alice-addr", CommunityID: "edgeware"},
	}
	return fixture{community: community, user: user, address: address, thread: thread}
}

func (f fixture) opts() UpdateThreadOptions {
	return UpdateThreadOptions{
		User:      f.user,
		Address:   f.address,
		Community: f.community,
		ThreadID:  f.thread.ID,
	}
}

// expectResolution wires the store calls every update makes before any
// field gate runs.
func expectResolution(store *MockThreadStore, f fixture, roles []types.Role) {
	store.On("GetThread", mock.Anything, f.thread.ID).Return(f.thread, nil)
	store.On("IsBanned", mock.Anything, "edgeware", f.address.Address).Return(false, nil)
	store.On("VerifiedAddressIDs", mock.Anything, f.user.ID).Return([]uint32{f.address.ID}, nil)
	store.On("FindRoles", mock.Anything, "edgeware", []uint32{f.address.ID},
		[]string{types.RoleModerator, types.RoleAdmin}).Return(roles, nil)
}

func expectCommit(store *MockThreadStore, f fixture) {
	store.On("ApplyPatch", mock.Anything, f.thread.ID, mock.AnythingOfType("threads.Patch"),
		mock.Anything, mock.Anything).Return(nil)
	store.On("TouchAddressActivity", mock.Anything, f.address.ID).Return(nil)
	store.On("GetThreadWithAssociations", mock.Anything, f.thread.ID).Return(f.thread, nil)
}

func TestUpdateThreadOwnerEditsTitleAndBody(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	expectResolution(store, f, nil)

	var committed Patch
	store.On("ApplyPatch", mock.Anything, f.thread.ID, mock.AnythingOfType("threads.Patch"),
		mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { committed = args.Get(2).(Patch) }).
		Return(nil)
	store.On("TouchAddressActivity", mock.Anything, f.address.ID).Return(nil)
	store.On("GetThreadWithAssociations", mock.Anything, f.thread.ID).Return(f.thread, nil)

	svc := NewService(store)
	opts := f.opts()
	title := "New title"
	body := "updated text"
	opts.Title = &title
	opts.Body = &body

	thread, notifyJobs, analyticsJobs, err := svc.UpdateThread(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, thread)

	require.Equal(t, &title, committed.Title)
	require.Equal(t, &body, committed.Body)
	require.NotNil(t, committed.Plaintext)
	require.Equal(t, "updated text", *committed.Plaintext)

	// new revision prepended on top of the existing one
	require.Len(t, committed.VersionHistory, 2)
	var head types.VersionEntry
	require.NoError(t, json.Unmarshal([]byte(committed.VersionHistory[0]), &head))
	require.Equal(t, "updated text", head.Body)
	require.Equal(t, "alice-addr", head.Author)

	// exactly one edit notification, never delivered back to the editor
	require.Len(t, notifyJobs, 1)
	require.Equal(t, notifications.CategoryThreadEdit, notifyJobs[0].Category)
	require.Equal(t, []string{"alice-addr"}, notifyJobs[0].ExcludeAddresses)
	require.Empty(t, analyticsJobs)

	store.AssertExpectations(t)
}

func TestUpdateThreadUnchangedBodySkipsHistory(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	expectResolution(store, f, nil)

	var committed Patch
	store.On("ApplyPatch", mock.Anything, f.thread.ID, mock.AnythingOfType("threads.Patch"),
		mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { committed = args.Get(2).(Patch) }).
		Return(nil)
	store.On("TouchAddressActivity", mock.Anything, f.address.ID).Return(nil)
	store.On("GetThreadWithAssociations", mock.Anything, f.thread.ID).Return(f.thread, nil)

	svc := NewService(store)
	opts := f.opts()
	body := "original text"
	opts.Body = &body

	_, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.NoError(t, err)
	require.Nil(t, committed.VersionHistory)
}

func TestUpdateThreadPinRequiresModerator(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	expectResolution(store, f, nil) // owner, no roles

	svc := NewService(store)
	opts := f.opts()
	pinned := true
	opts.Pinned = &pinned

	_, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.ErrorIs(t, err, ErrUnauthorized)
	store.AssertNotCalled(t, "ApplyPatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateThreadModeratorPins(t *testing.T) {
	f := newFixture(t)
	f.thread.AddressID = 99 // caller is not the owner
	store := new(MockThreadStore)
	expectResolution(store, f, []types.Role{
		{CommunityID: "edgeware", Permission: types.RoleModerator},
	})
	expectCommit(store, f)

	svc := NewService(store)
	opts := f.opts()
	pinned := true
	opts.Pinned = &pinned

	_, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestUpdateThreadBannedCaller(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	store.On("GetThread", mock.Anything, f.thread.ID).Return(f.thread, nil)
	store.On("IsBanned", mock.Anything, "edgeware", f.address.Address).Return(true, nil)

	svc := NewService(store)
	_, _, _, err := svc.UpdateThread(context.Background(), f.opts())
	require.ErrorIs(t, err, ErrBanned)

	// the ban check runs before any permission derivation
	store.AssertNotCalled(t, "VerifiedAddressIDs", mock.Anything, mock.Anything)
}

func TestUpdateThreadNoStanding(t *testing.T) {
	f := newFixture(t)
	f.thread.AddressID = 99
	store := new(MockThreadStore)
	expectResolution(store, f, nil)

	svc := NewService(store)
	_, _, _, err := svc.UpdateThread(context.Background(), f.opts())
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdateThreadNotFound(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	store.On("GetThread", mock.Anything, uint32(404)).Return(nil, nil)

	svc := NewService(store)
	opts := f.opts()
	opts.ThreadID = 404

	_, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.ErrorIs(t, err, ErrThreadNotFound)
}

func TestUpdateThreadByDiscordMeta(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	store.On("GetThreadByDiscordMeta", mock.Anything, `{"message_id":"123"}`).Return(f.thread, nil)
	store.On("IsBanned", mock.Anything, "edgeware", f.address.Address).Return(false, nil)
	store.On("VerifiedAddressIDs", mock.Anything, f.user.ID).Return([]uint32{f.address.ID}, nil)
	store.On("FindRoles", mock.Anything, "edgeware", []uint32{f.address.ID},
		[]string{types.RoleModerator, types.RoleAdmin}).Return([]types.Role(nil), nil)
	expectCommit(store, f)

	svc := NewService(store)
	opts := f.opts()
	opts.ThreadID = 0
	opts.DiscordMeta = `{"message_id":"123"}`
	title := "Renamed from Discord"
	opts.Title = &title

	thread, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, thread)
	store.AssertExpectations(t)
}

func TestUpdateThreadEmptyTitleRejected(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	expectResolution(store, f, nil)

	svc := NewService(store)
	opts := f.opts()
	title := ""
	opts.Title = &title

	_, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.ErrorIs(t, err, ErrNoTitle)
	store.AssertNotCalled(t, "ApplyPatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateThreadEmptyBodyRejected(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	expectResolution(store, f, nil)

	svc := NewService(store)
	opts := f.opts()
	body := "%20%20"
	opts.Body = &body

	_, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.ErrorIs(t, err, ErrNoBody)
	store.AssertNotCalled(t, "ApplyPatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateThreadLinkKindValidatesURL(t *testing.T) {
	f := newFixture(t)
	f.thread.Kind = types.ThreadKindLink
	store := new(MockThreadStore)
	expectResolution(store, f, nil)

	svc := NewService(store)
	opts := f.opts()
	badURL := "ftp://example.com/file"
	opts.URL = &badURL

	_, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.ErrorIs(t, err, ErrInvalidLink)
}

func TestUpdateThreadStage(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	expectResolution(store, f, nil)

	svc := NewService(store)
	opts := f.opts()
	stage := "temperature-check"
	opts.Stage = &stage

	_, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.ErrorIs(t, err, ErrInvalidStage)

	// a stage from the community's custom list passes and is tracked
	f.community.CustomStages = `["temperature-check", "onchain-vote"]`
	store = new(MockThreadStore)
	expectResolution(store, f, nil)
	expectCommit(store, f)

	svc = NewService(store)
	_, _, analyticsJobs, err := svc.UpdateThread(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, analyticsJobs, 1)
	require.Equal(t, analytics.EventUpdateStage, analyticsJobs[0].Event)
	require.Equal(t, "edgeware", analyticsJobs[0].Community)
}

func TestUpdateThreadTopicByID(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	expectResolution(store, f, nil)
	store.On("GetTopic", mock.Anything, uint32(7)).Return(nil, nil)

	svc := NewService(store)
	opts := f.opts()
	topicID := uint32(7)
	opts.TopicID = &topicID

	_, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.ErrorIs(t, err, ErrInvalidTopic)

	store = new(MockThreadStore)
	expectResolution(store, f, nil)
	store.On("GetTopic", mock.Anything, uint32(7)).Return(&types.Topic{ID: 7, Name: "Governance"}, nil)

	var committed Patch
	store.On("ApplyPatch", mock.Anything, f.thread.ID, mock.AnythingOfType("threads.Patch"),
		mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { committed = args.Get(2).(Patch) }).
		Return(nil)
	store.On("TouchAddressActivity", mock.Anything, f.address.ID).Return(nil)
	store.On("GetThreadWithAssociations", mock.Anything, f.thread.ID).Return(f.thread, nil)

	svc = NewService(store)
	_, _, _, err = svc.UpdateThread(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, committed.TopicID)
	require.Equal(t, uint32(7), *committed.TopicID)
}

func TestUpdateThreadCollaboratorOverlap(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	expectResolution(store, f, nil)

	svc := NewService(store)
	opts := f.opts()
	opts.Collaborators = &CollaboratorChanges{ToAdd: []uint32{11, 12}, ToRemove: []uint32{12}}

	_, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.ErrorIs(t, err, ErrCollaboratorsOverlap)
	store.AssertNotCalled(t, "ApplyPatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateThreadCollaboratorsRequireOwner(t *testing.T) {
	f := newFixture(t)
	f.thread.AddressID = 99
	store := new(MockThreadStore)
	// a community admin still may not touch collaborators
	expectResolution(store, f, []types.Role{
		{CommunityID: "edgeware", Permission: types.RoleAdmin},
	})

	svc := NewService(store)
	opts := f.opts()
	opts.Collaborators = &CollaboratorChanges{ToAdd: []uint32{11}}

	_, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdateThreadCollaboratorsMustResolve(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	expectResolution(store, f, nil)
	store.On("FindCommunityAddresses", mock.Anything, "edgeware", []uint32{11, 12}).
		Return([]types.Address{{ID: 11, CommunityID: "edgeware"}}, nil)

	svc := NewService(store)
	opts := f.opts()
	opts.Collaborators = &CollaboratorChanges{ToAdd: []uint32{11, 12}}

	_, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.ErrorIs(t, err, ErrMissingCollaborators)
	store.AssertNotCalled(t, "ApplyPatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateThreadCollaboratorsCommit(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	expectResolution(store, f, nil)
	store.On("FindCommunityAddresses", mock.Anything, "edgeware", []uint32{11, 12}).
		Return([]types.Address{
			{ID: 11, CommunityID: "edgeware"},
			{ID: 12, CommunityID: "edgeware"},
		}, nil)

	var gotAdd, gotRemove []uint32
	store.On("ApplyPatch", mock.Anything, f.thread.ID, mock.AnythingOfType("threads.Patch"),
		mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotAdd = args.Get(3).([]uint32)
			gotRemove = args.Get(4).([]uint32)
		}).
		Return(nil)
	store.On("TouchAddressActivity", mock.Anything, f.address.ID).Return(nil)
	store.On("GetThreadWithAssociations", mock.Anything, f.thread.ID).Return(f.thread, nil)

	svc := NewService(store)
	opts := f.opts()
	// duplicates collapse before the lookup
	opts.Collaborators = &CollaboratorChanges{ToAdd: []uint32{11, 11, 12}, ToRemove: []uint32{13}}

	_, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, []uint32{11, 12}, gotAdd)
	require.Equal(t, []uint32{13}, gotRemove)
}

func TestUpdateThreadMentionNotifications(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	expectResolution(store, f, nil)
	expectCommit(store, f)

	bobID := uint32(2)
	store.On("GetAddressWithUser", mock.Anything, "edgeware", "bob-addr").
		Return(&types.Address{
			ID: 11, Address: "bob-addr", CommunityID: "edgeware",
			User: &types.User{ID: bobID},
		}, nil)

	svc := NewService(store)
	opts := f.opts()
	body := "updated text, cc [@Bob](/edgeware/account/bob-addr)"
	opts.Body = &body

	_, notifyJobs, _, err := svc.UpdateThread(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, notifyJobs, 2)
	require.Equal(t, notifications.CategoryThreadEdit, notifyJobs[0].Category)
	require.Equal(t, notifications.CategoryNewMention, notifyJobs[1].Category)
	require.Equal(t, bobID, notifyJobs[1].Data.MentionedUserID)
	require.Equal(t, []string{"alice-addr"}, notifyJobs[1].ExcludeAddresses)
}

func TestUpdateThreadMentionWithoutUserSkipped(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	expectResolution(store, f, nil)
	expectCommit(store, f)
	store.On("GetAddressWithUser", mock.Anything, "edgeware", "ghost-addr").Return(nil, nil)

	svc := NewService(store)
	opts := f.opts()
	body := "updated text, cc [@Ghost](/edgeware/account/ghost-addr)"
	opts.Body = &body

	_, notifyJobs, _, err := svc.UpdateThread(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, notifyJobs, 1)
	require.Equal(t, notifications.CategoryThreadEdit, notifyJobs[0].Category)
}

func TestUpdateThreadTransactionErrorWrapped(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	expectResolution(store, f, nil)
	store.On("ApplyPatch", mock.Anything, f.thread.ID, mock.AnythingOfType("threads.Patch"),
		mock.Anything, mock.Anything).Return(errors.New("deadlock"))

	svc := NewService(store)
	opts := f.opts()
	title := "New title"
	opts.Title = &title

	_, _, _, err := svc.UpdateThread(context.Background(), opts)
	require.Error(t, err)
	require.False(t, IsUserError(err))
	require.Contains(t, err.Error(), "transaction failed")
}

func TestGetThread(t *testing.T) {
	f := newFixture(t)
	store := new(MockThreadStore)
	store.On("GetThreadWithAssociations", mock.Anything, f.thread.ID).Return(f.thread, nil)
	store.On("GetThreadWithAssociations", mock.Anything, uint32(404)).Return(nil, nil)

	svc := NewService(store)

	thread, err := svc.GetThread(context.Background(), f.thread.ID)
	require.NoError(t, err)
	require.Equal(t, f.thread.ID, thread.ID)

	_, err = svc.GetThread(context.Background(), 404)
	require.ErrorIs(t, err, ErrThreadNotFound)
}
