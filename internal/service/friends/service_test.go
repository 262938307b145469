package friends

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/usersaynoso/shadowme-server/internal/store"
	"github.com/usersaynoso/shadowme-server/internal/store/sqlite"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	logger := zerolog.Nop()
	return New(st, &logger), st
}

func mustUser(t *testing.T, st store.Store, email, username string) *store.User {
	t.Helper()
	u, err := st.CreateUser(context.Background(), email, username, "hash")
	require.NoError(t, err)
	return u
}

func TestSendAndAcceptRequest(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	alice := mustUser(t, st, "alice@example.com", "alice")
	bob := mustUser(t, st, "bob@example.com", "bob")

	_, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	pending, err := svc.ListPendingRequests(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, alice.ID, pending[0].UserID)

	// Bob got a friend_request notification.
	notes, err := st.ListNotifications(ctx, bob.ID, true)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, store.NotificationFriendRequest, notes[0].Kind)
	require.Equal(t, alice.ID, notes[0].ActorID)

	require.NoError(t, svc.AcceptRequest(ctx, bob.ID, alice.ID))

	ok, err := svc.IsFriend(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Alice gets notified of the acceptance.
	notes, err = st.ListNotifications(ctx, alice.ID, true)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, store.NotificationFriendAccepted, notes[0].Kind)
}

func TestSendRequestValidation(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	alice := mustUser(t, st, "alice@example.com", "alice")
	bob := mustUser(t, st, "bob@example.com", "bob")

	_, err := svc.SendRequest(ctx, alice.ID, alice.ID)
	require.ErrorIs(t, err, ErrCannotFriendSelf)

	_, err = svc.SendRequest(ctx, alice.ID, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.SendRequest(ctx, alice.ID, bob.ID)
	require.ErrorIs(t, err, ErrRequestAlreadyExists)

	require.NoError(t, svc.AcceptRequest(ctx, bob.ID, alice.ID))
	_, err = svc.SendRequest(ctx, alice.ID, bob.ID)
	require.ErrorIs(t, err, ErrAlreadyFriends)
}

func TestSendRequestRespectsSettings(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	alice := mustUser(t, st, "alice@example.com", "alice")
	bob := mustUser(t, st, "bob@example.com", "bob")

	settings, err := st.GetSettings(ctx, bob.ID)
	require.NoError(t, err)
	settings.AllowFriendRequests = false
	require.NoError(t, st.UpdateSettings(ctx, settings))

	_, err = svc.SendRequest(ctx, alice.ID, bob.ID)
	require.ErrorIs(t, err, ErrRequestsDisabled)
}

func TestDeclineRequest(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	alice := mustUser(t, st, "alice@example.com", "alice")
	bob := mustUser(t, st, "bob@example.com", "bob")

	_, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	// Alice cannot decline her own outgoing request as the recipient.
	require.ErrorIs(t, svc.DeclineRequest(ctx, alice.ID, bob.ID), ErrRequestNotFound)

	require.NoError(t, svc.DeclineRequest(ctx, bob.ID, alice.ID))

	pending, err := svc.ListPendingRequests(ctx, bob.ID)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestRemoveFriend(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	alice := mustUser(t, st, "alice@example.com", "alice")
	bob := mustUser(t, st, "bob@example.com", "bob")

	_, err := svc.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, svc.AcceptRequest(ctx, bob.ID, alice.ID))

	require.NoError(t, svc.RemoveFriend(ctx, bob.ID, alice.ID))

	ok, err := svc.IsFriend(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBlockAndUnblock(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	alice := mustUser(t, st, "alice@example.com", "alice")
	bob := mustUser(t, st, "bob@example.com", "bob")

	require.NoError(t, svc.BlockUser(ctx, alice.ID, bob.ID))

	// Blocked users cannot send requests; the block is hidden.
	_, err := svc.SendRequest(ctx, bob.ID, alice.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	// Only the blocker can undo the block.
	require.ErrorIs(t, svc.UnblockUser(ctx, bob.ID, alice.ID), ErrNotBlocked)
	require.NoError(t, svc.UnblockUser(ctx, alice.ID, bob.ID))

	_, err = svc.SendRequest(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
}

func TestBlockReplacesFriendship(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	alice := mustUser(t, st, "alice@example.com", "alice")
	bob := mustUser(t, st, "bob@example.com", "bob")

	_, err := svc.SendRequest(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.NoError(t, svc.AcceptRequest(ctx, alice.ID, bob.ID))

	require.NoError(t, svc.BlockUser(ctx, alice.ID, bob.ID))

	ok, err := svc.IsFriend(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.False(t, ok)
}
