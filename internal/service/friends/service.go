package friends

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/usersaynoso/shadowme-server/internal/store"
)

// Common errors for friend operations.
var (
	ErrCannotFriendSelf     = errors.New("cannot send friend request to yourself")
	ErrAlreadyFriends       = errors.New("already friends")
	ErrRequestAlreadyExists = errors.New("friend request already exists")
	ErrRequestNotFound      = errors.New("friend request not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrRequestsDisabled     = errors.New("user does not accept friend requests")
	ErrNotBlocked           = errors.New("user is not blocked")
)

// Service provides friend management business logic.
type Service struct {
	store store.Store
	log   *zerolog.Logger
}

// New creates a new friend service.
func New(st store.Store, logger *zerolog.Logger) *Service {
	return &Service{
		store: st,
		log:   logger,
	}
}

// SendRequest sends a friend request from one user to another. The target
// gets a notification.
func (s *Service) SendRequest(ctx context.Context, fromUserID, toUserID string) (*store.Friend, error) {
	if fromUserID == toUserID {
		return nil, ErrCannotFriendSelf
	}

	if _, err := s.store.GetUserByID(ctx, toUserID); err != nil {
		return nil, ErrUserNotFound
	}

	settings, err := s.store.GetSettings(ctx, toUserID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !settings.AllowFriendRequests {
		return nil, ErrRequestsDisabled
	}

	if existing, err := s.store.GetFriendship(ctx, fromUserID, toUserID); err == nil {
		switch existing.Status {
		case store.FriendStatusAccepted:
			return nil, ErrAlreadyFriends
		case store.FriendStatusPending:
			return nil, ErrRequestAlreadyExists
		case store.FriendStatusBlocked:
			// Indistinguishable from a missing user on purpose.
			return nil, ErrUserNotFound
		}
	}

	friend, err := s.store.CreateFriendRequest(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("create friend request: %w", err)
	}

	s.notify(ctx, toUserID, store.NotificationFriendRequest, fromUserID)
	return friend, nil
}

// AcceptRequest accepts a pending friend request directed at userID and
// notifies the requester.
func (s *Service) AcceptRequest(ctx context.Context, userID, fromUserID string) error {
	existing, err := s.store.GetFriendship(ctx, fromUserID, userID)
	if err != nil {
		return ErrRequestNotFound
	}

	// Must be pending and directed to the accepting user.
	if existing.Status != store.FriendStatusPending || existing.FriendID != userID {
		return ErrRequestNotFound
	}

	if err := s.store.UpdateFriendStatus(ctx, existing.UserID, existing.FriendID, store.FriendStatusAccepted); err != nil {
		return fmt.Errorf("accept request: %w", err)
	}

	s.notify(ctx, fromUserID, store.NotificationFriendAccepted, userID)
	return nil
}

// DeclineRequest declines a pending friend request directed at userID.
func (s *Service) DeclineRequest(ctx context.Context, userID, fromUserID string) error {
	existing, err := s.store.GetFriendship(ctx, fromUserID, userID)
	if err != nil {
		return ErrRequestNotFound
	}

	if existing.Status != store.FriendStatusPending || existing.FriendID != userID {
		return ErrRequestNotFound
	}

	if err := s.store.DeleteFriendship(ctx, existing.UserID, existing.FriendID); err != nil {
		return fmt.Errorf("decline request: %w", err)
	}
	return nil
}

// RemoveFriend removes an accepted friendship in either direction.
func (s *Service) RemoveFriend(ctx context.Context, userID, friendID string) error {
	existing, err := s.store.GetFriendship(ctx, userID, friendID)
	if err != nil {
		return ErrRequestNotFound
	}
	if existing.Status != store.FriendStatusAccepted {
		return ErrRequestNotFound
	}

	if err := s.store.DeleteFriendship(ctx, userID, friendID); err != nil {
		return fmt.Errorf("remove friend: %w", err)
	}
	return nil
}

// BlockUser blocks another user, replacing any existing relationship.
func (s *Service) BlockUser(ctx context.Context, userID, targetUserID string) error {
	if userID == targetUserID {
		return ErrCannotFriendSelf
	}

	if _, err := s.store.GetUserByID(ctx, targetUserID); err != nil {
		return ErrUserNotFound
	}

	if existing, err := s.store.GetFriendship(ctx, userID, targetUserID); err == nil {
		if existing.UserID == userID {
			return s.store.UpdateFriendStatus(ctx, userID, targetUserID, store.FriendStatusBlocked)
		}
		// The record is theirs; replace it with our own block.
		if deleteErr := s.store.DeleteFriendship(ctx, existing.UserID, existing.FriendID); deleteErr != nil {
			return fmt.Errorf("delete existing friendship: %w", deleteErr)
		}
	}

	if _, err := s.store.CreateFriendRequest(ctx, userID, targetUserID); err != nil {
		return fmt.Errorf("create block record: %w", err)
	}
	return s.store.UpdateFriendStatus(ctx, userID, targetUserID, store.FriendStatusBlocked)
}

// UnblockUser unblocks a previously blocked user.
func (s *Service) UnblockUser(ctx context.Context, userID, targetUserID string) error {
	existing, err := s.store.GetFriendship(ctx, userID, targetUserID)
	if err != nil {
		return ErrNotBlocked
	}

	// Must be blocked by the current user.
	if existing.Status != store.FriendStatusBlocked || existing.UserID != userID {
		return ErrNotBlocked
	}

	return s.store.DeleteFriendship(ctx, userID, targetUserID)
}

// ListFriends returns all accepted friends for a user.
func (s *Service) ListFriends(ctx context.Context, userID string) ([]*store.Friend, error) {
	status := store.FriendStatusAccepted
	friends, err := s.store.ListFriends(ctx, userID, &status)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return friends, nil
}

// ListPendingRequests returns incoming pending friend requests for a user.
func (s *Service) ListPendingRequests(ctx context.Context, userID string) ([]*store.Friend, error) {
	status := store.FriendStatusPending
	all, err := s.store.ListFriends(ctx, userID, &status)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}

	// Only requests directed at userID count as incoming.
	var incoming []*store.Friend
	for _, f := range all {
		if f.FriendID == userID {
			incoming = append(incoming, f)
		}
	}

	return incoming, nil
}

// IsFriend checks if two users are friends (accepted status).
func (s *Service) IsFriend(ctx context.Context, userID, friendID string) (bool, error) {
	return s.store.IsFriend(ctx, userID, friendID)
}

func (s *Service) notify(ctx context.Context, userID string, kind store.NotificationKind, actorID string) {
	if _, err := s.store.CreateNotification(ctx, &store.Notification{
		UserID:  userID,
		Kind:    kind,
		ActorID: actorID,
	}); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Str("kind", string(kind)).Msg("create notification failed")
	}
}
