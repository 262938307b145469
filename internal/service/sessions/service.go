package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/usersaynoso/shadowme-server/internal/store"
)

// Common errors for session operations.
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrNotHost            = errors.New("only the host can modify the session")
	ErrAlreadyParticipant = errors.New("already a participant")
	ErrNotParticipant     = errors.New("not a participant")
	ErrHostCannotLeave    = errors.New("the host cannot leave their own session")
	ErrInvalidSchedule    = errors.New("session must end after it starts")
	ErrEmptyTitle         = errors.New("session title is required")
	ErrUserNotFound       = errors.New("user not found")
)

// Notifier announces session metadata changes to connected clients.
// Satisfied by core.Hub.
type Notifier interface {
	BroadcastSessionUpdate(sessionID string)
}

// Service provides shadow-session lifecycle business logic.
type Service struct {
	store    store.Store
	notifier Notifier
	log      *zerolog.Logger
}

// New creates a new session service. notifier may be nil.
func New(st store.Store, notifier Notifier, logger *zerolog.Logger) *Service {
	return &Service{
		store:    st,
		notifier: notifier,
		log:      logger,
	}
}

// Create creates a new shadow session hosted by hostID. The host becomes the
// first participant.
func (s *Service) Create(ctx context.Context, hostID, title, description string, startsAt, endsAt time.Time) (*store.Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if !endsAt.After(startsAt) {
		return nil, ErrInvalidSchedule
	}

	session, err := s.store.CreateSession(ctx, &store.Session{
		HostID:      hostID,
		Title:       title,
		Description: strings.TrimSpace(description),
		StartsAt:    startsAt.UTC(),
		EndsAt:      endsAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Get retrieves a session visible to userID. Non-participants can still see
// metadata so they can decide to join.
func (s *Service) Get(ctx context.Context, id string) (*store.Session, error) {
	session, err := s.store.GetSessionByID(ctx, id)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Update changes session metadata. Only the host may update, and every
// connected participant is told to refetch.
func (s *Service) Update(ctx context.Context, userID, id, title, description string, startsAt, endsAt time.Time) (*store.Session, error) {
	session, err := s.store.GetSessionByID(ctx, id)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if session.HostID != userID {
		return nil, ErrNotHost
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if !endsAt.After(startsAt) {
		return nil, ErrInvalidSchedule
	}

	session.Title = title
	session.Description = strings.TrimSpace(description)
	session.StartsAt = startsAt.UTC()
	session.EndsAt = endsAt.UTC()

	if err := s.store.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	if s.notifier != nil {
		s.notifier.BroadcastSessionUpdate(id)
	}
	s.notifyParticipants(ctx, session, store.NotificationSessionUpdated, userID)

	return session, nil
}

// Join adds userID to a session's participant list.
func (s *Service) Join(ctx context.Context, sessionID, userID string) error {
	if _, err := s.store.GetSessionByID(ctx, sessionID); err != nil {
		return ErrSessionNotFound
	}

	joined, err := s.store.IsParticipant(ctx, sessionID, userID)
	if err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if joined {
		return ErrAlreadyParticipant
	}

	if err := s.store.AddParticipant(ctx, sessionID, userID); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

// Leave removes userID from a session's participant list. Hosts cannot leave.
func (s *Service) Leave(ctx context.Context, sessionID, userID string) error {
	session, err := s.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		return ErrSessionNotFound
	}
	if session.HostID == userID {
		return ErrHostCannotLeave
	}

	joined, err := s.store.IsParticipant(ctx, sessionID, userID)
	if err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if !joined {
		return ErrNotParticipant
	}

	return s.store.RemoveParticipant(ctx, sessionID, userID)
}

// Invite adds another user to the session and notifies them. Only existing
// participants can invite.
func (s *Service) Invite(ctx context.Context, sessionID, inviterID, inviteeID string) error {
	if _, err := s.store.GetSessionByID(ctx, sessionID); err != nil {
		return ErrSessionNotFound
	}
	if _, err := s.store.GetUserByID(ctx, inviteeID); err != nil {
		return ErrUserNotFound
	}

	inviterJoined, err := s.store.IsParticipant(ctx, sessionID, inviterID)
	if err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if !inviterJoined {
		return ErrNotParticipant
	}

	inviteeJoined, err := s.store.IsParticipant(ctx, sessionID, inviteeID)
	if err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if inviteeJoined {
		return ErrAlreadyParticipant
	}

	if err := s.store.AddParticipant(ctx, sessionID, inviteeID); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}

	s.notify(ctx, inviteeID, store.NotificationSessionInvite, inviterID, sessionID)
	return nil
}

// Participants lists the user ids joined to a session.
func (s *Service) Participants(ctx context.Context, sessionID string) ([]string, error) {
	if _, err := s.store.GetSessionByID(ctx, sessionID); err != nil {
		return nil, ErrSessionNotFound
	}
	return s.store.ListParticipants(ctx, sessionID)
}

// ListUpcoming lists upcoming sessions for a user, soonest first.
func (s *Service) ListUpcoming(ctx context.Context, userID string) ([]*store.Session, error) {
	sessions, err := s.store.ListUpcomingSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list upcoming sessions: %w", err)
	}
	return sessions, nil
}

// History returns chat messages from a session, oldest first. Only
// participants may read.
func (s *Service) History(ctx context.Context, sessionID, userID string, limit int, beforeID *int64) ([]*store.Message, error) {
	joined, err := s.store.IsParticipant(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}
	if !joined {
		return nil, ErrNotParticipant
	}
	return s.store.ListMessages(ctx, sessionID, limit, beforeID)
}

func (s *Service) notifyParticipants(ctx context.Context, session *store.Session, kind store.NotificationKind, actorID string) {
	participants, err := s.store.ListParticipants(ctx, session.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID).Msg("list participants failed")
		return
	}
	for _, userID := range participants {
		if userID == actorID {
			continue
		}
		s.notify(ctx, userID, kind, actorID, session.ID)
	}
}

func (s *Service) notify(ctx context.Context, userID string, kind store.NotificationKind, actorID, subjectID string) {
	if _, err := s.store.CreateNotification(ctx, &store.Notification{
		UserID:    userID,
		Kind:      kind,
		ActorID:   actorID,
		SubjectID: subjectID,
	}); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Str("kind", string(kind)).Msg("create notification failed")
	}
}
