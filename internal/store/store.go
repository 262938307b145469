package store

import (
	"context"
	"time"
)

// User represents a registered user and their profile.
type User struct {
	ID           string
	Email        string
	Username     string
	DisplayName  string
	Bio          string
	AvatarURL    string
	PasswordHash string
	CreatedAt    time.Time
}

// Visibility controls who can see a profile or post.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
	VisibilityCircle  Visibility = "circle"
	VisibilityPrivate Visibility = "private"
)

// Settings holds per-user account preferences.
type Settings struct {
	UserID              string
	ProfileVisibility   Visibility
	AllowFriendRequests bool
	EmailNotifications  bool
	UpdatedAt           time.Time
}

// FriendStatus defines friend relationship status.
type FriendStatus string

const (
	FriendStatusPending  FriendStatus = "pending"
	FriendStatusAccepted FriendStatus = "accepted"
	FriendStatusBlocked  FriendStatus = "blocked"
)

// Friend represents a friend relationship between two users.
type Friend struct {
	ID        int64
	UserID    string
	FriendID  string
	Status    FriendStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Circle is a named friend group owned by one user.
type Circle struct {
	ID        string
	OwnerID   string
	Name      string
	CreatedAt time.Time
}

// Emotion is one entry of the seeded emotion catalogue posts can be
// tagged with.
type Emotion struct {
	ID    int64
	Name  string
	Color string
}

// Post is a feed entry with an optional emotion tag. CircleID is set only
// for circle-scoped posts.
type Post struct {
	ID         string
	AuthorID   string
	Body       string
	EmotionID  *int64
	Visibility Visibility
	CircleID   *string
	CreatedAt  time.Time
}

// Session is a scheduled collaborative shadow session.
type Session struct {
	ID          string
	HostID      string
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SessionParticipant records membership in a shadow session.
type SessionParticipant struct {
	SessionID string
	UserID    string
	JoinedAt  time.Time
}

// Message is a persisted shadow-session chat message.
type Message struct {
	ID        int64
	SessionID string
	UserID    string
	Body      string
	CreatedAt time.Time
}

// NotificationKind classifies a notification.
type NotificationKind string

const (
	NotificationFriendRequest  NotificationKind = "friend_request"
	NotificationFriendAccepted NotificationKind = "friend_accepted"
	NotificationSessionInvite  NotificationKind = "session_invite"
	NotificationSessionUpdated NotificationKind = "session_updated"
)

// Notification is an item in a user's notification feed.
type Notification struct {
	ID        string
	UserID    string
	Kind      NotificationKind
	ActorID   string
	SubjectID string
	ReadAt    *time.Time
	CreatedAt time.Time
}

// UserStore handles user and profile persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, email, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// UpdateProfile updates the editable profile fields.
	UpdateProfile(ctx context.Context, id, displayName, bio, avatarURL string) (*User, error)

	// SearchUsers searches for users by username or display name.
	SearchUsers(ctx context.Context, query string) ([]*User, error)

	// GetSettings retrieves account settings, defaults when never saved.
	GetSettings(ctx context.Context, userID string) (*Settings, error)

	// UpdateSettings replaces account settings.
	UpdateSettings(ctx context.Context, s *Settings) error
}

// FriendStore handles friend persistence.
type FriendStore interface {
	// CreateFriendRequest creates a new friend request (pending status).
	CreateFriendRequest(ctx context.Context, userID, friendID string) (*Friend, error)

	// UpdateFriendStatus updates the status of a friendship.
	UpdateFriendStatus(ctx context.Context, userID, friendID string, status FriendStatus) error

	// GetFriendship retrieves a friendship between two users (in either direction).
	GetFriendship(ctx context.Context, userID, friendID string) (*Friend, error)

	// ListFriends lists friendships for a user, optionally filtered by status.
	ListFriends(ctx context.Context, userID string, status *FriendStatus) ([]*Friend, error)

	// IsFriend checks if two users are friends (accepted status in either direction).
	IsFriend(ctx context.Context, userID, friendID string) (bool, error)

	// DeleteFriendship removes a friendship record.
	DeleteFriendship(ctx context.Context, userID, friendID string) error
}

// CircleStore handles friend-group persistence.
type CircleStore interface {
	// CreateCircle creates a circle owned by ownerID.
	CreateCircle(ctx context.Context, ownerID, name string) (*Circle, error)

	// GetCircleByID retrieves a circle by ID.
	GetCircleByID(ctx context.Context, id string) (*Circle, error)

	// ListCircles lists circles owned by a user.
	ListCircles(ctx context.Context, ownerID string) ([]*Circle, error)

	// RenameCircle updates a circle's name.
	RenameCircle(ctx context.Context, id, name string) error

	// DeleteCircle removes a circle and its memberships.
	DeleteCircle(ctx context.Context, id string) error

	// AddCircleMember adds a user to a circle.
	AddCircleMember(ctx context.Context, circleID, userID string) error

	// RemoveCircleMember removes a user from a circle.
	RemoveCircleMember(ctx context.Context, circleID, userID string) error

	// ListCircleMembers lists user ids in a circle.
	ListCircleMembers(ctx context.Context, circleID string) ([]string, error)

	// IsCircleMember checks circle membership.
	IsCircleMember(ctx context.Context, circleID, userID string) (bool, error)
}

// EmotionStore handles the emotion catalogue.
type EmotionStore interface {
	// SeedEmotions inserts catalogue entries that don't exist yet.
	SeedEmotions(ctx context.Context, emotions []Emotion) error

	// ListEmotions lists the catalogue ordered by name.
	ListEmotions(ctx context.Context) ([]*Emotion, error)
}

// PostStore handles post persistence.
type PostStore interface {
	// CreatePost persists a new post.
	CreatePost(ctx context.Context, p *Post) (*Post, error)

	// GetPostByID retrieves a post by ID.
	GetPostByID(ctx context.Context, id string) (*Post, error)

	// DeletePost removes a post.
	DeletePost(ctx context.Context, id string) error

	// ListFeed returns posts visible to viewerID, newest first: the
	// viewer's own, public posts, friends-visible posts from accepted
	// friends, and circle posts from circles the viewer belongs to.
	// If beforeID is provided, returns posts created before that post.
	ListFeed(ctx context.Context, viewerID string, limit int, beforeID *string) ([]*Post, error)

	// ListPostsByAuthor returns one author's posts, newest first.
	ListPostsByAuthor(ctx context.Context, authorID string, limit int) ([]*Post, error)
}

// SessionStore handles shadow-session persistence.
type SessionStore interface {
	// CreateSession persists a new shadow session with the host as the
	// first participant.
	CreateSession(ctx context.Context, s *Session) (*Session, error)

	// GetSessionByID retrieves a session by ID.
	GetSessionByID(ctx context.Context, id string) (*Session, error)

	// UpdateSession updates title, description and schedule.
	UpdateSession(ctx context.Context, s *Session) error

	// ListUpcomingSessions lists sessions the user participates in that
	// have not ended yet, soonest first.
	ListUpcomingSessions(ctx context.Context, userID string) ([]*Session, error)

	// AddParticipant adds a user to a session.
	AddParticipant(ctx context.Context, sessionID, userID string) error

	// RemoveParticipant removes a user from a session.
	RemoveParticipant(ctx context.Context, sessionID, userID string) error

	// ListParticipants lists user ids joined to a session.
	ListParticipants(ctx context.Context, sessionID string) ([]string, error)

	// IsParticipant checks session membership.
	IsParticipant(ctx context.Context, sessionID, userID string) (bool, error)
}

// MessageStore handles chat message persistence.
type MessageStore interface {
	// SaveMessage persists a message and fills in its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages retrieves messages from a session with pagination.
	// If beforeID is provided, returns messages older than that ID.
	ListMessages(ctx context.Context, sessionID string, limit int, beforeID *int64) ([]*Message, error)
}

// NotificationStore handles notification persistence.
type NotificationStore interface {
	// CreateNotification persists a notification.
	CreateNotification(ctx context.Context, n *Notification) (*Notification, error)

	// ListNotifications lists a user's notifications, newest first.
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error)

	// MarkNotificationRead marks one notification as read.
	MarkNotificationRead(ctx context.Context, id, userID string) error

	// MarkAllNotificationsRead marks all of a user's notifications read.
	MarkAllNotificationsRead(ctx context.Context, userID string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	FriendStore
	CircleStore
	EmotionStore
	PostStore
	SessionStore
	MessageStore
	NotificationStore

	// Close closes the underlying database connection.
	Close() error
}
