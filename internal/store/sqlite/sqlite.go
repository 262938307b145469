package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/usersaynoso/shadowme-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function after
// the schema is applied. Useful for tests to seed fixture rows.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}

	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

const userColumns = `id, email, username, display_name, bio, avatar_url, password_hash, created_at`

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, username, passwordHash string) (*store.User, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO users (id, email, username, display_name, password_hash)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, email, username, username, passwordHash); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.DisplayName,
		&user.Bio,
		&user.AvatarURL,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

// UpdateProfile updates the editable profile fields.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, id, displayName, bio, avatarURL string) (*store.User, error) {
	query := `
		UPDATE users
		SET display_name = ?, bio = ?, avatar_url = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, displayName, bio, avatarURL, id)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}

	return s.GetUserByID(ctx, id)
}

// SearchUsers searches for users by username or display name.
func (s *SQLiteStore) SearchUsers(ctx context.Context, query string) ([]*store.User, error) {
	stmt := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username LIKE ? OR display_name LIKE ?
		ORDER BY username
		LIMIT 50
	`
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, stmt, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		var user store.User
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Username,
			&user.DisplayName,
			&user.Bio,
			&user.AvatarURL,
			&user.PasswordHash,
			&user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}

// GetSettings retrieves account settings, defaults when never saved.
func (s *SQLiteStore) GetSettings(ctx context.Context, userID string) (*store.Settings, error) {
	query := `
		SELECT user_id, profile_visibility, allow_friend_requests, email_notifications, updated_at
		FROM user_settings
		WHERE user_id = ?
	`
	var settings store.Settings
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&settings.UserID,
		&settings.ProfileVisibility,
		&settings.AllowFriendRequests,
		&settings.EmailNotifications,
		&settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &store.Settings{
				UserID:              userID,
				ProfileVisibility:   store.VisibilityPublic,
				AllowFriendRequests: true,
				EmailNotifications:  true,
			}, nil
		}
		return nil, fmt.Errorf("query settings: %w", err)
	}

	return &settings, nil
}

// UpdateSettings replaces account settings.
func (s *SQLiteStore) UpdateSettings(ctx context.Context, settings *store.Settings) error {
	query := `
		INSERT INTO user_settings (user_id, profile_visibility, allow_friend_requests, email_notifications, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			profile_visibility = excluded.profile_visibility,
			allow_friend_requests = excluded.allow_friend_requests,
			email_notifications = excluded.email_notifications,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.ExecContext(ctx, query,
		settings.UserID,
		settings.ProfileVisibility,
		settings.AllowFriendRequests,
		settings.EmailNotifications,
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// ==== FriendStore implementation ====

// CreateFriendRequest creates a new friend request (pending status).
func (s *SQLiteStore) CreateFriendRequest(ctx context.Context, userID, friendID string) (*store.Friend, error) {
	query := `
		INSERT INTO friends (user_id, friend_id, status)
		VALUES (?, ?, 'pending')
	`
	if _, err := s.db.ExecContext(ctx, query, userID, friendID); err != nil {
		return nil, fmt.Errorf("insert friend request: %w", err)
	}

	return s.GetFriendship(ctx, userID, friendID)
}

// UpdateFriendStatus updates the status of a friendship.
func (s *SQLiteStore) UpdateFriendStatus(ctx context.Context, userID, friendID string, status store.FriendStatus) error {
	query := `
		UPDATE friends
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)
	`
	result, err := s.db.ExecContext(ctx, query, status, userID, friendID, friendID, userID)
	if err != nil {
		return fmt.Errorf("update friend status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("friendship not found: %w", sql.ErrNoRows)
	}
	return nil
}

// GetFriendship retrieves a friendship between two users (in either direction).
func (s *SQLiteStore) GetFriendship(ctx context.Context, userID, friendID string) (*store.Friend, error) {
	query := `
		SELECT id, user_id, friend_id, status, created_at, updated_at
		FROM friends
		WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)
	`
	var friend store.Friend
	err := s.db.QueryRowContext(ctx, query, userID, friendID, friendID, userID).Scan(
		&friend.ID,
		&friend.UserID,
		&friend.FriendID,
		&friend.Status,
		&friend.CreatedAt,
		&friend.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("friendship not found: %w", err)
		}
		return nil, fmt.Errorf("query friendship: %w", err)
	}

	return &friend, nil
}

// ListFriends lists friendships for a user, optionally filtered by status.
func (s *SQLiteStore) ListFriends(ctx context.Context, userID string, status *store.FriendStatus) ([]*store.Friend, error) {
	query := `
		SELECT id, user_id, friend_id, status, created_at, updated_at
		FROM friends
		WHERE (user_id = ? OR friend_id = ?)
	`
	args := []any{userID, userID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	friends := make([]*store.Friend, 0)
	for rows.Next() {
		var friend store.Friend
		if err := rows.Scan(
			&friend.ID,
			&friend.UserID,
			&friend.FriendID,
			&friend.Status,
			&friend.CreatedAt,
			&friend.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		friends = append(friends, &friend)
	}

	return friends, rows.Err()
}

// IsFriend checks if two users are friends (accepted status in either direction).
func (s *SQLiteStore) IsFriend(ctx context.Context, userID, friendID string) (bool, error) {
	query := `
		SELECT COUNT(1)
		FROM friends
		WHERE status = 'accepted'
		  AND ((user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?))
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, userID, friendID, friendID, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("query friendship: %w", err)
	}
	return count > 0, nil
}

// DeleteFriendship removes a friendship record.
func (s *SQLiteStore) DeleteFriendship(ctx context.Context, userID, friendID string) error {
	query := `
		DELETE FROM friends
		WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)
	`
	result, err := s.db.ExecContext(ctx, query, userID, friendID, friendID, userID)
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("friendship not found: %w", sql.ErrNoRows)
	}
	return nil
}

// ==== CircleStore implementation ====

// CreateCircle creates a circle owned by ownerID.
func (s *SQLiteStore) CreateCircle(ctx context.Context, ownerID, name string) (*store.Circle, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO circles (id, owner_id, name)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, ownerID, name); err != nil {
		return nil, fmt.Errorf("insert circle: %w", err)
	}

	return s.GetCircleByID(ctx, id)
}

// GetCircleByID retrieves a circle by ID.
func (s *SQLiteStore) GetCircleByID(ctx context.Context, id string) (*store.Circle, error) {
	query := `
		SELECT id, owner_id, name, created_at
		FROM circles
		WHERE id = ?
	`
	var circle store.Circle
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&circle.ID,
		&circle.OwnerID,
		&circle.Name,
		&circle.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("circle not found: %w", err)
		}
		return nil, fmt.Errorf("query circle: %w", err)
	}

	return &circle, nil
}

// ListCircles lists circles owned by a user.
func (s *SQLiteStore) ListCircles(ctx context.Context, ownerID string) ([]*store.Circle, error) {
	query := `
		SELECT id, owner_id, name, created_at
		FROM circles
		WHERE owner_id = ?
		ORDER BY name
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list circles: %w", err)
	}
	defer rows.Close()

	circles := make([]*store.Circle, 0)
	for rows.Next() {
		var circle store.Circle
		if err := rows.Scan(&circle.ID, &circle.OwnerID, &circle.Name, &circle.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan circle: %w", err)
		}
		circles = append(circles, &circle)
	}

	return circles, rows.Err()
}

// RenameCircle updates a circle's name.
func (s *SQLiteStore) RenameCircle(ctx context.Context, id, name string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE circles SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename circle: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("circle not found: %w", sql.ErrNoRows)
	}
	return nil
}

// DeleteCircle removes a circle and its memberships.
func (s *SQLiteStore) DeleteCircle(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM circle_members WHERE circle_id = ?`, id); err != nil {
		return fmt.Errorf("delete circle members: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM circles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete circle: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("circle not found: %w", sql.ErrNoRows)
	}
	return nil
}

// AddCircleMember adds a user to a circle.
func (s *SQLiteStore) AddCircleMember(ctx context.Context, circleID, userID string) error {
	query := `
		INSERT OR IGNORE INTO circle_members (circle_id, user_id)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, circleID, userID); err != nil {
		return fmt.Errorf("insert circle member: %w", err)
	}
	return nil
}

// RemoveCircleMember removes a user from a circle.
func (s *SQLiteStore) RemoveCircleMember(ctx context.Context, circleID, userID string) error {
	query := `DELETE FROM circle_members WHERE circle_id = ? AND user_id = ?`
	if _, err := s.db.ExecContext(ctx, query, circleID, userID); err != nil {
		return fmt.Errorf("delete circle member: %w", err)
	}
	return nil
}

// ListCircleMembers lists user ids in a circle.
func (s *SQLiteStore) ListCircleMembers(ctx context.Context, circleID string) ([]string, error) {
	query := `
		SELECT user_id
		FROM circle_members
		WHERE circle_id = ?
		ORDER BY added_at
	`
	rows, err := s.db.QueryContext(ctx, query, circleID)
	if err != nil {
		return nil, fmt.Errorf("list circle members: %w", err)
	}
	defer rows.Close()

	members := make([]string, 0)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan circle member: %w", err)
		}
		members = append(members, userID)
	}

	return members, rows.Err()
}

// IsCircleMember checks circle membership.
func (s *SQLiteStore) IsCircleMember(ctx context.Context, circleID, userID string) (bool, error) {
	query := `SELECT COUNT(1) FROM circle_members WHERE circle_id = ? AND user_id = ?`
	var count int
	if err := s.db.QueryRowContext(ctx, query, circleID, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("query circle member: %w", err)
	}
	return count > 0, nil
}

// ==== EmotionStore implementation ====

// SeedEmotions inserts catalogue entries that don't exist yet.
func (s *SQLiteStore) SeedEmotions(ctx context.Context, emotions []store.Emotion) error {
	query := `INSERT OR IGNORE INTO emotions (name, color) VALUES (?, ?)`
	for _, emotion := range emotions {
		if _, err := s.db.ExecContext(ctx, query, emotion.Name, emotion.Color); err != nil {
			return fmt.Errorf("seed emotion %q: %w", emotion.Name, err)
		}
	}
	return nil
}

// ListEmotions lists the catalogue ordered by name.
func (s *SQLiteStore) ListEmotions(ctx context.Context) ([]*store.Emotion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color FROM emotions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list emotions: %w", err)
	}
	defer rows.Close()

	emotions := make([]*store.Emotion, 0)
	for rows.Next() {
		var emotion store.Emotion
		if err := rows.Scan(&emotion.ID, &emotion.Name, &emotion.Color); err != nil {
			return nil, fmt.Errorf("scan emotion: %w", err)
		}
		emotions = append(emotions, &emotion)
	}

	return emotions, rows.Err()
}

// ==== PostStore implementation ====

const postColumns = `id, author_id, body, emotion_id, visibility, circle_id, created_at`

// CreatePost persists a new post.
func (s *SQLiteStore) CreatePost(ctx context.Context, p *store.Post) (*store.Post, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO posts (id, author_id, body, emotion_id, visibility, circle_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, p.AuthorID, p.Body, p.EmotionID, p.Visibility, p.CircleID); err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	return s.GetPostByID(ctx, id)
}

func scanPost(scan func(dest ...any) error) (*store.Post, error) {
	var post store.Post
	var emotionID sql.NullInt64
	var circleID sql.NullString
	if err := scan(
		&post.ID,
		&post.AuthorID,
		&post.Body,
		&emotionID,
		&post.Visibility,
		&circleID,
		&post.CreatedAt,
	); err != nil {
		return nil, err
	}
	if emotionID.Valid {
		post.EmotionID = &emotionID.Int64
	}
	if circleID.Valid {
		post.CircleID = &circleID.String
	}
	return &post, nil
}

// GetPostByID retrieves a post by ID.
func (s *SQLiteStore) GetPostByID(ctx context.Context, id string) (*store.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = ?`
	post, err := scanPost(s.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post not found: %w", err)
		}
		return nil, fmt.Errorf("query post: %w", err)
	}
	return post, nil
}

// DeletePost removes a post.
func (s *SQLiteStore) DeletePost(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("post not found: %w", sql.ErrNoRows)
	}
	return nil
}

// ListFeed returns posts visible to viewerID, newest first.
func (s *SQLiteStore) ListFeed(ctx context.Context, viewerID string, limit int, beforeID *string) ([]*store.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE (
			author_id = ?
			OR visibility = 'public'
			OR (visibility = 'friends' AND EXISTS (
				SELECT 1 FROM friends
				WHERE status = 'accepted'
				  AND ((user_id = ? AND friend_id = posts.author_id)
				    OR (friend_id = ? AND user_id = posts.author_id))
			))
			OR (visibility = 'circle' AND circle_id IN (
				SELECT circle_id FROM circle_members WHERE user_id = ?
			))
		)
	`
	args := []any{viewerID, viewerID, viewerID, viewerID}
	if beforeID != nil {
		query += ` AND created_at < (SELECT created_at FROM posts WHERE id = ?)`
		args = append(args, *beforeID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	return s.queryPosts(ctx, query, args...)
}

// ListPostsByAuthor returns one author's posts, newest first.
func (s *SQLiteStore) ListPostsByAuthor(ctx context.Context, authorID string, limit int) ([]*store.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE author_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	return s.queryPosts(ctx, query, authorID, limit)
}

func (s *SQLiteStore) queryPosts(ctx context.Context, query string, args ...any) ([]*store.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*store.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

// ==== SessionStore implementation ====

const sessionColumns = `id, host_id, title, description, starts_at, ends_at, created_at, updated_at`

// CreateSession persists a new shadow session with the host as the first
// participant.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *store.Session) (*store.Session, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO sessions (id, host_id, title, description, starts_at, ends_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		id,
		session.HostID,
		session.Title,
		session.Description,
		session.StartsAt,
		session.EndsAt,
	); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	if err := s.AddParticipant(ctx, id, session.HostID); err != nil {
		return nil, err
	}

	return s.GetSessionByID(ctx, id)
}

// GetSessionByID retrieves a session by ID.
func (s *SQLiteStore) GetSessionByID(ctx context.Context, id string) (*store.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	var session store.Session
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.HostID,
		&session.Title,
		&session.Description,
		&session.StartsAt,
		&session.EndsAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", err)
		}
		return nil, fmt.Errorf("query session: %w", err)
	}

	return &session, nil
}

// UpdateSession updates title, description and schedule.
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *store.Session) error {
	query := `
		UPDATE sessions
		SET title = ?, description = ?, starts_at = ?, ends_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		session.Title,
		session.Description,
		session.StartsAt,
		session.EndsAt,
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session not found: %w", sql.ErrNoRows)
	}
	return nil
}

// ListUpcomingSessions lists sessions the user participates in that have
// not ended yet, soonest first.
func (s *SQLiteStore) ListUpcomingSessions(ctx context.Context, userID string) ([]*store.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE ends_at > CURRENT_TIMESTAMP
		  AND id IN (SELECT session_id FROM session_participants WHERE user_id = ?)
		ORDER BY starts_at
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*store.Session, 0)
	for rows.Next() {
		var session store.Session
		if err := rows.Scan(
			&session.ID,
			&session.HostID,
			&session.Title,
			&session.Description,
			&session.StartsAt,
			&session.EndsAt,
			&session.CreatedAt,
			&session.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, &session)
	}

	return sessions, rows.Err()
}

// AddParticipant adds a user to a session.
func (s *SQLiteStore) AddParticipant(ctx context.Context, sessionID, userID string) error {
	query := `
		INSERT OR IGNORE INTO session_participants (session_id, user_id)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, sessionID, userID); err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// RemoveParticipant removes a user from a session.
func (s *SQLiteStore) RemoveParticipant(ctx context.Context, sessionID, userID string) error {
	query := `DELETE FROM session_participants WHERE session_id = ? AND user_id = ?`
	if _, err := s.db.ExecContext(ctx, query, sessionID, userID); err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	return nil
}

// ListParticipants lists user ids joined to a session.
func (s *SQLiteStore) ListParticipants(ctx context.Context, sessionID string) ([]string, error) {
	query := `
		SELECT user_id
		FROM session_participants
		WHERE session_id = ?
		ORDER BY joined_at
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	participants := make([]string, 0)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, userID)
	}

	return participants, rows.Err()
}

// IsParticipant checks session membership.
func (s *SQLiteStore) IsParticipant(ctx context.Context, sessionID, userID string) (bool, error) {
	query := `SELECT COUNT(1) FROM session_participants WHERE session_id = ? AND user_id = ?`
	var count int
	if err := s.db.QueryRowContext(ctx, query, sessionID, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("query participant: %w", err)
	}
	return count > 0, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a message and fills in its ID.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (session_id, user_id, body, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, msg.SessionID, msg.UserID, msg.Body, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id
	return nil
}

// ListMessages retrieves messages from a session with pagination.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string, limit int, beforeID *int64) ([]*store.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, session_id, user_id, body, created_at
		FROM messages
		WHERE session_id = ?
	`
	args := []any{sessionID}
	if beforeID != nil {
		query += ` AND id < ?`
		args = append(args, *beforeID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.UserID, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Oldest first for rendering.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// ==== NotificationStore implementation ====

// CreateNotification persists a notification.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *store.Notification) (*store.Notification, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO notifications (id, user_id, kind, actor_id, subject_id)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, n.UserID, n.Kind, n.ActorID, n.SubjectID); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	return s.getNotification(ctx, id)
}

func (s *SQLiteStore) getNotification(ctx context.Context, id string) (*store.Notification, error) {
	query := `
		SELECT id, user_id, kind, actor_id, subject_id, read_at, created_at
		FROM notifications
		WHERE id = ?
	`
	var n store.Notification
	var readAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID,
		&n.UserID,
		&n.Kind,
		&n.ActorID,
		&n.SubjectID,
		&readAt,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification not found: %w", err)
		}
		return nil, fmt.Errorf("query notification: %w", err)
	}
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}

	return &n, nil
}

// ListNotifications lists a user's notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*store.Notification, error) {
	query := `
		SELECT id, user_id, kind, actor_id, subject_id, read_at, created_at
		FROM notifications
		WHERE user_id = ?
	`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*store.Notification, 0)
	for rows.Next() {
		var n store.Notification
		var readAt sql.NullTime
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Kind,
			&n.ActorID,
			&n.SubjectID,
			&readAt,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		notifications = append(notifications, &n)
	}

	return notifications, rows.Err()
}

// MarkNotificationRead marks one notification as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id, userID string) error {
	query := `
		UPDATE notifications
		SET read_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ? AND read_at IS NULL
	`
	if _, err := s.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead marks all of a user's notifications read.
func (s *SQLiteStore) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	query := `
		UPDATE notifications
		SET read_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND read_at IS NULL
	`
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}
