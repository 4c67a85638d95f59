package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/devconnect/realtime-service/internal/domain/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	role TEXT NOT NULL DEFAULT 'user',
	banned INTEGER NOT NULL DEFAULT 0,
	muted INTEGER NOT NULL DEFAULT 0,
	avatar TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS chat_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	text TEXT NOT NULL,
	sent_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS direct_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sender_id INTEGER NOT NULL REFERENCES users(id),
	recipient_id INTEGER NOT NULL REFERENCES users(id),
	text TEXT NOT NULL,
	sent_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS likes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id INTEGER NOT NULL REFERENCES posts(id),
	user_id INTEGER NOT NULL REFERENCES users(id),
	UNIQUE(post_id, user_id)
);
CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id INTEGER NOT NULL REFERENCES posts(id),
	user_id INTEGER NOT NULL REFERENCES users(id),
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_sent_at ON chat_messages(sent_at);
CREATE INDEX IF NOT EXISTS idx_likes_post ON likes(post_id);
CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id);
`

// SQLite implements Store on a single-file database. Like/comment counters
// are re-derived from row counts inside the mutating transaction, never
// incremented in application code.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) PrincipalByID(ctx context.Context, id int64) (*model.Principal, error) {
	var (
		p             model.Principal
		role          string
		banned, muted int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, role, banned, muted, avatar FROM users WHERE id = ?`, id,
	).Scan(&p.ID, &p.Username, &role, &banned, &muted, &p.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying principal %d: %w", id, err)
	}
	p.Role = model.ParseRole(role)
	p.Banned = banned != 0
	p.Muted = muted != 0
	return &p, nil
}

func (s *SQLite) CreatePrincipal(ctx context.Context, p *model.Principal) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, role, banned, muted, avatar) VALUES (?, ?, ?, ?, ?)`,
		p.Username, p.Role.String(), boolInt(p.Banned), boolInt(p.Muted), p.Avatar)
	if err != nil {
		return fmt.Errorf("inserting user %s: %w", p.Username, err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (s *SQLite) SetBanned(ctx context.Context, id int64, banned bool) error {
	return s.setFlag(ctx, "banned", id, banned)
}

func (s *SQLite) SetMuted(ctx context.Context, id int64, muted bool) error {
	return s.setFlag(ctx, "muted", id, muted)
}

func (s *SQLite) setFlag(ctx context.Context, column string, id int64, value bool) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s = ? WHERE id = ?`, column), boolInt(value), id)
	if err != nil {
		return fmt.Errorf("updating %s for user %d: %w", column, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) SaveChatMessage(ctx context.Context, msg *model.ChatMessage) error {
	if msg.SentAt == 0 {
		msg.SentAt = time.Now().UnixMilli()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (user_id, text, sent_at) VALUES (?, ?, ?)`,
		msg.AuthorID, msg.Text, msg.SentAt)
	if err != nil {
		return fmt.Errorf("inserting chat message: %w", err)
	}
	msg.ID, err = res.LastInsertId()
	return err
}

// RecentChatMessages returns the newest messages in ascending sent_at order,
// matching persisted row order so the history replay is exact.
func (s *SQLite) RecentChatMessages(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.user_id, u.username, u.avatar, m.text, m.sent_at
		FROM (
			SELECT * FROM chat_messages ORDER BY sent_at DESC, id DESC LIMIT ?
		) m
		JOIN users u ON u.id = m.user_id
		ORDER BY m.sent_at ASC, m.id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying chat history: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.AuthorID, &m.Author, &m.Avatar, &m.Text, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLite) DeleteChatMessage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting chat message %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearChat removes all chat messages in one statement; the delete either
// fully applies or not at all. Returns the number of rows removed.
func (s *SQLite) ClearChat(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages`)
	if err != nil {
		return 0, fmt.Errorf("clearing chat: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLite) SaveDirectMessage(ctx context.Context, msg *model.DirectMessage) error {
	if msg.SentAt == 0 {
		msg.SentAt = time.Now().UnixMilli()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO direct_messages (sender_id, recipient_id, text, sent_at) VALUES (?, ?, ?, ?)`,
		msg.SenderID, msg.RecipientID, msg.Text, msg.SentAt)
	if err != nil {
		return fmt.Errorf("inserting direct message: %w", err)
	}
	msg.ID, err = res.LastInsertId()
	return err
}

func (s *SQLite) CreatePost(ctx context.Context, post *model.Post) error {
	if post.CreatedAt == 0 {
		post.CreatedAt = time.Now().UnixMilli()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (user_id, content, created_at) VALUES (?, ?, ?)`,
		post.AuthorID, post.Content, post.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}
	post.ID, err = res.LastInsertId()
	return err
}

func (s *SQLite) UpdatePost(ctx context.Context, id int64, content string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE posts SET content = ? WHERE id = ?`, content, id)
	if err != nil {
		return fmt.Errorf("updating post %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) PostByID(ctx context.Context, id int64) (*model.Post, error) {
	var p model.Post
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.user_id, u.username, p.content, p.created_at,
		       (SELECT COUNT(1) FROM likes l WHERE l.post_id = p.id),
		       (SELECT COUNT(1) FROM comments c WHERE c.post_id = p.id)
		FROM posts p JOIN users u ON u.id = p.user_id
		WHERE p.id = ?`, id,
	).Scan(&p.ID, &p.AuthorID, &p.Author, &p.Content, &p.CreatedAt, &p.LikeCount, &p.CommentCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying post %d: %w", id, err)
	}
	return &p, nil
}

// DeletePost removes the post with its likes and comments atomically.
func (s *SQLite) DeletePost(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete-post tx: %w", err)
	}
	defer tx.Rollback()

	// Children go first: the schema declares plain REFERENCES without
	// ON DELETE CASCADE and foreign keys are enforced.
	if _, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("deleting likes for post %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("deleting comments for post %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting post %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ToggleLike is check → insert-or-delete → re-read count, all in one
// transaction, so concurrent toggles on the same post never lose an
// increment. The returned count is authoritative as of commit.
func (s *SQLite) ToggleLike(ctx context.Context, postID, principalID int64, action model.LikeAction) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning toggle-like tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM posts WHERE id = ?`, postID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("checking post %d: %w", postID, err)
	}
	if exists == 0 {
		return 0, ErrNotFound
	}

	var liked int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM likes WHERE post_id = ? AND user_id = ?`,
		postID, principalID).Scan(&liked)
	if err != nil {
		return 0, fmt.Errorf("checking like row: %w", err)
	}

	switch action {
	case model.LikeActionLike:
		if liked > 0 {
			return 0, ErrAlreadyLiked
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO likes (post_id, user_id) VALUES (?, ?)`, postID, principalID); err != nil {
			return 0, fmt.Errorf("inserting like: %w", err)
		}
	case model.LikeActionUnlike:
		if liked == 0 {
			return 0, ErrNotLiked
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE post_id = ? AND user_id = ?`, postID, principalID); err != nil {
			return 0, fmt.Errorf("deleting like: %w", err)
		}
	default:
		return 0, fmt.Errorf("unknown like action %q", action)
	}

	var count int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM likes WHERE post_id = ?`, postID).Scan(&count); err != nil {
		return 0, fmt.Errorf("re-reading like count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing toggle-like: %w", err)
	}
	return count, nil
}

// AddComment inserts the comment and re-reads the post's comment total in the
// same transaction.
func (s *SQLite) AddComment(ctx context.Context, comment *model.Comment) (int64, error) {
	if comment.CreatedAt == 0 {
		comment.CreatedAt = time.Now().UnixMilli()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning add-comment tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM posts WHERE id = ?`, comment.PostID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("checking post %d: %w", comment.PostID, err)
	}
	if exists == 0 {
		return 0, ErrNotFound
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO comments (post_id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
		comment.PostID, comment.AuthorID, comment.Content, comment.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("inserting comment: %w", err)
	}
	if comment.ID, err = res.LastInsertId(); err != nil {
		return 0, err
	}

	var total int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM comments WHERE post_id = ?`, comment.PostID).Scan(&total); err != nil {
		return 0, fmt.Errorf("re-reading comment count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing add-comment: %w", err)
	}
	return total, nil
}

func (s *SQLite) CommentByID(ctx context.Context, id int64) (*model.Comment, error) {
	var c model.Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.post_id, c.user_id, u.username, c.content, c.created_at
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.id = ?`, id,
	).Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Author, &c.Content, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying comment %d: %w", id, err)
	}
	return &c, nil
}

// DeleteComment removes the comment and re-reads the post's fresh total.
func (s *SQLite) DeleteComment(ctx context.Context, id int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning delete-comment tx: %w", err)
	}
	defer tx.Rollback()

	var postID int64
	err = tx.QueryRowContext(ctx,
		`SELECT post_id FROM comments WHERE id = ?`, id).Scan(&postID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("locating comment %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id); err != nil {
		return 0, fmt.Errorf("deleting comment %d: %w", id, err)
	}

	var total int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM comments WHERE post_id = ?`, postID).Scan(&total); err != nil {
		return 0, fmt.Errorf("re-reading comment count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing delete-comment: %w", err)
	}
	return total, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
