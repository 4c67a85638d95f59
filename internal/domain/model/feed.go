package model

// Post is a feed entry. LikeCount and CommentCount are never mutated in the
// application layer; they always carry a value freshly re-read from the store
// after the corresponding write committed.
type Post struct {
	ID           int64  `json:"id"`
	AuthorID     int64  `json:"author_id"`
	Author       string `json:"author,omitempty"`
	Content      string `json:"content"`
	CreatedAt    int64  `json:"created_at"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
}

type Comment struct {
	ID        int64  `json:"id"`
	PostID    int64  `json:"post_id"`
	AuthorID  int64  `json:"author_id"`
	Author    string `json:"author,omitempty"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// LikeAction is the direction of a like toggle.
type LikeAction string

const (
	LikeActionLike   LikeAction = "like"
	LikeActionUnlike LikeAction = "unlike"
)
