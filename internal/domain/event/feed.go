package event

import "github.com/devconnect/realtime-service/internal/domain/model"

type PostDeletedPayload struct {
	ID int64 `json:"id"`
}

// LikeUpdatedPayload always carries a LikeCount freshly re-read from the
// store after the toggle committed, never a client-supplied number.
type LikeUpdatedPayload struct {
	PostID      int64            `json:"post_id"`
	PrincipalID int64            `json:"principal_id"`
	Action      model.LikeAction `json:"action"`
	LikeCount   int64            `json:"like_count"`
}

type CommentAddedPayload struct {
	PostID  int64          `json:"post_id"`
	Comment *model.Comment `json:"comment"`
	Total   int64          `json:"total"`
}

type CommentDeletedPayload struct {
	PostID    int64 `json:"post_id"`
	CommentID int64 `json:"comment_id"`
	Total     int64 `json:"total"`
}

func NewPostCreated(post *model.Post) *Event { return newEvent(PostCreated, post) }

func NewPostUpdated(post *model.Post) *Event { return newEvent(PostUpdated, post) }

func NewPostDeleted(id int64) *Event {
	return newEvent(PostDeleted, &PostDeletedPayload{ID: id})
}

func NewPostLikeUpdated(postID, principalID int64, action model.LikeAction, count int64) *Event {
	return newEvent(PostLikeUpdated, &LikeUpdatedPayload{
		PostID:      postID,
		PrincipalID: principalID,
		Action:      action,
		LikeCount:   count,
	})
}

func NewCommentAdded(comment *model.Comment, total int64) *Event {
	return newEvent(CommentAdded, &CommentAddedPayload{
		PostID:  comment.PostID,
		Comment: comment,
		Total:   total,
	})
}

func NewCommentDeleted(postID, commentID, total int64) *Event {
	return newEvent(CommentDeleted, &CommentDeletedPayload{
		PostID:    postID,
		CommentID: commentID,
		Total:     total,
	})
}
