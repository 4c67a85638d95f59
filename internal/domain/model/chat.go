package model

// ChatMessage is one entry in the global chat room. The store assigns ID
// before any broadcast happens; clients rely on it to de-duplicate and to
// address per-message deletion.
type ChatMessage struct {
	ID       int64  `json:"id"`
	AuthorID int64  `json:"author_id"`
	Author   string `json:"author"`
	Avatar   string `json:"avatar,omitempty"`
	Text     string `json:"text"`
	SentAt   int64  `json:"sent_at"`
}

// DirectMessage is delivered to the sender's and recipient's connections only.
type DirectMessage struct {
	ID          int64  `json:"id"`
	SenderID    int64  `json:"sender_id"`
	Sender      string `json:"sender,omitempty"`
	RecipientID int64  `json:"recipient_id"`
	Recipient   string `json:"recipient,omitempty"`
	Text        string `json:"text"`
	SentAt      int64  `json:"sent_at"`
}
