package models

import (
	"time"

	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// Message is one entry of a match's conversation. Only Read ever changes
// after insertion.
type Message struct {
	Base      `bson:",inline"`
	MatchID   utils.SixID `bson:"match_id" json:"match_id"`
	SenderID  utils.SixID `bson:"sender_id" json:"sender_id"`
	Content   string      `bson:"content" json:"content"`
	Seq       int64       `bson:"seq" json:"seq"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
	Read      bool        `bson:"read" json:"read"`
}

// UnreadCount counts messages viewer has not read yet: unread and sent by
// someone else.
func UnreadCount(messages []Message, viewer utils.SixID) int {
	n := 0
	for _, msg := range messages {
		if !msg.Read && msg.SenderID != viewer {
			n++
		}
	}
	return n
}

// MessageInput is the validated body of a send request.
type MessageInput struct {
	Content string `json:"content" validate:"required"`
}
