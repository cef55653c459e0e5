package models

import (
	"time"

	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// EventKind names a user-visible notification.
type EventKind string

const (
	EventMatchFound      EventKind = "match_found"
	EventMatchAccepted   EventKind = "match_accepted"
	EventMatchDeclined   EventKind = "match_declined"
	EventMatchCompleted  EventKind = "match_completed"
	EventMessageReceived EventKind = "message_received"
)

// TransitionEvent maps a target status to the event announcing it.
func TransitionEvent(to MatchStatus) EventKind {
	switch to {
	case MatchAccepted:
		return EventMatchAccepted
	case MatchDeclined:
		return EventMatchDeclined
	case MatchCompleted:
		return EventMatchCompleted
	}
	return EventMatchFound
}

// Notification is a single event addressed to one user.
type Notification struct {
	ID        string      `json:"id"`
	UserID    utils.SixID `json:"user_id"`
	Kind      EventKind   `json:"kind"`
	MatchID   utils.SixID `json:"match_id"`
	CreatedAt time.Time   `json:"created_at"`
}
