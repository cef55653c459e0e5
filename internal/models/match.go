package models

import (
	"time"

	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// MatchStatus is the lifecycle state of a Match.
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchAccepted  MatchStatus = "accepted"
	MatchDeclined  MatchStatus = "declined"
	MatchCompleted MatchStatus = "completed"
)

// matchTransitions lists every legal move. Declined and completed have no exits.
var matchTransitions = map[MatchStatus][]MatchStatus{
	MatchPending:  {MatchAccepted, MatchDeclined},
	MatchAccepted: {MatchCompleted},
}

// CanTransition reports whether moving from s to next is legal.
func (s MatchStatus) CanTransition(next MatchStatus) bool {
	for _, allowed := range matchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s MatchStatus) IsTerminal() bool {
	return len(matchTransitions[s]) == 0
}

// Valid reports whether s is one of the known statuses.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchPending, MatchAccepted, MatchDeclined, MatchCompleted:
		return true
	}
	return false
}

// AllowsMessages reports whether participants may still write to the match.
func (s MatchStatus) AllowsMessages() bool {
	return s != MatchDeclined
}

// Role is a user's position within a match.
type Role int

const (
	RoleNone Role = iota
	RoleA
	RoleB
)

func (r Role) String() string {
	switch r {
	case RoleA:
		return "a"
	case RoleB:
		return "b"
	}
	return "none"
}

// Match is a reciprocal swap proposal between two users.
type Match struct {
	Base      `bson:",inline"`
	PairKey   string      `bson:"pair_key" json:"-"`
	UserA     utils.SixID `bson:"user_a" json:"user_a"`
	UserB     utils.SixID `bson:"user_b" json:"user_b"`
	BookFromA utils.SixID `bson:"book_from_a" json:"book_from_a"`
	BookFromB utils.SixID `bson:"book_from_b" json:"book_from_b"`
	Status    MatchStatus `bson:"status" json:"status"`
	// MessageSeq is the sequence number of the last message appended.
	MessageSeq int64     `bson:"message_seq" json:"-"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`

	Messages []Message `bson:"-" json:"messages"`
}

// NewMatch builds a pending match. Participants are ordered so userA is the
// one with the smaller ID string, which keeps creation deterministic.
func NewMatch(u utils.SixID, bookFromU utils.SixID, v utils.SixID, bookFromV utils.SixID, now time.Time) *Match {
	if v.String() < u.String() {
		u, v = v, u
		bookFromU, bookFromV = bookFromV, bookFromU
	}
	return &Match{
		Base:      Base{ID: utils.NewSixID()},
		PairKey:   PairKey(u, bookFromU, v, bookFromV),
		UserA:     u,
		UserB:     v,
		BookFromA: bookFromU,
		BookFromB: bookFromV,
		Status:    MatchPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PairKey identifies the unordered pair {(u, bookFromU), (v, bookFromV)}.
// Both argument orders produce the same key.
func PairKey(u, bookFromU, v, bookFromV utils.SixID) string {
	left := u.String() + ":" + bookFromU.String()
	right := v.String() + ":" + bookFromV.String()
	if right < left {
		left, right = right, left
	}
	return left + "|" + right
}

// RoleOf resolves which side of the match userID is on.
func (m *Match) RoleOf(userID utils.SixID) Role {
	switch userID {
	case m.UserA:
		return RoleA
	case m.UserB:
		return RoleB
	}
	return RoleNone
}

// IsParticipant reports whether userID is userA or userB.
func (m *Match) IsParticipant(userID utils.SixID) bool {
	return m.RoleOf(userID) != RoleNone
}

// Counterpart returns the other participant. ok is false for outsiders.
func (m *Match) Counterpart(userID utils.SixID) (other utils.SixID, ok bool) {
	switch m.RoleOf(userID) {
	case RoleA:
		return m.UserB, true
	case RoleB:
		return m.UserA, true
	}
	return utils.SixID{}, false
}

// OwnBook returns the book userID gives away in this match.
func (m *Match) OwnBook(userID utils.SixID) (utils.SixID, bool) {
	switch m.RoleOf(userID) {
	case RoleA:
		return m.BookFromA, true
	case RoleB:
		return m.BookFromB, true
	}
	return utils.SixID{}, false
}

// TheirBook returns the book userID receives in this match.
func (m *Match) TheirBook(userID utils.SixID) (utils.SixID, bool) {
	switch m.RoleOf(userID) {
	case RoleA:
		return m.BookFromB, true
	case RoleB:
		return m.BookFromA, true
	}
	return utils.SixID{}, false
}

// Participants returns both user IDs, A first.
func (m *Match) Participants() [2]utils.SixID {
	return [2]utils.SixID{m.UserA, m.UserB}
}

// MatchSummary is the per-user list view of a match.
type MatchSummary struct {
	Match       *Match      `json:"match"`
	Role        string      `json:"role"`
	OtherUser   utils.SixID `json:"other_user"`
	YourBook    utils.SixID `json:"your_book"`
	TheirBook   utils.SixID `json:"their_book"`
	UnreadCount int         `json:"unread_count"`
	Stale       bool        `json:"stale"`
}
