// Package store persists matches and their conversation ledgers.
//
// Every mutation of a match document is a compare-and-set against its
// current state, so concurrent callers are linearised per match without
// holding locks across requests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

var (
	// ErrNotFound is returned when the referenced match does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrStatusConflict is returned when a compare-and-set observed a different status.
	ErrStatusConflict = errors.New("store: status changed concurrently")
	// ErrMatchClosed is returned when a message slot is requested on a declined match.
	ErrMatchClosed = errors.New("store: match is closed for messages")
)

// MatchStore holds Match documents.
type MatchStore interface {
	// InsertMatch stores m unless a match with the same pair key exists.
	// It returns the stored match and whether it was created by this call.
	InsertMatch(ctx context.Context, m *models.Match) (*models.Match, bool, error)
	FindMatchByID(ctx context.Context, id utils.SixID) (*models.Match, error)
	// ListMatchesByUser returns the user's matches, newest first.
	ListMatchesByUser(ctx context.Context, userID utils.SixID) ([]models.Match, error)
	// CompareAndSetStatus moves the match from `from` to `to` only if its
	// stored status is still `from`. Otherwise ErrStatusConflict.
	CompareAndSetStatus(ctx context.Context, id utils.SixID, from, to models.MatchStatus, at time.Time) (*models.Match, error)
	// ReserveMessageSeq atomically bumps the match's message sequence unless
	// the match is declined, and returns the match holding the new value.
	ReserveMessageSeq(ctx context.Context, id utils.SixID) (*models.Match, error)
}

// MessageStore holds the append-only message ledger.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *models.Message) error
	// ListMessages returns the match's messages in sequence order.
	ListMessages(ctx context.Context, matchID utils.SixID) ([]models.Message, error)
	// MarkMessagesRead flags every message of the match not sent by readerID
	// as read and returns how many changed.
	MarkMessagesRead(ctx context.Context, matchID, readerID utils.SixID) (int64, error)
}

// Store is the full persistence surface of the match core.
type Store interface {
	MatchStore
	MessageStore
}
