package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/notify"
	"github.com/robe-lope/bookbuddy-swapper/internal/store"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// DefaultMessageMaxLength applies when no limit is configured.
const DefaultMessageMaxLength = 2000

// ILedgerService manages the per-match conversation.
type ILedgerService interface {
	SendMessage(ctx context.Context, matchID, senderID utils.SixID, content string) (*models.Message, error)
	MarkMessagesRead(ctx context.Context, matchID, readerID utils.SixID) error
	ListMessages(ctx context.Context, matchID, viewerID utils.SixID) ([]models.Message, error)
	UnreadCount(ctx context.Context, matchID, viewerID utils.SixID) (int, error)
}

type ledgerService struct {
	store     store.Store
	notifier  notify.Notifier
	maxLength int
	now       func() time.Time
}

// NewLedgerService creates the conversation ledger. maxLength <= 0 uses
// DefaultMessageMaxLength; a nil notifier logs events only.
func NewLedgerService(st store.Store, notifier notify.Notifier, maxLength int) ILedgerService {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if maxLength <= 0 {
		maxLength = DefaultMessageMaxLength
	}
	return &ledgerService{
		store:     st,
		notifier:  notifier,
		maxLength: maxLength,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// participantMatch loads the match and checks userID belongs to it.
func (s *ledgerService) participantMatch(ctx context.Context, matchID, userID utils.SixID) (*models.Match, error) {
	m, err := s.store.FindMatchByID(ctx, matchID)
	if err != nil {
		return nil, fromStore(err)
	}
	if !m.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return m, nil
}

// SendMessage appends a message after every earlier one. The sequence slot
// is reserved on the match document in the same atomic step that checks
// the match is not declined.
func (s *ledgerService) SendMessage(ctx context.Context, matchID, senderID utils.SixID, content string) (*models.Message, error) {
	m, err := s.participantMatch(ctx, matchID, senderID)
	if err != nil {
		return nil, err
	}
	if !m.Status.AllowsMessages() {
		return nil, ErrMatchClosed
	}

	input := models.MessageInput{Content: strings.TrimSpace(content)}
	if err := models.Validate(input); err != nil {
		return nil, fmt.Errorf("%w: message content is required", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(input.Content); n > s.maxLength {
		return nil, fmt.Errorf("%w: message is %d characters, limit is %d", ErrInvalidInput, n, s.maxLength)
	}

	reserved, err := s.store.ReserveMessageSeq(ctx, matchID)
	if err != nil {
		return nil, fromStore(err)
	}

	msg := &models.Message{
		MatchID:   matchID,
		SenderID:  senderID,
		Content:   input.Content,
		Seq:       reserved.MessageSeq,
		CreatedAt: s.now(),
		Read:      false,
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to append message to match %s: %w", matchID, err)
	}

	if recipient, ok := m.Counterpart(senderID); ok {
		deliver(ctx, s.notifier, recipient, models.EventMessageReceived, matchID)
	}
	return msg, nil
}

// MarkMessagesRead is idempotent.
func (s *ledgerService) MarkMessagesRead(ctx context.Context, matchID, readerID utils.SixID) error {
	if _, err := s.participantMatch(ctx, matchID, readerID); err != nil {
		return err
	}
	n, err := s.store.MarkMessagesRead(ctx, matchID, readerID)
	if err != nil {
		return fmt.Errorf("failed to mark messages read on match %s: %w", matchID, err)
	}
	if n > 0 {
		log.Printf("Marked %d messages read on match %s for %s", n, matchID, readerID)
	}
	return nil
}

func (s *ledgerService) ListMessages(ctx context.Context, matchID, viewerID utils.SixID) ([]models.Message, error) {
	if _, err := s.participantMatch(ctx, matchID, viewerID); err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for match %s: %w", matchID, err)
	}
	return messages, nil
}

func (s *ledgerService) UnreadCount(ctx context.Context, matchID, viewerID utils.SixID) (int, error) {
	messages, err := s.ListMessages(ctx, matchID, viewerID)
	if err != nil {
		return 0, err
	}
	return models.UnreadCount(messages, viewerID), nil
}
