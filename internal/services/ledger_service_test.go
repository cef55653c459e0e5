package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

func TestSendMessage_OrderIsPreserved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.onlyMatch(t)

	for i := 0; i < 10; i++ {
		sender := f.a
		if i%3 == 0 {
			sender = f.b
		}
		msg, err := f.ledger.SendMessage(ctx, m.ID, sender, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), msg.Seq)
		assert.False(t, msg.Read)
	}

	messages, err := f.ledger.ListMessages(ctx, m.ID, f.a)
	require.NoError(t, err)
	require.Len(t, messages, 10)
	for i, msg := range messages {
		assert.Equal(t, fmt.Sprintf("message %d", i), msg.Content)
		assert.Equal(t, int64(i+1), msg.Seq)
	}
}

func TestSendMessage_ConcurrentSendersGetDistinctSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.onlyMatch(t)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := f.a
			if i%2 == 0 {
				sender = f.b
			}
			_, err := f.ledger.SendMessage(ctx, m.ID, sender, "hi")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	messages, err := f.ledger.ListMessages(ctx, m.ID, f.b)
	require.NoError(t, err)
	require.Len(t, messages, 30)
	for i, msg := range messages {
		assert.Equal(t, int64(i+1), msg.Seq, "no gaps and no duplicates")
	}
}

func TestSendMessage_Gate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.matchIn(t, models.MatchDeclined)

	_, err := f.ledger.SendMessage(ctx, m.ID, f.a, "please reconsider")
	assert.True(t, errors.Is(err, ErrMatchClosed))

	_, err = f.ledger.SendMessage(ctx, m.ID, utils.NewSixID(), "hello")
	assert.True(t, errors.Is(err, ErrNotParticipant))

	_, err = f.ledger.SendMessage(ctx, utils.NewSixID(), f.a, "hello")
	assert.True(t, errors.Is(err, ErrNotFound))

	messages, err := f.ledger.ListMessages(ctx, m.ID, f.a)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestSendMessage_OutsiderOnOpenMatch(t *testing.T) {
	f := newFixture(t)
	m := f.onlyMatch(t)

	_, err := f.ledger.SendMessage(context.Background(), m.ID, utils.NewSixID(), "hello")
	assert.True(t, errors.Is(err, ErrNotParticipant))
}

func TestSendMessage_ContentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.onlyMatch(t)

	_, err := f.ledger.SendMessage(ctx, m.ID, f.a, "   \n\t")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = f.ledger.SendMessage(ctx, m.ID, f.a, strings.Repeat("x", 51))
	assert.True(t, errors.Is(err, ErrInvalidInput))

	msg, err := f.ledger.SendMessage(ctx, m.ID, f.a, "  trimmed  ")
	require.NoError(t, err)
	assert.Equal(t, "trimmed", msg.Content)
	assert.Equal(t, int64(1), msg.Seq, "rejected messages do not consume a slot")
}

func TestSendMessage_NotifiesCounterpart(t *testing.T) {
	f := newFixture(t)
	m := f.onlyMatch(t)
	f.notifier.events = nil

	_, err := f.ledger.SendMessage(context.Background(), m.ID, f.a, "hi")
	require.NoError(t, err)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, sentEvent{UserID: f.b, Kind: models.EventMessageReceived, MatchID: m.ID}, f.notifier.events[0])
}

func TestMarkMessagesRead_UnreadDerivation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.onlyMatch(t)

	for _, sender := range []utils.SixID{f.a, f.b, f.a, f.b, f.b} {
		_, err := f.ledger.SendMessage(ctx, m.ID, sender, "ping")
		require.NoError(t, err)
	}

	unreadA, err := f.ledger.UnreadCount(ctx, m.ID, f.a)
	require.NoError(t, err)
	unreadB, err := f.ledger.UnreadCount(ctx, m.ID, f.b)
	require.NoError(t, err)
	assert.Equal(t, 3, unreadA)
	assert.Equal(t, 2, unreadB)

	require.NoError(t, f.ledger.MarkMessagesRead(ctx, m.ID, f.a))
	require.NoError(t, f.ledger.MarkMessagesRead(ctx, m.ID, f.a), "marking read is idempotent")

	unreadA, err = f.ledger.UnreadCount(ctx, m.ID, f.a)
	require.NoError(t, err)
	unreadB, err = f.ledger.UnreadCount(ctx, m.ID, f.b)
	require.NoError(t, err)
	assert.Equal(t, 0, unreadA)
	assert.Equal(t, 2, unreadB, "the other participant is unaffected")

	assert.True(t, errors.Is(f.ledger.MarkMessagesRead(ctx, m.ID, utils.NewSixID()), ErrNotParticipant))
}

func TestNewLedgerService_DefaultLimit(t *testing.T) {
	f := newFixture(t)
	ledger := NewLedgerService(f.store, nil, 0)
	m := f.onlyMatch(t)

	_, err := ledger.SendMessage(context.Background(), m.ID, f.a, strings.Repeat("x", DefaultMessageMaxLength))
	assert.NoError(t, err)
	_, err = ledger.SendMessage(context.Background(), m.ID, f.a, strings.Repeat("x", DefaultMessageMaxLength+1))
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
