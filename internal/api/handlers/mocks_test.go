package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/services"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// --- Mocks ---

// MockUserService implements services.IUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) FindByID(ctx context.Context, userID utils.SixID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockMatchService implements services.IMatchService
type MockMatchService struct {
	mock.Mock
}

var _ services.IMatchService = (*MockMatchService)(nil)

func (m *MockMatchService) FindMatches(ctx context.Context) (*services.FindMatchesResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.FindMatchesResult), args.Error(1)
}

func (m *MockMatchService) matchResult(args mock.Arguments) (*models.Match, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchService) AcceptMatch(ctx context.Context, matchID, actingUserID utils.SixID) (*models.Match, error) {
	return m.matchResult(m.Called(ctx, matchID, actingUserID))
}

func (m *MockMatchService) DeclineMatch(ctx context.Context, matchID, actingUserID utils.SixID) (*models.Match, error) {
	return m.matchResult(m.Called(ctx, matchID, actingUserID))
}

func (m *MockMatchService) CompleteMatch(ctx context.Context, matchID, actingUserID utils.SixID) (*models.Match, error) {
	return m.matchResult(m.Called(ctx, matchID, actingUserID))
}

func (m *MockMatchService) GetMatch(ctx context.Context, matchID utils.SixID) (*models.Match, error) {
	return m.matchResult(m.Called(ctx, matchID))
}

func (m *MockMatchService) ListMatches(ctx context.Context, userID utils.SixID) ([]models.MatchSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MatchSummary), args.Error(1)
}

func (m *MockMatchService) GetUserSwapStats(ctx context.Context, userID utils.SixID) (*models.UserSwapStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSwapStats), args.Error(1)
}

// MockLedgerService implements services.ILedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) SendMessage(ctx context.Context, matchID, senderID utils.SixID, content string) (*models.Message, error) {
	args := m.Called(ctx, matchID, senderID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockLedgerService) MarkMessagesRead(ctx context.Context, matchID, readerID utils.SixID) error {
	args := m.Called(ctx, matchID, readerID)
	return args.Error(0)
}

func (m *MockLedgerService) ListMessages(ctx context.Context, matchID, viewerID utils.SixID) ([]models.Message, error) {
	args := m.Called(ctx, matchID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockLedgerService) UnreadCount(ctx context.Context, matchID, viewerID utils.SixID) (int, error) {
	args := m.Called(ctx, matchID, viewerID)
	return args.Int(0), args.Error(1)
}
