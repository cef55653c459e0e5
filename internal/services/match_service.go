package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robe-lope/bookbuddy-swapper/internal/db"
	"github.com/robe-lope/bookbuddy-swapper/internal/matching"
	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/notify"
	"github.com/robe-lope/bookbuddy-swapper/internal/store"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// notifyTimeout bounds a single best-effort notification call.
const notifyTimeout = 5 * time.Second

// FindMatchesResult is the outcome of one recomputation.
type FindMatchesResult struct {
	// Matches holds every match backing a current candidate, new or existing.
	// Stored matches whose candidate no longer exists are left out.
	Matches []*models.Match `json:"matches"`
	// Created counts the matches inserted by this run.
	Created int `json:"created"`
}

// IMatchService drives match discovery and the match lifecycle.
type IMatchService interface {
	FindMatches(ctx context.Context) (*FindMatchesResult, error)
	AcceptMatch(ctx context.Context, matchID, actingUserID utils.SixID) (*models.Match, error)
	DeclineMatch(ctx context.Context, matchID, actingUserID utils.SixID) (*models.Match, error)
	CompleteMatch(ctx context.Context, matchID, actingUserID utils.SixID) (*models.Match, error)
	// GetMatch returns the match with its messages in order.
	GetMatch(ctx context.Context, matchID utils.SixID) (*models.Match, error)
	ListMatches(ctx context.Context, userID utils.SixID) ([]models.MatchSummary, error)
	GetUserSwapStats(ctx context.Context, userID utils.SixID) (*models.UserSwapStats, error)
}

type matchService struct {
	store    store.Store
	catalog  ICatalogService
	users    IUserService
	notifier notify.Notifier
	now      func() time.Time
}

// NewMatchService wires the match lifecycle. A nil notifier logs events only.
func NewMatchService(st store.Store, catalog ICatalogService, users IUserService, notifier notify.Notifier) IMatchService {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &matchService{
		store:    st,
		catalog:  catalog,
		users:    users,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FindMatches runs the reciprocity check over the whole catalog and inserts
// a pending match for every candidate not seen before. It never touches the
// status of an existing match.
func (s *matchService) FindMatches(ctx context.Context) (*FindMatchesResult, error) {
	offered, err := s.catalog.ListAllOffered(ctx)
	if err != nil {
		return nil, dependencyError("catalog", err)
	}
	wanted, err := s.catalog.ListAllWanted(ctx)
	if err != nil {
		return nil, dependencyError("catalog", err)
	}

	candidates := matching.FindCandidates(offered, wanted)
	result := &FindMatchesResult{Matches: []*models.Match{}}
	known := make(map[utils.SixID]bool)

	for _, c := range candidates {
		ok, err := s.usersExist(ctx, known, c.UserA, c.UserB)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Printf("Skipping match candidate %s: participant missing from user directory", c.PairKey())
			continue
		}

		m := models.NewMatch(c.UserA, c.BookFromA, c.UserB, c.BookFromB, s.now())
		stored, created, err := s.store.InsertMatch(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("failed to store match %s: %w", c.PairKey(), err)
		}
		if created {
			result.Created++
			s.notifyParticipants(ctx, stored, models.EventMatchFound)
		}
		result.Matches = append(result.Matches, stored)
	}

	if result.Created > 0 {
		log.Printf("Match recompute: %d candidates, %d new matches", len(candidates), result.Created)
	}
	return result, nil
}

// usersExist reports whether every given user is in the directory, caching
// answers in known for the duration of one run.
func (s *matchService) usersExist(ctx context.Context, known map[utils.SixID]bool, ids ...utils.SixID) (bool, error) {
	for _, id := range ids {
		exists, seen := known[id]
		if !seen {
			_, err := s.users.FindByID(ctx, id)
			switch {
			case err == nil:
				exists = true
			case errors.Is(err, ErrNotFound):
				exists = false
			default:
				return false, dependencyError("user directory", err)
			}
			known[id] = exists
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}

func (s *matchService) AcceptMatch(ctx context.Context, matchID, actingUserID utils.SixID) (*models.Match, error) {
	return s.transition(ctx, matchID, actingUserID, models.MatchAccepted)
}

func (s *matchService) DeclineMatch(ctx context.Context, matchID, actingUserID utils.SixID) (*models.Match, error) {
	return s.transition(ctx, matchID, actingUserID, models.MatchDeclined)
}

func (s *matchService) CompleteMatch(ctx context.Context, matchID, actingUserID utils.SixID) (*models.Match, error) {
	return s.transition(ctx, matchID, actingUserID, models.MatchCompleted)
}

// transition applies a status change through compare-and-set. A lost race
// re-reads the match and decides again against the new status, so a
// transition that is no longer legal fails instead of overwriting.
func (s *matchService) transition(ctx context.Context, matchID, actingUserID utils.SixID, to models.MatchStatus) (*models.Match, error) {
	var updated *models.Match
	operation := func() error {
		current, err := s.store.FindMatchByID(ctx, matchID)
		if err != nil {
			return fromStore(err)
		}
		if !current.IsParticipant(actingUserID) {
			return ErrNotParticipant
		}
		if !current.Status.CanTransition(to) {
			return &TransitionError{Match: current, Requested: to}
		}
		updated, err = s.store.CompareAndSetStatus(ctx, matchID, current.Status, to, s.now())
		return fromStore(err)
	}

	err := db.WithRetries(operation, db.DefaultMaxRetries, func(err error) bool {
		return errors.Is(err, store.ErrStatusConflict)
	})
	if errors.Is(err, store.ErrStatusConflict) {
		current, findErr := s.store.FindMatchByID(ctx, matchID)
		if findErr != nil {
			return nil, fromStore(findErr)
		}
		return nil, &TransitionError{Match: current, Requested: to}
	}
	if err != nil {
		return nil, err
	}

	log.Printf("Match %s moved to %s by %s", updated.ID, updated.Status, actingUserID)
	s.notifyParticipants(ctx, updated, models.TransitionEvent(to))
	return updated, nil
}

func (s *matchService) GetMatch(ctx context.Context, matchID utils.SixID) (*models.Match, error) {
	m, err := s.store.FindMatchByID(ctx, matchID)
	if err != nil {
		return nil, fromStore(err)
	}
	messages, err := s.store.ListMessages(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for match %s: %w", matchID, err)
	}
	m.Messages = messages
	return m, nil
}

// ListMatches returns the user's matches, newest first, each with the
// user's unread count and a stale flag for matches whose books are gone.
func (s *matchService) ListMatches(ctx context.Context, userID utils.SixID) ([]models.MatchSummary, error) {
	matches, err := s.store.ListMatchesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for user %s: %w", userID, err)
	}

	availability := make(map[utils.SixID]bool)
	summaries := make([]models.MatchSummary, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		messages, err := s.store.ListMessages(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load messages for match %s: %w", m.ID, err)
		}
		m.Messages = messages

		other, _ := m.Counterpart(userID)
		yours, _ := m.OwnBook(userID)
		theirs, _ := m.TheirBook(userID)
		summaries = append(summaries, models.MatchSummary{
			Match:       m,
			Role:        m.RoleOf(userID).String(),
			OtherUser:   other,
			YourBook:    yours,
			TheirBook:   theirs,
			UnreadCount: models.UnreadCount(messages, userID),
			Stale:       s.isStale(ctx, availability, m),
		})
	}
	return summaries, nil
}

// isStale reports whether either book of an open match has left the
// offered catalog. Closed matches are never stale. Catalog errors leave the
// flag unset.
func (s *matchService) isStale(ctx context.Context, availability map[utils.SixID]bool, m *models.Match) bool {
	if m.Status.IsTerminal() {
		return false
	}
	for _, bookID := range []utils.SixID{m.BookFromA, m.BookFromB} {
		available, seen := availability[bookID]
		if !seen {
			entry, err := s.catalog.FindBookByID(ctx, bookID)
			switch {
			case err == nil:
				offer, ok := entry.(models.OfferedBook)
				available = ok && offer.Available
			case errors.Is(err, ErrNotFound):
				available = false
			default:
				log.Printf("WARNING: Could not check book %s for match %s: %v", bookID, m.ID, err)
				available = true
			}
			availability[bookID] = available
		}
		if !available {
			return true
		}
	}
	return false
}

func (s *matchService) GetUserSwapStats(ctx context.Context, userID utils.SixID) (*models.UserSwapStats, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, dependencyError("user directory", err)
	}
	matches, err := s.store.ListMatchesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for user %s: %w", userID, err)
	}

	stats := &models.UserSwapStats{UserID: userID}
	for _, m := range matches {
		switch m.Status {
		case models.MatchCompleted:
			stats.CompletedSwaps++
		case models.MatchPending, models.MatchAccepted:
			stats.ActiveMatches++
		}
	}
	return stats, nil
}

func (s *matchService) notifyParticipants(ctx context.Context, m *models.Match, kind models.EventKind) {
	for _, userID := range m.Participants() {
		deliver(ctx, s.notifier, userID, kind, m.ID)
	}
}

// deliver sends one notification without letting its failure or the
// caller's cancellation affect the committed operation.
func deliver(ctx context.Context, n notify.Notifier, userID utils.SixID, kind models.EventKind, matchID utils.SixID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := n.Notify(ctx, userID, kind, matchID); err != nil {
		log.Printf("WARNING: Failed to notify user %s of %s on match %s: %v", userID, kind, matchID, err)
	}
}

func dependencyError(name string, err error) error {
	if errors.Is(err, ErrDependencyUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrDependencyUnavailable, name, err)
}
