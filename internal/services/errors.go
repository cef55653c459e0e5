package services

import (
	"errors"
	"fmt"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/store"
)

var (
	// ErrInvalidTransition is returned when the requested status change is not
	// legal from the match's current status. State is left unchanged.
	ErrInvalidTransition = errors.New("invalid match transition")
	// ErrNotParticipant is returned when the acting user is neither side of the match.
	ErrNotParticipant = errors.New("user is not a participant of this match")
	// ErrMatchClosed is returned when a message is sent to a declined match.
	ErrMatchClosed = errors.New("match is closed for messaging")
	// ErrNotFound is returned when a referenced match, book or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDependencyUnavailable is returned when the catalog or user directory cannot be reached.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrInvalidInput is returned for malformed requests, e.g. empty messages.
	ErrInvalidInput = errors.New("invalid input")
)

// TransitionError reports a rejected transition together with the match as
// it currently stands.
type TransitionError struct {
	Match     *models.Match
	Requested models.MatchStatus
}

func (e *TransitionError) Error() string {
	if e.Match == nil {
		return fmt.Sprintf("%s: cannot move to %s", ErrInvalidTransition, e.Requested)
	}
	return fmt.Sprintf("%s: match %s is %s, cannot move to %s", ErrInvalidTransition, e.Match.ID, e.Match.Status, e.Requested)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// fromStore translates store sentinels into service errors.
func fromStore(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrMatchClosed):
		return ErrMatchClosed
	}
	return err
}
