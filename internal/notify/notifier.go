// Package notify delivers user-visible match events. Delivery is
// best-effort: callers log failures and carry on.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// Notifier sends one event to one user.
type Notifier interface {
	Notify(ctx context.Context, userID utils.SixID, kind models.EventKind, matchID utils.SixID) error
}

// NewNotification stamps a fresh event.
func NewNotification(userID utils.SixID, kind models.EventKind, matchID utils.SixID) models.Notification {
	return models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		MatchID:   matchID,
		CreatedAt: time.Now().UTC(),
	}
}

// LogNotifier only writes events to the log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, userID utils.SixID, kind models.EventKind, matchID utils.SixID) error {
	log.Printf("Notification: user=%s kind=%s match=%s", userID, kind, matchID)
	return nil
}

// CompositeNotifier fans an event out to several notifiers.
type CompositeNotifier struct {
	notifiers []Notifier
}

// NewCompositeNotifier creates a CompositeNotifier.
func NewCompositeNotifier(notifiers ...Notifier) *CompositeNotifier {
	return &CompositeNotifier{notifiers: notifiers}
}

// AddNotifier appends n unless it is nil.
func (c *CompositeNotifier) AddNotifier(n Notifier) {
	if n != nil {
		c.notifiers = append(c.notifiers, n)
	}
}

// Notify calls every notifier and joins their errors.
func (c *CompositeNotifier) Notify(ctx context.Context, userID utils.SixID, kind models.EventKind, matchID utils.SixID) error {
	var failures []string
	for _, n := range c.notifiers {
		if err := n.Notify(ctx, userID, kind, matchID); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("composite notify failed: [ %s ]", strings.Join(failures, "; "))
	}
	return nil
}
