package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// TypeDeliver is the asynq task type carrying one notification to the
// email delivery worker.
const TypeDeliver = "notify:deliver"

// Enqueuer is the part of *asynq.Client the notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskNotifier hands events to the background worker, which looks up the
// recipient and emails them.
type TaskNotifier struct {
	client Enqueuer
}

// NewTaskNotifier creates a TaskNotifier.
func NewTaskNotifier(client Enqueuer) *TaskNotifier {
	return &TaskNotifier{client: client}
}

// NewDeliverTask wraps n into an asynq task.
func NewDeliverTask(n models.Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	return asynq.NewTask(TypeDeliver, payload, asynq.MaxRetry(5)), nil
}

// ParseDeliverTask decodes a task built by NewDeliverTask.
func ParseDeliverTask(t *asynq.Task) (models.Notification, error) {
	var n models.Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return n, fmt.Errorf("failed to unmarshal notification payload: %w", err)
	}
	if n.UserID.IsZero() || n.Kind == "" {
		return n, fmt.Errorf("notification payload missing user or kind")
	}
	return n, nil
}

func (n *TaskNotifier) Notify(ctx context.Context, userID utils.SixID, kind models.EventKind, matchID utils.SixID) error {
	event := NewNotification(userID, kind, matchID)
	task, err := NewDeliverTask(event)
	if err != nil {
		return err
	}
	// The event ID doubles as task ID so a retried enqueue cannot send twice.
	if _, err := n.client.EnqueueContext(ctx, task, asynq.TaskID(event.ID)); err != nil {
		return fmt.Errorf("failed to enqueue %s notification for user %s: %w", kind, userID, err)
	}
	return nil
}
