package notify

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

type recordingNotifier struct {
	events []models.Notification
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, userID utils.SixID, kind models.EventKind, matchID utils.SixID) error {
	r.events = append(r.events, models.Notification{UserID: userID, Kind: kind, MatchID: matchID})
	return r.err
}

func TestTaskNotifier_EnqueuesDeliverTask(t *testing.T) {
	client := new(mockEnqueuer)
	userID, matchID := utils.NewSixID(), utils.NewSixID()

	client.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		n, err := ParseDeliverTask(task)
		return err == nil && task.Type() == TypeDeliver &&
			n.UserID == userID && n.MatchID == matchID && n.Kind == models.EventMatchDeclined && n.ID != ""
	}), mock.Anything).Return(&asynq.TaskInfo{}, nil)

	err := NewTaskNotifier(client).Notify(context.Background(), userID, models.EventMatchDeclined, matchID)
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestTaskNotifier_EnqueueFailure(t *testing.T) {
	client := new(mockEnqueuer)
	client.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))

	err := NewTaskNotifier(client).Notify(context.Background(), utils.NewSixID(), models.EventMatchFound, utils.NewSixID())
	assert.ErrorContains(t, err, "redis down")
}

func TestParseDeliverTask_RejectsIncompletePayload(t *testing.T) {
	_, err := ParseDeliverTask(asynq.NewTask(TypeDeliver, []byte(`{"kind":"match_found"}`)))
	assert.Error(t, err)

	_, err = ParseDeliverTask(asynq.NewTask(TypeDeliver, []byte(`not json`)))
	assert.Error(t, err)
}

func TestCompositeNotifier(t *testing.T) {
	ok := &recordingNotifier{}
	failing := &recordingNotifier{err: errors.New("boom")}
	c := NewCompositeNotifier(ok)
	c.AddNotifier(nil)
	c.AddNotifier(failing)

	err := c.Notify(context.Background(), utils.NewSixID(), models.EventMessageReceived, utils.NewSixID())

	assert.ErrorContains(t, err, "boom")
	assert.Len(t, ok.events, 1)
	assert.Len(t, failing.events, 1, "a failing notifier must not stop the others")
}

func TestRedisNotifier_Inbox(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis inbox test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	userID := utils.NewSixID()
	t.Cleanup(func() { client.Del(ctx, InboxKey(userID)) })

	n := NewRedisNotifier(client, 2, time.Minute)
	for _, kind := range []models.EventKind{models.EventMatchFound, models.EventMatchAccepted, models.EventMatchCompleted} {
		require.NoError(t, n.Notify(ctx, userID, kind, utils.NewSixID()))
	}

	inbox, err := n.Inbox(ctx, userID)
	require.NoError(t, err)
	require.Len(t, inbox, 2, "inbox is trimmed to its size")
	assert.Equal(t, models.EventMatchCompleted, inbox[0].Kind)
	assert.Equal(t, models.EventMatchAccepted, inbox[1].Kind)
}
