package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"text/template"
	"time"

	"github.com/hibiken/asynq"

	"github.com/robe-lope/bookbuddy-swapper/internal/config"
	"github.com/robe-lope/bookbuddy-swapper/internal/email"
	"github.com/robe-lope/bookbuddy-swapper/internal/notify"
	"github.com/robe-lope/bookbuddy-swapper/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeMatchRecompute = "match:recompute"
	TypeNotifyDeliver  = notify.TypeDeliver
)

const defaultLocale = "en-US"

// --- Task Client (Enqueuing tasks) ---

// RedisOpt returns the asynq connection options for cfg.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

func NewClient(cfg *config.Config) *asynq.Client {
	return asynq.NewClient(RedisOpt(cfg))
}

// RecomputePayload records what triggered a recompute.
type RecomputePayload struct {
	Reason string `json:"reason"`
}

// EnqueueRecompute schedules a match recompute after delay. Calls landing
// in the same delay window share one task; the duplicates are reported as
// debounced with a nil error.
func EnqueueRecompute(ctx context.Context, client notify.Enqueuer, reason string, delay time.Duration) (debounced bool, err error) {
	payload, err := json.Marshal(RecomputePayload{Reason: reason})
	if err != nil {
		return false, fmt.Errorf("failed to marshal recompute payload: %w", err)
	}

	opts := []asynq.Option{asynq.Queue("default"), asynq.MaxRetry(10)}
	if delay > 0 {
		window := time.Now().UTC().Truncate(delay).Unix()
		opts = append(opts,
			asynq.ProcessIn(delay),
			asynq.TaskID(fmt.Sprintf("%s:%d", TypeMatchRecompute, window)),
		)
	}

	_, err = client.EnqueueContext(ctx, asynq.NewTask(TypeMatchRecompute, payload), opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to enqueue match recompute: %w", err)
	}
	return false, nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg                  *config.Config
	emailSender          email.Sender
	matchService         services.IMatchService
	userService          services.IUserService
	emailTemplateService services.IEmailTemplateService
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	matchService services.IMatchService,
	userService services.IUserService,
	emailTemplateService services.IEmailTemplateService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:                  cfg,
		emailSender:          emailSender,
		matchService:         matchService,
		userService:          userService,
		emailTemplateService: emailTemplateService,
	}
}

// SetupServer configures an Asynq server and the mux routing task types to
// processor. The caller starts and stops the server.
func SetupServer(cfg *config.Config, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		RedisOpt(cfg),
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				fmt.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v\n", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeMatchRecompute, processor.HandleMatchRecomputeTask)
	mux.HandleFunc(TypeNotifyDeliver, processor.HandleNotifyDeliverTask)
	fmt.Println("Registered background task handlers (match recompute, notification delivery).")

	return srv, mux
}

// --- Task Handlers ---

// HandleMatchRecomputeTask runs the match finder over the whole catalog.
// Failures are retried by asynq; the finder is idempotent.
func (p *TaskProcessor) HandleMatchRecomputeTask(ctx context.Context, t *asynq.Task) error {
	var payload RecomputePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal recompute payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	started := time.Now()
	result, err := p.matchService.FindMatches(ctx)
	if err != nil {
		log.Printf("Match recompute (%s) failed: %v", payload.Reason, err)
		return err
	}

	log.Printf("Match recompute (%s) done in %v: %d matches, %d new", payload.Reason, time.Since(started), len(result.Matches), result.Created)
	return nil
}

// HandleNotifyDeliverTask emails one notification to its recipient.
func (p *TaskProcessor) HandleNotifyDeliverTask(ctx context.Context, t *asynq.Task) error {
	n, err := notify.ParseDeliverTask(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	user, err := p.userService.FindByID(ctx, n.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			log.Printf("Dropping %s notification: user %s not found", n.Kind, n.UserID)
			return fmt.Errorf("recipient %s not found: %w", n.UserID, asynq.SkipRetry)
		}
		return err
	}
	if user.Email == "" {
		log.Printf("Dropping %s notification: user %s has no email address", n.Kind, n.UserID)
		return nil
	}

	tmpl, err := p.emailTemplateService.GetTemplate(ctx, string(n.Kind), defaultLocale)
	if err != nil {
		log.Printf("Error getting email template %s/%s: %v", n.Kind, defaultLocale, err)
		return fmt.Errorf("email template not found: %w", asynq.SkipRetry)
	}

	data := map[string]string{
		"app_name": p.cfg.AppName,
		"username": user.Username,
		"match_id": n.MatchID.String(),
		"event":    string(n.Kind),
	}
	subject, err := render(tmpl.Subject, data)
	if err != nil {
		return fmt.Errorf("bad subject template %s: %v: %w", n.Kind, err, asynq.SkipRetry)
	}
	body, err := render(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("bad body template %s: %v: %w", n.Kind, err, asynq.SkipRetry)
	}

	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = "noreply@example.com"
		log.Printf("Warning: SmtpFromAddress not configured, using fallback %s", fromAddress)
	}

	to := []string{user.Email}
	raw := email.Compose(fromAddress, to, subject, body, time.Now())
	if err := p.emailSender.Send(ctx, to, subject, raw); err != nil {
		fmt.Printf("Notification email failed (will retry): %v\n", err)
		return err
	}

	fmt.Printf("Notification email sent: User=%s, Kind=%s, Match=%s\n", n.UserID, n.Kind, n.MatchID)
	return nil
}

// render fills a template with data. Unknown fields render empty.
func render(text string, data map[string]string) (string, error) {
	t, err := template.New("email").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
