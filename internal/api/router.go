package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/robe-lope/bookbuddy-swapper/internal/api/handlers"
	"github.com/robe-lope/bookbuddy-swapper/internal/api/middleware"
	"github.com/robe-lope/bookbuddy-swapper/internal/config"
	"github.com/robe-lope/bookbuddy-swapper/internal/email"
	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/notify"
	"github.com/robe-lope/bookbuddy-swapper/internal/services"
	"github.com/robe-lope/bookbuddy-swapper/internal/tasks"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// SetupRouter configures and returns the main Gin engine. The rate limiter's
// cleanup loop runs until stop is closed.
func SetupRouter(cfg *config.Config, matchService services.IMatchService, ledgerService services.ILedgerService, userService services.IUserService, stop <-chan struct{}) *gin.Engine {
	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	if stop != nil {
		go rateLimiter.RunCleanup(time.Minute, stop)
	}

	r.Use(middleware.CORSMiddleware())

	restMatchHandler := handlers.NewRestMatchHandler(matchService, ledgerService)
	restUserHandler := handlers.NewRestUserHandler(userService, matchService)

	v1 := r.Group("/v1")
	{
		public := v1.Group("/")
		public.Use(rateLimiter.Limit())
		{
			public.GET("/ping", func(c *gin.Context) {
				c.String(http.StatusOK, "pong")
			})
			public.GET("/user/:id", restUserHandler.GetUserByID)
		}

		// Limiting after auth keys the buckets by user rather than IP.
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), rateLimiter.Limit())
		{
			authRequired.GET("/matches", restMatchHandler.ListMatches)
			authRequired.GET("/matches/:id", restMatchHandler.GetMatch)
			authRequired.POST("/matches/:id/accept", restMatchHandler.AcceptMatch)
			authRequired.POST("/matches/:id/decline", restMatchHandler.DeclineMatch)
			authRequired.POST("/matches/:id/complete", restMatchHandler.CompleteMatch)
			authRequired.GET("/matches/:id/messages", restMatchHandler.ListMessages)
			authRequired.POST("/matches/:id/messages", restMatchHandler.SendMessage)
			authRequired.POST("/matches/:id/read", restMatchHandler.MarkMessagesRead)
		}
	}

	return r
}

// NotificationInbox reads notifications recorded for a user.
type NotificationInbox interface {
	Inbox(ctx context.Context, userID utils.SixID) ([]models.Notification, error)
}

// EmailOutbox reads emails captured for an address.
type EmailOutbox interface {
	Outbox(ctx context.Context, address string) ([]email.StoredEmail, error)
}

// ServiceDeps carries what the internal service API calls into. Inbox and
// Outbox are only set when mock services are enabled; TaskClient may be nil,
// in which case catalog changes trigger a synchronous match run.
type ServiceDeps struct {
	MatchService services.IMatchService
	TaskClient   notify.Enqueuer
	Inbox        NotificationInbox
	Outbox       EmailOutbox
}

// pollAttempts and pollInterval bound how long test lookups wait for
// asynchronous deliveries to land.
var (
	pollAttempts = 10
	pollInterval = 200 * time.Millisecond
)

// SetupServiceRouter configures and returns the service Gin engine.
func SetupServiceRouter(cfg *config.Config, deps ServiceDeps, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				fmt.Println("Shutdown signal sent successfully.")
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}

		case "findMatches":
			result, err := deps.MatchService.FindMatches(c.Request.Context())
			if err != nil {
				log.Printf("Service API: findMatches failed: %v", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "result": gin.H{"created": result.Created, "total": len(result.Matches)}})

		case "catalogChanged":
			var args []string // Optional ["reason"]
			if len(req.Arguments) > 0 {
				if err := json.Unmarshal(req.Arguments, &args); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [reason]"})
					return
				}
			}
			reason := "catalog changed"
			if len(args) > 0 && args[0] != "" {
				reason = args[0]
			}

			if deps.TaskClient == nil {
				result, err := deps.MatchService.FindMatches(c.Request.Context())
				if err != nil {
					c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": err.Error()})
					return
				}
				c.JSON(http.StatusOK, gin.H{"success": true, "result": gin.H{"queued": false, "created": result.Created}})
				return
			}

			debounced, err := tasks.EnqueueRecompute(c.Request.Context(), deps.TaskClient, reason, cfg.MatchRecomputeDelay)
			if err != nil {
				log.Printf("Service API: failed to enqueue match recompute: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to queue match recompute"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "result": gin.H{"queued": true, "debounced": debounced}})

		case "getTestNotifications":
			if deps.Inbox == nil {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Notification inbox is not enabled"})
				return
			}
			var args []string // Expect ["userID"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 1 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [userID]"})
				return
			}
			userID, err := utils.ParseSixID(args[0])
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid user ID format"})
				return
			}

			notifications, err := poll(c.Request.Context(), func(ctx context.Context) ([]models.Notification, error) {
				return deps.Inbox.Inbox(ctx, userID)
			})
			respondPolled(c, notifications, err, "notifications for user "+userID.String())

		case "getTestEmail":
			if deps.Outbox == nil {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Email outbox is not enabled"})
				return
			}
			var args []string // Expect ["email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 1 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [email]"})
				return
			}

			emails, err := poll(c.Request.Context(), func(ctx context.Context) ([]email.StoredEmail, error) {
				return deps.Outbox.Outbox(ctx, args[0])
			})
			respondPolled(c, emails, err, "email for "+args[0])

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// poll calls fetch until it returns something, fails or attempts run out.
func poll[T any](ctx context.Context, fetch func(context.Context) ([]T, error)) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for i := 0; i < pollAttempts; i++ {
		items, err := fetch(ctx)
		if err != nil || len(items) > 0 {
			return items, err
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(pollInterval):
		}
	}
	return nil, nil
}

func respondPolled[T any](c *gin.Context, items []T, err error, what string) {
	if err != nil {
		log.Printf("Service API: error reading %s: %v", what, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
		return
	}
	if len(items) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("No test %s found", what)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
}
