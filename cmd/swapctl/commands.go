package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/robe-lope/bookbuddy-swapper/internal/auth"
	"github.com/robe-lope/bookbuddy-swapper/internal/cache"
	"github.com/robe-lope/bookbuddy-swapper/internal/config"
	"github.com/robe-lope/bookbuddy-swapper/internal/db"
	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/notify"
	"github.com/robe-lope/bookbuddy-swapper/internal/services"
	"github.com/robe-lope/bookbuddy-swapper/internal/store"
	"github.com/robe-lope/bookbuddy-swapper/internal/tasks"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

const commandTimeout = 2 * time.Minute

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "swapctl",
		Short:         "Operate the book swap match core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newFindCmd(), newMatchCmd(), newTemplatesCmd(), newInboxCmd(), newTokenCmd())
	return root
}

// withDatabase loads config, connects to MongoDB and runs fn.
func withDatabase(fn func(ctx context.Context, cfg *config.Config, database *mongo.Database) error) error {
	cfg, err := config.Load("cli")
	if err != nil {
		return err
	}
	client, database, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		return err
	}
	defer db.DisconnectDB(client)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return fn(ctx, cfg, database)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// matchLister is the read side a dry run copies stored matches from.
type matchLister interface {
	ListAllMatches(ctx context.Context) ([]models.Match, error)
}

// snapshotStore copies every stored match into a MemoryStore, so a dry run
// reports only the candidates that would be new.
func snapshotStore(ctx context.Context, src matchLister) (*store.MemoryStore, error) {
	matches, err := src.ListAllMatches(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := store.NewMemoryStore()
	for i := range matches {
		if _, _, err := snapshot.InsertMatch(ctx, &matches[i]); err != nil {
			return nil, err
		}
	}
	return snapshot, nil
}

func newFindCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Run the match finder over the whole catalog",
		Long: "Run the match finder over the whole catalog. With --dry-run the " +
			"stored matches are copied into memory, the finder runs against that copy " +
			"and the result is printed with the number of matches it would create. " +
			"Nothing is stored and nobody is notified.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(func(ctx context.Context, cfg *config.Config, database *mongo.Database) error {
				var st store.Store
				var notifier notify.Notifier
				mongoStore := store.NewMongoStore(database)
				if dryRun {
					snapshot, err := snapshotStore(ctx, mongoStore)
					if err != nil {
						return err
					}
					st = snapshot
					notifier = notify.NewCompositeNotifier()
				} else {
					if err := mongoStore.EnsureIndexes(ctx); err != nil {
						return err
					}
					st = mongoStore

					redisClient, err := cache.ConnectRedis(cfg)
					if err != nil {
						return err
					}
					defer cache.DisconnectRedis(redisClient)
					taskClient := tasks.NewClient(cfg)
					defer taskClient.Close()
					notifier = notify.NewCompositeNotifier(
						notify.NewRedisNotifier(redisClient, cfg.NotificationInboxSize, cfg.NotificationInboxTTL),
						notify.NewTaskNotifier(taskClient),
					)
				}

				matchService := services.NewMatchService(st, services.NewCatalogService(database), services.NewUserService(database), notifier)
				result, err := matchService.FindMatches(ctx)
				if err != nil {
					return err
				}
				if dryRun {
					return printJSON(cmd.OutOrStdout(), result)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d matches, %d new\n", len(result.Matches), result.Created)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute matches without storing them")
	return cmd
}

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Inspect matches",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <match-id>",
		Short: "Print a match with its conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matchID, err := utils.ParseSixID(args[0])
			if err != nil {
				return fmt.Errorf("invalid match ID: %w", err)
			}
			return withDatabase(func(ctx context.Context, _ *config.Config, database *mongo.Database) error {
				matchService := services.NewMatchService(store.NewMongoStore(database), services.NewCatalogService(database), services.NewUserService(database), nil)
				m, err := matchService.GetMatch(ctx, matchID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), m)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := utils.ParseSixID(args[0])
			if err != nil {
				return fmt.Errorf("invalid user ID: %w", err)
			}
			return withDatabase(func(ctx context.Context, _ *config.Config, database *mongo.Database) error {
				matchService := services.NewMatchService(store.NewMongoStore(database), services.NewCatalogService(database), services.NewUserService(database), nil)
				summaries, err := matchService.ListMatches(ctx, userID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summaries)
			})
		},
	})
	return cmd
}

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage notification email templates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Write the built-in templates to the database, overwriting edits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(func(ctx context.Context, _ *config.Config, database *mongo.Database) error {
				templateService := services.NewEmailTemplateService(database)
				for _, kind := range []models.EventKind{
					models.EventMatchFound,
					models.EventMatchAccepted,
					models.EventMatchDeclined,
					models.EventMatchCompleted,
					models.EventMessageReceived,
				} {
					tmpl, _ := services.DefaultTemplate(string(kind))
					if err := templateService.SaveTemplate(ctx, tmpl); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "seeded %s (%s)\n", tmpl.TemplateID, tmpl.Locale)
				}
				return nil
			})
		},
	})
	return cmd
}

func newInboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inbox <user-id>",
		Short: "Print the notifications recorded for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := utils.ParseSixID(args[0])
			if err != nil {
				return fmt.Errorf("invalid user ID: %w", err)
			}
			cfg, err := config.Load("cli")
			if err != nil {
				return err
			}
			client, err := cache.ConnectRedis(cfg)
			if err != nil {
				return err
			}
			defer cache.DisconnectRedis(client)

			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			notifications, err := notify.NewRedisNotifier(client, cfg.NotificationInboxSize, cfg.NotificationInboxTTL).Inbox(ctx, userID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), notifications)
		},
	}
}

func newTokenCmd() *cobra.Command {
	var secret string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a development bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := utils.ParseSixID(args[0])
			if err != nil {
				return fmt.Errorf("invalid user ID: %w", err)
			}
			if secret == "" {
				return fmt.Errorf("no signing secret: set JWT_SECRET or pass --secret")
			}
			token, err := auth.GenerateJWT(userID, secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC secret used to sign the token")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
