package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"habitflow/internal/client"
	"habitflow/internal/config"
	"habitflow/internal/repository"
	"habitflow/internal/seed"
	"habitflow/internal/service"
	"habitflow/internal/syncstore"
	"habitflow/pkg/db"
	"habitflow/pkg/outbox"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the token",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(apiURL)
		token, err := c.Login(cmd.Context(), loginEmail, loginPassword)
		if err != nil {
			return err
		}
		if err := saveToken(token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s logged in as %s\n", color.GreenString("✓"), loginEmail)
		return nil
	},
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's routines and progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadStore(cmd.Context())
		if err != nil {
			return err
		}
		routines, completions := store.Snapshot()
		renderToday(cmd.OutOrStdout(), routines, completions, time.Now())
		return nil
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <routine-id>",
	Short: "Check or uncheck a routine for today",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadStore(cmd.Context())
		if err != nil {
			return err
		}
		if err := store.ToggleTask(cmd.Context(), args[0]); err != nil {
			return err
		}
		routines, completions := store.Snapshot()
		renderToday(cmd.OutOrStdout(), routines, completions, time.Now())
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show streaks, the weekly chart and insights",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}
		report, err := c.Report(cmd.Context())
		if err != nil {
			return err
		}
		renderReport(cmd.OutOrStdout(), report)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Reset the demo account with 30 days of history",
	Long: `Connects to the database from the service configuration (CONFIG_ENV,
CONFIG_DIR) and recreates the demo user's routines and completion history.
The generated history is the same on every run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		pool, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.Migrate(cmd.Context(), pool, log); err != nil {
			return err
		}

		users := repository.NewUserRepository(pool, log)
		auth := service.NewAuthService(users, cfg.JWT.Secret, cfg.JWT.TTL, log).WithBcryptCost(bcrypt.DefaultCost)
		seeder := seed.NewSeeder(users, auth, repository.NewRoutineRepository(pool, log), repository.NewCompletionRepository(pool, log), log)

		res, err := seeder.Run(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s seeded %d routines and %d completions\n", color.GreenString("✓"), res.Routines, res.Completions)
		fmt.Fprintf(out, "  login: %s / %s\n", seed.DemoEmail, seed.DemoPassword)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		pool, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.Migrate(cmd.Context(), pool, log); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", color.GreenString("✓"))
		return nil
	},
}

var outboxLimit int

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and replay undelivered events",
}

var outboxFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List events that exhausted their retries",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := openOutbox(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		events, err := repo.GetFailedEvents(cmd.Context(), outboxLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintf(out, "%s\n", gray("No failed events"))
			return nil
		}
		for _, e := range events {
			fmt.Fprintf(out, "  %s %-20s %s retries=%d\n",
				red("✗"), e.RoutingKey, e.MessageID, e.RetryCount)
		}
		return nil
	},
}

var outboxReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Queue failed events for another delivery attempt",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := openOutbox(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		n, err := repo.ReplayFailed(cmd.Context(), outboxLimit)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d events queued for replay\n", color.GreenString("✓"), n)
		return nil
	},
}

func openOutbox(ctx context.Context) (*outbox.Repository, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx, pool, log); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return outbox.NewRepository(pool), pool.Close, nil
}

func loadStore(ctx context.Context) (*syncstore.Store, error) {
	c, err := authedClient()
	if err != nil {
		return nil, err
	}
	store := syncstore.New(c, log)
	if err := store.FetchAll(ctx); err != nil {
		log.Debug("fetch failed", zap.Error(err))
		return nil, err
	}
	return store, nil
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	outboxCmd.PersistentFlags().IntVar(&outboxLimit, "limit", 100, "maximum number of events")
	outboxCmd.AddCommand(outboxFailedCmd, outboxReplayCmd)
}
