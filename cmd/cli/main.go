package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/boat-hire/cmd/cli/commands"
	"github.com/jakechorley/boat-hire/internal/config"
	"github.com/jakechorley/boat-hire/pkg/utils/logging"
)

var (
	env string
	app = &commands.AppContext{}
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "boat-hire",
		Short: "Boat Hire - allocate boats and batteries to daily bookings",
		Long: `Boat Hire assigns a boat and a battery to every pending booking for a day,
oldest booking first, and tells users the outcome.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Database != nil {
				app.Database.Close()
			}
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	_ = rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.AllocateCmd(app))
	rootCmd.AddCommand(commands.AddEquipmentCmd(app))
	rootCmd.AddCommand(commands.CommentEquipmentCmd(app))
	rootCmd.AddCommand(commands.ListEquipmentCmd(app))
	rootCmd.AddCommand(commands.BookCmd(app))
	rootCmd.AddCommand(commands.CancelBookingCmd(app))
	rootCmd.AddCommand(commands.MissedBookingsCmd(app))
	rootCmd.AddCommand(commands.SetUserEmailCmd(app))
	rootCmd.AddCommand(commands.AuthorizeCmd(app))

	return rootCmd
}

// initApp loads config, sets up the logger and opens the store
func initApp(cmd *cobra.Command) error {
	cfg, err := config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.InitLogger(env, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting application", zap.String("environment", env), zap.String("command", cmd.Name()))

	app.Cfg = cfg
	app.Env = env
	app.Logger = logger
	app.Ctx = context.Background()
	app.Now = time.Now

	if cmd.Annotations[commands.SkipDatabase] == "true" {
		return nil
	}

	app.Database, app.Postgres, err = commands.OpenDatabase(app.Ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("Database ready", zap.String("store", cfg.Store))

	return nil
}
