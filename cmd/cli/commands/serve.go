package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/boat-hire/pkg/core/model"
	"github.com/jakechorley/boat-hire/pkg/core/scheduler"
	"github.com/jakechorley/boat-hire/pkg/metrics"
	"github.com/jakechorley/boat-hire/pkg/server"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the allocation scheduler and the ops HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var done cleanup
			defer done.run()

			m := metrics.New()
			registry, err := buildRegistry(app, m, &done)
			if err != nil {
				return err
			}
			locker, lockCheck, err := buildLocker(app, &done)
			if err != nil {
				return err
			}
			allocation, err := newDailyAllocation(app, registry, locker)
			if err != nil {
				return err
			}

			sched, err := newScheduler(app, func(ctx context.Context, date model.Date) error {
				_, err := allocation.RunDailyAllocation(ctx, date)
				return err
			})
			if err != nil {
				return err
			}

			checks := map[string]server.Check{}
			if app.Postgres != nil {
				checks["database"] = app.Postgres.Ping
			}
			if lockCheck != nil {
				checks["redis"] = lockCheck
			}

			ops := server.New(server.Config{
				Addr:     app.Cfg.OpsAddr,
				Logger:   app.Logger,
				Metrics:  m.Handler(),
				Recorder: m,
				Checks:   checks,
			})

			app.Logger.Info("Starting boat-hire service",
				zap.String("ops_addr", app.Cfg.OpsAddr),
				zap.String("schedule", app.Cfg.Schedule))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return sched.Run(gctx) })
			g.Go(func() error { return ops.Run(gctx) })

			if err := g.Wait(); err != nil {
				return fmt.Errorf("service stopped: %w", err)
			}
			app.Logger.Info("Service stopped")
			return nil
		},
	}
}

func newScheduler(app *AppContext, run scheduler.RunFunc) (*scheduler.Scheduler, error) {
	rule, err := app.Cfg.ScheduleRule()
	if err != nil {
		return nil, err
	}
	loc, err := app.Cfg.Location()
	if err != nil {
		return nil, err
	}

	return scheduler.New(scheduler.Config{
		Rule:          rule,
		Interval:      app.Cfg.Interval,
		CatchUpDelay:  app.Cfg.CatchUpDelay,
		LookaheadDays: app.Cfg.LookaheadDays,
		Location:      loc,
	}, run, scheduler.RealClock{}, app.Logger)
}
