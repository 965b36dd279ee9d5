package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jakechorley/boat-hire/pkg/clients/gmailclient"
	"github.com/jakechorley/boat-hire/pkg/clients/mqclient"
	"github.com/jakechorley/boat-hire/pkg/core/events"
	"github.com/jakechorley/boat-hire/pkg/core/services"
	"github.com/jakechorley/boat-hire/pkg/lock"
	"github.com/jakechorley/boat-hire/pkg/metrics"
	"github.com/jakechorley/boat-hire/pkg/notify"
	"github.com/jakechorley/boat-hire/pkg/utils"
)

const lockPrefix = "boat-hire:"

// cleanup releases resources in reverse order of acquisition
type cleanup []func()

func (c *cleanup) add(f func()) { *c = append(*c, f) }

func (c cleanup) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// buildRegistry subscribes the log notifier plus whichever of metrics, email and
// broker are enabled
func buildRegistry(app *AppContext, m *metrics.Metrics, done *cleanup) (*events.Registry, error) {
	registry := events.NewRegistry(app.Logger)
	subscribers := []notify.Subscriber{notify.NewLogNotifier(app.Logger)}

	var recorder notify.Recorder
	if m != nil {
		recorder = m
		subscribers = append(subscribers, notify.NewMetricsRecorder(m))
	}

	emailCfg := app.Cfg.Notifications.Email
	if emailCfg.Enabled {
		sender, err := newEmailSender(app, emailCfg.Sender)
		if err != nil {
			return nil, err
		}
		subscribers = append(subscribers, notify.NewEmailNotifier(sender, app.Database, recorder, app.Logger))
	}

	brokerCfg := app.Cfg.Notifications.Broker
	if brokerCfg.Enabled {
		app.Logger.Info("Connecting to message broker", zap.String("exchange", brokerCfg.Exchange))
		publisher, err := mqclient.NewPublisher(brokerCfg.URL, brokerCfg.Exchange)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to message broker: %w", err)
		}
		done.add(func() {
			if err := publisher.Close(); err != nil {
				app.Logger.Warn("Failed to close broker publisher", zap.Error(err))
			}
		})
		subscribers = append(subscribers, notify.NewBrokerNotifier(publisher, recorder))
	}

	notify.Register(registry, subscribers...)
	return registry, nil
}

func newEmailSender(app *AppContext, sender string) (*gmailclient.Client, error) {
	app.Logger.Info("Initializing gmail client")
	oauthClient, err := app.Cfg.LoadOAuthClient()
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}
	oauthConfig, err := utils.GetOAuthConfig(oauthClient)
	if err != nil {
		return nil, err
	}
	source, err := utils.StoredToken(app.Ctx, oauthConfig, app.Env, app.Logger)
	if err != nil {
		return nil, err
	}
	return gmailclient.NewClient(app.Ctx, source, sender)
}

// buildLocker returns the redis locker when enabled, otherwise an in-process one.
// The check is nil for the in-process locker.
func buildLocker(app *AppContext, done *cleanup) (lock.Locker, func(ctx context.Context) error, error) {
	redisCfg := app.Cfg.Redis
	if !redisCfg.Enabled {
		return lock.NewLocalLocker(), nil, nil
	}

	app.Logger.Info("Connecting to redis", zap.String("addr", redisCfg.Addr))
	client := redis.NewClient(&redis.Options{Addr: redisCfg.Addr})
	locker := lock.NewRedisLocker(client, lockPrefix, redisCfg.LockTTL, app.Logger)

	pingCtx, cancel := context.WithTimeout(app.Ctx, 5*time.Second)
	defer cancel()
	if err := locker.Ping(pingCtx); err != nil {
		_ = locker.Close()
		return nil, nil, err
	}
	done.add(func() { _ = locker.Close() })

	return locker, locker.Ping, nil
}

func newDailyAllocation(app *AppContext, registry *events.Registry, locker lock.Locker) (*services.DailyAllocation, error) {
	return services.NewDailyAllocation(services.DailyAllocationConfig{
		Store:              app.Database,
		Publisher:          registry,
		Logger:             app.Logger,
		Locker:             locker,
		MaxConcurrentSlots: app.Cfg.MaxConcurrentSlots,
	})
}
