package server

import (
	"context"

	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/bibliotech/bibliotech/pkg/jobs"
	"github.com/bibliotech/bibliotech/pkg/loans"
	"github.com/bibliotech/bibliotech/pkg/notify"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// NewDependencies builds the shared services. The role cache lives in Redis
// when redis_url is set and in memory otherwise. Notifications go to RabbitMQ
// when amqp_url is set and to the log otherwise. The returned func releases
// any connections that were opened.
func NewDependencies(ctx context.Context, cfg *config.Config, db *bun.DB) (Dependencies, func(), error) {
	log := logger.FromContext(ctx)
	var closers []func() error

	var cache roles.Cache = roles.NewMemoryCache()
	if cfg.RedisURL != "" {
		client, err := roles.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return Dependencies{}, nil, errors.WithStack(err)
		}
		cache = roles.NewRedisCache(client)
		closers = append(closers, client.Close)
		log.Info("role cache backed by redis")
	}

	var notifier notify.Notifier = notify.NewLogNotifier()
	if cfg.AMQPURL != "" {
		n, err := notify.NewAMQPNotifier(cfg.AMQPURL)
		if err != nil {
			for _, c := range closers {
				_ = c()
			}
			return Dependencies{}, nil, errors.WithStack(err)
		}
		notifier = n
		closers = append(closers, n.Close)
		log.Info("notifications published to amqp")
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Err(err).Warn("close error")
			}
		}
	}

	return Dependencies{
		Resolver:    roles.NewResolver(db, cache, cfg.RoleCacheTTL),
		Notifier:    notifier,
		LoanService: loans.NewService(db, cfg, notifier),
		JobService:  jobs.NewService(db),
	}, closeAll, nil
}
