package provisioning

import (
	"context"

	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/abbydulski/Runway-sub000/internal/observability/metrics"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/dispatch"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/provisioner"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/repository"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/service"
	"github.com/abbydulski/Runway-sub000/internal/providers/slack"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("provisioning.service",
	fx.Provide(repository.Provide),
	fx.Provide(NewRegistry),
	fx.Provide(service.New),
	fx.Provide(NewDispatcher),
)

func NewRegistry(cfg config.Config, client slack.Client) *provisioner.Registry {
	return provisioner.NewRegistry(
		provisioner.NewSlack(client, cfg.Provisioning.CallTimeout),
		provisioner.NewGitHub(),
		provisioner.NewDeel(),
	)
}

type DispatcherParams struct {
	fx.In

	Lc    fx.Lifecycle
	Cfg   config.Config
	Svc   domain.Service
	Log   *zap.Logger
	Redis *redis.Client `optional:"true"`
}

// NewDispatcher uses asynq when Redis is available and an in-process queue otherwise.
func NewDispatcher(p DispatcherParams) domain.Dispatcher {
	m := metrics.Dispatch()

	if p.Redis != nil {
		d := dispatch.NewAsynq(p.Redis, p.Log, m)
		w := dispatch.NewWorker(p.Redis, p.Svc, p.Log, p.Cfg.Provisioning.Workers)
		p.Lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				return w.Start()
			},
			OnStop: func(context.Context) error {
				w.Shutdown()
				return nil
			},
		})
		return d
	}

	d := dispatch.NewInProcess(p.Svc, p.Log, m, p.Cfg.Provisioning.Workers, p.Cfg.Provisioning.QueueSize)
	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Start()
			return nil
		},
		OnStop: d.Stop,
	})
	return d
}
