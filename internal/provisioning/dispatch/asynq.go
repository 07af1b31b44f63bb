package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abbydulski/Runway-sub000/internal/observability/metrics"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	TaskProvisionUser = "provisioning:provision_user"
	QueueProvisioning = "provisioning"

	backendAsynq = "asynq"
)

// redisConnOpt lets asynq reuse an existing go-redis client.
type redisConnOpt struct {
	client redis.UniversalClient
}

func (r redisConnOpt) MakeRedisClient() interface{} {
	return r.client
}

// Asynq enqueues provisioning runs on Redis. Runs are not retried; each run already records every outcome.
type Asynq struct {
	client  *asynq.Client
	log     *zap.Logger
	metrics *metrics.DispatchMetrics
}

func NewAsynq(rdb redis.UniversalClient, log *zap.Logger, m *metrics.DispatchMetrics) *Asynq {
	return &Asynq{
		client:  asynq.NewClient(redisConnOpt{client: rdb}),
		log:     log.Named("provisioning.dispatch"),
		metrics: m,
	}
}

func (d *Asynq) Dispatch(ctx context.Context, req domain.Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal provisioning task: %w", err)
	}

	info, err := d.client.EnqueueContext(ctx,
		asynq.NewTask(TaskProvisionUser, payload),
		asynq.Queue(QueueProvisioning),
		asynq.MaxRetry(0),
	)
	if err != nil {
		d.metrics.IncDropped()
		return fmt.Errorf("enqueue provisioning task: %w", err)
	}
	d.metrics.IncEnqueued(backendAsynq)
	d.log.Debug("provisioning task enqueued", zap.String("task_id", info.ID), zap.String("user_id", req.UserID))
	return nil
}

// Worker consumes provisioning tasks from Redis.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	svc    domain.Service
	log    *zap.Logger
}

func NewWorker(rdb redis.UniversalClient, svc domain.Service, log *zap.Logger, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	named := log.Named("provisioning.worker")
	w := &Worker{
		server: asynq.NewServer(redisConnOpt{client: rdb}, asynq.Config{
			Concurrency: concurrency,
			Queues:      map[string]int{QueueProvisioning: 1},
			Logger:      zapAsynqLogger{log: named.Sugar()},
		}),
		mux: asynq.NewServeMux(),
		svc: svc,
		log: named,
	}
	w.mux.HandleFunc(TaskProvisionUser, w.HandleProvision)
	return w
}

func (w *Worker) Start() error {
	return w.server.Start(w.mux)
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) HandleProvision(ctx context.Context, task *asynq.Task) error {
	var req domain.Request
	if err := json.Unmarshal(task.Payload(), &req); err != nil {
		return fmt.Errorf("unmarshal provisioning task: %v: %w", err, asynq.SkipRetry)
	}

	resp, err := w.svc.Provision(ctx, req)
	if err != nil {
		if isPermanent(err) {
			w.log.Warn("provisioning task rejected", zap.String("user_id", req.UserID), zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	w.log.Info("provisioning task completed",
		zap.String("run_id", resp.RunID),
		zap.String("user_id", req.UserID),
		zap.Int("results", len(resp.Results)),
	)
	return nil
}

func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidUserID) ||
		errors.Is(err, domain.ErrInvalidOrganization) ||
		errors.Is(err, domain.ErrInvalidTeamID) ||
		errors.Is(err, domain.ErrUserNotFound)
}

type zapAsynqLogger struct {
	log *zap.SugaredLogger
}

func (l zapAsynqLogger) Debug(args ...interface{}) { l.log.Debug(args...) }
func (l zapAsynqLogger) Info(args ...interface{})  { l.log.Info(args...) }
func (l zapAsynqLogger) Warn(args ...interface{})  { l.log.Warn(args...) }
func (l zapAsynqLogger) Error(args ...interface{}) { l.log.Error(args...) }
func (l zapAsynqLogger) Fatal(args ...interface{}) { l.log.Fatal(args...) }
