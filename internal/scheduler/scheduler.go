package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/clock"
	invitationdomain "github.com/abbydulski/Runway-sub000/internal/invitation/domain"
	obsmetrics "github.com/abbydulski/Runway-sub000/internal/observability/metrics"
	"github.com/abbydulski/Runway-sub000/internal/ratelimit"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobExpireInvites = "expire_invites"

var ErrInvalidConfig = errors.New("scheduler: invalid config")

// Lease is satisfied by *ratelimit.Locker; a nil Lease runs every job locally.
type Lease interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Invites invitationdomain.Service
	Locker  *ratelimit.Locker `optional:"true"`
	Clock   clock.Clock       `optional:"true"`
	Config  Config            `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	invites invitationdomain.Service
	lease   Lease
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Invites == nil {
		return nil, ErrInvalidConfig
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   clk,
		invites: p.Invites,
	}
	if p.Locker != nil {
		s.lease = p.Locker
	}
	return s, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// A deadline is a soft timeout; the next tick picks up the remaining work.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// withLease runs fn only on the replica that takes the job lease.
func (s *Scheduler) withLease(ctx context.Context, job string, fn func(ctx context.Context) error) error {
	if s.lease == nil {
		return fn(ctx)
	}
	key := "runway:scheduler:" + job
	token, ok, err := s.lease.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		return err
	}
	if !ok {
		s.logger(ctx).Debug("job lease held elsewhere", zap.String("job", job))
		return nil
	}
	defer func() {
		if err := s.lease.Release(context.Background(), key, token); err != nil {
			s.logger(ctx).Warn("release job lease", zap.String("job", job), zap.Error(err))
		}
	}()
	return fn(ctx)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobExpireInvites, s.ExpireInvitesJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		run := job.Run
		name := job.Name
		err = errors.Join(err, s.runJob(parent, name, s.cfg.JobTimeout, func(ctx context.Context) error {
			return s.withLease(ctx, name, run)
		}))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// ExpireInvitesJob flips pending invites past their expiry to expired.
func (s *Scheduler) ExpireInvitesJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobExpireInvites)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	n, err := s.invites.ExpirePending(ctx)
	if err != nil {
		run.IncError()
		return err
	}
	run.AddProcessed(int(n))
	obsmetrics.Scheduler().AddBatchProcessed(JobExpireInvites, int(n))
	return nil
}
