package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/clock"
	invitationdomain "github.com/abbydulski/Runway-sub000/internal/invitation/domain"
	obsmetrics "github.com/abbydulski/Runway-sub000/internal/observability/metrics"
	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type fakeInvites struct {
	invitationdomain.Service

	mu      sync.Mutex
	calls   int
	expired int64
	err     error
}

func (f *fakeInvites) ExpirePending(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.expired, f.err
}

type fakeLease struct {
	held     bool
	released []string
}

func (l *fakeLease) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if l.held {
		return "", false, nil
	}
	return "token-" + key, true, nil
}

func (l *fakeLease) Release(_ context.Context, key, token string) error {
	l.released = append(l.released, key+"="+token)
	return nil
}

func newTestScheduler(t *testing.T, invites *fakeInvites) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	s, err := New(Params{
		Log:     zaptest.NewLogger(t),
		GenID:   node,
		Invites: invites,
		Clock:   clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	return s
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceExpiresInvites(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "runway", Environment: "test"})

	invites := &fakeInvites{expired: 3}
	s := newTestScheduler(t, invites)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, invites.calls)

	labels := map[string]string{"service": "runway", "env": "test", "job": JobExpireInvites}
	assert.Equal(t, 3.0, getCounterValue(t, registry, "runway_scheduler_batch_processed_total", labels))
	assert.Equal(t, 1.0, getCounterValue(t, registry, "runway_scheduler_job_runs_total", labels))
}

func TestRunOnceWrapsJobError(t *testing.T) {
	invites := &fakeInvites{err: errors.New("db down")}
	s := newTestScheduler(t, invites)

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobExpireInvites)
}

func TestRunOnceHonoursLease(t *testing.T) {
	t.Run("lease held elsewhere skips the job", func(t *testing.T) {
		invites := &fakeInvites{}
		s := newTestScheduler(t, invites)
		s.lease = &fakeLease{held: true}

		require.NoError(t, s.RunOnce(context.Background()))
		assert.Equal(t, 0, invites.calls)
	})

	t.Run("lease taken runs and releases", func(t *testing.T) {
		invites := &fakeInvites{}
		lease := &fakeLease{}
		s := newTestScheduler(t, invites)
		s.lease = lease

		require.NoError(t, s.RunOnce(context.Background()))
		assert.Equal(t, 1, invites.calls)
		assert.Equal(t, []string{"runway:scheduler:expire_invites=token-runway:scheduler:expire_invites"}, lease.released)
	})
}

func TestRunOnceSkipsDisabledJobs(t *testing.T) {
	invites := &fakeInvites{}
	s := newTestScheduler(t, invites)
	s.cfg.EnabledJobs = []string{"something_else"}

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 0, invites.calls)
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "runway",
		Environment: "test",
	})

	s := newTestScheduler(t, &fakeInvites{})
	err := s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	labels := map[string]string{
		"service": "runway",
		"env":     "test",
		"job":     "timeout_job",
	}
	if got := getCounterValue(t, registry, "runway_scheduler_job_timeouts_total", labels); got != 1 {
		t.Fatalf("expected timeout count 1, got %v", got)
	}

	errorLabels := map[string]string{
		"service": "runway",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	if got := getCounterValue(t, registry, "runway_scheduler_job_errors_total", errorLabels); got != 1 {
		t.Fatalf("expected error count 1, got %v", got)
	}
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
