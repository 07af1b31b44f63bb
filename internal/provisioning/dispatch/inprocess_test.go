package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/abbydulski/Runway-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingService struct {
	mu      sync.Mutex
	calls   []domain.Request
	release chan struct{}
	err     error
}

func (r *recordingService) Provision(_ context.Context, req domain.Request) (*domain.Response, error) {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req)
	if r.err != nil {
		return nil, r.err
	}
	return &domain.Response{Success: true, RunID: "run"}, nil
}

func (r *recordingService) ListLogs(context.Context, snowflake.ID, domain.LogFilter, pagination.Pagination) (domain.ListLogsResponse, error) {
	return domain.ListLogsResponse{}, nil
}

func (r *recordingService) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestInProcessRunsQueuedRequests(t *testing.T) {
	svc := &recordingService{}
	d := NewInProcess(svc, zaptest.NewLogger(t), nil, 2, 8)
	d.Start()

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Dispatch(context.Background(), domain.Request{UserID: "1", OrganizationID: "2"}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
	assert.Equal(t, 5, svc.count())

	assert.ErrorIs(t, d.Dispatch(context.Background(), domain.Request{}), domain.ErrDispatchQueueFull)
}

func TestInProcessDoesNotBlockWhenFull(t *testing.T) {
	svc := &recordingService{release: make(chan struct{})}
	d := NewInProcess(svc, zaptest.NewLogger(t), nil, 1, 1)
	d.Start()

	// One request is held by the worker and one fills the buffer.
	require.NoError(t, d.Dispatch(context.Background(), domain.Request{UserID: "1"}))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, d.Dispatch(context.Background(), domain.Request{UserID: "2"}))

	done := make(chan error, 1)
	go func() { done <- d.Dispatch(context.Background(), domain.Request{UserID: "3"}) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrDispatchQueueFull)
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked")
	}

	close(svc.release)
	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, 2, svc.count())
}

func TestWorkerSkipsRetryForPermanentErrors(t *testing.T) {
	svc := &recordingService{err: domain.ErrUserNotFound}
	w := &Worker{svc: svc, log: zaptest.NewLogger(t)}

	payload, err := json.Marshal(domain.Request{UserID: "1", OrganizationID: "2"})
	require.NoError(t, err)

	err = w.HandleProvision(context.Background(), asynq.NewTask(TaskProvisionUser, payload))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = w.HandleProvision(context.Background(), asynq.NewTask(TaskProvisionUser, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
