// Package dispatch runs provisioning in the background so signup and join never wait on providers.
package dispatch

import (
	"context"
	"sync"

	"github.com/abbydulski/Runway-sub000/internal/observability/metrics"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"go.uber.org/zap"
)

const backendInProcess = "inprocess"

// InProcess is a bounded queue drained by a fixed worker pool.
type InProcess struct {
	svc     domain.Service
	log     *zap.Logger
	metrics *metrics.DispatchMetrics
	workers int

	queue  chan domain.Request
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewInProcess(svc domain.Service, log *zap.Logger, m *metrics.DispatchMetrics, workers, queueSize int) *InProcess {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &InProcess{
		svc:     svc,
		log:     log.Named("provisioning.dispatch"),
		metrics: m,
		workers: workers,
		queue:   make(chan domain.Request, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (d *InProcess) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	d.log.Info("provisioning dispatcher started", zap.Int("workers", d.workers), zap.Int("queue_size", cap(d.queue)))
}

// Stop drains queued requests, then waits for workers or ctx, whichever comes first.
func (d *InProcess) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}

// Dispatch never blocks; a full queue drops the request.
func (d *InProcess) Dispatch(_ context.Context, req domain.Request) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return domain.ErrDispatchQueueFull
	}

	select {
	case d.queue <- req:
		d.metrics.IncEnqueued(backendInProcess)
		d.metrics.SetQueueDepth(len(d.queue))
		return nil
	default:
		d.metrics.IncDropped()
		d.log.Warn("provisioning queue full; request dropped",
			zap.String("user_id", req.UserID),
			zap.String("org_id", req.OrganizationID),
		)
		return domain.ErrDispatchQueueFull
	}
}

func (d *InProcess) work() {
	defer d.wg.Done()
	for req := range d.queue {
		d.metrics.SetQueueDepth(len(d.queue))
		d.handle(req)
	}
}

func (d *InProcess) handle(req domain.Request) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("provisioning run panicked", zap.Any("panic", r), zap.String("user_id", req.UserID))
		}
	}()

	resp, err := d.svc.Provision(d.ctx, req)
	if err != nil {
		d.log.Warn("background provisioning failed",
			zap.String("user_id", req.UserID),
			zap.String("org_id", req.OrganizationID),
			zap.Error(err),
		)
		return
	}
	d.log.Info("background provisioning completed",
		zap.String("run_id", resp.RunID),
		zap.String("user_id", req.UserID),
		zap.Int("results", len(resp.Results)),
	)
}
