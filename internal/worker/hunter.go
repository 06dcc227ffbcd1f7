package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
)

const logBufferSize = 64

// Planner decides one run: scan, price, select, notify.
type Planner interface {
	Plan(ctx context.Context, excluding map[string]struct{}) (*entity.Opportunity, error)
}

// Memory is the durable opportunity log. The hunter is its sole writer.
type Memory interface {
	Load(ctx context.Context) ([]entity.Opportunity, error)
	Append(ctx context.Context, opp entity.Opportunity) error
	URLs(ctx context.Context) (map[string]struct{}, error)
}

// Hunter owns the planning pipeline: it feeds the planner the dedup
// set, records accepted opportunities, and optionally repeats on an
// interval.
type Hunter struct {
	planner Planner
	memory  Memory

	interval time.Duration

	logs    chan string
	results chan entity.Opportunity

	// runMu serializes runs: a run must observe every append made by
	// the previous one, or the dedup set has holes and a deal can be
	// notified twice.
	runMu sync.Mutex

	// Control fields
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	isRunning  bool
	wg         sync.WaitGroup
}

func NewHunter(planner Planner, memory Memory) *Hunter {
	return &Hunter{
		planner:  planner,
		memory:   memory,
		interval: time.Hour,
		logs:     make(chan string, logBufferSize),
		results:  make(chan entity.Opportunity, 1),
	}
}

func (h *Hunter) WithInterval(interval time.Duration) *Hunter {
	h.interval = interval
	return h
}

// Logs is the run progress stream. The producer never blocks on it;
// a slow consumer loses the oldest lines.
func (h *Hunter) Logs() <-chan string {
	return h.logs
}

// Results delivers accepted opportunities to a single consumer.
func (h *Hunter) Results() <-chan entity.Opportunity {
	return h.results
}

// RunOnce executes one full planning run. Runs are serialized: the
// memory has a single writer and the dedup set must include every
// previously recorded opportunity.
func (h *Hunter) RunOnce(ctx context.Context) (*entity.Opportunity, error) {
	h.runMu.Lock()
	defer h.runMu.Unlock()

	h.logf("run started")

	urls, err := h.memory.URLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load url set: %w", err)
	}

	h.logf("dedup set loaded: %d urls", len(urls))

	opp, err := h.planner.Plan(ctx, urls)
	if err != nil {
		h.logf("run failed: %v", err)
		return nil, fmt.Errorf("plan: %w", err)
	}

	if opp == nil {
		h.logf("run finished: no opportunity this time")
		return nil, nil
	}

	if err := h.memory.Append(ctx, *opp); err != nil {
		h.logf("run failed: could not record opportunity: %v", err)
		return nil, fmt.Errorf("record opportunity: %w", err)
	}

	h.logf("run finished: %s at discount $%.2f", opp.Deal.URL, opp.Discount)

	select {
	case h.results <- *opp:
	default:
	}

	return opp, nil
}

// logf enqueues a progress line without ever blocking the pipeline.
// The oldest line is dropped when the consumer lags.
func (h *Hunter) logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)

	for {
		select {
		case h.logs <- line:
			return
		default:
			select {
			case <-h.logs:
			default:
			}
		}
	}
}

// Start launches the periodic mode in the background.
func (h *Hunter) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.isRunning {
		return errors.New("hunter is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	h.cancelFunc = cancel
	h.isRunning = true

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			h.mu.Lock()
			h.isRunning = false
			h.cancelFunc = nil
			h.mu.Unlock()
		}()

		if err := h.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger(runCtx).Error("hunter stopped with error", "error", err)
		}
	}()

	return nil
}

func (h *Hunter) Stop() {
	h.mu.Lock()

	if !h.isRunning {
		h.mu.Unlock()
		return
	}

	if h.cancelFunc != nil {
		h.cancelFunc()
	}
	h.mu.Unlock()

	h.wg.Wait()
}

func (h *Hunter) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isRunning
}

// Run executes planning runs on the configured interval until the
// context is cancelled. Failures are logged, the next tick retries.
func (h *Hunter) Run(ctx context.Context) error {
	logger(ctx).Info("🚀 Deal Hunter STARTED", "interval", h.interval)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if _, err := h.RunOnce(ctx); err != nil {
			logger(ctx).Error("hunt run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			logger(ctx).Info("🛑 Deal Hunter STOPPED")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
