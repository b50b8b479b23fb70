package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gitlab.com/nevasik7/alerting/logger"
)

/*
	FIFO task queue per API family:
	- drains in batches of at most BurstCapacity tasks executed concurrently;
	- waits for the whole batch to settle, then sleeps a computed delay if work remains;
	- slows down on throttling (exponential backoff, capped) and recovers on success.
	Tasks are never retried or dropped here; the caller owns retries.
*/

const defaultBurstCapacity = 50

type Config struct {
	Name              string  `yaml:"name"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstCapacity     int     `yaml:"burst_capacity"`
	AdaptiveTiming    *bool   `yaml:"adaptive_timing"` // nil -> enabled
}

type job struct {
	enqueuedAt time.Time
	exec       func() error
}

type Scheduler struct {
	log       logger.Logger
	metrics   *Metrics
	name      string
	rps       float64
	burst     int
	adaptive  bool
	baseDelay time.Duration
	sleep     func(time.Duration)

	mu         sync.Mutex
	queue      []job
	processing bool
	state      backoffState
}

type Stats struct {
	Name              string  `json:"name"`
	QueueLength       int     `json:"queueLength"`
	Processing        bool    `json:"processing"`
	ConsecutiveErrors int     `json:"consecutiveErrors"`
	AdaptiveDelayMs   int64   `json:"adaptiveDelayMs"`
	Phase             Phase   `json:"phase"`
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	BurstCapacity     int     `json:"burstCapacity"`
}

// metrics may be nil
func New(log logger.Logger, cfg *Config, metrics *Metrics) (*Scheduler, error) {
	if cfg == nil {
		return nil, errors.New("config is required to the scheduler")
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be positive, got %v", cfg.RequestsPerSecond)
	}
	if cfg.BurstCapacity < 0 {
		return nil, fmt.Errorf("burst capacity must be >= 1, got %d", cfg.BurstCapacity)
	}

	burst := cfg.BurstCapacity
	if burst == 0 {
		burst = defaultBurstCapacity
	}

	adaptive := true
	if cfg.AdaptiveTiming != nil {
		adaptive = *cfg.AdaptiveTiming
	}

	base := time.Duration(int64(1000/cfg.RequestsPerSecond)) * time.Millisecond

	name := cfg.Name
	if name == "" {
		name = "default"
	}

	return &Scheduler{
		log:       log,
		metrics:   metrics,
		name:      name,
		rps:       cfg.RequestsPerSecond,
		burst:     burst,
		adaptive:  adaptive,
		baseDelay: base,
		sleep:     time.Sleep,
	}, nil
}

// Submit enqueues task and returns its future; the task always runs on the drain goroutine side.
// ctx is handed to the task as is; the scheduler never cancels it.
func Submit[T any](ctx context.Context, s *Scheduler, task func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()

	s.enqueue(job{
		enqueuedAt: time.Now(),
		exec: func() (err error) {
			var v T
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("scheduled task panicked: %v", r)
				}
				f.resolve(v, err)
			}()

			v, err = task(ctx)
			return err
		},
	})

	return f
}

// Do schedules task and waits for its outcome
func Do[T any](ctx context.Context, s *Scheduler, task func(ctx context.Context) (T, error)) (T, error) {
	return Submit(ctx, s, task).Wait(ctx)
}

func (s *Scheduler) Name() string {
	return s.name
}

func (s *Scheduler) BaseDelay() time.Duration {
	return s.baseDelay
}

func (s *Scheduler) QueueLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Stats is a read-only snapshot for monitoring
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Name:              s.name,
		QueueLength:       len(s.queue),
		Processing:        s.processing,
		ConsecutiveErrors: s.state.consecutiveErrors,
		AdaptiveDelayMs:   s.state.adaptiveDelay.Milliseconds(),
		Phase:             s.state.Phase(),
		RequestsPerSecond: s.rps,
		BurstCapacity:     s.burst,
	}
}

func (s *Scheduler) enqueue(j job) {
	s.mu.Lock()
	s.queue = append(s.queue, j)
	s.metrics.setQueueLength(s.name, len(s.queue))

	start := !s.processing
	if start {
		s.processing = true
	}
	s.mu.Unlock()

	if start {
		go s.drain()
	}
}

// Only one drain loop per scheduler; exits when the queue is empty
func (s *Scheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.processing = false
			s.mu.Unlock()
			return
		}

		n := min(s.burst, len(s.queue))
		batch := make([]job, n)
		copy(batch, s.queue[:n])
		rest := copy(s.queue, s.queue[n:])
		clear(s.queue[rest:])
		s.queue = s.queue[:rest]
		s.metrics.setQueueLength(s.name, len(s.queue))
		s.mu.Unlock()

		s.runBatch(batch)

		s.mu.Lock()
		pending := len(s.queue)
		delay := s.state.delay(s.baseDelay, s.adaptive)
		s.mu.Unlock()

		if pending > 0 {
			s.log.Debugf("Scheduler %s: %d pending, next batch in %s", s.name, pending, delay)
			s.sleep(delay)
		}
	}
}

// All tasks of the batch run concurrently; outcomes are applied in completion order by this goroutine only
func (s *Scheduler) runBatch(batch []job) {
	outcomes := make(chan error, len(batch))
	for _, j := range batch {
		s.metrics.observeWait(s.name, time.Since(j.enqueuedAt))
		go func(j job) {
			outcomes <- j.exec()
		}(j)
	}

	for range batch {
		s.record(<-outcomes)
	}
}

func (s *Scheduler) record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case err == nil:
		s.state.onSuccess()
		s.metrics.incTask(s.name, outcomeSuccess)
	case IsThrottle(err):
		s.state.onThrottle()
		s.metrics.incTask(s.name, outcomeThrottled)
		s.log.Warnf("Scheduler %s: rate limit error detected, adaptive delay increased to %s", s.name, s.state.adaptiveDelay)
	default:
		s.state.onFailure()
		s.metrics.incTask(s.name, outcomeFailed)
		s.log.Debugf("Scheduler %s: task failed, error=%v", s.name, err)
	}

	s.metrics.setState(s.name, s.state)
}
