package worker

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/errx"
	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/pkg/telemetry"
	"github.com/Abraxas-365/relay-match/recruitment/notification"
)

const (
	DefaultWorkers        = 2
	DefaultDequeueTimeout = 5 * time.Second
	DefaultMoveInterval   = 30 * time.Second

	// pause after a failed dequeue, doubled per consecutive failure up to the max
	DefaultErrorBackoff    = 500 * time.Millisecond
	DefaultMaxErrorBackoff = 30 * time.Second
)

// Processor runs one notification task
type Processor interface {
	ProcessTask(ctx context.Context, task *notification.Task) error
}

type NotificationWorker struct {
	processor       Processor
	queue           notification.TaskQueue
	workers         int
	telemetry       telemetry.Sink
	dequeueTimeout  time.Duration
	moveInterval    time.Duration
	errorBackoff    time.Duration
	maxErrorBackoff time.Duration
	now             func() time.Time
	wg              sync.WaitGroup
}

func NewNotificationWorker(processor Processor, queue notification.TaskQueue, workers int, sink telemetry.Sink) *NotificationWorker {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &NotificationWorker{
		processor:       processor,
		queue:           queue,
		workers:         workers,
		telemetry:       telemetry.OrNop(sink),
		dequeueTimeout:  DefaultDequeueTimeout,
		moveInterval:    DefaultMoveInterval,
		errorBackoff:    DefaultErrorBackoff,
		maxErrorBackoff: DefaultMaxErrorBackoff,
		now:             time.Now,
	}
}

// Start launches the delayed task mover and the worker pool. They stop when
// ctx is cancelled, Wait blocks until they have.
func (w *NotificationWorker) Start(ctx context.Context) {
	logx.Infof("Starting %d notification workers", w.workers)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.moveDelayedTasks(ctx)
	}()

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.processTasks(ctx, id)
		}(i)
	}
}

func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}

func (w *NotificationWorker) processTasks(ctx context.Context, workerID int) {
	logx.Infof("Worker %d started", workerID)

	backoff := w.errorBackoff
	for {
		select {
		case <-ctx.Done():
			logx.Infof("Worker %d stopping", workerID)
			return
		default:
			task, err := w.queue.Dequeue(ctx, w.dequeueTimeout)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				logx.Errorf("Worker %d dequeue error, retrying in %s: %v", workerID, backoff, err)
				select {
				case <-ctx.Done():
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > w.maxErrorBackoff {
					backoff = w.maxErrorBackoff
				}
				continue
			}
			backoff = w.errorBackoff
			if task == nil {
				continue
			}

			logx.Infof("Worker %d processing %s task: %s", workerID, task.Type, task.ID)
			w.handle(ctx, task)
		}
	}
}

// handle runs a task and schedules a retry with exponential backoff when the
// failure is transient and attempts remain
func (w *NotificationWorker) handle(ctx context.Context, task *notification.Task) {
	err := w.processor.ProcessTask(ctx, task)
	if err == nil {
		return
	}

	task.AttemptCount++
	task.LastError = err.Error()

	if !retryable(err) || !task.CanRetry() {
		logx.Errorw("notification task dropped", "task_id", task.ID, "type", task.Type, "attempts", task.AttemptCount, "error", err)
		w.telemetry.Record(telemetry.Event{
			Name:   notification.EventTaskDropped,
			At:     w.now(),
			Labels: map[string]string{"type": string(task.Type)},
		})
		return
	}

	delay := task.RetryDelay()
	next := w.now().Add(delay)
	task.NextRetryAt = &next
	if err := w.queue.EnqueueDelayed(ctx, task, delay); err != nil {
		logx.Errorw("failed to schedule notification retry", "task_id", task.ID, "error", err)
		return
	}

	logx.Warnw("notification task failed, retry scheduled", "task_id", task.ID, "type", task.Type, "attempt", task.AttemptCount, "delay", delay, "error", err)
	w.telemetry.Record(telemetry.Event{
		Name:   notification.EventTaskRetried,
		At:     w.now(),
		Labels: map[string]string{"type": string(task.Type)},
	})
}

// retryable is false for failures another attempt cannot fix
func retryable(err error) bool {
	for _, typ := range []errx.Type{errx.TypeValidation, errx.TypeNotFound, errx.TypeBusiness, errx.TypeAuthorization} {
		if errx.IsType(err, typ) {
			return false
		}
	}
	return true
}

func (w *NotificationWorker) moveDelayedTasks(ctx context.Context) {
	ticker := time.NewTicker(w.moveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := w.queue.MoveDelayedToReady(ctx)
			if err != nil {
				logx.Errorf("Failed to move delayed tasks: %v", err)
			} else if count > 0 {
				logx.Infof("Moved %d delayed tasks to ready queue", count)
			}
		}
	}
}
