package notificationsrv

import (
	"context"
	"fmt"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/pkg/telemetry"
	"github.com/Abraxas-365/relay-match/recruitment/notification"
)

// EnqueueJobCreated schedules the new-job dispatch without blocking the caller
func (d *Dispatcher) EnqueueJobCreated(ctx context.Context, jobID kernel.JobID) (*notification.Task, error) {
	if jobID.IsEmpty() {
		return nil, notification.ErrInvalidTask().WithDetail("field", "job_id")
	}
	return d.submit(ctx, notification.NewJobCreatedTask(jobID))
}

// EnqueueCandidateCreated schedules the new-candidate dispatch without blocking the caller
func (d *Dispatcher) EnqueueCandidateCreated(ctx context.Context, candidateID kernel.CandidateID) (*notification.Task, error) {
	if candidateID.IsEmpty() {
		return nil, notification.ErrInvalidTask().WithDetail("field", "candidate_id")
	}
	return d.submit(ctx, notification.NewCandidateCreatedTask(candidateID))
}

// EnqueueDigest schedules a digest pass
func (d *Dispatcher) EnqueueDigest(ctx context.Context, frequency notification.Frequency) (*notification.Task, error) {
	if !frequency.IsValid() {
		return nil, notification.ErrInvalidFrequency().WithDetail("frequency", frequency)
	}
	return d.submit(ctx, notification.NewDigestTask(frequency))
}

// submit detaches the task from the caller's cancellation. Without a queue
// the task runs in its own goroutine.
func (d *Dispatcher) submit(ctx context.Context, task *notification.Task) (*notification.Task, error) {
	detached := context.WithoutCancel(ctx)

	if d.queue == nil {
		go func() {
			if err := d.ProcessTask(detached, task); err != nil {
				logx.Errorw("detached notification task failed", "task_id", task.ID, "type", task.Type, "error", err)
			}
		}()
		return task, nil
	}

	if err := d.queue.Enqueue(detached, task); err != nil {
		return nil, notification.ErrQueueFailed().WithDetail("type", task.Type).WithCause(err)
	}
	logx.Infof("Enqueued %s task %s", task.Type, task.ID)
	return task, nil
}

// ProcessTask runs one task to completion
func (d *Dispatcher) ProcessTask(ctx context.Context, task *notification.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	switch task.Type {
	case notification.TaskJobCreated:
		_, err := d.DispatchForNewJob(ctx, task.JobID)
		return err
	case notification.TaskCandidateCreated:
		_, err := d.DispatchForNewCandidate(ctx, task.CandidateID)
		return err
	case notification.TaskDigest:
		_, err := d.RunDigest(ctx, task.Frequency)
		return err
	}
	return fmt.Errorf("unhandled task type %q", task.Type)
}

// RecordEngagement verifies a tracking token and stores the open or click
func (d *Dispatcher) RecordEngagement(ctx context.Context, token string, event notification.EngagementType) (*TrackingClaims, error) {
	claims, err := d.tracker.Verify(token, event)
	if err != nil {
		return nil, err
	}
	if err := d.repo.RecordEngagement(ctx, claims.TrackingID, event, d.now()); err != nil {
		return nil, err
	}
	d.telemetry.Record(telemetry.Event{
		Name:   notification.EventEngagement,
		At:     d.now(),
		Labels: map[string]string{"type": string(event)},
	})
	return claims, nil
}
