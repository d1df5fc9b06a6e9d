package notification

import (
	"context"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/recruitment/application"
)

type Repository interface {
	// NotifiedPairs returns the pairs already notified through any path.
	// Failed records are not included.
	NotifiedPairs(ctx context.Context, jobIDs []kernel.JobID, candidateIDs []kernel.CandidateID) (application.PairSet, error)

	// Claim inserts the record unless the pair was already claimed through the
	// same path. A failed record is claimed again. Reports whether the caller owns it.
	Claim(ctx context.Context, record *NotificationRecord) (bool, error)

	// MarkSent records the delivery of claimed records
	MarkSent(ctx context.Context, ids []kernel.NotificationID, messageID string, sentAt time.Time) error

	// MarkFailed records a delivery failure so a later pass may claim the pair again
	MarkFailed(ctx context.Context, ids []kernel.NotificationID, reason string) error

	// RecordDigestRun stores the outcome of one employer digest check
	RecordDigestRun(ctx context.Context, run DigestRun) error

	// RecordEngagement stores an open or click against a tracking identifier
	RecordEngagement(ctx context.Context, trackingID kernel.TrackingID, event EngagementType, at time.Time) error
}

type EmployerDirectory interface {
	// GetEmployer retrieves an employer by user ID
	GetEmployer(ctx context.Context, id kernel.UserID) (*Employer, error)

	// ListEmployers retrieves every employer with their digest preference
	ListEmployers(ctx context.Context) ([]*Employer, error)
}

type MatchFeed interface {
	// RecentMatches returns the best matches on the employer's jobs scored at or
	// after since with overall >= minScore, at most limit, best first
	RecentMatches(ctx context.Context, employerID kernel.UserID, since time.Time, minScore, limit int) ([]DigestMatch, error)
}

type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) (SendResult, error)
}

type TaskQueue interface {
	// Enqueue adds a task to the ready queue
	Enqueue(ctx context.Context, task *Task) error

	// EnqueueDelayed schedules a task for later processing (retries)
	EnqueueDelayed(ctx context.Context, task *Task, delay time.Duration) error

	// Dequeue blocks up to timeout and returns nil when no task is ready
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)

	// MoveDelayedToReady moves due delayed tasks to the ready queue
	MoveDelayedToReady(ctx context.Context) (int, error)
}
