package notification

import (
	"time"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
)

// Kind is the dispatch path that produced a notification
type Kind string

const (
	KindNewJob       Kind = "new_job"
	KindNewCandidate Kind = "new_candidate"
	KindDigest       Kind = "digest"
)

// Thresholds applied by the event-driven paths
const (
	NewJobMinScore       = 70
	NewCandidateMinScore = 60
)

// RecordStatus tracks a notification from claim to delivery
type RecordStatus string

const (
	RecordClaimed RecordStatus = "claimed"
	RecordSent    RecordStatus = "sent"
	RecordFailed  RecordStatus = "failed"
)

// NotificationRecord marks a candidate/job pair as notified through one path.
// A failed record may be claimed again by a later pass.
type NotificationRecord struct {
	ID          kernel.NotificationID `db:"id" json:"id"`
	Kind        Kind                  `db:"kind" json:"kind"`
	CandidateID kernel.CandidateID    `db:"candidate_id" json:"candidate_id"`
	JobID       kernel.JobID          `db:"job_id" json:"job_id"`
	RecipientID string                `db:"recipient_id" json:"recipient_id"`
	Recipient   kernel.Email          `db:"recipient" json:"recipient"`
	Score       int                   `db:"score" json:"score"`
	TrackingID  kernel.TrackingID     `db:"tracking_id" json:"tracking_id"`
	Status      RecordStatus          `db:"status" json:"status"`
	MessageID   string                `db:"message_id" json:"message_id,omitempty"`
	Error       string                `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time             `db:"created_at" json:"created_at"`
	SentAt      *time.Time            `db:"sent_at" json:"sent_at,omitempty"`
}

// ============================================================================
// Employers & digest preferences
// ============================================================================

// Frequency is the digest cadence chosen by an employer
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// IsValid reports whether f is a supported cadence
func (f Frequency) IsValid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

// Cap is the maximum number of matches listed in one digest
func (f Frequency) Cap() int {
	if f == FrequencyWeekly {
		return 20
	}
	return 10
}

// Period is the look-back window of one digest
func (f Frequency) Period() time.Duration {
	if f == FrequencyWeekly {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

const DefaultDigestMinScore = 70

type DigestPreference struct {
	Enabled   bool      `db:"digest_enabled" json:"enabled"`
	MinScore  int       `db:"digest_min_score" json:"min_score"`
	Frequency Frequency `db:"digest_frequency" json:"frequency"`
}

// Employer is a user who posts jobs and receives candidate summaries
type Employer struct {
	ID         kernel.UserID    `db:"id" json:"id"`
	Email      kernel.Email     `db:"email" json:"email"`
	Name       string           `db:"name" json:"name"`
	Company    string           `db:"company" json:"company,omitempty"`
	Preference DigestPreference `json:"preference"`
}

// Wants reports whether the employer subscribed to digests at frequency f
func (e *Employer) Wants(f Frequency) bool {
	return e.Preference.Enabled && e.Preference.Frequency == f
}

// MinScore returns the employer's digest threshold, defaulted when unset
func (e *Employer) MinScore() int {
	if e.Preference.MinScore <= 0 {
		return DefaultDigestMinScore
	}
	return e.Preference.MinScore
}

// ============================================================================
// Digest runs
// ============================================================================

type DigestStatus string

const (
	DigestSent          DigestStatus = "sent"
	DigestNothingToSend DigestStatus = "nothing_to_send"
	DigestFailed        DigestStatus = "failed"
)

// DigestRun is the recorded outcome of one employer digest check
type DigestRun struct {
	ID          string            `db:"id" json:"id"`
	EmployerID  kernel.UserID     `db:"employer_id" json:"employer_id"`
	Frequency   Frequency         `db:"frequency" json:"frequency"`
	Status      DigestStatus      `db:"status" json:"status"`
	MatchCount  int               `db:"match_count" json:"match_count"`
	TrackingID  kernel.TrackingID `db:"tracking_id" json:"tracking_id,omitempty"`
	MessageID   string            `db:"message_id" json:"message_id,omitempty"`
	Error       string            `db:"error" json:"error,omitempty"`
	PeriodStart time.Time         `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time         `db:"period_end" json:"period_end"`
	CheckedAt   time.Time         `db:"checked_at" json:"checked_at"`
}

// DigestMatch is one line of a digest
type DigestMatch struct {
	CandidateID   kernel.CandidateID `json:"candidate_id"`
	CandidateName string             `json:"candidate_name"`
	JobID         kernel.JobID       `json:"job_id"`
	JobTitle      string             `json:"job_title"`
	Score         int                `json:"score"`
	ScoredAt      time.Time          `json:"scored_at"`
}

// ============================================================================
// Email transport
// ============================================================================

type EmailMessage struct {
	To      kernel.Email
	Subject string
	HTML    string
	Text    string
}

// SendResult is the transport acknowledgement of an accepted message
type SendResult struct {
	MessageID string
}

// ============================================================================
// Engagement
// ============================================================================

type EngagementType string

const (
	EngagementOpen  EngagementType = "open"
	EngagementClick EngagementType = "click"
)

func (e EngagementType) IsValid() bool {
	return e == EngagementOpen || e == EngagementClick
}

// ============================================================================
// Reports
// ============================================================================

// DispatchReport summarises one event-driven dispatch pass
type DispatchReport struct {
	Kind            Kind          `json:"kind"`
	Scored          int           `json:"scored"`
	Qualified       int           `json:"qualified"`
	AlreadyNotified int           `json:"already_notified"`
	Sent            int           `json:"sent"`
	Failed          int           `json:"failed"`
	Deferred        int           `json:"deferred"` // left for a later pass by the per-pass cap
	Elapsed         time.Duration `json:"elapsed"`
}

// DigestReport summarises one digest pass over all employers
type DigestReport struct {
	Frequency     Frequency     `json:"frequency"`
	Employers     int           `json:"employers"`
	Skipped       int           `json:"skipped"`
	Sent          int           `json:"sent"`
	NothingToSend int           `json:"nothing_to_send"`
	Failed        int           `json:"failed"`
	Runs          []DigestRun   `json:"runs"`
	Elapsed       time.Duration `json:"elapsed"`
}
