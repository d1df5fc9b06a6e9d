package notification

// Telemetry event names
const (
	EventDispatched  = "notification.dispatched"
	EventSendFailed  = "notification.send_failed"
	EventDigestRun   = "notification.digest_run"
	EventDigestPass  = "notification.digest_pass"
	EventTaskRetried = "notification.task_retried"
	EventTaskDropped = "notification.task_dropped"
	EventEngagement  = "notification.engagement"
)
