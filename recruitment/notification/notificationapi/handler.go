package notificationapi

import (
	"context"

	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/recruitment/notification"
	"github.com/Abraxas-365/relay-match/recruitment/notification/notificationsrv"
	"github.com/gofiber/fiber/v2"
)

// Service is the notification surface exposed over HTTP
type Service interface {
	EnqueueJobCreated(ctx context.Context, jobID kernel.JobID) (*notification.Task, error)
	EnqueueCandidateCreated(ctx context.Context, candidateID kernel.CandidateID) (*notification.Task, error)
	EnqueueDigest(ctx context.Context, frequency notification.Frequency) (*notification.Task, error)
	RecordEngagement(ctx context.Context, token string, event notification.EngagementType) (*notificationsrv.TrackingClaims, error)
}

// QueueMonitor reports on the task queue behind the triggers
type QueueMonitor interface {
	Stats(ctx context.Context) (ready, delayed int64, err error)
	Ping(ctx context.Context) error
}

// transparent 1x1 GIF
var pixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type NotificationHandlers struct {
	service Service
	queue   QueueMonitor
}

// NewNotificationHandlers creates the handlers. queue may be nil when tasks
// run inline, the queue status route is then not registered.
func NewNotificationHandlers(service Service, queue QueueMonitor) *NotificationHandlers {
	return &NotificationHandlers{service: service, queue: queue}
}

func (h *NotificationHandlers) RegisterRoutes(router fiber.Router) {
	triggers := router.Group("/api/notifications")
	triggers.Post("/jobs/:id", h.JobCreated)
	triggers.Post("/candidates/:id", h.CandidateCreated)
	triggers.Post("/digest/:frequency", h.Digest)
	if h.queue != nil {
		triggers.Get("/queue", h.QueueStatus)
	}

	tracking := router.Group("/t")
	tracking.Get("/open/:token", h.Open)
	tracking.Get("/click/:token", h.Click)
}

// ============================================================================
// Triggers
// ============================================================================

// JobCreated queues the new-job dispatch
// POST /api/notifications/jobs/:id
func (h *NotificationHandlers) JobCreated(c *fiber.Ctx) error {
	task, err := h.service.EnqueueJobCreated(c.UserContext(), kernel.JobID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(task)
}

// CandidateCreated queues the new-candidate dispatch
// POST /api/notifications/candidates/:id
func (h *NotificationHandlers) CandidateCreated(c *fiber.Ctx) error {
	task, err := h.service.EnqueueCandidateCreated(c.UserContext(), kernel.CandidateID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(task)
}

// Digest queues a digest pass for daily or weekly subscribers
// POST /api/notifications/digest/:frequency
func (h *NotificationHandlers) Digest(c *fiber.Ctx) error {
	task, err := h.service.EnqueueDigest(c.UserContext(), notification.Frequency(c.Params("frequency")))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(task)
}

// QueueStatus reports the ready and delayed task counts
// GET /api/notifications/queue
func (h *NotificationHandlers) QueueStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := h.queue.Ping(ctx); err != nil {
		logx.Warnw("notification queue unreachable", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}

	ready, delayed, err := h.queue.Stats(ctx)
	if err != nil {
		return notification.ErrQueueFailed().WithCause(err)
	}
	return c.JSON(fiber.Map{"status": "ok", "ready": ready, "delayed": delayed})
}

// ============================================================================
// Tracking
// ============================================================================

// Open serves the tracking pixel. The image is returned even when the token
// is rejected so mail clients never show a broken image.
// GET /t/open/:token
func (h *NotificationHandlers) Open(c *fiber.Ctx) error {
	if _, err := h.service.RecordEngagement(c.UserContext(), c.Params("token"), notification.EngagementOpen); err != nil {
		logx.Debugw("open not recorded", "error", err)
	}

	c.Set(fiber.HeaderCacheControl, "no-store, max-age=0")
	c.Set(fiber.HeaderContentType, "image/gif")
	return c.Send(pixel)
}

// Click records the click and redirects to the signed target
// GET /t/click/:token
func (h *NotificationHandlers) Click(c *fiber.Ctx) error {
	claims, err := h.service.RecordEngagement(c.UserContext(), c.Params("token"), notification.EngagementClick)
	if err != nil {
		return err
	}
	return c.Redirect(claims.Target, fiber.StatusFound)
}
