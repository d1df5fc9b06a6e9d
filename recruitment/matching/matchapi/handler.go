package matchapi

import (
	"context"

	"github.com/Abraxas-365/relay-match/pkg/httpx"
	"github.com/Abraxas-365/relay-match/pkg/kernel"
	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/gofiber/fiber/v2"
)

// Service is the matching surface exposed over HTTP
type Service interface {
	ScoreOne(ctx context.Context, req matching.ScoreRequest) (*matching.ScoreResponse, error)
	Explain(ctx context.Context, req matching.ExplainRequest) (*matching.ExplainResponse, error)
	BatchMatch(ctx context.Context, req matching.BatchMatchRequest) (*matching.BatchReport, error)
	Recommend(ctx context.Context, jobID kernel.JobID, req matching.RecommendRequest) (*matching.RecommendResponse, error)
	EstimateWeights(ctx context.Context, req matching.WeightsRequest) (matching.LearningWeights, error)
}

type MatchHandlers struct {
	service Service
}

func NewMatchHandlers(service Service) *MatchHandlers {
	return &MatchHandlers{service: service}
}

func (h *MatchHandlers) RegisterRoutes(router fiber.Router) {
	group := router.Group("/api/matching")

	group.Post("/score", h.Score)
	group.Post("/explain", h.Explain)
	group.Post("/batch", h.BatchMatch)
	group.Get("/jobs/:id/recommendations", h.Recommend)
	group.Get("/weights", h.Weights)
}

// ============================================================================
// Handlers
// ============================================================================

// Score scores one candidate against one job
// POST /api/matching/score
func (h *MatchHandlers) Score(c *fiber.Ctx) error {
	var req matching.ScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid request body")
	}

	response, err := h.service.ScoreOne(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.JSON(response)
}

// Explain scores a pair and returns a readable explanation
// POST /api/matching/explain
func (h *MatchHandlers) Explain(c *fiber.Ctx) error {
	var req matching.ExplainRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid request body")
	}

	response, err := h.service.Explain(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.JSON(response)
}

// BatchMatch runs a synchronous batch over the requested jobs
// POST /api/matching/batch
func (h *MatchHandlers) BatchMatch(c *fiber.Ctx) error {
	var req matching.BatchMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid request body")
	}

	report, err := h.service.BatchMatch(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.JSON(report)
}

// Recommend ranks candidates for a job
// GET /api/matching/jobs/:id/recommendations
func (h *MatchHandlers) Recommend(c *fiber.Ctx) error {
	jobID := kernel.JobID(c.Params("id"))
	if jobID.IsEmpty() {
		return httpx.BadRequest(c, "invalid job ID")
	}

	var req matching.RecommendRequest
	if err := c.QueryParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid query parameters")
	}

	response, err := h.service.Recommend(c.UserContext(), jobID, req)
	if err != nil {
		return err
	}

	return c.JSON(response)
}

// Weights returns the learned dimension weights of an employer
// GET /api/matching/weights?user_id=...
func (h *MatchHandlers) Weights(c *fiber.Ctx) error {
	var req matching.WeightsRequest
	if err := c.QueryParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid query parameters")
	}

	weights, err := h.service.EstimateWeights(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.JSON(weights)
}
