package matching

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Prompt is one request to a text-generation oracle
type Prompt struct {
	System    string
	User      string
	MaxTokens int
}

// Oracle is the external model that scores and explains matches
type Oracle interface {
	// Generate returns the raw text completion for the prompt
	Generate(ctx context.Context, prompt Prompt) (string, error)

	// Model names the backing model, used for logs and telemetry
	Model() string
}

// Decoded is the result of decoding an oracle score response: Valid or Invalid
type Decoded interface {
	decoded()
}

// Valid carries a schema-conforming score. Overall has been recomputed;
// ReportedOverall keeps the value the oracle returned.
type Valid struct {
	Score           MatchScore
	ReportedOverall int
}

// Invalid carries the reason a response was rejected
type Invalid struct {
	Reason string
}

func (Valid) decoded()   {}
func (Invalid) decoded() {}

var validate = validator.New()

type scorePayload struct {
	Overall        *float64          `json:"overall" validate:"required,gte=0,lte=100"`
	Skill          *float64          `json:"skill" validate:"required,gte=0,lte=100"`
	Experience     *float64          `json:"experience" validate:"required,gte=0,lte=100"`
	CultureFit     *float64          `json:"cultureFit" validate:"required,gte=0,lte=100"`
	Wellbeing      *float64          `json:"wellbeing" validate:"required,gte=0,lte=100"`
	WorkSetting    *float64          `json:"workSetting" validate:"required,gte=0,lte=100"`
	SalaryFit      *float64          `json:"salaryFit" validate:"required,gte=0,lte=100"`
	LocationFit    *float64          `json:"locationFit" validate:"required,gte=0,lte=100"`
	CareerGrowth   *float64          `json:"careerGrowth" validate:"required,gte=0,lte=100"`
	SoftSkills     *float64          `json:"softSkills" validate:"required,gte=0,lte=100"`
	MatchBreakdown *breakdownPayload `json:"matchBreakdown" validate:"required"`
}

type breakdownPayload struct {
	Strengths       []string `json:"strengths" validate:"required"`
	Concerns        []string `json:"concerns" validate:"required"`
	Recommendations []string `json:"recommendations" validate:"required"`
	KeyInsights     []string `json:"keyInsights" validate:"required"`
}

// DecodeScore parses a raw oracle response against the score schema.
// Unknown fields, missing fields and out-of-range values are rejected.
func DecodeScore(raw string) Decoded {
	body := ExtractJSON(raw)
	if body == "" {
		return Invalid{Reason: "empty response"}
	}

	var payload scorePayload
	if err := decodeStrict(body, &payload); err != nil {
		return Invalid{Reason: err.Error()}
	}
	if err := validate.Struct(payload); err != nil {
		return Invalid{Reason: fmt.Sprintf("schema violation: %v", err)}
	}

	score := MatchScore{
		Skill:        toInt(*payload.Skill),
		Experience:   toInt(*payload.Experience),
		CultureFit:   toInt(*payload.CultureFit),
		Wellbeing:    toInt(*payload.Wellbeing),
		WorkSetting:  toInt(*payload.WorkSetting),
		SalaryFit:    toInt(*payload.SalaryFit),
		LocationFit:  toInt(*payload.LocationFit),
		CareerGrowth: toInt(*payload.CareerGrowth),
		SoftSkills:   toInt(*payload.SoftSkills),
		Breakdown: Breakdown{
			Strengths:       payload.MatchBreakdown.Strengths,
			Concerns:        payload.MatchBreakdown.Concerns,
			Recommendations: payload.MatchBreakdown.Recommendations,
			KeyInsights:     payload.MatchBreakdown.KeyInsights,
		},
		Source: SourceOracle,
	}

	return Valid{
		Score:           score.Normalized(),
		ReportedOverall: toInt(*payload.Overall),
	}
}

type explanationPayload struct {
	Summary          string   `json:"summary" validate:"required"`
	Strengths        []string `json:"strengths" validate:"required"`
	ImprovementAreas []string `json:"improvementAreas" validate:"required"`
}

// DecodeExplanation parses a raw oracle explanation response
func DecodeExplanation(raw string) (Explanation, error) {
	body := ExtractJSON(raw)
	if body == "" {
		return Explanation{}, fmt.Errorf("empty response")
	}

	var payload explanationPayload
	if err := decodeStrict(body, &payload); err != nil {
		return Explanation{}, err
	}
	if err := validate.Struct(payload); err != nil {
		return Explanation{}, fmt.Errorf("schema violation: %w", err)
	}

	return Explanation{
		Summary:          payload.Summary,
		Strengths:        payload.Strengths,
		ImprovementAreas: payload.ImprovementAreas,
		Source:           SourceOracle,
	}, nil
}

// ExtractJSON strips markdown fences and surrounding prose from a model response
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

func decodeStrict(body string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("malformed response: trailing data")
	}
	return nil
}

func toInt(v float64) int {
	return Clamp(int(math.Round(v)))
}
