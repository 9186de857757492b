package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	aiplatform "google.golang.org/api/aiplatform/v1"
	goption "google.golang.org/api/option"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	defaultTimeout = 30 * time.Second
)

// Gemini asks a Gemini publisher model on Vertex AI for insights in a single
// attempt.
type Gemini struct {
	svc     *aiplatform.Service
	model   string
	timeout time.Duration
}

var _ Generator = (*Gemini)(nil)

// NewGemini builds a client authenticated with an API key. Extra options are
// appended after the key, which lets tests point the client at a fake server.
func NewGemini(ctx context.Context, apiKey, model string, opts ...goption.ClientOption) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if model == "" {
		model = DefaultModel
	}

	svc, err := aiplatform.NewService(ctx, append([]goption.ClientOption{goption.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create aiplatform service: %w", err)
	}
	return &Gemini{svc: svc, model: model, timeout: defaultTimeout}, nil
}

func (g *Gemini) Generate(ctx context.Context, summary core.PeriodSummary, periodLabel string) []string {
	out, err := g.generate(ctx, summary, periodLabel)
	if err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentInsights).WarnContext(ctx, "Insight generation failed, continuing without insights",
			"model", g.model,
			"period", periodLabel,
			"error", err)
		return nil
	}
	return out
}

func (g *Gemini) generate(ctx context.Context, summary core.PeriodSummary, periodLabel string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := &aiplatform.GoogleCloudAiplatformV1GenerateContentRequest{
		Contents: []*aiplatform.GoogleCloudAiplatformV1Content{{
			Role:  "user",
			Parts: []*aiplatform.GoogleCloudAiplatformV1Part{{Text: Prompt(summary, periodLabel)}},
		}},
		GenerationConfig: &aiplatform.GoogleCloudAiplatformV1GenerationConfig{
			ResponseMimeType: "application/json",
		},
	}

	resp, err := g.svc.Publishers.Models.GenerateContent(modelName(g.model), req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	var text strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil {
				text.WriteString(p.Text)
			}
		}
		break
	}
	return Parse(text.String())
}

// modelName expands a bare model id to its publisher resource name. Full
// resource names pass through unchanged.
func modelName(model string) string {
	if strings.Contains(model, "/") {
		return model
	}
	return "publishers/google/models/" + model
}
