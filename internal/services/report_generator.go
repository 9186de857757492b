package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/insights"
)

// GeneratedReport is the content of one user's periodic report.
type GeneratedReport struct {
	Period   string
	From     time.Time
	To       time.Time
	Summary  core.PeriodSummary
	Insights []string
}

// ReportGenerator computes the summary for a period and decorates it with
// insights.
type ReportGenerator struct {
	summaries SummaryProvider
	insights  insights.Generator
}

func NewReportGenerator(summaries SummaryProvider, gen insights.Generator) *ReportGenerator {
	if gen == nil {
		gen = insights.Disabled{}
	}
	return &ReportGenerator{summaries: summaries, insights: gen}
}

// Generate returns nil without error when the user recorded neither income
// nor expenses in [from, to].
func (g *ReportGenerator) Generate(ctx context.Context, userID string, from, to time.Time) (*GeneratedReport, error) {
	summary, err := g.summaries.PeriodSummary(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("period summary: %w", err)
	}
	if !summary.HasActivity() {
		return nil, nil
	}

	label := core.PeriodLabel(from, to)
	return &GeneratedReport{
		Period:   label,
		From:     from,
		To:       to,
		Summary:  summary,
		Insights: g.insights.Generate(ctx, summary, label),
	}, nil
}
