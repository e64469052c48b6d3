package llm

import (
	"context"
	"strings"

	"github.com/emontero/opphunter/internal/core/domain"
)

// MockAnalyzer gives deterministic verdicts without network access. Texts
// containing "fintech", "funding" or "expansion" are treated as
// opportunities; everything else is rejected.
type MockAnalyzer struct{}

// NewMock creates a MockAnalyzer. Used when no API key is configured and in
// tests.
func NewMock() *MockAnalyzer {
	return &MockAnalyzer{}
}

func (m *MockAnalyzer) Analyze(_ context.Context, text, _, _ string) (*domain.AnalysisResult, error) {
	lower := strings.ToLower(text)

	for _, keyword := range []string{"fintech", "funding", "expansion"} {
		if strings.Contains(lower, keyword) {
			return &domain.AnalysisResult{
				IsOpportunity:      true,
				Reason:             "signal keyword matched",
				OpportunitySummary: truncate(text, 120),
				StrategicFit:       "matches core delivery capabilities",
				ProposedSolution:   "discovery engagement",
				ValueProposition:   "accelerate the announced initiative",
			}, nil
		}
	}

	return &domain.AnalysisResult{
		IsOpportunity: false,
		Reason:        "no actionable signal in text",
	}, nil
}
