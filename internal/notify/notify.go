// Package notify delivers opportunity alerts. The message carries feedback
// affordances (buttons or links) that flow back through the feedback server
// into the learning loop.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/emontero/opphunter/internal/core/domain"
)

// Notifier delivers one analyzed candidate to the routed channel.
type Notifier interface {
	Notify(ctx context.Context, c domain.Candidate, result *domain.AnalysisResult) error
}

// Router maps a candidate's country to a notification channel, falling back
// to the default for unlisted countries. Immutable after construction.
type Router struct {
	routing        map[string]string
	defaultChannel string
}

// NewRouter builds the routing table from the profile.
func NewRouter(routing map[string]string, defaultChannel string) *Router {
	return &Router{routing: routing, defaultChannel: defaultChannel}
}

// Channel resolves the destination for a country code.
func (r *Router) Channel(country string) string {
	if ch, ok := r.routing[strings.ToUpper(country)]; ok {
		return ch
	}

	return r.defaultChannel
}

// formatAlert renders the shared alert body used by every notifier.
func formatAlert(c domain.Candidate, result *domain.AnalysisResult) string {
	var sb strings.Builder

	company := result.CompanyName
	if company == "" {
		company = c.CompanyName
	}

	if company != "" {
		sb.WriteString(fmt.Sprintf("*%s*\n", company))
	}

	sb.WriteString(c.Headline)
	sb.WriteString("\n\n")

	if result.OpportunitySummary != "" {
		sb.WriteString(result.OpportunitySummary)
		sb.WriteString("\n\n")
	}

	if result.StrategicFit != "" {
		sb.WriteString("Fit: " + result.StrategicFit + "\n")
	}

	if result.ProposedSolution != "" {
		sb.WriteString("Pitch: " + result.ProposedSolution + "\n")
	}

	if result.ValueProposition != "" {
		sb.WriteString("Value: " + result.ValueProposition + "\n")
	}

	sb.WriteString("\n" + c.SourceURL)

	return sb.String()
}
