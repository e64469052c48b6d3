package llm

import (
	"fmt"
	"strings"

	"github.com/emontero/opphunter/internal/core/domain"
)

const maxPromptRunes = 6000

const analysisInstructions = `You are a senior business-development analyst for a technology consultancy. Assess whether the text below describes a concrete commercial opportunity: a company announcing funding, expansion, a new product line, a digital-transformation initiative, or hiring that signals a build-out we could serve.

Return ONLY a JSON object with these keys:
- is_opportunity (boolean): true only if there is a concrete, actionable opening
- reason (string): one sentence justifying the verdict; for rejections name the disqualifier
- company_name (string): the company at the center of the signal, or "" if none
- opportunity_summary (string): 1-2 sentences on what is happening and why now
- strategic_fit (string): how the opening maps to consulting or software-delivery services
- proposed_solution (string): the concrete engagement we would pitch
- value_proposition (string): the one-line pitch to open a conversation with them

Rules:
- Funding rounds, market entries, and platform rebuilds are opportunities; opinion pieces, market overviews, and closed deals with no follow-on work are not.
- If the signal is about a competitor's win rather than a prospect's need, set is_opportunity to false.
- Keep every string under 60 words. No markdown, no text outside the JSON object.`

const jobInstructions = `The text is a job posting. A posting is an opportunity when the role implies a project our consultancy could staff or deliver outright (new platform team, first data hire, large migration), not routine backfill.`

// buildAnalysisPrompt assembles the user message for one candidate.
func buildAnalysisPrompt(text, sourceType string) string {
	var sb strings.Builder

	sb.WriteString(analysisInstructions)

	if sourceType == domain.SourceTypeJob {
		sb.WriteString("\n\n")
		sb.WriteString(jobInstructions)
	}

	sb.WriteString("\n\nText:\n")
	sb.WriteString(truncate(text, maxPromptRunes))

	return sb.String()
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}

	return fmt.Sprintf("%s...", string(runes[:maxRunes]))
}
