package domain

import "time"

// Status is the lifecycle state of a Candidate. A candidate row is never
// deleted; it is the permanent audit record of a disposition.
type Status string

// Candidate status constants.
const (
	StatusDetected   Status = "detected"
	StatusNotified   Status = "notified"
	StatusRelevant   Status = "relevant"
	StatusIrrelevant Status = "irrelevant"
	StatusPending    Status = "pending"
	StatusAIRejected Status = "ai_rejected"
)

// statusTransitions encodes the allowed state machine edges.
// detected → notified|ai_rejected|pending, pending re-enters the pipeline on
// the next cycle, notified → relevant|irrelevant, and repeated user feedback
// may flip relevant ↔ irrelevant.
var statusTransitions = map[Status][]Status{
	StatusDetected:   {StatusNotified, StatusAIRejected, StatusPending},
	StatusPending:    {StatusNotified, StatusAIRejected, StatusPending},
	StatusNotified:   {StatusRelevant, StatusIrrelevant},
	StatusRelevant:   {StatusRelevant, StatusIrrelevant},
	StatusIrrelevant: {StatusRelevant, StatusIrrelevant},
}

// Valid reports whether s is one of the six recognized statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDetected, StatusNotified, StatusRelevant, StatusIrrelevant, StatusPending, StatusAIRejected:
		return true
	}

	return false
}

// CanTransition reports whether the state machine allows moving from one
// status to another. Transitions never skip or reverse edges.
func CanTransition(from, to Status) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// Candidate is a discovered document awaiting or having received a relevance
// disposition.
type Candidate struct {
	ID           string
	SourceURL    string
	Headline     string
	Text         string
	SourceType   string
	CompanyName  string
	Country      string
	Status       Status
	Score        float32
	Rationale    string
	AnalysisJSON []byte
	DiscoveredAt time.Time
	ProcessedAt  time.Time
	NotifiedAt   time.Time
}

// Source type constants.
const (
	SourceTypeNews = "news"
	SourceTypeJob  = "job"
)
