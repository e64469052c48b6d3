package domain

// AnalysisResult is the structured output of the expensive analysis backend
// for one candidate. When IsOpportunity is false only Reason is populated;
// it feeds the learning loop as a negative signal, not a pipeline failure.
type AnalysisResult struct {
	IsOpportunity      bool   `json:"is_opportunity"`
	Reason             string `json:"reason,omitempty"`
	CompanyName        string `json:"company_name,omitempty"`
	OpportunitySummary string `json:"opportunity_summary,omitempty"`
	StrategicFit       string `json:"strategic_fit,omitempty"`
	ProposedSolution   string `json:"proposed_solution,omitempty"`
	ValueProposition   string `json:"value_proposition,omitempty"`
}
