package domain

// Domain contains the internal event model handed to service adapters.

// Event names understood by the adapters.
const (
	EventTest          = "test"
	EventIssue         = "issue"
	EventQuality       = "quality"
	EventVulnerability = "vulnerability"
	EventCoverage      = "coverage"
	EventUnit          = "unit"
)

// Event is one notification raised by the analysis pipeline.
type Event struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RepoName   string `json:"repo_name"`
	DetailsURL string `json:"details_url"`

	// quality
	ConstantName   string `json:"constant_name,omitempty"`
	Rating         string `json:"rating,omitempty"`
	PreviousRating string `json:"previous_rating,omitempty"`

	Issue           *Issue          `json:"issue,omitempty"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities,omitempty"`

	// coverage
	Coverage         float64 `json:"coverage,omitempty"`
	PreviousCoverage float64 `json:"previous_coverage,omitempty"`

	// unit
	TestName    string `json:"test_name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Issue describes a single code-quality finding.
type Issue struct {
	CheckName   string `json:"check_name"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
}

// Vulnerability describes a single security warning.
type Vulnerability struct {
	WarningType string `json:"warning_type"`
	Location    string `json:"location"`
}

// Declined reports whether the quality rating got worse. Ratings are letter
// grades, so a later letter is a worse grade.
func (e Event) Declined() bool {
	return e.Rating > e.PreviousRating
}
