package quality

import "fmt"

// OriginalityReport is the result of an originality check. Status stays
// "unknown" until a real detection provider is integrated.
type OriginalityReport struct {
	Status             string   `json:"status"`
	Provider           string   `json:"provider"`
	Note               string   `json:"note"`
	SimilarityScore    *float64 `json:"similarity_score"`
	SuspiciousPassages []string `json:"suspicious_passages"`
}

// OriginalityChecker is the seam for plagiarism detection backends.
type OriginalityChecker interface {
	Name() string
	Check(html string) OriginalityReport
}

// PlaceholderChecker is the default no-op provider.
type PlaceholderChecker struct{}

func (PlaceholderChecker) Name() string { return "placeholder" }

func (PlaceholderChecker) Check(string) OriginalityReport {
	return OriginalityReport{
		Status:   "unknown",
		Provider: "placeholder",
		Note:     "Originality checking not implemented. Integration point ready for Copyscape or similar service.",
	}
}

type unknownChecker struct {
	provider string
}

func (c unknownChecker) Name() string { return "unknown" }

func (c unknownChecker) Check(string) OriginalityReport {
	return OriginalityReport{
		Status:   "unknown",
		Provider: "unknown",
		Note:     fmt.Sprintf("Unsupported provider: %s", c.provider),
	}
}

// NewOriginalityChecker resolves a provider name to a checker. Unknown names
// yield a checker that reports the misconfiguration instead of failing the
// assessment.
func NewOriginalityChecker(provider string) OriginalityChecker {
	switch provider {
	case "", "placeholder":
		return PlaceholderChecker{}
	default:
		return unknownChecker{provider: provider}
	}
}
