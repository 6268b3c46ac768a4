package model

// TestCaseResult is the judge's outcome for a single test case, paired
// by position against the stored test case list.
type TestCaseResult struct {
	TestCaseID     string  `json:"testCaseId"`
	Input          string  `json:"input"`
	ExpectedOutput string  `json:"expectedOutput"`
	ActualOutput   string  `json:"actualOutput"`
	Matches        bool    `json:"matches"`
	Error          *string `json:"error"`
}

// Verdict is the full outcome of one evaluation. It is ephemeral: the
// only persisted trace is the submission's status. The whole verdict,
// aggregate fields included, is what the cache stores.
type Verdict struct {
	Status         SubmissionStatus `json:"status"`
	Suggestion     string           `json:"suggestion"`
	DetailedStatus string           `json:"detailedStatus"`
	Results        []TestCaseResult `json:"results"`
}

// Passed reports whether every test case matched.
func (v *Verdict) Passed() bool {
	for _, r := range v.Results {
		if !r.Matches {
			return false
		}
	}
	return true
}
