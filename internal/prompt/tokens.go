package prompt

// EstimateTokens approximates the token cost of text as len/4. This is a
// deterministic budgeting heuristic, not the provider's tokenizer; actual
// billed usage comes back on the completion response.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Budget derives the packer's context limit from the completion service's
// window, reduced by a safety margin.
type Budget struct {
	MaxModelTokens  int
	SafetyThreshold float64
}

func (b Budget) ContextLimit() int {
	return int(float64(b.MaxModelTokens) * b.SafetyThreshold)
}
