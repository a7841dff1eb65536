// Package tokenizer provides best-effort token counting, used for usage
// accounting when a backend omits usage numbers from its responses.
package tokenizer

// Tokenizer counts tokens in a piece of text. Counting never fails;
// implementations degrade to estimation rather than returning errors.
type Tokenizer interface {
	CountTokens(text string) int
	Name() string
}

// ForModel returns the most accurate tokenizer available for the model:
// a tiktoken encoder for OpenAI-family models, the character-ratio
// estimator for everything else.
func ForModel(model string) Tokenizer {
	if _, ok := lookupEncoding(model); ok {
		return NewTiktoken(model)
	}
	return NewEstimator()
}
