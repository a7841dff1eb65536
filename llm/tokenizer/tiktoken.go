package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

type encodingInfo struct {
	encoding string
}

// modelEncodings maps model names to their tiktoken encodings.
var modelEncodings = map[string]encodingInfo{
	"gpt-4o":        {encoding: "o200k_base"},
	"gpt-4o-mini":   {encoding: "o200k_base"},
	"gpt-4-turbo":   {encoding: "cl100k_base"},
	"gpt-4":         {encoding: "cl100k_base"},
	"gpt-3.5-turbo": {encoding: "cl100k_base"},
}

// lookupEncoding resolves a model to its encoding, trying an exact match
// first and a prefix match second ("gpt-4o-2024-05-13" matches "gpt-4o").
func lookupEncoding(model string) (encodingInfo, bool) {
	if info, ok := modelEncodings[model]; ok {
		return info, true
	}
	for prefix, info := range modelEncodings {
		if strings.HasPrefix(model, prefix) {
			return info, true
		}
	}
	return encodingInfo{}, false
}

// Tiktoken counts tokens with the exact encoder for OpenAI-family models.
// Encoder initialization is lazy and may download encoding data on first
// use; if it fails the counter silently falls back to estimation.
type Tiktoken struct {
	model    string
	encoding string

	once     sync.Once
	enc      *tiktoken.Tiktoken
	fallback *Estimator
}

// NewTiktoken creates a tiktoken-backed counter for the given model.
// Unknown models use the cl100k_base encoding.
func NewTiktoken(model string) *Tiktoken {
	info, ok := lookupEncoding(model)
	if !ok {
		info = encodingInfo{encoding: "cl100k_base"}
	}
	return &Tiktoken{
		model:    model,
		encoding: info.encoding,
		fallback: NewEstimator(),
	}
}

func (t *Tiktoken) init() {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			return
		}
		t.enc = enc
	})
}

// CountTokens returns the token count of text under the model's encoding.
func (t *Tiktoken) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	t.init()
	if t.enc == nil {
		return t.fallback.CountTokens(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Name identifies the counter and its encoding.
func (t *Tiktoken) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}
