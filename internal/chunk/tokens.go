package chunk

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// heuristicCharsPerToken approximates tokens when no tokenizer is available.
const heuristicCharsPerToken = 4

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// EstimateTokens estimates the token count of text. Uses a BPE tokenizer when
// one can be loaded (cached after first use), otherwise the chars/4 heuristic.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})

	if encoding != nil {
		return len(encoding.Encode(text, nil, nil))
	}
	return len(text) / heuristicCharsPerToken
}
