package utils

import (
	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// CountTokens returns the number of tokens the given text occupies
// under the cl100k_base encoding. Falls back to a rough estimate of
// four characters per token when the encoding cannot be loaded.
func CountTokens(text string) int {
	enc, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
