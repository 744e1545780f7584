// Package tokencount provides tiktoken-based token counting used to
// reserve rate-limit budget before an LLM call is made.
//
// Grounded on the teacher's pkg/utils/tiktoken.go TokenCounter, trimmed
// to the one encoding this system needs: every provider here (Claude,
// GPT, Gemini, Ollama) is approximated with the GPT-4 encoding, same as
// the teacher does for its own Claude/O3 models, since none of the
// provider SDKs in use expose an exact pre-call tokenizer.
package tokencount

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens in text using the GPT-4 byte-pair encoding.
type Counter struct {
	codec tokenizer.Codec
}

var (
	shared     *Counter
	sharedOnce sync.Once
)

// Shared returns a process-wide Counter, lazily built once. Building
// the codec is the only fallible step; if it fails Shared falls back
// to a nil codec and Count degrades to character-based estimation.
func Shared() *Counter {
	sharedOnce.Do(func() {
		codec, err := tokenizer.ForModel(tokenizer.GPT4)
		if err != nil {
			shared = &Counter{}
			return
		}
		shared = &Counter{codec: codec}
	})
	return shared
}

// Count returns the number of tokens in text, falling back to a
// 4-characters-per-token estimate if the codec is unavailable or
// fails to encode the text.
func (c *Counter) Count(text string) int {
	if c == nil || c.codec == nil {
		return len(text) / 4
	}
	n, err := c.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return n
}
