// Package tokens estimates token counts for text the adapter sends and
// receives. Tabby does not report usage on every code path, so the framework
// falls back to a cheap heuristic rather than shipping a model tokenizer.
package tokens

import (
	"github.com/samber/lo"

	"github.com/EternisAI/tabby-provider/pkg/provider"
)

// Estimator estimates the token count of a piece of text.
type Estimator interface {
	Count(text string) int
}

// bytesPerToken is the usual English-text average for BPE vocabularies.
const bytesPerToken = 4

// messageOverhead approximates the role and framing tokens each chat message
// costs on the wire.
const messageOverhead = 3

// Heuristic estimates ceil(len/4) tokens. Close enough for budgeting and
// telemetry; never used for billing.
type Heuristic struct{}

func (Heuristic) Count(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + bytesPerToken - 1) / bytesPerToken
}

// Messages estimates the prompt cost of a chat transcript, including tool
// call payloads.
func Messages(est Estimator, messages []provider.Message) int {
	return lo.SumBy(messages, func(msg provider.Message) int {
		n := messageOverhead + est.Count(msg.Content) + est.Count(msg.Name)
		for _, tc := range msg.ToolCalls {
			n += est.Count(tc.Function.Name) + est.Count(tc.Function.Arguments)
		}
		return n
	})
}
