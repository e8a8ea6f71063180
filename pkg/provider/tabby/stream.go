package tabby

import (
	"context"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/pkg/errors"

	"github.com/EternisAI/tabby-provider/pkg/provider"
)

// ChatStream implements provider.Provider. Content deltas are forwarded as
// they arrive; the accumulated message and usage are delivered on Final.
//
// If the chat stream fails before any content has been delivered, the
// request is retried once against Tabby's legacy text-completion endpoint
// and its answer is emitted as a single chunk. Older Tabby deployments run
// without a chat model loaded, and the legacy endpoint is the only thing
// they serve.
func (p *Provider) ChatStream(ctx context.Context, req provider.ChatRequest) provider.Stream {
	contentCh := make(chan string, 64)
	finalCh := make(chan provider.ChatResponse, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(contentCh)
		defer close(finalCh)
		defer close(errCh)

		client, ok := p.ready()
		if !ok {
			errCh <- provider.ErrNotInitialized
			return
		}
		if err := req.Validate(); err != nil {
			errCh <- err
			return
		}
		if err := p.wait(ctx); err != nil {
			errCh <- err
			return
		}

		reqID := uuid.NewString()
		params := p.chatParams(req)
		p.logger.Debug("Chat stream", "id", reqID, "model", params.Model, "messages", len(req.Messages))

		stream := client.Chat.Completions.NewStreaming(ctx, params)
		defer func() {
			_ = stream.Close()
		}()

		acc := openai.ChatCompletionAccumulator{}
		delivered := false

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				select {
				case contentCh <- chunk.Choices[0].Delta.Content:
					delivered = true
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			if ctx.Err() != nil {
				errCh <- ctx.Err()
				return
			}
			if delivered {
				// Content already reached the caller; a silent retry would
				// duplicate it.
				errCh <- errors.Wrap(err, "tabby chat stream")
				return
			}

			p.logger.Warn("Chat stream failed, falling back to text completion", "id", reqID, "error", err)
			resp, ferr := p.completeFallback(ctx, req)
			if ferr != nil {
				errCh <- ferr
				return
			}
			if resp.Message.Content != "" {
				select {
				case contentCh <- resp.Message.Content:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
			finalCh <- resp
			return
		}

		if len(acc.Choices) == 0 {
			errCh <- provider.ErrNoChoices
			return
		}

		choice := acc.Choices[0]
		msg := provider.FromOpenAIMessage(choice.Message)
		resp := provider.ChatResponse{
			Message:      msg,
			Model:        acc.Model,
			FinishReason: string(choice.FinishReason),
			Usage:        p.usage(req.Messages, msg.Content, acc.Usage),
		}
		p.logger.Debug("Chat stream done",
			"id", reqID,
			"finish_reason", resp.FinishReason,
			"total_tokens", resp.Usage.TotalTokens,
			"estimated", resp.Usage.Estimated)
		finalCh <- resp
	}()

	return provider.Stream{
		Content: contentCh,
		Final:   finalCh,
		Err:     errCh,
	}
}
