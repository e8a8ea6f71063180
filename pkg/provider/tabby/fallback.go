package tabby

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
	"github.com/pkg/errors"

	"github.com/EternisAI/tabby-provider/pkg/provider"
)

// completeFallback renders the chat transcript to plain text and runs it
// through the legacy /v1/completions endpoint.
func (p *Provider) completeFallback(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	client, ok := p.ready()
	if !ok {
		return provider.ChatResponse{}, provider.ErrNotInitialized
	}
	if err := p.wait(ctx); err != nil {
		return provider.ChatResponse{}, err
	}

	model := req.Model
	if model == "" {
		model = p.cfg.CompletionModel
	}

	params := openai.CompletionNewParams{
		Model: openai.CompletionNewParamsModel(model),
		Prompt: openai.CompletionNewParamsPromptUnion{
			OfString: param.NewOpt(provider.RenderTranscript(req.Messages)),
		},
	}
	if req.Temperature != nil {
		params.Temperature = param.NewOpt(*req.Temperature)
	} else {
		params.Temperature = param.NewOpt(p.cfg.Temperature)
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxOutputTokens
	}
	if maxTokens > 0 {
		params.MaxTokens = param.NewOpt(maxTokens)
	}

	completion, err := client.Completions.New(ctx, params)
	if err != nil {
		return provider.ChatResponse{}, errors.Wrap(err, "tabby text completion fallback")
	}
	if len(completion.Choices) == 0 {
		return provider.ChatResponse{}, provider.ErrNoChoices
	}

	choice := completion.Choices[0]
	content := strings.TrimLeft(choice.Text, " \n")
	return provider.ChatResponse{
		Message:      provider.AssistantMessage(content, nil),
		Model:        completion.Model,
		FinishReason: string(choice.FinishReason),
		Usage:        p.usage(req.Messages, content, completion.Usage),
	}, nil
}
