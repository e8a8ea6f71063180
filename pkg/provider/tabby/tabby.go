// Package tabby adapts a self-hosted Tabby server to the generic provider
// interface. Tabby exposes an OpenAI-compatible API under /v1, so the heavy
// lifting (transport, SSE parsing) is delegated to openai-go; this package
// only normalizes configuration, resolves credentials and maps types.
package tabby

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/pkg/errors"

	"github.com/EternisAI/tabby-provider/pkg/config"
	"github.com/EternisAI/tabby-provider/pkg/credentials"
	"github.com/EternisAI/tabby-provider/pkg/provider"
	"github.com/EternisAI/tabby-provider/pkg/tokens"
)

// Name is the registry name of this backend.
const Name = "tabby"

func init() {
	provider.Register(Name, func(logger *log.Logger, cfg *config.Config) (provider.Provider, error) {
		return New(logger, cfg)
	})
}

var _ provider.Provider = (*Provider)(nil)

// Provider talks to one Tabby server. The zero lifecycle is strict: New
// performs no I/O, Initialize resolves credentials and builds the client,
// and every completion method fails with provider.ErrNotInitialized until
// Initialize has returned nil.
type Provider struct {
	cfg       *config.Config
	logger    *log.Logger
	estimator tokens.Estimator
	limiter   *Limiter

	mu          sync.Mutex
	client      *openai.Client
	creds       credentials.ServerCredentials
	initialized bool
}

// New constructs an uninitialized provider. cfg must be non-nil and
// normalized (config.LoadConfig or Config.Normalize).
func New(logger *log.Logger, cfg *config.Config) (*Provider, error) {
	if cfg == nil {
		return nil, errors.New("tabby: nil config")
	}
	if logger == nil {
		logger = log.Default()
	}

	p := &Provider{
		cfg:       cfg,
		logger:    logger,
		estimator: tokens.Heuristic{},
	}
	if cfg.RequestsPerMinute > 0 {
		p.limiter = NewLimiter(cfg.RequestsPerMinute, time.Minute)
	}
	return p, nil
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return Name }

// Initialize resolves credentials, builds the OpenAI-compatible client and
// probes the server. It is idempotent; concurrent calls are serialized and
// later ones return immediately.
func (p *Provider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	creds := credentials.Resolve(p.logger, p.cfg)
	endpoint := creds.Endpoint
	if endpoint == "" {
		endpoint = p.cfg.Endpoint
	}

	opts := []option.RequestOption{
		option.WithBaseURL(endpoint + "/v1"),
		option.WithAPIKey(creds.Token),
		option.WithMaxRetries(2),
	}
	if p.cfg.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(p.cfg.RequestTimeout))
	}

	client := openai.NewClient(opts...)
	p.client = &client
	p.creds = creds

	// Health is informational: older Tabby builds do not serve /v1/health,
	// and a cold server should not keep the adapter from coming up.
	if state, err := healthProbe(ctx, p.client); err != nil {
		p.logger.Warn("Tabby health probe failed", "endpoint", endpoint, "error", err)
	} else {
		p.logger.Info("Connected to Tabby",
			"endpoint", endpoint,
			"model", state.Model,
			"chat_model", state.ChatModel,
			"device", state.Device,
			"token_source", creds.Source)
	}

	p.initialized = true
	return nil
}

func (p *Provider) ready() (*openai.Client, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client, p.initialized
}

// CountTokens implements provider.Provider with the length/4 heuristic.
func (p *Provider) CountTokens(text string) int {
	return p.estimator.Count(text)
}

// Chat implements provider.Provider with a blocking chat completion.
func (p *Provider) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	client, ok := p.ready()
	if !ok {
		return provider.ChatResponse{}, provider.ErrNotInitialized
	}
	if err := req.Validate(); err != nil {
		return provider.ChatResponse{}, err
	}
	if err := p.wait(ctx); err != nil {
		return provider.ChatResponse{}, err
	}

	reqID := uuid.NewString()
	params := p.chatParams(req)
	p.logger.Debug("Chat completion", "id", reqID, "model", params.Model, "messages", len(req.Messages))

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return provider.ChatResponse{}, errors.Wrap(err, "tabby chat completion")
	}
	if len(completion.Choices) == 0 {
		return provider.ChatResponse{}, provider.ErrNoChoices
	}

	choice := completion.Choices[0]
	msg := provider.FromOpenAIMessage(choice.Message)
	resp := provider.ChatResponse{
		Message:      msg,
		Model:        completion.Model,
		FinishReason: string(choice.FinishReason),
		Usage:        p.usage(req.Messages, msg.Content, completion.Usage),
	}
	p.logger.Debug("Chat completion done",
		"id", reqID,
		"finish_reason", resp.FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
		"estimated", resp.Usage.Estimated)
	return resp, nil
}

func (p *Provider) chatParams(req provider.ChatRequest) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = p.cfg.ChatModel
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: provider.ToOpenAIMessages(req.Messages),
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
	if req.User != "" {
		params.User = param.NewOpt(req.User)
	}
	return params
}

// usage passes server numbers through and falls back to the heuristic when
// the server reported nothing. Tabby builds differ on whether usage is
// populated, so a zero total counts as missing.
func (p *Provider) usage(prompt []provider.Message, output string, reported openai.CompletionUsage) provider.Usage {
	if reported.TotalTokens > 0 {
		return provider.Usage{
			PromptTokens:     reported.PromptTokens,
			CompletionTokens: reported.CompletionTokens,
			TotalTokens:      reported.TotalTokens,
		}
	}

	in := int64(tokens.Messages(p.estimator, prompt))
	out := int64(p.estimator.Count(output))
	return provider.Usage{
		PromptTokens:     in,
		CompletionTokens: out,
		TotalTokens:      in + out,
		Estimated:        true,
	}
}

func (p *Provider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// Close releases background resources. Safe on an uninitialized provider.
func (p *Provider) Close() {
	if p.limiter != nil {
		p.limiter.Stop()
	}
}
