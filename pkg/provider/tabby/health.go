package tabby

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/openai/openai-go"

	"github.com/EternisAI/tabby-provider/pkg/provider"
)

// HealthState is Tabby's /v1/health answer, reduced to the fields the
// adapter reports.
type HealthState struct {
	Model     string `json:"model"`
	ChatModel string `json:"chat_model"`
	Device    string `json:"device"`
	Version   struct {
		GitDescribe string `json:"git_describe"`
	} `json:"version"`
}

// Health probes the server's /v1/health endpoint.
func (p *Provider) Health(ctx context.Context) (HealthState, error) {
	client, ok := p.ready()
	if !ok {
		return HealthState{}, provider.ErrNotInitialized
	}
	return healthProbe(ctx, client)
}

func healthProbe(ctx context.Context, client *openai.Client) (HealthState, error) {
	var state HealthState
	if err := client.Get(ctx, "health", nil, &state); err != nil {
		return HealthState{}, errors.Wrap(err, "tabby health")
	}
	return state, nil
}

// Models lists the model ids the server advertises. Older Tabby builds do
// not serve /v1/models; the wrapped error tells those apart.
func (p *Provider) Models(ctx context.Context) ([]string, error) {
	client, ok := p.ready()
	if !ok {
		return nil, provider.ErrNotInitialized
	}

	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "tabby model list")
	}
	return lo.Map(page.Data, func(m openai.Model, _ int) string {
		return m.ID
	}), nil
}
