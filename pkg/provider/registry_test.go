package provider

import (
	"context"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EternisAI/tabby-provider/pkg/config"
)

type fakeProvider struct {
	Provider
	initialized bool
}

func (f *fakeProvider) Initialize(ctx context.Context) error {
	f.initialized = true
	return nil
}

func TestRegistryOpen(t *testing.T) {
	fake := &fakeProvider{}
	Register("fake-backend", func(logger *log.Logger, cfg *config.Config) (Provider, error) {
		return fake, nil
	})

	p, err := Open(context.Background(), "fake-backend", log.Default(), &config.Config{})
	require.NoError(t, err)
	assert.Same(t, fake, p)
	assert.True(t, fake.initialized)
	assert.Contains(t, Names(), "fake-backend")
}

func TestRegistryUnknown(t *testing.T) {
	_, err := Open(context.Background(), "no-such-backend", log.Default(), &config.Config{})
	assert.ErrorContains(t, err, "unknown provider")
}

func TestRegisterDuplicatePanics(t *testing.T) {
	factory := func(logger *log.Logger, cfg *config.Config) (Provider, error) {
		return &fakeProvider{}, nil
	}
	Register("dup-backend", factory)
	assert.Panics(t, func() { Register("dup-backend", factory) })
}
