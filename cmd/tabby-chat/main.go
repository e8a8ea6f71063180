// tabby-chat is a small debug client for the Tabby provider adapter:
// it sends one prompt to a Tabby server and prints the streamed answer.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jessevdk/go-flags"

	"github.com/EternisAI/tabby-provider/pkg/config"
	"github.com/EternisAI/tabby-provider/pkg/provider"
	"github.com/EternisAI/tabby-provider/pkg/provider/tabby"
)

type options struct {
	Endpoint string        `long:"endpoint" description:"Tabby server URL (overrides TABBY_ENDPOINT)"`
	Token    string        `long:"token" description:"Access token (overrides TABBY_TOKEN)"`
	Model    string        `long:"model" description:"Chat model id to request"`
	System   string        `long:"system" description:"System prompt prepended to the conversation"`
	Timeout  time.Duration `long:"timeout" description:"Per-request timeout (overrides TABBY_REQUEST_TIMEOUT)"`
	NoStream bool          `long:"no-stream" description:"Use a blocking completion instead of streaming"`
	Health   bool          `long:"health" description:"Print server health and exit"`
	Models   bool          `long:"models" description:"List served models and exit"`
	Verbose  bool          `short:"v" long:"verbose" description:"Enable debug logging"`
}

// applyOverrides layers command-line flags over the environment config.
func applyOverrides(cfg *config.Config, opts options) {
	if opts.Endpoint != "" {
		cfg.Endpoint = opts.Endpoint
	}
	if opts.Token != "" {
		cfg.Token = opts.Token
	}
	if opts.Model != "" {
		cfg.ChatModel = opts.Model
	}
	if opts.Timeout > 0 {
		cfg.RequestTimeout = opts.Timeout
	}
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] [PROMPT...]"

	args, err := parser.Parse()
	if err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
		TimeFormat:      time.Kitchen,
	})
	if opts.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := run(logger, opts, args); err != nil {
		logger.Fatal("tabby-chat failed", "error", err)
	}
}

func run(logger *log.Logger, opts options, args []string) error {
	cfg, err := config.LoadConfig(opts.Verbose)
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)
	if err := cfg.Normalize(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := provider.Open(ctx, tabby.Name, logger, cfg)
	if err != nil {
		return err
	}

	backend, ok := p.(*tabby.Provider)
	if !ok {
		return fmt.Errorf("unexpected provider type %T", p)
	}
	defer backend.Close()

	switch {
	case opts.Health:
		state, err := backend.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("model:      %s\nchat model: %s\ndevice:     %s\nversion:    %s\n",
			state.Model, state.ChatModel, state.Device, state.Version.GitDescribe)
		return nil

	case opts.Models:
		models, err := backend.Models(ctx)
		if err != nil {
			return err
		}
		for _, id := range models {
			fmt.Println(id)
		}
		return nil
	}

	prompt, err := readPrompt(args)
	if err != nil {
		return err
	}

	var messages []provider.Message
	if opts.System != "" {
		messages = append(messages, provider.SystemMessage(opts.System))
	}
	messages = append(messages, provider.UserMessage(prompt))

	req := provider.ChatRequest{Messages: messages, Model: opts.Model}

	var resp provider.ChatResponse
	if opts.NoStream {
		resp, err = p.Chat(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(resp.Text())
	} else {
		out := bufio.NewWriter(os.Stdout)
		resp, err = p.ChatStream(ctx, req).Wait(ctx, func(delta string) {
			_, _ = out.WriteString(delta)
			_ = out.Flush()
		})
		if err != nil {
			return err
		}
		_, _ = out.WriteString("\n")
		_ = out.Flush()
	}

	logger.Info("Usage",
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"total_tokens", resp.Usage.TotalTokens,
		"estimated", resp.Usage.Estimated)
	return nil
}

func readPrompt(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("no prompt given on the command line or stdin")
	}
	return prompt, nil
}
