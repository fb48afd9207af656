// ABOUTME: Schema generator: turns a natural-language prompt into a UI schema.
// ABOUTME: Uses OpenAI or Anthropic when a key is configured, otherwise a static keyword fallback.

package generate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/2389/dic/internal/schema"
)

// Provider names accepted by Config.Provider.
const (
	ProviderAuto      = "auto"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderStatic    = "static"
)

const (
	defaultOpenAIModel    = "gpt-5-mini"
	defaultAnthropicModel = "claude-sonnet-4-5"
)

// Config selects and configures a provider.
type Config struct {
	Provider     string
	Model        string
	OpenAIKey    string
	AnthropicKey string
	Logger       *zap.Logger
}

// completer sends one system+user exchange to a model and returns its text.
type completer interface {
	complete(ctx context.Context, system, prompt string) (string, error)
}

// Generator creates schemas using a model provider or the static fallback.
type Generator struct {
	provider string
	model    string
	client   completer
	logger   *zap.Logger
}

// New picks a provider. With ProviderAuto the OpenAI key wins over the
// Anthropic key; with neither the static fallback is used.
func New(cfg Config) (*Generator, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{logger: logger.Named("generate"), model: cfg.Model}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == ProviderAuto {
		switch {
		case cfg.OpenAIKey != "":
			provider = ProviderOpenAI
		case cfg.AnthropicKey != "":
			provider = ProviderAnthropic
		default:
			provider = ProviderStatic
		}
	}

	switch provider {
	case ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("provider %s requires OPENAI_API_KEY", provider)
		}
		if g.model == "" {
			g.model = defaultOpenAIModel
		}
		g.client = newOpenAI(cfg.OpenAIKey, g.model)
	case ProviderAnthropic:
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("provider %s requires ANTHROPIC_API_KEY", provider)
		}
		if g.model == "" {
			g.model = defaultAnthropicModel
		}
		g.client = newAnthropic(cfg.AnthropicKey, g.model)
	case ProviderStatic:
		g.model = ""
	default:
		return nil, fmt.Errorf("unknown generate provider %q", cfg.Provider)
	}
	g.provider = provider

	if g.client != nil {
		g.logger.Info("AI schema generation enabled", zap.String("provider", provider), zap.String("model", g.model))
	} else {
		g.logger.Info("no API key configured, using static schema templates")
	}
	return g, nil
}

// Provider returns the selected provider name.
func (g *Generator) Provider() string { return g.provider }

// Generate builds a schema for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (schema.Schema, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, &Error{Provider: g.provider, Msg: "Prompt is required"}
	}
	if g.client == nil {
		return Static(prompt), nil
	}

	text, err := g.client.complete(ctx, systemPrompt, prompt)
	if err != nil {
		g.logger.Warn("provider call failed", zap.String("provider", g.provider), zap.Error(err))
		return nil, &Error{Provider: g.provider, Err: err}
	}
	s, err := Decode(text)
	if err != nil {
		g.logger.Warn("provider returned an unusable schema", zap.String("provider", g.provider), zap.Error(err))
		return nil, &Error{Provider: g.provider, Err: err, Msg: "The AI service returned an invalid schema"}
	}
	g.logger.Debug("schema generated", zap.Int("components", len(s)))
	return s, nil
}

// Error is a failed generation. Msg, when set, is safe to show to users.
type Error struct {
	Provider string
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("generate (%s): %s: %v", e.Provider, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("generate (%s): %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("generate (%s): %s", e.Provider, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the message shown in the editor.
func (e *Error) UserMessage() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "Failed to generate schema"
}
