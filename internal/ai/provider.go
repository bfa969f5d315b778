package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable marks a provider that is not configured or not reachable.
var ErrUnavailable = errors.New("ai provider unavailable")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type IProvider interface {
	Name() string
	Embed(ctx context.Context, model string, text string) ([]float32, error)
	Complete(ctx context.Context, model string, system string, history []Message) (string, error)
	// CompleteStream emits reply tokens through fn as they arrive. Providers
	// without a native stream deliver the whole reply in one call.
	CompleteStream(ctx context.Context, model string, system string, history []Message, fn func(token string) error) error
}

// IEmbedder converts text into a fixed-dimension vector.
type IEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// ICompleter answers a conversation constrained by a system instruction.
type ICompleter interface {
	Complete(ctx context.Context, system string, history []Message) (string, error)
	CompleteStream(ctx context.Context, system string, history []Message, fn func(token string) error) error
}

type embedder struct {
	provider IProvider
	model    string
}

func NewEmbedder(p IProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.provider.Embed(ctx, e.model, text)
}

func (e *embedder) ModelName() string {
	return e.model
}

type completer struct {
	provider IProvider
	model    string
}

func NewCompleter(p IProvider, model string) ICompleter {
	return &completer{provider: p, model: model}
}

func (c *completer) Complete(ctx context.Context, system string, history []Message) (string, error) {
	return c.provider.Complete(ctx, c.model, system, history)
}

func (c *completer) CompleteStream(ctx context.Context, system string, history []Message, fn func(token string) error) error {
	return c.provider.CompleteStream(ctx, c.model, system, history, fn)
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode provider config: %w", err)
	}
	return nil
}
