package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"veridoc/internal/core/domain"
	"veridoc/internal/infrastructure/resilience"
)

type Client struct {
	baseURL     string
	genModel    string
	embedModel  string
	httpClient  *http.Client
	limiter     *rate.Limiter
	executor    *resilience.Executor
	callTimeout time.Duration
}

type Options struct {
	// MaxCallsPerSecond throttles outbound generation/embedding requests.
	// Zero disables throttling.
	MaxCallsPerSecond float64
	// CallTimeout is the wall-clock budget per external call. A timeout is
	// treated the same as a failed generation by the callers' fallbacks.
	CallTimeout time.Duration
	// Executor, when set, wraps calls with retry and circuit breaking.
	Executor *resilience.Executor
}

func New(baseURL, genModel, embedModel string, opts Options) *Client {
	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 120 * time.Second
	}
	var limiter *rate.Limiter
	if opts.MaxCallsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.MaxCallsPerSecond), 1)
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		genModel:    genModel,
		embedModel:  embedModel,
		httpClient:  &http.Client{Timeout: callTimeout},
		limiter:     limiter,
		executor:    opts.Executor,
		callTimeout: callTimeout,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "embed", func(callCtx context.Context) error {
		return e.client.postJSON(callCtx, "/api/embed", request, &response, "embed")
	}); err != nil {
		if IsTokenLimitError(err) {
			return nil, domain.WrapError(domain.ErrInputTooLong, "embed", err)
		}
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

// GenerateAnswer produces a grounded prose answer. Cleaning prompt-leakage
// artifacts out of the raw model output is part of the contract, not
// cosmetics.
func (g *Generator) GenerateAnswer(ctx context.Context, question string, contexts []string, temperature float64) (string, error) {
	raw, err := g.client.generateText(ctx, buildAnswerPrompt(question, contexts), temperature)
	if err != nil {
		return "", err
	}
	return CleanModelOutput(raw), nil
}

func (g *Generator) GenerateFromPrompt(ctx context.Context, prompt string, temperature float64) (string, error) {
	raw, err := g.client.generateText(ctx, prompt, temperature)
	if err != nil {
		return "", err
	}
	return CleanModelOutput(raw), nil
}

// CompressContext condenses the retrieved passages into one dense summary.
// Best-effort: callers fall back to the raw contexts on error or empty
// output.
func (g *Generator) CompressContext(ctx context.Context, question string, contexts []string) (string, error) {
	raw, err := g.client.generateText(ctx, buildCompressionPrompt(question, contexts), 0)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (c *Client) generateText(ctx context.Context, prompt string, temperature float64) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": temperature,
		},
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.call(ctx, "generate", func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/generate", reqBody, &response, "generate")
	}); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	budgeted := func(callCtx context.Context) error {
		callCtx, cancel := context.WithTimeout(callCtx, c.callTimeout)
		defer cancel()
		return fn(callCtx)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, budgeted, classifyOllamaError)
	} else {
		err = budgeted(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}
