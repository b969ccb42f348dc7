package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/claim-processor/internal/infrastructure/resilience"
)

const generateOperation = "ollama.generate"

// Client implements ports.ModelOracle on top of the Ollama generate API.
type Client struct {
	baseURL    string
	genModel   string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel string, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.OracleConfig(0, true, 0))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// InvokeModel asks the model for a JSON answer. Transient failures are
// retried; the caller bounds the total time through ctx.
func (c *Client) InvokeModel(ctx context.Context, prompt string) (string, error) {
	out, err := resilience.ExecuteValue(ctx, c.executor, generateOperation, func(callCtx context.Context) (string, error) {
		return c.generateJSON(callCtx, prompt)
	}, classifyOllamaError)
	if err != nil {
		return "", wrapTemporaryIfNeeded(generateOperation, err)
	}
	return out, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": 0,
		},
	}
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
