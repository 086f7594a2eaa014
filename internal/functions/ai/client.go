package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var (
	// ErrNotConfigured indicates the AI client has no API key
	ErrNotConfigured = errors.New("AI client not configured")
	// ErrAPICallFailed indicates the AI API call failed
	ErrAPICallFailed = errors.New("AI API call failed")
	// ErrInvalidResponse indicates an empty or malformed response from the AI API
	ErrInvalidResponse = errors.New("invalid AI API response")
)

// SystemPrompt frames every classification request
const SystemPrompt = "You analyze hotel emails and extract HCN numbers. Respond with JSON only."

// Request parameters used for classification
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 300
	requestTimeout     = 30 * time.Second
)

// Client sends classification prompts to an OpenAI compatible endpoint
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
	configured  bool
}

// NewClient creates a client. An empty baseURL uses the public OpenAI API.
func NewClient(apiKey, model, baseURL string) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(1),
		option.WithRequestTimeout(requestTimeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(baseURL, "/")+"/"))
	}
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		configured:  apiKey != "",
	}
}

// IsConfigured returns whether the client has credentials
func (c *Client) IsConfigured() bool {
	return c.configured
}

// Model returns the model name sent with each request
func (c *Client) Model() string {
	return c.model
}

// Complete sends the prompt and returns the raw text of the first choice
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(c.maxTokens),
		Temperature: openai.Float(c.temperature),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrInvalidResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content", ErrInvalidResponse)
	}
	return content, nil
}
