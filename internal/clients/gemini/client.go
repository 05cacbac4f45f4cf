// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"google.golang.org/genai"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
)

const generateAction = "generateContent"

// DefaultModels is the preference order tried when no list is configured.
var DefaultModels = []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-flash"}

// Client implements the TextGenerator interface
type Client struct {
	client    *genai.Client
	preferred []string
	model     string
	logger    *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithPreferredModels sets the model preference order
func WithPreferredModels(models []string) ClientOption {
	return func(c *Client) {
		if len(models) > 0 {
			c.preferred = models
		}
	}
}

// WithModel pins a model and skips discovery
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client and resolves the model once.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client:    genaiClient,
		preferred: DefaultModels,
		logger:    common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.model == "" {
		available, err := c.listGenerativeModels(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Model listing failed, using first preferred model")
		}
		c.model = selectModel(c.preferred, available)
	}

	c.logger.Info().Str("model", c.model).Msg("Gemini model selected")
	return c, nil
}

// Model returns the resolved model id
func (c *Client) Model() string {
	return c.model
}

// listGenerativeModels returns ids (without the "models/" prefix) that
// support content generation.
func (c *Client) listGenerativeModels(ctx context.Context) ([]string, error) {
	var ids []string
	for m, err := range c.client.Models.All(ctx) {
		if err != nil {
			return ids, fmt.Errorf("failed to list models: %w", err)
		}
		if m == nil || !slices.Contains(m.SupportedActions, generateAction) {
			continue
		}
		ids = append(ids, strings.TrimPrefix(m.Name, "models/"))
	}
	return ids, nil
}

// selectModel picks the first preferred model that is available, then the
// first available model, then the first preferred model.
func selectModel(preferred, available []string) string {
	for _, p := range preferred {
		if slices.Contains(available, p) {
			return p
		}
	}
	if len(available) > 0 {
		return available[0]
	}
	if len(preferred) > 0 {
		return preferred[0]
	}
	return DefaultModels[0]
}

// GenerateContent generates text from a prompt
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug().Str("model", c.model).Int("prompt_len", len(prompt)).Msg("Generating content")

	contents := genai.Text(prompt)
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(result)
}

// extractTextFromResponse concatenates text parts of the first candidate
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no text in response")
	}
	return sb.String(), nil
}

// Ensure Client implements TextGenerator
var _ interfaces.TextGenerator = (*Client)(nil)
