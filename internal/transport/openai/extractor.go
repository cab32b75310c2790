package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const extractionPrompt = `You extract shopping attributes from a product search query.
Reply with a single JSON object. Use only these keys: %s.
Omit keys the query does not mention. Use numbers for prices.
Do not add commentary.`

// ExtractorConfig holds the extraction model settings.
type ExtractorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Logger      *zap.Logger
}

// Extractor asks a chat model in JSON mode for structured query attributes.
type Extractor struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewExtractor creates an OpenAI-compatible attribute extractor.
func NewExtractor(cfg *ExtractorConfig) *Extractor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		client:      newClient(cfg.APIKey, cfg.BaseURL),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

// Extract returns the loosely typed JSON object produced by the model.
// Values are not validated here.
func (x *Extractor) Extract(ctx context.Context, text string, allowedFields []string) (map[string]any, error) {
	resp, err := x.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       x.model,
		Temperature: x.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(extractionPrompt, strings.Join(allowedFields, ", ")),
			},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: no choices")
	}

	raw := stripCodeFence(resp.Choices[0].Message.Content)
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		x.logger.Debug("extractor returned non-JSON output", zap.String("content", raw))
		return nil, fmt.Errorf("decode extraction output: %w", err)
	}
	return out, nil
}

// stripCodeFence removes a markdown code fence some models wrap JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
