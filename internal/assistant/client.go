package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"ai-collection/server/internal/config"
	"ai-collection/server/internal/interfaces"
	"ai-collection/server/internal/models"
)

var (
	ErrNotConfigured = errors.New("the assistant API key is not configured; set OPENAI_API_KEY to use this feature")
	ErrInvalidAPIKey = errors.New("the assistant API key is not valid; please check your configuration")
)

// Client talks to an OpenAI-compatible chat completion API
type Client struct {
	client      *openai.Client
	model       string
	visionModel string
	maxTokens   int
	temperature float32
	topP        float32
}

// imageAnalysisJSON mirrors the object requested by analysisInstruction
type imageAnalysisJSON struct {
	SuggestedPrompt   string   `json:"suggestedPrompt"`
	SuggestedTags     []string `json:"suggestedTags"`
	SuggestedPlatform string   `json:"suggestedPlatform"`
}

// NewClient creates an assistant client. Without an API key every call
// fails with ErrNotConfigured.
func NewClient(cfg config.OpenAIConfig) *Client {
	c := &Client{
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}
	if cfg.APIKey == "" {
		return c
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	c.client = openai.NewClientWithConfig(clientCfg)
	return c
}

// SuggestPrompt generates a prompt idea
func (c *Client) SuggestPrompt(ctx context.Context) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: promptIdeaInstruction},
		},
	})
	if err != nil {
		return "", classify(err, "failed to generate prompt idea")
	}

	text, err := firstContent(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// AnalyzeImage asks the vision model to describe the image
func (c *Client) AnalyzeImage(ctx context.Context, imageBase64, mimeType string) (*interfaces.ImageAnalysis, error) {
	if c.client == nil {
		return nil, ErrNotConfigured
	}
	if imageBase64 == "" {
		return nil, errors.New("image data is required")
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          c.visionModel,
		MaxTokens:      c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: analysisInstruction()},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, imageBase64),
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, classify(err, "failed to analyze image")
	}

	text, err := firstContent(resp)
	if err != nil {
		return nil, err
	}

	var parsed imageAnalysisJSON
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse image analysis: %w", err)
	}

	analysis := &interfaces.ImageAnalysis{
		SuggestedPrompt: strings.TrimSpace(parsed.SuggestedPrompt),
		SuggestedTags:   parsed.SuggestedTags,
	}
	// Only a known platform is suggested
	if p, err := models.ParsePlatform(parsed.SuggestedPlatform); err == nil {
		analysis.SuggestedPlatform = string(p)
	}
	return analysis, nil
}

func firstContent(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("assistant returned an empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps authentication failures to ErrInvalidAPIKey
func classify(err error, msg string) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusUnauthorized {
		return ErrInvalidAPIKey
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusUnauthorized {
		return ErrInvalidAPIKey
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
