package interfaces

import "context"

// ImageAnalysis is the structured suggestion produced for an image
type ImageAnalysis struct {
	SuggestedPrompt   string   `json:"suggestedPrompt"`
	SuggestedTags     []string `json:"suggestedTags"`
	SuggestedPlatform string   `json:"suggestedPlatform"`
}

// PromptAssistant defines the generative text/vision backend
type PromptAssistant interface {
	// SuggestPrompt generates a fresh prompt idea
	SuggestPrompt(ctx context.Context) (string, error)

	// AnalyzeImage describes a base64-encoded image
	AnalyzeImage(ctx context.Context, imageBase64, mimeType string) (*ImageAnalysis, error)
}
