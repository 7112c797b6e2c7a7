package assistant

import (
	"fmt"
	"strings"

	"ai-collection/server/internal/models"
)

const promptIdeaInstruction = "Generate a creative and visually descriptive prompt for an AI image generator. " +
	"The prompt should be about a surreal, fantasy landscape. Make it detailed."

// analysisInstruction asks for a JSON object matching imageAnalysisJSON
func analysisInstruction() string {
	names := make([]string, 0, len(models.Platforms))
	for _, p := range models.Platforms {
		names = append(names, string(p))
	}
	return fmt.Sprintf(`Analyze this AI-generated image and answer with a JSON object only:
{
  "suggestedPrompt": "a detailed prompt that could reproduce the image",
  "suggestedTags": ["up to 8 short lowercase tags"],
  "suggestedPlatform": "the most likely generator, one of: %s"
}`, strings.Join(names, ", "))
}
