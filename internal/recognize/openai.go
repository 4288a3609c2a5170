// Package recognize implements the vision text-recognition
// collaborator used for image artifacts.
package recognize

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/readaloudhq/docspeech/internal/config"
)

const recognitionPrompt = "Transcribe all readable text in this image. " +
	"Return only the text itself, in reading order, with no commentary. " +
	"If the image contains no readable text, return an empty response."

// OpenAIRecognizer performs one-shot text recognition through a
// vision-capable chat model.
type OpenAIRecognizer struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// NewOpenAI creates a recognizer from configuration
func NewOpenAI(cfg *config.Config, logger zerolog.Logger) *OpenAIRecognizer {
	return &OpenAIRecognizer{
		client: openai.NewClient(cfg.OpenAIAPIKey),
		model:  cfg.VisionModel,
		logger: logger,
	}
}

// Recognize sends the image to the vision model and returns the
// transcribed text.
func (r *OpenAIRecognizer) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/png"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: recognitionPrompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision response contained no choices")
	}

	text := resp.Choices[0].Message.Content
	r.logger.Debug().Int("image_bytes", len(image)).Int("text_chars", len(text)).Msg("Image text recognized")
	return text, nil
}
