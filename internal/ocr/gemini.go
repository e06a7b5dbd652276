package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// transcribePrompt asks the model to act as a plain OCR engine. All
// structure extraction happens locally in the receipt parser, so the
// provider must return the raw text and nothing else.
const transcribePrompt = `You are transcribing a retail receipt. Read every piece of visible text in the image and return it as plain text, one receipt line per output line, top to bottom.

Important:
- Transcribe text exactly as printed, including prices, quantity markers such as ×2, and currency symbols
- Keep the original line breaks of the receipt
- Do not translate, summarize, interpret or reorder anything
- Do not add any commentary, labels or markdown
- If the image contains no readable text, return an empty response`

// Gemini implements the Provider interface using Google Gemini vision
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Provider instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required: %w", ErrUnavailable)
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// RecognizeText transcribes the receipt image into raw text
func (g *Gemini) RecognizeText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pngData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return "", err
	}

	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(transcribePrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		// Surface a disabled or unconfigured upstream API as the
		// distinct, user-actionable unavailable error
		if isServiceDisabled(err) {
			return "", fmt.Errorf("gemini API rejected the request: %w", ErrUnavailable)
		}
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoText
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	result := strings.TrimSpace(text.String())
	if result == "" {
		return "", ErrNoText
	}

	return result, nil
}

// isServiceDisabled detects the API-not-enabled family of upstream
// failures from the error text
func isServiceDisabled(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SERVICE_DISABLED") ||
		strings.Contains(msg, "PERMISSION_DENIED") ||
		strings.Contains(msg, "has not been used") ||
		strings.Contains(msg, "API key not valid")
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
