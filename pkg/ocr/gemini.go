package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const transcribeInstruction = `You are an OCR engine. Transcribe every piece of text visible in the image exactly as printed.
Keep one output line per printed line and keep the spaces between digit groups.
Do not translate, explain or correct anything. Output only the transcription.
If the image contains no text, output nothing.`

// GeminiRecognizer asks a Gemini model to transcribe the image.
type GeminiRecognizer struct {
	client *genai.Client
	model  string
}

// NewGeminiRecognizer creates a client for model using apiKey.
func NewGeminiRecognizer(ctx context.Context, apiKey, model string) (*GeminiRecognizer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.5-flash"
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiRecognizer{client: cl, model: strings.TrimSpace(model)}, nil
}

func (g *GeminiRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	m := g.client.GenerativeModel(g.model)
	m.SetTemperature(0)
	m.SystemInstruction = genai.NewUserContent(genai.Text(transcribeInstruction))

	resp, err := m.GenerateContent(ctx, genai.ImageData(imageFormat(image), image))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", &DelegateError{Provider: "Gemini", Message: blocked.Error()}
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return geminiText(resp), nil
}

// geminiText concatenates the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}

// imageFormat returns the short image format Gemini expects ("jpeg", "png", ...).
func imageFormat(b []byte) string {
	ct := http.DetectContentType(b)
	if f, ok := strings.CutPrefix(ct, "image/"); ok {
		return f
	}
	return "jpeg"
}

func (g *GeminiRecognizer) Close() error { return g.client.Close() }
