package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"anoa.com/mindminer/pkg/apperror"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// LLMProvider adalah abstraksi untuk text completion (Gemini, atau mock di test)
type LLMProvider interface {
	// Complete sends the prompt parts as one user turn and returns the concatenated text.
	Complete(ctx context.Context, parts []string, maxTokens int32, temperature float32) (string, error)

	// Close menutup koneksi provider
	Close()
}

var _ LLMProvider = (*GeminiProvider)(nil)

// GeminiProvider adalah implementasi LLMProvider untuk Google Gemini
type GeminiProvider struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
}

// NewGeminiProvider membuat instance baru Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	// Default model jika tidak dispesifikkan
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	return &GeminiProvider{
		client:    client,
		modelName: modelName,
		timeout:   30 * time.Second,
	}, nil
}

// Complete implements LLMProvider. A model handle is created per call because
// generation settings differ between clue generation and verification.
func (g *GeminiProvider) Complete(ctx context.Context, parts []string, maxTokens int32, temperature float32) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetMaxOutputTokens(maxTokens)
	model.SetTemperature(temperature)

	genParts := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		genParts = append(genParts, genai.Text(p))
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := model.GenerateContent(ctx, genParts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %v: %w", err, apperror.ErrUpstreamUnavailable)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from LLM: %w", apperror.ErrUpstreamUnavailable)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in response: %w", apperror.ErrUpstreamUnavailable)
	}

	return sb.String(), nil
}

// Close implements LLMProvider
func (g *GeminiProvider) Close() {
	g.client.Close()
}
