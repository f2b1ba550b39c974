package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/amishk599/leadradar/internal/model"
)

// GeminiProvider calls Google's Gemini models through generative-ai-go.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider opens a Gemini client. Call Close when done.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiProvider{client: cl, model: strings.TrimSpace(model)}, nil
}

// Complete sends prompt to the configured model and returns the text of the first candidate.
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	m := p.client.GenerativeModel(p.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyGeminiError(err)
	}
	txt := firstText(resp)
	if txt == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return txt, nil
}

// Close releases the underlying client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }

// classifyGeminiError maps gRPC status codes onto HTTPError so the retry
// decorator treats Gemini like the HTTP providers.
func classifyGeminiError(err error) error {
	wrapped := fmt.Errorf("gemini generate: %w", err)
	st, ok := status.FromError(err)
	if !ok {
		return wrapped
	}
	var code int
	switch st.Code() {
	case codes.ResourceExhausted:
		code = 429
	case codes.Unavailable:
		code = 503
	case codes.Internal, codes.Unknown:
		code = 500
	case codes.InvalidArgument, codes.FailedPrecondition:
		code = 400
	case codes.Unauthenticated:
		code = 401
	case codes.PermissionDenied:
		code = 403
	case codes.NotFound:
		code = 404
	default:
		return wrapped
	}
	return &model.HTTPError{StatusCode: code, Err: wrapped}
}
