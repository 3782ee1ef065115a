package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/bryanwahyu/scamguard/internal/domain/analysis"
)

const defaultModel = "gemini-1.5-flash"

type Client struct {
	APIKey string
	Model  string
}

func NewClient(apiKey, model string) *Client {
	return &Client{APIKey: strings.TrimSpace(apiKey), Model: strings.TrimSpace(model)}
}

func (c *Client) Ready() error {
	if c.APIKey == "" {
		return analysis.ErrNotConfigured
	}
	return nil
}

// Analyze sends the prompt plus image to Gemini and returns the raw reply
// text. The client is constructed per call.
func (c *Client) Analyze(ctx context.Context, prompt string, image []byte, mime string) (string, error) {
	if err := c.Ready(); err != nil {
		return "", err
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(c.APIKey))
	if err != nil {
		return "", fmt.Errorf("%w: %v", analysis.ErrInit, err)
	}
	defer cl.Close()

	model := c.Model
	if model == "" {
		model = defaultModel
	}
	m := cl.GenerativeModel(model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}

	resp, err := m.GenerateContent(ctx,
		genai.Text(prompt),
		&genai.Blob{MIMEType: mime, Data: image},
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	txt := firstText(resp)
	if txt == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return txt, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
