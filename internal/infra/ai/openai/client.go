package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/scamguard/internal/domain/analysis"
)

const maxTokens = 2048

type Client struct {
	apiKey string
	Model  string
}

func NewClient(apiKey, model string) *Client {
	return &Client{apiKey: strings.TrimSpace(apiKey), Model: model}
}

func (c *Client) Ready() error {
	if c.apiKey == "" {
		return analysis.ErrNotConfigured
	}
	return nil
}

// Analyze sends the prompt plus the image (as a data URL part) in one user
// message and asks for a JSON object back.
func (c *Client) Analyze(ctx context.Context, prompt string, image []byte, mime string) (string, error) {
	if err := c.Ready(); err != nil {
		return "", err
	}
	cli := openai.NewClient(c.apiKey)

	model := c.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)

	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := cli.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
