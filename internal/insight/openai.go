package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/YuvrajArora777/Finsight-Clean/pkg/config"
)

// systemPrompt frames every completion request.
const systemPrompt = "You are a financial analyst bot."

// openAIClient is a minimal chat-completions client.
type openAIClient struct {
	http      *resty.Client
	model     string
	maxTokens int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func newOpenAIClient(cfg config.OpenAIConfig) *openAIClient {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetAuthToken(cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	return &openAIClient{
		http:      client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// complete runs one chat completion and returns the trimmed content.
func (c *openAIClient) complete(ctx context.Context, userPrompt string) (string, error) {
	var result chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userPrompt},
			},
			MaxTokens: c.maxTokens,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/chat/completions")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		if result.Error != nil {
			return "", fmt.Errorf("openai %s: %s", resp.Status(), result.Error.Message)
		}
		return "", fmt.Errorf("openai %s", resp.Status())
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai returned empty content")
	}
	return text, nil
}
