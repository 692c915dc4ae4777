package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// ChatPlatform calls an OpenAI-compatible chat completion endpoint. All the
// major LLM platforms we track expose this wire shape, so one client covers
// them with different base URLs and models.
type ChatPlatform struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *resty.Client
}

var _ Platform = (*ChatPlatform)(nil)

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewChatPlatform creates a platform client. An empty apiKey leaves the
// platform disabled rather than failing.
func NewChatPlatform(name, baseURL, apiKey, model string) *ChatPlatform {
	return &ChatPlatform{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  resty.New().SetTimeout(120 * time.Second),
	}
}

func (p *ChatPlatform) GetName() string {
	return p.name
}

func (p *ChatPlatform) IsEnabled() bool {
	return p.apiKey != "" && p.baseURL != ""
}

// Complete sends the prompt as a single user message and returns the first
// choice's content.
func (p *ChatPlatform) Complete(ctx context.Context, prompt string) (string, error) {
	if !p.IsEnabled() {
		logrus.Debugf("Platform %s disabled - missing credentials", p.name)
		return "", fmt.Errorf("platform %s is not configured", p.name)
	}

	body := chatRequest{
		Model:    p.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+p.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(p.baseURL + "/chat/completions")

	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", p.name, err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("%s returned status %d: %s", p.name, resp.StatusCode(), resp.Body())
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", p.name, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%s API error: %s", p.name, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.name)
	}

	return parsed.Choices[0].Message.Content, nil
}
