package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
	"github.com/kirillkom/document-qa-assistant/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Client talks to an OpenAI-compatible chat completions endpoint. It holds no credential;
// the key is passed on every call.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	BaseURL string
	Model   string
	// Timeout of zero leaves the request bounded only by the caller's context.
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-5"
	}
	return &Client{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: opts.Timeout},
		executor:   opts.Executor,
	}
}

func (c *Client) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
}

func (c *Client) Complete(ctx context.Context, apiKey string, messages []domain.ChatMessage) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", domain.WrapError(domain.ErrMissingCredential, "chat completion", errors.New("api key is empty"))
	}

	request := chatRequest{Model: c.model, Messages: make([]chatMessage, 0, len(messages))}
	for _, m := range messages {
		request.Messages = append(request.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	var response chatResponse
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, apiKey, "/chat/completions", request, &response)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "openai.chat", call, classifyError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapKind(err)
	}

	if response.Usage != nil {
		slog.Debug("llm_usage",
			"model", c.model,
			"prompt_tokens", response.Usage.PromptTokens,
			"completion_tokens", response.Usage.CompletionTokens,
		)
	}
	if len(response.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func wrapKind(err error) error {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden) {
		return domain.WrapError(domain.ErrUnauthorized, "chat completion", err)
	}
	return wrapTemporaryIfNeeded("chat completion", err)
}

func (c *Client) String() string {
	return fmt.Sprintf("openai(%s, %s)", c.baseURL, c.model)
}
