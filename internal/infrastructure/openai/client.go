package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/mightyoctopus/worthbrain/pkg/httpx"
	"github.com/mightyoctopus/worthbrain/pkg/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 60 * time.Second

	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of a chat transcript.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is the model's request to invoke one declared tool.
// Arguments arrive as a raw JSON object string and must be validated
// by the caller before dispatch.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool declares one callable function to the model.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Parameters  jsoniter.RawMessage `json:"parameters"`
}

// Completion is one model turn: either tool calls to execute or a
// plain text reply.
type Completion struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(apiKey, model string) *Client {
	transport := httpx.NewAuthBearerRoundTripper(
		httpx.NewLoggingRoundTripper(
			http.DefaultTransport,
			httpx.WithSensitiveDataMasker(logx.NewSensitiveDataMasker()),
		),
		staticTokenAuthenticator{token: apiKey},
	)

	return &Client{
		baseURL: DefaultBaseURL,
		model:   model,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   defaultTimeout,
		},
	}
}

func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// staticTokenAuthenticator serves a fixed API key; OpenAI keys do not
// expire mid-process, so Authenticate never refreshes anything.
type staticTokenAuthenticator struct {
	token string
}

func (a staticTokenAuthenticator) Authenticate(context.Context) error { return nil }

func (a staticTokenAuthenticator) BearerToken() string { return a.token }

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Tools    []Tool    `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete requests one model turn for the transcript and tool catalog.
func (c *Client) Complete(ctx context.Context, messages []Message, tools []Tool) (Completion, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return Completion{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("httpClient.Do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Completion{}, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return Completion{}, fmt.Errorf("openai: %s (%s)", parsed.Error.Message, parsed.Error.Type)
		}
		return Completion{}, fmt.Errorf("openai: unexpected status %d", resp.StatusCode)
	}

	if len(parsed.Choices) == 0 {
		return Completion{}, fmt.Errorf("openai: no choices in response")
	}

	choice := parsed.Choices[0]

	return Completion{
		Content:      choice.Message.Content,
		ToolCalls:    choice.Message.ToolCalls,
		FinishReason: choice.FinishReason,
	}, nil
}

// CompleteText is the single-shot convenience wrapper used where no
// tools are involved, e.g. the deal selection pass.
func (c *Client) CompleteText(ctx context.Context, system, user string) (string, error) {
	completion, err := c.Complete(ctx, []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}, nil)
	if err != nil {
		return "", err
	}

	return completion.Content, nil
}
