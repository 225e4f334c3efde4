package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yourorg/handoff/internal/directive"
	"github.com/yourorg/handoff/pkg/types"
)

// DiagnosticSink persists the text describing an undecodable reply.
type DiagnosticSink func(diagnostic string) error

// Completer issues a single completion request.
type Completer interface {
	Complete(ctx context.Context, req types.GenerationRequest, sink DiagnosticSink) (types.Message, error)
}

// Client is an OpenAI-compatible chat completions client. It never retries.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type chatRequest struct {
	Model               string          `json:"model"`
	Messages            []types.Message `json:"messages"`
	Seed                uint64          `json:"seed"`
	MaxCompletionTokens *uint64         `json:"max_completion_tokens,omitempty"`
}

// BoundSeed folds seed into the range the service accepts.
func BoundSeed(seed uint64) uint64 {
	return seed % directive.MaxSeed
}

func (c *Client) Complete(ctx context.Context, req types.GenerationRequest, sink DiagnosticSink) (types.Message, error) {
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	body, err := json.Marshal(chatRequest{
		Model:               req.Model,
		Messages:            req.Messages,
		Seed:                BoundSeed(req.Seed),
		MaxCompletionTokens: req.MaxCompletionTokens,
	})
	if err != nil {
		return types.Message{}, err
	}
	c.logger().Debug("llm request", "url", endpoint, "model", req.Model, "messages", len(req.Messages),
		"estimated_tokens", EstimatePromptTokens(req.Messages))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return types.Message{}, &GenerationError{Kind: KindTransport, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		return types.Message{}, &GenerationError{Kind: KindTransport, Err: err}
	}
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return types.Message{}, &GenerationError{Kind: KindTransport, Err: fmt.Errorf("read response: %w", err)}
	}

	out, err := decodeResponse(data)
	if err != nil {
		diag := fmt.Sprintf("---\n%v\n---\n%s", err, redactBody(data, c.APIKey))
		if sink != nil {
			if werr := sink(diag); werr != nil {
				c.logger().Warn("could not write decode diagnostic", "err", werr)
			}
		}
		return types.Message{}, &GenerationError{Kind: KindDecode, Err: err}
	}
	if len(out.Choices) == 0 {
		return types.Message{}, &GenerationError{Kind: KindEmptyChoices, Err: ErrEmptyChoices}
	}
	msg := out.Choices[0].Message
	c.logger().Debug("llm response", "status", resp.StatusCode, "id", out.ID,
		"finish_reason", out.Choices[0].FinishReason, "total_tokens", out.Usage.TotalTokens, "content", msg.Content)
	return msg, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Wire shapes with pointer fields so absent members can be told apart
// from zero values.
type wireResponse struct {
	ID      *string       `json:"id"`
	Object  *string       `json:"object"`
	Created *uint64       `json:"created"`
	Choices *[]wireChoice `json:"choices"`
	Usage   *wireUsage    `json:"usage"`
}

type wireChoice struct {
	Index        *uint64      `json:"index"`
	Message      *wireMessage `json:"message"`
	FinishReason *string      `json:"finish_reason"`
}

type wireMessage struct {
	Role    *types.Role `json:"role"`
	Content *string     `json:"content"`
}

type wireUsage struct {
	PromptTokens     *uint64 `json:"prompt_tokens"`
	CompletionTokens *uint64 `json:"completion_tokens"`
	TotalTokens      *uint64 `json:"total_tokens"`
}

type missingFieldError struct {
	field string
}

func (e *missingFieldError) Error() string {
	return fmt.Sprintf("missing field `%s`", e.field)
}

// decodeResponse parses data and requires every member of the response shape.
func decodeResponse(data []byte) (*types.GenerationResponse, error) {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	missing := func(field string) error { return &missingFieldError{field: field} }
	switch {
	case w.ID == nil:
		return nil, missing("id")
	case w.Object == nil:
		return nil, missing("object")
	case w.Created == nil:
		return nil, missing("created")
	case w.Choices == nil:
		return nil, missing("choices")
	case w.Usage == nil:
		return nil, missing("usage")
	case w.Usage.PromptTokens == nil:
		return nil, missing("usage.prompt_tokens")
	case w.Usage.CompletionTokens == nil:
		return nil, missing("usage.completion_tokens")
	case w.Usage.TotalTokens == nil:
		return nil, missing("usage.total_tokens")
	}

	out := &types.GenerationResponse{
		ID:      *w.ID,
		Object:  *w.Object,
		Created: *w.Created,
		Usage: types.Usage{
			PromptTokens:     *w.Usage.PromptTokens,
			CompletionTokens: *w.Usage.CompletionTokens,
			TotalTokens:      *w.Usage.TotalTokens,
		},
	}
	for i, ch := range *w.Choices {
		prefix := fmt.Sprintf("choices[%d].", i)
		switch {
		case ch.Index == nil:
			return nil, missing(prefix + "index")
		case ch.Message == nil:
			return nil, missing(prefix + "message")
		case ch.Message.Role == nil:
			return nil, missing(prefix + "message.role")
		case ch.Message.Content == nil:
			return nil, missing(prefix + "message.content")
		case ch.FinishReason == nil:
			return nil, missing(prefix + "finish_reason")
		}
		out.Choices = append(out.Choices, types.Choice{
			Index:        *ch.Index,
			Message:      types.Message{Role: *ch.Message.Role, Content: *ch.Message.Content},
			FinishReason: *ch.FinishReason,
		})
	}
	return out, nil
}
