package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies the sender of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole maps a config or wire value onto a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleSystem, RoleUser, RoleAssistant:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// UnmarshalJSON rejects roles outside the known set.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Message is one entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest is everything needed for one completion call.
type GenerationRequest struct {
	Model               string
	Messages            []Message
	Seed                uint64
	MaxCompletionTokens *uint64
}

// Choice is one candidate reply.
type Choice struct {
	Index        uint64  `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     uint64 `json:"prompt_tokens"`
	CompletionTokens uint64 `json:"completion_tokens"`
	TotalTokens      uint64 `json:"total_tokens"`
}

// GenerationResponse is the decoded chat-completions reply.
type GenerationResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created uint64   `json:"created"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// CacheEntry describes one stored response.
type CacheEntry struct {
	Key       uint64    `json:"key"`
	Location  string    `json:"location"`
	Size      int       `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
