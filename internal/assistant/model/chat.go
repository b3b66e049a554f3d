package model

import (
	"github.com/cloudwego/eino/schema"
)

// ReplyType is the "type" field of the JSON object the model must answer with.
type ReplyType string

const (
	ReplyGeneral ReplyType = "general"
	ReplyCallAPI ReplyType = "call_api"
)

// Reply is the validated structured answer of the AI gateway.
// General replies carry Response, tool calls carry URL.
type Reply struct {
	Type     ReplyType `json:"type"`
	Response string    `json:"response,omitempty"`
	URL      string    `json:"url,omitempty"`
}

// IsToolCall reports whether a local endpoint should supply the final answer.
func (r Reply) IsToolCall() bool {
	return r.Type == ReplyCallAPI && r.URL != ""
}

// GeneralReply builds a free-form answer.
func GeneralReply(text string) Reply {
	return Reply{Type: ReplyGeneral, Response: text}
}

// PromptInput is everything the gateway needs to render one text prompt.
type PromptInput struct {
	Prompt        string
	History       []*schema.Message
	AssistantName string
	UserName      string
}

// ImageInput is a single inlined image sent alongside a prompt.
type ImageInput struct {
	Data     []byte
	MIMEType string
}

// ChatInput represents one text chat request. UserID is empty for anonymous callers.
type ChatInput struct {
	UserID string `json:"-"`
	Prompt string `json:"prompt"`
}

// FileChatInput represents a chat request with an optional uploaded image.
type FileChatInput struct {
	UserID string
	Prompt string
	Image  *ImageInput
}

// ChatResult is what the chat endpoints hand back to the client.
type ChatResult struct {
	Response string    `json:"response"`
	Type     ReplyType `json:"type,omitempty"`
	Tool     string    `json:"tool,omitempty"`
}

// ToolSpec describes a local endpoint the model may ask for instead of answering itself.
type ToolSpec struct {
	Name        string
	Path        string
	Description string
	Examples    string
}
