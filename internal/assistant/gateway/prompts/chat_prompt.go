package prompts

import (
	_ "embed"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/talksphere/server/internal/assistant/model"
)

//go:embed template/chat_prompt.txt
var chatSystemPrompt string

// DefaultAssistantName is used until the user names their assistant.
const DefaultAssistantName = "TalkSphere"

// Template variable keys.
const (
	KeyAssistantName = "assistant_name"
	KeyUserName      = "user_name"
	KeyTools         = "tools"
	KeyHistory       = "history"
	KeyPrompt        = "prompt"
)

type toolLine struct {
	Number      int
	Description string
	Path        string
	Examples    string
}

// NewChatTemplate builds the Go-template chat prompt: JSON-protocol system
// instructions, replayed conversation turns, then the user's input.
func NewChatTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(chatSystemPrompt),
		schema.MessagesPlaceholder(KeyHistory, true),
		schema.UserMessage("{{.prompt}}"),
	)
}

// ChatVariables maps a prompt input to the template variables of NewChatTemplate.
func ChatVariables(in model.PromptInput, tools []model.ToolSpec) map[string]any {
	name := strings.TrimSpace(in.AssistantName)
	if name == "" {
		name = DefaultAssistantName
	}

	lines := make([]toolLine, 0, len(tools))
	for i, t := range tools {
		lines = append(lines, toolLine{
			// "1." is the general answer format
			Number:      i + 2,
			Description: t.Description,
			Path:        t.Path,
			Examples:    t.Examples,
		})
	}

	history := in.History
	if history == nil {
		history = []*schema.Message{}
	}

	return map[string]any{
		KeyAssistantName: name,
		KeyUserName:      strings.TrimSpace(in.UserName),
		KeyTools:         lines,
		KeyHistory:       history,
		KeyPrompt:        in.Prompt,
	}
}
