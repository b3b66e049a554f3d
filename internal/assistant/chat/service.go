package chat

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/talksphere/server/internal/assistant/model"
	errx "github.com/talksphere/server/internal/core/error"
	logx "github.com/talksphere/server/pkg/logger"
)

// ToolFailureMessage replaces the answer when a requested tool cannot be reached.
const ToolFailureMessage = "Sorry, I couldn't get the information you asked for."

// Gateway is the AI side of a chat turn.
type Gateway interface {
	Chat(ctx context.Context, in model.PromptInput) model.Reply
	ChatWithImage(ctx context.Context, prompt string, image *model.ImageInput) string
}

// Dispatcher executes tool calls the model asked for.
type Dispatcher interface {
	Dispatch(ctx context.Context, url string) (string, error)
}

// Service runs one chat turn: context loading, model call, tool dispatch and
// persistence for signed-in users.
type Service struct {
	gateway       Gateway
	dispatcher    Dispatcher
	users         model.UserRepository
	conversations model.ConversationRepository
	cfg           model.ConversationConfig
}

func NewService(gateway Gateway, dispatcher Dispatcher, users model.UserRepository, conversations model.ConversationRepository, cfg model.ConversationConfig) *Service {
	return &Service{
		gateway:       gateway,
		dispatcher:    dispatcher,
		users:         users,
		conversations: conversations,
		cfg:           cfg,
	}
}

// Chat answers a text prompt. Anonymous callers get a stateless answer.
func (s *Service) Chat(ctx context.Context, in model.ChatInput) (model.ChatResult, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return model.ChatResult{}, errx.BadRequest("Prompt is required")
	}

	pin := model.PromptInput{Prompt: prompt}
	if in.UserID != "" {
		s.loadContext(ctx, in.UserID, &pin)
	}

	reply := s.gateway.Chat(ctx, pin)
	result := model.ChatResult{Response: reply.Response, Type: reply.Type}
	if reply.IsToolCall() {
		result.Tool = reply.URL
		text, err := s.dispatcher.Dispatch(ctx, reply.URL)
		if err != nil {
			text = ToolFailureMessage
		}
		result.Response = text
	}

	if in.UserID != "" {
		s.remember(ctx, in.UserID, prompt, result.Response)
	}
	return result, nil
}

// ChatWithFile answers a prompt that may come with one image.
func (s *Service) ChatWithFile(ctx context.Context, in model.FileChatInput) (model.ChatResult, error) {
	prompt := strings.TrimSpace(in.Prompt)
	hasImage := in.Image != nil && len(in.Image.Data) > 0
	if prompt == "" && !hasImage {
		return model.ChatResult{}, errx.BadRequest("Prompt or file is required")
	}
	if !hasImage {
		in.Image = nil
	}

	answer := s.gateway.ChatWithImage(ctx, prompt, in.Image)

	if in.UserID != "" && prompt != "" {
		if err := s.users.AppendHistory(ctx, in.UserID, prompt, s.cfg.HistoryLimit); err != nil {
			logx.Warn().Err(err).Str("user_id", in.UserID).Msg("failed to append prompt history")
		}
	}
	return model.ChatResult{Response: answer, Type: model.ReplyGeneral}, nil
}

// loadContext fills the personalisation and replayed turns. Failures degrade
// to a stateless prompt.
func (s *Service) loadContext(ctx context.Context, userID string, pin *model.PromptInput) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		logx.Warn().Err(err).Str("user_id", userID).Msg("failed to load user for chat")
	} else {
		pin.AssistantName = user.AssistantName
		pin.UserName = user.Name
	}

	if s.conversations == nil {
		return
	}
	history, err := s.conversations.LoadHistory(ctx, userID, s.cfg.MaxTurns)
	if err != nil {
		logx.Warn().Err(err).Str("user_id", userID).Msg("failed to load conversation context")
		return
	}
	pin.History = history.Messages
}

func (s *Service) remember(ctx context.Context, userID, prompt, answer string) {
	if s.conversations != nil {
		s.saveTurn(ctx, userID, prompt, answer)
	}
	if err := s.users.AppendHistory(ctx, userID, prompt, s.cfg.HistoryLimit); err != nil {
		logx.Warn().Err(err).Str("user_id", userID).Msg("failed to append prompt history")
	}
}

// saveTurn stores the assistant turn in the JSON shape the model must answer with.
func (s *Service) saveTurn(ctx context.Context, userID, prompt, answer string) {
	raw, err := json.Marshal(model.GeneralReply(answer))
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to marshal assistant reply")
		return
	}
	if err := s.conversations.AddMessages(ctx, userID,
		schema.UserMessage(prompt),
		schema.AssistantMessage(string(raw), nil),
	); err != nil {
		logx.Warn().Err(err).Str("user_id", userID).Msg("failed to save conversation context")
	}
}
