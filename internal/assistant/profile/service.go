package profile

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/talksphere/server/internal/assistant/model"
	errx "github.com/talksphere/server/internal/core/error"
	logx "github.com/talksphere/server/pkg/logger"
)

const maxAssistantNameLen = 64

// Service manages the assistant profile and the prompt history of a user.
type Service struct {
	users         model.UserRepository
	conversations model.ConversationRepository
	cfg           model.ProfileConfig
}

// NewService builds the profile service. conversations may be nil.
func NewService(users model.UserRepository, conversations model.ConversationRepository, cfg model.ProfileConfig) *Service {
	return &Service{users: users, conversations: conversations, cfg: cfg}
}

func (s *Service) Current(ctx context.Context, userID string) (*model.User, error) {
	return s.users.FindByID(ctx, userID)
}

// SetAssistant stores the assistant name and image chosen by the user.
func (s *Service) SetAssistant(ctx context.Context, userID string, in model.AssistantProfile) (*model.User, error) {
	name := strings.TrimSpace(in.AssistantName)
	if name == "" {
		return nil, errx.BadRequest("Assistant name is required")
	}
	if utf8.RuneCountInString(name) > maxAssistantNameLen {
		return nil, errx.BadRequest(fmt.Sprintf("Assistant name must be at most %d characters", maxAssistantNameLen))
	}
	image := strings.TrimSpace(in.AssistantImage)
	if s.cfg.MaxImageBytes > 0 && len(image) > s.cfg.MaxImageBytes {
		return nil, errx.BadRequest("Assistant image is too large")
	}

	user, err := s.users.UpdateAssistant(ctx, userID, model.AssistantProfile{AssistantName: name, AssistantImage: image})
	if err != nil {
		return nil, err
	}
	logx.Debug().Str("user_id", userID).Str("assistant", name).Msg("assistant profile updated")
	return user, nil
}

func (s *Service) History(ctx context.Context, userID string) ([]string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.History == nil {
		return []string{}, nil
	}
	return user.History, nil
}

// ClearHistory empties the stored prompts and the replayed conversation context.
func (s *Service) ClearHistory(ctx context.Context, userID string) error {
	if err := s.users.ClearHistory(ctx, userID); err != nil {
		return err
	}
	if s.conversations != nil {
		if err := s.conversations.ClearHistory(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}
