package gateway

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/talksphere/server/internal/assistant/model"
	logx "github.com/talksphere/server/pkg/logger"
)

// ClientConfig holds the Gemini API credentials.
type ClientConfig struct {
	APIKey  string
	BaseURL string
}

// NewGeminiClient creates the shared genai client used by both chat paths.
func NewGeminiClient(ctx context.Context, config ClientConfig) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// NewChatModel creates the eino Gemini chat model for the text chat chain.
func NewChatModel(ctx context.Context, client *genai.Client, cfg model.GatewayConfig) (*gemini.ChatModel, error) {
	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens

	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Str("model", cfg.Model).Msg("Error creating chat model")
		return nil, fmt.Errorf("error creating chat model: %w", err)
	}
	return cm, nil
}

// ImageModel answers a prompt that comes with one inlined image.
type ImageModel interface {
	GenerateWithImage(ctx context.Context, prompt string, image *model.ImageInput) (string, error)
}

// GeminiImageModel sends multimodal requests straight through the genai SDK.
type GeminiImageModel struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewGeminiImageModel(client *genai.Client, cfg model.GatewayConfig) *GeminiImageModel {
	return &GeminiImageModel{
		client: client,
		model:  cfg.Model,
		config: &genai.GenerateContentConfig{
			Temperature: genai.Ptr(cfg.Temperature),
		},
	}
}

func (m *GeminiImageModel) GenerateWithImage(ctx context.Context, prompt string, image *model.ImageInput) (string, error) {
	parts := make([]*genai.Part, 0, 2)
	if prompt != "" {
		parts = append(parts, genai.NewPartFromText(prompt))
	}
	if image != nil && len(image.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(image.Data, image.MIMEType))
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("prompt or image is required")
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}, m.config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
