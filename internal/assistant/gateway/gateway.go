package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/talksphere/server/internal/assistant/gateway/observers"
	"github.com/talksphere/server/internal/assistant/gateway/prompts"
	"github.com/talksphere/server/internal/assistant/model"
	logx "github.com/talksphere/server/pkg/logger"
	"github.com/talksphere/server/pkg/metrics"
)

const (
	NodeChatPrompt  = "chat_prompt"
	NodeChatModel   = "chat_model"
	NodeReplyParser = "reply_parser"

	defaultImageMIME = "image/png"
)

// Config holds everything needed to build the gateway.
type Config struct {
	ChatModel  einomodel.BaseChatModel
	ImageModel ImageModel
	Tools      []model.ToolSpec
	Gateway    model.GatewayConfig
}

// Gateway formats prompts for the hosted model and turns its output into a
// validated Reply. It never returns model errors to callers; they become
// apology replies and are logged.
type Gateway struct {
	runnable  compose.Runnable[map[string]any, model.Reply]
	images    ImageModel
	tools     []model.ToolSpec
	cfg       model.GatewayConfig
	callbacks einocb.Handler
}

func New(ctx context.Context, cfg Config) (*Gateway, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	if cfg.ImageModel == nil {
		return nil, fmt.Errorf("image model is nil")
	}

	runnable, err := BuildChain(ctx, cfg.ChatModel)
	if err != nil {
		return nil, err
	}

	return &Gateway{
		runnable:  runnable,
		images:    cfg.ImageModel,
		tools:     cfg.Tools,
		cfg:       cfg.Gateway,
		callbacks: observers.NewAllCallbacks(cfg.Gateway.Model),
	}, nil
}

// BuildChain composes prompt template → chat model → reply parser.
func BuildChain(ctx context.Context, cm einomodel.BaseChatModel) (compose.Runnable[map[string]any, model.Reply], error) {
	chain := compose.NewChain[map[string]any, model.Reply]()
	chain.
		AppendChatTemplate(prompts.NewChatTemplate(), compose.WithNodeName(NodeChatPrompt)).
		AppendChatModel(cm, compose.WithNodeName(NodeChatModel)).
		AppendLambda(compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (model.Reply, error) {
			if msg == nil {
				return model.GeneralReply(FallbackUnparsable), nil
			}
			reply := ParseReply(msg.Content)
			if reply.Response == FallbackUnparsable {
				logx.Warn().Str("raw", truncate(msg.Content, 200)).Msg("model reply is off-protocol")
			}
			return reply, nil
		}), compose.WithNodeName(NodeReplyParser))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling chat chain")
		return nil, fmt.Errorf("error compiling chat chain: %w", err)
	}
	return runnable, nil
}

// Chat asks the model for a structured reply to a text prompt.
func (g *Gateway) Chat(ctx context.Context, in model.PromptInput) model.Reply {
	if strings.TrimSpace(in.Prompt) == "" {
		return model.GeneralReply(FallbackUnparsable)
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	reply, err := g.runnable.Invoke(ctx, prompts.ChatVariables(in, g.tools), compose.WithCallbacks(g.callbacks))
	if err != nil {
		metrics.ModelCalls.WithLabelValues("chat", "error").Inc()
		logx.Error().Err(err).Str("model", g.cfg.Model).Msg("chat model request failed")
		return model.GeneralReply(FallbackError)
	}
	metrics.ModelCalls.WithLabelValues("chat", "ok").Inc()
	return reply
}

// ChatWithImage answers a prompt with an optional inlined image. The result is
// plain text ready to show the user.
func (g *Gateway) ChatWithImage(ctx context.Context, prompt string, image *model.ImageInput) string {
	if image != nil && image.MIMEType == "" {
		sniffed := *image
		sniffed.MIMEType = DetectImageMIME(image.Data)
		image = &sniffed
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	raw, err := g.images.GenerateWithImage(ctx, prompt, image)
	if err != nil {
		metrics.ModelCalls.WithLabelValues("image", "error").Inc()
		logx.Error().Err(err).Str("model", g.cfg.Model).Msg("image model request failed")
		return FallbackError
	}
	metrics.ModelCalls.WithLabelValues("image", "ok").Inc()
	return ImageAnswer(raw)
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, g.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// DetectImageMIME sniffs an image content type, defaulting to PNG for anything
// that is not recognisably an image.
func DetectImageMIME(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return defaultImageMIME
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return cutRunes(s, n) + "..."
}
