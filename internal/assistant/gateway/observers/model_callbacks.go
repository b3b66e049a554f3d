package observers

import (
	"context"
	"strings"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/talksphere/server/internal/assistant/model"
	logx "github.com/talksphere/server/pkg/logger"
)

type startKey struct{}

// newModelHandler logs model latency, the latest user turn, token usage and USD cost.
func newModelHandler(defaultModel string) *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *einomodel.CallbackInput) context.Context {
			if input != nil {
				logx.Debug().
					Str("node", info.Name).
					Int("messages", len(input.Messages)).
					Str("user", lastUserContent(input.Messages)).
					Msg("model call started")
			}
			return context.WithValue(ctx, startKey{}, time.Now())
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *einomodel.CallbackOutput) context.Context {
			ev := logx.Debug().Str("node", info.Name)
			if started, ok := ctx.Value(startKey{}).(time.Time); ok {
				ev = ev.Dur("latency", time.Since(started))
			}
			if output == nil {
				ev.Msg("model call finished")
				return ctx
			}

			name := defaultModel
			if output.Config != nil && output.Config.Model != "" {
				name = output.Config.Model
			}
			if usage := usageOf(output); usage != nil {
				inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(name))
				ev = ev.
					Str("model", name).
					Int("prompt_tokens", usage.PromptTokens).
					Int("completion_tokens", usage.CompletionTokens).
					Int("total_tokens", usage.TotalTokens).
					Float64("input_cost_usd", inC).
					Float64("output_cost_usd", outC).
					Float64("total_cost_usd", totalC)
			}
			if output.Message != nil {
				ev = ev.Int("reply_len", len(output.Message.Content))
			}
			ev.Msg("LLM usage")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("node", info.Name).Msg("model call failed")
			return ctx
		},
	}
}

func usageOf(output *einomodel.CallbackOutput) *model.Usage {
	if output.TokenUsage != nil {
		return &model.Usage{
			PromptTokens:     output.TokenUsage.PromptTokens,
			CompletionTokens: output.TokenUsage.CompletionTokens,
			TotalTokens:      output.TokenUsage.TotalTokens,
		}
	}
	if output.Message != nil && output.Message.ResponseMeta != nil {
		return model.UsageFromSchema(output.Message.ResponseMeta.Usage)
	}
	return nil
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}
