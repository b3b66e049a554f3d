package gateway

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/talksphere/server/internal/assistant/model"
	logx "github.com/talksphere/server/pkg/logger"
)

const (
	// FallbackError is answered when the model call itself fails.
	FallbackError = "Sorry, something went wrong while processing your request."
	// FallbackUnparsable is answered when the model ignores the JSON protocol.
	FallbackUnparsable = "Sorry, I could not understand that."
	// FallbackUnexpected is the image chat answer when the model returns nothing.
	FallbackUnexpected = "An unexpected response was received."

	maxReplyLen = 64 * 1024
)

var fenceReplacer = strings.NewReplacer("```json", "", "```JSON", "", "```", "")

// StripFences removes every markdown code fence marker and trims the result.
func StripFences(s string) string {
	return strings.TrimSpace(fenceReplacer.Replace(s))
}

// extractObject returns s when it already is a JSON object, otherwise the
// outermost {...} span, or "" when there is none.
func extractObject(s string) string {
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// ParseReply cleans raw model output and validates it against the reply protocol.
// It never fails: anything off-protocol becomes the "could not understand" answer.
func ParseReply(raw string) model.Reply {
	if len(raw) > maxReplyLen {
		logx.Warn().Int("len", len(raw)).Int("max", maxReplyLen).Msg("model reply truncated")
		raw = cutRunes(raw, maxReplyLen)
	}
	obj := extractObject(StripFences(raw))
	if obj == "" {
		return model.GeneralReply(FallbackUnparsable)
	}

	var r model.Reply
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return model.GeneralReply(FallbackUnparsable)
	}
	r.Type = model.ReplyType(strings.ToLower(strings.TrimSpace(string(r.Type))))
	r.Response = strings.TrimSpace(r.Response)
	r.URL = strings.TrimSpace(r.URL)

	switch r.Type {
	case model.ReplyCallAPI:
		if r.URL == "" {
			return model.GeneralReply(FallbackUnparsable)
		}
		return model.Reply{Type: model.ReplyCallAPI, URL: r.URL}
	case model.ReplyGeneral, "":
		if r.Response == "" {
			return model.GeneralReply(FallbackUnparsable)
		}
		return model.GeneralReply(r.Response)
	default:
		// unknown type but usable text
		if r.Response != "" {
			return model.GeneralReply(r.Response)
		}
		return model.GeneralReply(FallbackUnparsable)
	}
}

// ImageAnswer turns free-form image chat output into the text shown to the user:
// the "response" field when the model answered in JSON, the raw text otherwise.
func ImageAnswer(raw string) string {
	text := StripFences(raw)
	if text == "" {
		return FallbackUnexpected
	}
	if obj := extractObject(text); obj == text {
		var r struct {
			Response string `json:"response"`
		}
		if err := json.Unmarshal([]byte(obj), &r); err == nil && strings.TrimSpace(r.Response) != "" {
			return strings.TrimSpace(r.Response)
		}
	}
	return text
}

// cutRunes returns at most n bytes of s without splitting a UTF-8 sequence.
func cutRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
