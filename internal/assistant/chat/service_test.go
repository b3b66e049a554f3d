package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talksphere/server/internal/assistant/model"
	"github.com/talksphere/server/internal/assistant/repo/repotest"
	errx "github.com/talksphere/server/internal/core/error"
)

type fakeGateway struct {
	reply      model.Reply
	answer     string
	lastPrompt model.PromptInput
	lastImage  *model.ImageInput
}

func (f *fakeGateway) Chat(_ context.Context, in model.PromptInput) model.Reply {
	f.lastPrompt = in
	return f.reply
}

func (f *fakeGateway) ChatWithImage(_ context.Context, prompt string, image *model.ImageInput) string {
	f.lastPrompt = model.PromptInput{Prompt: prompt}
	f.lastImage = image
	return f.answer
}

type fakeDispatcher struct {
	text string
	err  error
	urls []string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.text, f.err
}

type fixture struct {
	svc   *Service
	gw    *fakeGateway
	tools *fakeDispatcher
	users *repotest.Users
	convs *repotest.Conversations
	user  *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := repotest.NewUsers()
	user := &model.User{Name: "Ada", Email: "ada@example.com", AssistantName: "Jarvis"}
	require.NoError(t, users.Create(context.Background(), user))

	f := &fixture{
		gw:    &fakeGateway{reply: model.GeneralReply("Hello Ada")},
		tools: &fakeDispatcher{text: "Today is Monday."},
		users: users,
		convs: repotest.NewConversations(),
		user:  user,
	}
	f.svc = NewService(f.gw, f.tools, users, f.convs, model.ConversationConfig{MaxTurns: 4, HistoryLimit: 2})
	return f
}

func TestChatRequiresPrompt(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Chat(context.Background(), model.ChatInput{Prompt: "   "})
	assert.True(t, errx.HasStatus(err, 400))
	assert.Equal(t, "Prompt is required", errx.MessageOf(err))
}

func TestChatAnonymousIsStateless(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Chat(context.Background(), model.ChatInput{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada", res.Response)
	assert.Equal(t, model.ReplyGeneral, res.Type)
	assert.Empty(t, f.gw.lastPrompt.AssistantName)
	assert.Empty(t, f.gw.lastPrompt.History)

	u, err := f.users.FindByID(context.Background(), f.user.IDHex())
	require.NoError(t, err)
	assert.Empty(t, u.History)
}

func TestChatSignedInPersonalisesAndRemembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.user.IDHex()

	_, err := f.svc.Chat(ctx, model.ChatInput{UserID: id, Prompt: "first"})
	require.NoError(t, err)
	assert.Equal(t, "Jarvis", f.gw.lastPrompt.AssistantName)
	assert.Equal(t, "Ada", f.gw.lastPrompt.UserName)
	assert.Empty(t, f.gw.lastPrompt.History)

	_, err = f.svc.Chat(ctx, model.ChatInput{UserID: id, Prompt: "second"})
	require.NoError(t, err)
	require.Len(t, f.gw.lastPrompt.History, 2)
	assert.Equal(t, schema.User, f.gw.lastPrompt.History[0].Role)
	assert.Equal(t, "first", f.gw.lastPrompt.History[0].Content)
	assert.JSONEq(t, `{"type":"general","response":"Hello Ada"}`, f.gw.lastPrompt.History[1].Content)

	_, err = f.svc.Chat(ctx, model.ChatInput{UserID: id, Prompt: "third"})
	require.NoError(t, err)

	u, err := f.users.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "third"}, u.History)

	h, err := f.convs.LoadHistory(ctx, id, 0)
	require.NoError(t, err)
	assert.Len(t, h.Messages, 6)
}

func TestChatReplaysOnlyMaxTurns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.user.IDHex()

	for _, p := range []string{"a", "b", "c", "d"} {
		_, err := f.svc.Chat(ctx, model.ChatInput{UserID: id, Prompt: p})
		require.NoError(t, err)
	}
	require.Len(t, f.gw.lastPrompt.History, 4)
	assert.Equal(t, "b", f.gw.lastPrompt.History[0].Content)
}

func TestChatDispatchesToolCall(t *testing.T) {
	f := newFixture(t)
	f.gw.reply = model.Reply{Type: model.ReplyCallAPI, URL: "/api/day"}

	res, err := f.svc.Chat(context.Background(), model.ChatInput{UserID: f.user.IDHex(), Prompt: "what day is it"})
	require.NoError(t, err)
	assert.Equal(t, "Today is Monday.", res.Response)
	assert.Equal(t, "/api/day", res.Tool)
	assert.Equal(t, []string{"/api/day"}, f.tools.urls)

	h, err := f.convs.LoadHistory(context.Background(), f.user.IDHex(), 0)
	require.NoError(t, err)
	require.Len(t, h.Messages, 2)
	assert.JSONEq(t, `{"type":"general","response":"Today is Monday."}`, h.Messages[1].Content)
}

func TestChatToolFailureApologises(t *testing.T) {
	f := newFixture(t)
	f.gw.reply = model.Reply{Type: model.ReplyCallAPI, URL: "/api/date"}
	f.tools.err = errors.New("connection refused")

	res, err := f.svc.Chat(context.Background(), model.ChatInput{Prompt: "date?"})
	require.NoError(t, err)
	assert.Equal(t, ToolFailureMessage, res.Response)
}

func TestChatPersistenceFailuresAreNotFatal(t *testing.T) {
	f := newFixture(t)
	f.convs.Err = errors.New("redis down")

	res, err := f.svc.Chat(context.Background(), model.ChatInput{UserID: f.user.IDHex(), Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada", res.Response)

	f.users.Err = errors.New("mongo down")
	res, err = f.svc.Chat(context.Background(), model.ChatInput{UserID: f.user.IDHex(), Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada", res.Response)
	assert.Empty(t, f.gw.lastPrompt.AssistantName)
}

func TestChatWithFile(t *testing.T) {
	f := newFixture(t)
	f.gw.answer = "A red square."

	_, err := f.svc.ChatWithFile(context.Background(), model.FileChatInput{})
	assert.True(t, errx.HasStatus(err, 400))
	assert.Equal(t, "Prompt or file is required", errx.MessageOf(err))

	img := &model.ImageInput{Data: []byte{1, 2, 3}, MIMEType: "image/png"}
	res, err := f.svc.ChatWithFile(context.Background(), model.FileChatInput{UserID: f.user.IDHex(), Prompt: " describe ", Image: img})
	require.NoError(t, err)
	assert.Equal(t, "A red square.", res.Response)
	assert.Equal(t, "describe", f.gw.lastPrompt.Prompt)
	assert.Same(t, img, f.gw.lastImage)

	u, err := f.users.FindByID(context.Background(), f.user.IDHex())
	require.NoError(t, err)
	assert.Equal(t, []string{"describe"}, u.History)
}

func TestChatWithFileDropsEmptyImage(t *testing.T) {
	f := newFixture(t)
	f.gw.answer = "ok"

	_, err := f.svc.ChatWithFile(context.Background(), model.FileChatInput{Prompt: "hi", Image: &model.ImageInput{}})
	require.NoError(t, err)
	assert.Nil(t, f.gw.lastImage)
}
