// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/talksphere/server/internal/assistant/model"
	"github.com/talksphere/server/internal/assistant/repo"
	errx "github.com/talksphere/server/internal/core/error"
)

type Users struct {
	mu   sync.Mutex
	byID map[string]*model.User
	Err  error // returned by every call when set
}

func NewUsers() *Users {
	return &Users{byID: map[string]*model.User{}}
}

func clone(u *model.User) *model.User {
	c := *u
	c.History = append([]string(nil), u.History...)
	return &c
}

func (r *Users) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	u.Email = repo.NormalizeEmail(u.Email)
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return errx.Conflict("email already exists")
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	if u.History == nil {
		u.History = []string{}
	}
	r.byID[u.IDHex()] = clone(u)
	return nil
}

func (r *Users) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	email = repo.NormalizeEmail(email)
	for _, u := range r.byID {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, errx.NotFound("user not found")
}

func (r *Users) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, errx.NotFound("user not found")
	}
	return clone(u), nil
}

func (r *Users) UpdateAssistant(_ context.Context, id string, p model.AssistantProfile) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, errx.NotFound("user not found")
	}
	u.AssistantName = p.AssistantName
	u.AssistantImage = p.AssistantImage
	return clone(u), nil
}

func (r *Users) AppendHistory(_ context.Context, id string, entry string, limit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	u, ok := r.byID[id]
	if !ok {
		return errx.NotFound("user not found")
	}
	u.History = append(u.History, entry)
	if limit > 0 && len(u.History) > limit {
		u.History = u.History[len(u.History)-limit:]
	}
	return nil
}

func (r *Users) ClearHistory(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	u, ok := r.byID[id]
	if !ok {
		return errx.NotFound("user not found")
	}
	u.History = []string{}
	return nil
}

type Conversations struct {
	mu   sync.Mutex
	msgs map[string][]*schema.Message
	Err  error
}

func NewConversations() *Conversations {
	return &Conversations{msgs: map[string][]*schema.Message{}}
}

func (c *Conversations) AddMessages(_ context.Context, id string, messages ...*schema.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.msgs[id] = append(c.msgs[id], messages...)
	return nil
}

func (c *Conversations) LoadHistory(_ context.Context, id string, limit int) (*model.ConversationHistory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	msgs := c.msgs[id]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return &model.ConversationHistory{ConversationID: id, Messages: append([]*schema.Message(nil), msgs...)}, nil
}

func (c *Conversations) ClearHistory(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	delete(c.msgs, id)
	return nil
}

type Denylist struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func NewDenylist() *Denylist {
	return &Denylist{ids: map[string]time.Time{}}
}

func (d *Denylist) Revoke(_ context.Context, id string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids[id] = until
	return nil
}

func (d *Denylist) IsRevoked(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.ids[id]
	return ok, nil
}

var (
	_ model.UserRepository         = (*Users)(nil)
	_ model.ConversationRepository = (*Conversations)(nil)
	_ model.TokenDenylist          = (*Denylist)(nil)
)
