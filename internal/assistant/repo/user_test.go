package repo

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/talksphere/server/internal/assistant/model"
	errx "github.com/talksphere/server/internal/core/error"
)

var fixedNow = time.Date(2025, time.March, 3, 14, 5, 0, 0, time.UTC)

func newMockUsers(mt *mtest.T) *MongoUserRepository {
	r := NewMongoUserRepository(mt.DB)
	r.now = func() time.Time { return fixedNow }
	return r
}

func usersNS(mt *mtest.T) string {
	return mt.DB.Name() + "." + CollectionUsers
}

func userDoc(id primitive.ObjectID, email, assistant string, history ...string) bson.D {
	h := bson.A{}
	for _, e := range history {
		h = append(h, e)
	}
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: "Ada"},
		{Key: "email", Value: email},
		{Key: "password", Value: "hash"},
		{Key: "assistantName", Value: assistant},
		{Key: "assistantImage", Value: ""},
		{Key: "history", Value: h},
	}
}

// updateCommand is the part of an "update" command the repository controls.
type updateCommand struct {
	Updates []struct {
		Q struct {
			ID primitive.ObjectID `bson:"_id"`
		} `bson:"q"`
		U struct {
			Push struct {
				History struct {
					Each  []string `bson:"$each"`
					Slice *int     `bson:"$slice"`
				} `bson:"history"`
			} `bson:"$push"`
			Set struct {
				History   []string  `bson:"history"`
				UpdatedAt time.Time `bson:"updatedAt"`
			} `bson:"$set"`
		} `bson:"u"`
	} `bson:"updates"`
}

func startedUpdate(mt *mtest.T) (updateCommand, bson.Raw) {
	mt.Helper()
	evt := mt.GetStartedEvent()
	require.NotNil(mt, evt)
	require.Equal(mt, "update", evt.CommandName)

	var cmd updateCommand
	require.NoError(mt, bson.Unmarshal(evt.Command, &cmd))
	require.Len(mt, cmd.Updates, 1)
	return cmd, evt.Command
}

func TestMongoUserCreate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("stores normalized email", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		u := &model.User{Name: "Ada", Email: "  Ada@Example.COM ", PasswordHash: "hash"}
		require.NoError(mt, repo.Create(context.Background(), u))
		assert.False(mt, u.ID.IsZero())
		assert.Equal(mt, "ada@example.com", u.Email)
		assert.Equal(mt, fixedNow, u.CreatedAt)
		assert.Equal(mt, []string{}, u.History)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "insert", evt.CommandName)
		var cmd struct {
			Documents []model.User `bson:"documents"`
		}
		require.NoError(mt, bson.Unmarshal(evt.Command, &cmd))
		require.Len(mt, cmd.Documents, 1)
		assert.Equal(mt, "ada@example.com", cmd.Documents[0].Email)
		assert.Equal(mt, "hash", cmd.Documents[0].PasswordHash)
	})

	mt.Run("duplicate email is a conflict", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: test.users index: email_unique",
		}))

		err := repo.Create(context.Background(), &model.User{Name: "Ada", Email: "ada@example.com"})
		require.Error(mt, err)
		assert.Equal(mt, http.StatusConflict, errx.StatusOf(err))
		assert.Equal(mt, "email already exists", errx.MessageOf(err))
	})
}

func TestMongoUserFind(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("by email", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS(mt), mtest.FirstBatch, userDoc(id, "ada@example.com", "Jarvis")))

		u, err := repo.FindByEmail(context.Background(), "ADA@example.com")
		require.NoError(mt, err)
		assert.Equal(mt, id, u.ID)
		assert.Equal(mt, "Jarvis", u.AssistantName)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "ada@example.com", evt.Command.Lookup("filter", "email").StringValue())
	})

	mt.Run("missing user", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS(mt), mtest.FirstBatch))

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID().Hex())
		assert.Equal(mt, http.StatusNotFound, errx.StatusOf(err))
	})

	mt.Run("malformed id never reaches the server", func(mt *mtest.T) {
		repo := newMockUsers(mt)

		_, err := repo.FindByID(context.Background(), "not-an-object-id")
		assert.Equal(mt, http.StatusNotFound, errx.StatusOf(err))
		assert.Equal(mt, "user not found", errx.MessageOf(err))
		assert.Nil(mt, mt.GetStartedEvent())
	})
}

func TestMongoUserUpdateAssistantReturnsUpdatedDocument(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns document after update", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: userDoc(id, "ada@example.com", "Friday")}))

		u, err := repo.UpdateAssistant(context.Background(), id.Hex(), model.AssistantProfile{AssistantName: "Friday", AssistantImage: "img"})
		require.NoError(mt, err)
		assert.Equal(mt, "Friday", u.AssistantName)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "findAndModify", evt.CommandName)

		var cmd struct {
			Query struct {
				ID primitive.ObjectID `bson:"_id"`
			} `bson:"query"`
			New    bool `bson:"new"`
			Update struct {
				Set struct {
					AssistantName  string    `bson:"assistantName"`
					AssistantImage string    `bson:"assistantImage"`
					UpdatedAt      time.Time `bson:"updatedAt"`
				} `bson:"$set"`
			} `bson:"update"`
		}
		require.NoError(mt, bson.Unmarshal(evt.Command, &cmd))
		assert.Equal(mt, id, cmd.Query.ID)
		assert.True(mt, cmd.New)
		assert.Equal(mt, "Friday", cmd.Update.Set.AssistantName)
		assert.Equal(mt, "img", cmd.Update.Set.AssistantImage)
		assert.True(mt, fixedNow.Equal(cmd.Update.Set.UpdatedAt))
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		_, err := repo.UpdateAssistant(context.Background(), "xyz", model.AssistantProfile{AssistantName: "Friday"})
		assert.Equal(mt, http.StatusNotFound, errx.StatusOf(err))
	})
}

func TestMongoUserAppendHistory(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("keeps newest entries", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		require.NoError(mt, repo.AppendHistory(context.Background(), id.Hex(), "what day is it?", 100))

		cmd, _ := startedUpdate(mt)
		up := cmd.Updates[0]
		assert.Equal(mt, id, up.Q.ID)
		assert.Equal(mt, []string{"what day is it?"}, up.U.Push.History.Each)
		require.NotNil(mt, up.U.Push.History.Slice)
		assert.Equal(mt, -100, *up.U.Push.History.Slice)
		assert.True(mt, fixedNow.Equal(up.U.Set.UpdatedAt))
	})

	mt.Run("no limit means no slice", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		require.NoError(mt, repo.AppendHistory(context.Background(), primitive.NewObjectID().Hex(), "hi", 0))

		cmd, _ := startedUpdate(mt)
		assert.Nil(mt, cmd.Updates[0].U.Push.History.Slice)
	})

	mt.Run("unknown user", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := repo.AppendHistory(context.Background(), primitive.NewObjectID().Hex(), "hi", 10)
		assert.Equal(mt, http.StatusNotFound, errx.StatusOf(err))
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		err := repo.AppendHistory(context.Background(), "nope", "hi", 10)
		assert.Equal(mt, http.StatusNotFound, errx.StatusOf(err))
		assert.Nil(mt, mt.GetStartedEvent())
	})
}

func TestMongoUserClearHistory(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("empties history", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		require.NoError(mt, repo.ClearHistory(context.Background(), id.Hex()))

		cmd, raw := startedUpdate(mt)
		assert.Equal(mt, id, cmd.Updates[0].Q.ID)
		history := raw.Lookup("updates", "0", "u", "$set", "history")
		assert.Equal(mt, bson.TypeArray, history.Type)
		assert.Empty(mt, cmd.Updates[0].U.Set.History)
	})
}
