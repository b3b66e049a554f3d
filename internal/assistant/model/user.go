package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the per-account document stored in the users collection.
// PasswordHash is never serialized to API clients.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	PasswordHash   string             `bson:"password" json:"-"`
	AssistantName  string             `bson:"assistantName" json:"assistantName"`
	AssistantImage string             `bson:"assistantImage" json:"assistantImage"`
	History        []string           `bson:"history" json:"history"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IDHex is the string form used in tokens and cache keys.
func (u *User) IDHex() string {
	return u.ID.Hex()
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AssistantProfile is the user-chosen display name and image of the assistant.
type AssistantProfile struct {
	AssistantName  string `json:"assistantName"`
	AssistantImage string `json:"assistantImage"`
}
