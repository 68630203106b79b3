package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ConversationKindDocument   = "document"
	ConversationKindRepository = "repository"
)

type Conversation struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Kind      string
	Title     string
	Model     string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// CollectionId derives the vector collection name scoped to this conversation.
func (c *Conversation) CollectionId() string {
	return "conv_" + c.Id.String()
}
