package contract

import (
	"context"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error
}
