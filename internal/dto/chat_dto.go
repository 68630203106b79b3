package dto

import (
	"time"

	"ragchat-be/pkg/quota"

	"github.com/google/uuid"
)

type CreateConversationRequest struct {
	Kind  string `json:"kind" validate:"required,oneof=document repository"`
	Title string `json:"title" validate:"required,min=1,max=128"`
	Model string `json:"model" validate:"omitempty,max=64"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=8000"`
	Model   string `json:"model" validate:"omitempty,max=64"`
}

type SourceReference struct {
	Source     string  `json:"source"`
	ChunkType  string  `json:"chunk_type,omitempty"`
	Similarity float64 `json:"similarity"`
}

type ChatMessageResponse struct {
	Id             uuid.UUID         `json:"id"`
	ConversationId uuid.UUID         `json:"conversation_id"`
	Role           string            `json:"role"`
	Content        string            `json:"content"`
	Sources        []SourceReference `json:"sources,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

type SendMessageResponse struct {
	UserMessage      ChatMessageResponse `json:"user_message"`
	AssistantMessage ChatMessageResponse `json:"assistant_message"`
	Usage            *quota.Snapshot     `json:"usage,omitempty"`
}

type ConversationResponse struct {
	Id        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

type ConversationDetailResponse struct {
	Conversation ConversationResponse  `json:"conversation"`
	Messages     []ChatMessageResponse `json:"messages"`
}
