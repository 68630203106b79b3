package unitofwork

import (
	"context"

	"ragchat-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	ConversationRepository() contract.ConversationRepository
	MessageRepository() contract.MessageRepository
	UsageRecordRepository() contract.UsageRecordRepository
	IngestionJobRepository() contract.IngestionJobRepository
	ChunkEmbeddingRepository() contract.ChunkEmbeddingRepository
}
