package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ragchat-be/internal/dto"
	"ragchat-be/internal/entity"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/internal/pkg/serverutils"
	"ragchat-be/internal/repository/specification"
	"ragchat-be/internal/repository/unitofwork"
	"ragchat-be/pkg/embedding"
	"ragchat-be/pkg/llm"
	"ragchat-be/pkg/quota"
	"ragchat-be/pkg/utils"
	"ragchat-be/pkg/vectorstore"

	"github.com/google/uuid"
)

const (
	retrievalLimit = 4

	// historyTokenBudget caps how much prior conversation is replayed to the
	// model; oldest messages are dropped first.
	historyTokenBudget = 4000

	// conversationListLimit bounds the listing to the most recent
	// conversations so the payload cannot grow without bound.
	conversationListLimit = 100

	emptyCollectionReply = "I don't have any documents to work with yet. Upload a document or connect a repository to this conversation, and I'll answer questions about it."
	providerDownReply    = "I'm sorry, I couldn't generate a response right now. Please try again in a moment."
)

// QuotaExceededError surfaces a denial with the usage state that produced it.
type QuotaExceededError struct {
	Decision *quota.Decision
}

func (e *QuotaExceededError) Error() string {
	return "usage limit exceeded: " + e.Decision.Reason
}

type IChatService interface {
	CreateConversation(ctx context.Context, userId uuid.UUID, req *dto.CreateConversationRequest) (*dto.ConversationResponse, error)
	SendMessage(ctx context.Context, userId, conversationId uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	GetConversations(ctx context.Context, userId uuid.UUID) ([]dto.ConversationResponse, error)
	GetConversation(ctx context.Context, userId, conversationId uuid.UUID) (*dto.ConversationDetailResponse, error)
	DeleteConversation(ctx context.Context, userId, conversationId uuid.UUID) error
	ListModels() []string
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	store      vectorstore.Store
	embedder   embedding.Provider
	registry   *llm.Registry
	ledger     *quota.Ledger
	log        logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	store vectorstore.Store,
	embedder embedding.Provider,
	registry *llm.Registry,
	ledger *quota.Ledger,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory: uowFactory,
		store:      store,
		embedder:   embedder,
		registry:   registry,
		ledger:     ledger,
		log:        log,
	}
}

// ListModels exposes the chat models this deployment serves.
func (s *chatService) ListModels() []string {
	return s.registry.Names()
}

func (s *chatService) CreateConversation(ctx context.Context, userId uuid.UUID, req *dto.CreateConversationRequest) (*dto.ConversationResponse, error) {
	spec, err := s.registry.Resolve(req.Model)
	if err != nil {
		return nil, serverutils.BadRequestError(err.Error())
	}

	conversation := &entity.Conversation{
		Id:        uuid.New(),
		UserId:    userId,
		Kind:      req.Kind,
		Title:     req.Title,
		Model:     spec.Name,
		CreatedAt: time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ConversationRepository().Create(ctx, conversation); err != nil {
		return nil, err
	}

	return &dto.ConversationResponse{
		Id:        conversation.Id,
		Kind:      conversation.Kind,
		Title:     conversation.Title,
		Model:     conversation.Model,
		CreatedAt: conversation.CreatedAt,
	}, nil
}

func (s *chatService) SendMessage(ctx context.Context, userId, conversationId uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: conversationId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, serverutils.NotFoundError("conversation not found")
	}

	decision, err := s.ledger.Authorize(ctx, userId, quota.ActionMessage)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &QuotaExceededError{Decision: decision}
	}

	modelName := req.Model
	if modelName == "" {
		modelName = conversation.Model
	}
	spec, err := s.registry.Resolve(modelName)
	if err != nil {
		return nil, serverutils.BadRequestError(err.Error())
	}

	userMessage := &entity.Message{
		Id:             uuid.New(),
		ConversationId: conversationId,
		Role:           entity.MessageRoleUser,
		Content:        req.Content,
		CreatedAt:      time.Now(),
	}
	if err := uow.MessageRepository().Create(ctx, userMessage); err != nil {
		return nil, err
	}

	// Charge at submission: the user message counts even when the reply
	// falls back.
	if err := s.ledger.Record(ctx, userId, quota.ActionMessage); err != nil {
		s.log.Error("chat", "failed to record message usage", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
	}

	reply, sources := s.generateReply(ctx, conversation, spec, req.Content)

	assistantMessage := &entity.Message{
		Id:             uuid.New(),
		ConversationId: conversationId,
		Role:           entity.MessageRoleAssistant,
		Content:        reply,
		CreatedAt:      time.Now(),
	}
	if err := uow.MessageRepository().Create(ctx, assistantMessage); err != nil {
		return nil, err
	}

	now := time.Now()
	conversation.UpdatedAt = &now
	if err := uow.ConversationRepository().Update(ctx, conversation); err != nil {
		s.log.Warn("chat", "could not bump conversation timestamp", map[string]interface{}{
			"conversation_id": conversationId.String(),
			"error":           err.Error(),
		})
	}

	// The snapshot reflects the just-recorded message so the client can
	// render remaining quota without a second round trip.
	usage, err := s.ledger.Snapshot(ctx, userId)
	if err != nil {
		s.log.Warn("chat", "could not build usage snapshot", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
		usage = nil
	}

	return &dto.SendMessageResponse{
		UserMessage: dto.ChatMessageResponse{
			Id:             userMessage.Id,
			ConversationId: conversationId,
			Role:           userMessage.Role,
			Content:        userMessage.Content,
			CreatedAt:      userMessage.CreatedAt,
		},
		AssistantMessage: dto.ChatMessageResponse{
			Id:             assistantMessage.Id,
			ConversationId: conversationId,
			Role:           assistantMessage.Role,
			Content:        assistantMessage.Content,
			Sources:        sources,
			CreatedAt:      assistantMessage.CreatedAt,
		},
		Usage: usage,
	}, nil
}

// generateReply runs retrieval and the model call. It never returns an
// error: an empty collection or a provider failure produces a fallback reply
// that still gets persisted.
func (s *chatService) generateReply(ctx context.Context, conversation *entity.Conversation, spec llm.ModelSpec, question string) (string, []dto.SourceReference) {
	collectionId := conversation.CollectionId()

	// Check for content before paying for a query embedding: a conversation
	// with nothing ingested yet gets the upload guidance, not a model call.
	count, err := s.store.Count(ctx, collectionId)
	if err != nil {
		s.log.Error("chat", "collection count failed", map[string]interface{}{
			"conversation_id": conversation.Id.String(),
			"error":           err.Error(),
		})
		return providerDownReply, nil
	}
	if count == 0 {
		return emptyCollectionReply, nil
	}

	queryVec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		s.log.Error("chat", "query embedding failed", map[string]interface{}{
			"conversation_id": conversation.Id.String(),
			"error":           err.Error(),
		})
		return providerDownReply, nil
	}

	hits, err := s.store.Retrieve(ctx, collectionId, queryVec, retrievalLimit)
	if err != nil {
		s.log.Error("chat", "retrieval failed", map[string]interface{}{
			"conversation_id": conversation.Id.String(),
			"error":           err.Error(),
		})
		return providerDownReply, nil
	}
	if len(hits) == 0 {
		return emptyCollectionReply, nil
	}

	// The user message is already persisted, so the loaded history ends
	// with the current question.
	history, err := s.loadHistory(ctx, conversation.Id)
	if err != nil || len(history) == 0 {
		if err != nil {
			s.log.Warn("chat", "could not load history, answering without it", map[string]interface{}{
				"conversation_id": conversation.Id.String(),
				"error":           err.Error(),
			})
		}
		history = []llm.Message{{Role: "user", Content: question}}
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: buildSystemPrompt(conversation.Kind, hits),
	})
	messages = append(messages, history...)

	reply, err := spec.Provider.Chat(ctx, messages, llm.WithModel(spec.Name))
	if err != nil {
		s.log.Error("chat", "model call failed", map[string]interface{}{
			"conversation_id": conversation.Id.String(),
			"model":           spec.Name,
			"error":           err.Error(),
		})
		return providerDownReply, sourcesOf(hits)
	}

	return reply, sourcesOf(hits)
}

func (s *chatService) loadHistory(ctx context.Context, conversationId uuid.UUID) ([]llm.Message, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	stored, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(stored))
	for _, m := range stored {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	return trimHistory(history, historyTokenBudget), nil
}

// trimHistory drops the oldest messages until the remainder fits the token
// budget. The last message is always kept.
func trimHistory(history []llm.Message, budget int) []llm.Message {
	total := 0
	for i := len(history) - 1; i >= 0; i-- {
		total += utils.CountTokens(history[i].Content)
		if total > budget && i < len(history)-1 {
			return history[i+1:]
		}
	}
	return history
}

func buildSystemPrompt(kind string, hits []vectorstore.ScoredChunk) string {
	var sb strings.Builder
	switch kind {
	case entity.ConversationKindRepository:
		sb.WriteString("You are a helpful assistant answering questions about a code repository. ")
		sb.WriteString("Base your answers on the source excerpts below; mention file paths when relevant.\n\n")
	default:
		sb.WriteString("You are a helpful assistant answering questions about the user's documents. ")
		sb.WriteString("Base your answers on the excerpts below; say so when the excerpts do not cover the question.\n\n")
	}

	sb.WriteString("Context:\n")
	for i, hit := range hits {
		fmt.Fprintf(&sb, "--- [%d] %s ---\n%s\n\n", i+1, hit.Source, hit.Content)
	}
	return sb.String()
}

func sourcesOf(hits []vectorstore.ScoredChunk) []dto.SourceReference {
	sources := make([]dto.SourceReference, len(hits))
	for i, hit := range hits {
		sources[i] = dto.SourceReference{
			Source:     hit.Source,
			ChunkType:  hit.ChunkType,
			Similarity: hit.Similarity,
		}
	}
	return sources
}

func (s *chatService) GetConversations(ctx context.Context, userId uuid.UUID) ([]dto.ConversationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conversations, err := uow.ConversationRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: conversationListLimit},
	)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ConversationResponse, len(conversations))
	for i, c := range conversations {
		out[i] = conversationResponseOf(c)
	}
	return out, nil
}

func (s *chatService) GetConversation(ctx context.Context, userId, conversationId uuid.UUID) (*dto.ConversationDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: conversationId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, serverutils.NotFoundError("conversation not found")
	}

	stored, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	messages := make([]dto.ChatMessageResponse, len(stored))
	for i, m := range stored {
		messages[i] = dto.ChatMessageResponse{
			Id:             m.Id,
			ConversationId: m.ConversationId,
			Role:           m.Role,
			Content:        m.Content,
			CreatedAt:      m.CreatedAt,
		}
	}

	return &dto.ConversationDetailResponse{
		Conversation: conversationResponseOf(conversation),
		Messages:     messages,
	}, nil
}

// DeleteConversation removes the vector collection first, then the
// relational rows. A vector cleanup failure is logged and does not block the
// delete; orphaned collections are cheaper than a conversation the user
// cannot remove.
func (s *chatService) DeleteConversation(ctx context.Context, userId, conversationId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: conversationId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if conversation == nil {
		return serverutils.NotFoundError("conversation not found")
	}

	if err := s.store.Delete(ctx, conversation.CollectionId()); err != nil {
		s.log.Error("chat", "vector collection cleanup failed", map[string]interface{}{
			"conversation_id": conversationId.String(),
			"error":           err.Error(),
		})
	}

	txUow := s.uowFactory.NewUnitOfWork(ctx)
	if err := txUow.Begin(ctx); err != nil {
		return err
	}
	defer txUow.Rollback()

	if err := txUow.MessageRepository().DeleteByConversationId(ctx, conversationId); err != nil {
		return err
	}
	if err := txUow.ConversationRepository().Delete(ctx, conversationId); err != nil {
		return err
	}

	return txUow.Commit()
}

func conversationResponseOf(c *entity.Conversation) dto.ConversationResponse {
	return dto.ConversationResponse{
		Id:        c.Id,
		Kind:      c.Kind,
		Title:     c.Title,
		Model:     c.Model,
		CreatedAt: c.CreatedAt,
	}
}
