package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ragchat-be/internal/dto"
	"ragchat-be/internal/entity"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/internal/pkg/serverutils"
	"ragchat-be/internal/repository/specification"
	"ragchat-be/internal/repository/unitofwork"
	"ragchat-be/pkg/github"
	"ragchat-be/pkg/jobs"
	"ragchat-be/pkg/loader"
	"ragchat-be/pkg/quota"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

const pendingGuardTTL = 2 * time.Minute

// RepoChecker answers whether a repository is reachable before a clone is
// attempted. Satisfied by github.Client.
type RepoChecker interface {
	Exists(ctx context.Context, repo github.Repo) (bool, error)
}

type IIngestionService interface {
	SubmitFile(ctx context.Context, userId uuid.UUID, conversationId *uuid.UUID, fileName string, size int64, src io.Reader) (*dto.IngestionSubmitResponse, error)
	SubmitRepository(ctx context.Context, userId uuid.UUID, req *dto.SubmitRepositoryRequest) (*dto.IngestionSubmitResponse, error)
	GetJobStatus(ctx context.Context, userId, jobId uuid.UUID) (*dto.JobStatusResponse, error)
}

type ingestionService struct {
	uowFactory   unitofwork.RepositoryFactory
	ledger       *quota.Ledger
	enqueuer     *jobs.Enqueuer
	statusSvc    *jobs.StatusService
	fileLoader   *loader.FileLoader
	github       RepoChecker
	uploadDir    string
	maxFileBytes int64
	defaultModel string

	// Best-effort guard against double submission while a job is pending.
	// TTL-based, per user and kind; not a correctness mechanism.
	pending *gocache.Cache

	log logger.ILogger
}

func NewIngestionService(
	uowFactory unitofwork.RepositoryFactory,
	ledger *quota.Ledger,
	enqueuer *jobs.Enqueuer,
	statusSvc *jobs.StatusService,
	fileLoader *loader.FileLoader,
	githubClient RepoChecker,
	uploadDir string,
	maxFileBytes int64,
	defaultModel string,
	log logger.ILogger,
) IIngestionService {
	return &ingestionService{
		uowFactory:   uowFactory,
		ledger:       ledger,
		enqueuer:     enqueuer,
		statusSvc:    statusSvc,
		fileLoader:   fileLoader,
		github:       githubClient,
		uploadDir:    uploadDir,
		maxFileBytes: maxFileBytes,
		defaultModel: defaultModel,
		pending:      gocache.New(pendingGuardTTL, 5*time.Minute),
		log:          log,
	}
}

func (s *ingestionService) SubmitFile(ctx context.Context, userId uuid.UUID, conversationId *uuid.UUID, fileName string, size int64, src io.Reader) (*dto.IngestionSubmitResponse, error) {
	if !s.fileLoader.Supported(fileName) {
		return nil, serverutils.BadRequestError("unsupported file format, expected pdf, doc or docx")
	}
	if size > s.maxFileBytes {
		return nil, serverutils.NewAppError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the %d MB limit", s.maxFileBytes/(1024*1024)), nil)
	}

	if err := s.checkPendingGuard(userId, entity.JobKindFile); err != nil {
		return nil, err
	}

	decision, err := s.ledger.Authorize(ctx, userId, quota.ActionUpload)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &QuotaExceededError{Decision: decision}
	}

	savedPath, err := s.saveUpload(fileName, src)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	conversation, err := s.resolveConversation(ctx, userId, conversationId, entity.ConversationKindDocument, fileName)
	if err != nil {
		os.Remove(savedPath)
		return nil, err
	}

	job, err := s.enqueuer.EnqueueFile(ctx, userId, conversation.Id, savedPath, fileName)
	if err != nil {
		os.Remove(savedPath)
		return nil, err
	}

	s.recordUsage(ctx, userId, quota.ActionUpload)
	s.armPendingGuard(userId, entity.JobKindFile)

	return &dto.IngestionSubmitResponse{
		JobId:          job.Id,
		ConversationId: conversation.Id,
		Status:         job.State,
		Usage:          s.usageSnapshot(ctx, userId),
	}, nil
}

func (s *ingestionService) SubmitRepository(ctx context.Context, userId uuid.UUID, req *dto.SubmitRepositoryRequest) (*dto.IngestionSubmitResponse, error) {
	repo, err := github.ParseRepoURL(req.RepoURL)
	if err != nil {
		return nil, serverutils.BadRequestError("invalid github repository url")
	}

	if err := s.checkPendingGuard(userId, entity.JobKindRepository); err != nil {
		return nil, err
	}

	decision, err := s.ledger.Authorize(ctx, userId, quota.ActionRepo)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &QuotaExceededError{Decision: decision}
	}

	exists, err := s.github.Exists(ctx, repo)
	if err != nil {
		// The API being unreachable should not block submission; the
		// clone step will catch a bad repository anyway.
		s.log.Warn("ingestion", "github existence check failed, proceeding", map[string]interface{}{
			"repo":  repo.String(),
			"error": err.Error(),
		})
	} else if !exists {
		return nil, serverutils.BadRequestError("github repository not found")
	}

	title := req.Title
	if title == "" {
		title = repo.String()
	}
	conversation, err := s.resolveConversation(ctx, userId, req.ConversationId, entity.ConversationKindRepository, title)
	if err != nil {
		return nil, err
	}

	job, err := s.enqueuer.EnqueueRepository(ctx, userId, conversation.Id, repo.CloneURL())
	if err != nil {
		return nil, err
	}

	s.recordUsage(ctx, userId, quota.ActionRepo)
	s.armPendingGuard(userId, entity.JobKindRepository)

	return &dto.IngestionSubmitResponse{
		JobId:          job.Id,
		ConversationId: conversation.Id,
		Status:         job.State,
		Usage:          s.usageSnapshot(ctx, userId),
	}, nil
}

// usageSnapshot is best-effort response enrichment; a snapshot failure must
// not fail a submission that already went through.
func (s *ingestionService) usageSnapshot(ctx context.Context, userId uuid.UUID) *quota.Snapshot {
	snapshot, err := s.ledger.Snapshot(ctx, userId)
	if err != nil {
		s.log.Warn("ingestion", "could not build usage snapshot", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
		return nil
	}
	return snapshot
}

func (s *ingestionService) GetJobStatus(ctx context.Context, userId, jobId uuid.UUID) (*dto.JobStatusResponse, error) {
	status, err := s.statusSvc.GetStatus(ctx, userId, jobId)
	if err != nil {
		return nil, err
	}
	return &dto.JobStatusResponse{
		JobId:          status.JobId,
		ConversationId: status.ConversationId,
		Status:         status.Status,
		Progress:       status.Progress,
		ChunkCount:     status.ChunkCount,
		Error:          status.Error,
	}, nil
}

// resolveConversation loads an existing conversation when the caller names
// one, verifying ownership and kind, and creates a fresh one otherwise.
func (s *ingestionService) resolveConversation(ctx context.Context, userId uuid.UUID, conversationId *uuid.UUID, kind, title string) (*entity.Conversation, error) {
	if conversationId == nil {
		return s.createConversation(ctx, userId, kind, title)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: *conversationId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, serverutils.NotFoundError("conversation not found")
	}
	if conversation.Kind != kind {
		return nil, serverutils.BadRequestError("conversation kind does not match the submitted source")
	}
	return conversation, nil
}

func (s *ingestionService) createConversation(ctx context.Context, userId uuid.UUID, kind, title string) (*entity.Conversation, error) {
	conversation := &entity.Conversation{
		Id:        uuid.New(),
		UserId:    userId,
		Kind:      kind,
		Title:     title,
		Model:     s.defaultModel,
		CreatedAt: time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ConversationRepository().Create(ctx, conversation); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conversation, nil
}

func (s *ingestionService) saveUpload(fileName string, src io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	path := filepath.Join(s.uploadDir, uuid.NewString()+ext)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	// The size header is advisory; enforce the limit on actual bytes.
	written, err := io.Copy(dst, io.LimitReader(src, s.maxFileBytes+1))
	if err != nil {
		os.Remove(path)
		return "", err
	}
	if written > s.maxFileBytes {
		os.Remove(path)
		return "", serverutils.NewAppError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the %d MB limit", s.maxFileBytes/(1024*1024)), nil)
	}

	return path, nil
}

func (s *ingestionService) checkPendingGuard(userId uuid.UUID, kind string) error {
	if _, found := s.pending.Get(pendingKey(userId, kind)); found {
		return serverutils.NewAppError(fiber.StatusConflict,
			"a previous ingestion is still being processed, try again shortly", nil)
	}
	return nil
}

func (s *ingestionService) armPendingGuard(userId uuid.UUID, kind string) {
	s.pending.Set(pendingKey(userId, kind), true, pendingGuardTTL)
}

func pendingKey(userId uuid.UUID, kind string) string {
	return userId.String() + ":" + kind
}

func (s *ingestionService) recordUsage(ctx context.Context, userId uuid.UUID, action quota.Action) {
	if err := s.ledger.Record(ctx, userId, action); err != nil {
		s.log.Error("ingestion", "failed to record usage", map[string]interface{}{
			"user_id": userId.String(),
			"action":  string(action),
			"error":   err.Error(),
		})
	}
}
