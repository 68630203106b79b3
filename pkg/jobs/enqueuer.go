package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/internal/repository/specification"
	"ragchat-be/internal/repository/unitofwork"
	"ragchat-be/pkg/queue"

	"github.com/google/uuid"
)

// jobMessage is the wire payload between enqueuer and worker. Only the id
// travels; the worker reloads the authoritative row from the database.
type jobMessage struct {
	JobId uuid.UUID `json:"job_id"`
}

// Enqueuer persists ingestion jobs and hands them to the queue. The row is
// the source of truth: a job that never reaches a worker stays queued and is
// re-published on the next startup.
type Enqueuer struct {
	uowFactory unitofwork.RepositoryFactory
	publisher  queue.Publisher
	subject    string
	log        logger.ILogger
}

func NewEnqueuer(uowFactory unitofwork.RepositoryFactory, publisher queue.Publisher, subject string, log logger.ILogger) *Enqueuer {
	return &Enqueuer{
		uowFactory: uowFactory,
		publisher:  publisher,
		subject:    subject,
		log:        log,
	}
}

// EnqueueFile submits a document ingestion job for an already-saved upload.
func (e *Enqueuer) EnqueueFile(ctx context.Context, userId, conversationId uuid.UUID, filePath, fileName string) (*entity.IngestionJob, error) {
	job := &entity.IngestionJob{
		Id:             uuid.New(),
		ConversationId: conversationId,
		UserId:         userId,
		Kind:           entity.JobKindFile,
		FilePath:       filePath,
		FileName:       fileName,
		State:          entity.JobStateQueued,
	}
	return e.submit(ctx, job)
}

// EnqueueRepository submits a repository ingestion job.
func (e *Enqueuer) EnqueueRepository(ctx context.Context, userId, conversationId uuid.UUID, repoURL string) (*entity.IngestionJob, error) {
	job := &entity.IngestionJob{
		Id:             uuid.New(),
		ConversationId: conversationId,
		UserId:         userId,
		Kind:           entity.JobKindRepository,
		RepoURL:        repoURL,
		State:          entity.JobStateQueued,
	}
	return e.submit(ctx, job)
}

func (e *Enqueuer) submit(ctx context.Context, job *entity.IngestionJob) (*entity.IngestionJob, error) {
	uow := e.uowFactory.NewUnitOfWork(ctx)
	if err := uow.IngestionJobRepository().Create(ctx, job); err != nil {
		return nil, fmt.Errorf("persist job: %w", err)
	}

	if err := e.publish(ctx, job.Id); err != nil {
		// The queued row survives; RequeuePending picks it up later.
		e.log.Error("jobs", "failed to publish job, left queued for requeue", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  err.Error(),
		})
		return job, nil
	}

	e.log.Info("jobs", "job enqueued", map[string]interface{}{
		"job_id": job.Id.String(),
		"kind":   job.Kind,
	})
	return job, nil
}

func (e *Enqueuer) publish(ctx context.Context, jobId uuid.UUID) error {
	payload, err := json.Marshal(jobMessage{JobId: jobId})
	if err != nil {
		return err
	}
	return e.publisher.Publish(ctx, e.subject, payload)
}

// RequeuePending re-publishes every job still in the queued state. Called on
// startup so work submitted right before a crash is not lost.
func (e *Enqueuer) RequeuePending(ctx context.Context) error {
	uow := e.uowFactory.NewUnitOfWork(ctx)
	pending, err := uow.IngestionJobRepository().FindAll(ctx, specification.ByState{State: entity.JobStateQueued})
	if err != nil {
		return fmt.Errorf("load queued jobs: %w", err)
	}

	for _, job := range pending {
		if err := e.publish(ctx, job.Id); err != nil {
			e.log.Error("jobs", "failed to requeue job", map[string]interface{}{
				"job_id": job.Id.String(),
				"error":  err.Error(),
			})
			continue
		}
	}

	if len(pending) > 0 {
		e.log.Info("jobs", "requeued pending jobs", map[string]interface{}{
			"count": len(pending),
		})
	}
	return nil
}
