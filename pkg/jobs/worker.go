package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/internal/repository/specification"
	"ragchat-be/internal/repository/unitofwork"
	"ragchat-be/pkg/embedding"
	"ragchat-be/pkg/loader"
	"ragchat-be/pkg/queue"
	"ragchat-be/pkg/utils"
	"ragchat-be/pkg/vectorstore"

	"github.com/google/uuid"
)

const (
	chunkSize    = 1500
	chunkOverlap = 200

	processTimeout = 10 * time.Minute

	progressClaimed   = 10
	progressExtracted = 30
	progressChunked   = 50
	progressEmbedded  = 70
	progressStored    = 90
)

// FileExtractor turns a saved upload into a document.
type FileExtractor interface {
	Load(path, originalName string) (*loader.Document, error)
}

// RepoExtractor turns a repository URL into per-file documents.
type RepoExtractor interface {
	Load(ctx context.Context, url string) ([]*loader.Document, error)
}

// Worker consumes ingestion jobs: it claims the job row, extracts text,
// chunks and embeds it, and appends the result to the conversation's vector
// collection. Failures mark the job failed and acknowledge the message;
// there is no automatic retry.
type Worker struct {
	uowFactory unitofwork.RepositoryFactory
	subscriber queue.Subscriber
	subject    string
	store      vectorstore.Store
	embedder   embedding.Provider
	fileLoader FileExtractor
	repoLoader RepoExtractor
	log        logger.ILogger
}

func NewWorker(
	uowFactory unitofwork.RepositoryFactory,
	subscriber queue.Subscriber,
	subject string,
	store vectorstore.Store,
	embedder embedding.Provider,
	fileLoader FileExtractor,
	repoLoader RepoExtractor,
	log logger.ILogger,
) *Worker {
	return &Worker{
		uowFactory: uowFactory,
		subscriber: subscriber,
		subject:    subject,
		store:      store,
		embedder:   embedder,
		fileLoader: fileLoader,
		repoLoader: repoLoader,
		log:        log,
	}
}

// Start attaches the worker to its subject. Message handling runs on the
// subscriber's goroutines.
func (w *Worker) Start() error {
	return w.subscriber.Subscribe(w.subject, w.handle)
}

func (w *Worker) handle(ctx context.Context, payload []byte) error {
	var msg jobMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		// Malformed payloads are acked; redelivery cannot fix them.
		w.log.Error("jobs", "dropping malformed job message", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	uow := w.uowFactory.NewUnitOfWork(ctx)
	repo := uow.IngestionJobRepository()

	job, err := repo.FindOne(ctx, specification.ByID{ID: msg.JobId})
	if err != nil {
		return fmt.Errorf("load job %s: %w", msg.JobId, err)
	}
	if job == nil {
		w.log.Warn("jobs", "job row missing, dropping message", map[string]interface{}{
			"job_id": msg.JobId.String(),
		})
		return nil
	}

	claimed, err := repo.Claim(ctx, job.Id)
	if err != nil {
		return fmt.Errorf("claim job %s: %w", job.Id, err)
	}
	if !claimed {
		// Another delivery already took it, or the job is terminal.
		return nil
	}

	w.setProgress(ctx, job.Id, progressClaimed)

	// Renegade clones or stuck providers must not pin a worker forever.
	processCtx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	chunkCount, err := w.process(processCtx, job)

	// The saved upload is spent either way; failed jobs must not leak files.
	if job.Kind == entity.JobKindFile {
		w.cleanupUpload(job)
	}

	if err != nil {
		w.log.Error("jobs", "job failed", map[string]interface{}{
			"job_id": job.Id.String(),
			"kind":   job.Kind,
			"error":  err.Error(),
		})
		if failErr := repo.Fail(ctx, job.Id, err.Error()); failErr != nil {
			w.log.Error("jobs", "could not record job failure", map[string]interface{}{
				"job_id": job.Id.String(),
				"error":  failErr.Error(),
			})
		}
		return nil
	}

	if err := repo.Complete(ctx, job.Id, chunkCount); err != nil {
		return fmt.Errorf("complete job %s: %w", job.Id, err)
	}

	w.log.Info("jobs", "job completed", map[string]interface{}{
		"job_id": job.Id.String(),
		"kind":   job.Kind,
		"chunks": chunkCount,
	})
	return nil
}

func (w *Worker) process(ctx context.Context, job *entity.IngestionJob) (int, error) {
	uow := w.uowFactory.NewUnitOfWork(ctx)
	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: job.ConversationId})
	if err != nil {
		return 0, fmt.Errorf("load conversation: %w", err)
	}
	if conversation == nil {
		return 0, fmt.Errorf("conversation %s no longer exists", job.ConversationId)
	}

	var docs []*loader.Document
	switch job.Kind {
	case entity.JobKindFile:
		doc, err := w.fileLoader.Load(job.FilePath, job.FileName)
		if err != nil {
			return 0, err
		}
		docs = []*loader.Document{doc}
	case entity.JobKindRepository:
		docs, err = w.repoLoader.Load(ctx, job.RepoURL)
		if err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("unknown job kind: %s", job.Kind)
	}

	w.setProgress(ctx, job.Id, progressExtracted)

	var chunks []vectorstore.Chunk
	var texts []string
	for _, doc := range docs {
		for _, piece := range utils.SplitText(doc.Content, chunkSize, chunkOverlap) {
			chunks = append(chunks, vectorstore.Chunk{
				Content:   piece,
				Source:    doc.Source,
				ChunkType: doc.Metadata["type"],
			})
			texts = append(texts, piece)
		}
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no chunks produced from %s", job.Kind)
	}

	w.setProgress(ctx, job.Id, progressChunked)

	vectors, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	w.setProgress(ctx, job.Id, progressEmbedded)

	collectionId := conversation.CollectionId()
	if err := w.store.Ensure(ctx, collectionId); err != nil {
		return 0, fmt.Errorf("ensure collection: %w", err)
	}
	if err := w.store.Append(ctx, collectionId, chunks); err != nil {
		return 0, fmt.Errorf("append chunks: %w", err)
	}

	w.setProgress(ctx, job.Id, progressStored)

	return len(chunks), nil
}

func (w *Worker) setProgress(ctx context.Context, id uuid.UUID, progress int) {
	uow := w.uowFactory.NewUnitOfWork(ctx)
	if err := uow.IngestionJobRepository().UpdateProgress(ctx, id, progress); err != nil {
		w.log.Warn("jobs", "progress update failed", map[string]interface{}{
			"job_id":   id.String(),
			"progress": progress,
			"error":    err.Error(),
		})
	}
}

func (w *Worker) cleanupUpload(job *entity.IngestionJob) {
	if job.FilePath == "" {
		return
	}
	if err := os.Remove(job.FilePath); err != nil && !os.IsNotExist(err) {
		w.log.Warn("jobs", "could not remove processed upload", map[string]interface{}{
			"path":  job.FilePath,
			"error": err.Error(),
		})
	}
}
