package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/repository/contract"
	"ragchat-be/internal/repository/specification"
	"ragchat-be/internal/repository/unitofwork"
	"ragchat-be/pkg/loader"
	"ragchat-be/pkg/vectorstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type fakeJobRepository struct {
	jobs map[uuid.UUID]*entity.IngestionJob
}

func (f *fakeJobRepository) Create(ctx context.Context, job *entity.IngestionJob) error {
	f.jobs[job.Id] = job
	return nil
}

func (f *fakeJobRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.IngestionJob, error) {
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			return f.jobs[byID.ID], nil
		}
	}
	return nil, nil
}

func (f *fakeJobRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IngestionJob, error) {
	var out []*entity.IngestionJob
	for _, j := range f.jobs {
		if j.State == entity.JobStateQueued {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeJobRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	job, ok := f.jobs[id]
	if !ok || job.State != entity.JobStateQueued {
		return false, nil
	}
	job.State = entity.JobStateActive
	return true, nil
}

func (f *fakeJobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	job, ok := f.jobs[id]
	if !ok || job.State != entity.JobStateActive {
		return nil
	}
	if progress > job.Progress {
		job.Progress = progress
	}
	return nil
}

func (f *fakeJobRepository) Complete(ctx context.Context, id uuid.UUID, chunkCount int) error {
	job := f.jobs[id]
	job.State = entity.JobStateCompleted
	job.Progress = 100
	job.ChunkCount = chunkCount
	return nil
}

func (f *fakeJobRepository) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	job := f.jobs[id]
	job.State = entity.JobStateFailed
	job.Error = errMsg
	return nil
}

type fakeConversationRepository struct {
	conversations map[uuid.UUID]*entity.Conversation
}

func (f *fakeConversationRepository) Create(ctx context.Context, c *entity.Conversation) error {
	f.conversations[c.Id] = c
	return nil
}

func (f *fakeConversationRepository) Update(ctx context.Context, c *entity.Conversation) error {
	f.conversations[c.Id] = c
	return nil
}

func (f *fakeConversationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.conversations, id)
	return nil
}

func (f *fakeConversationRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error) {
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			return f.conversations[byID.ID], nil
		}
	}
	return nil, nil
}

func (f *fakeConversationRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error) {
	var out []*entity.Conversation
	for _, c := range f.conversations {
		out = append(out, c)
	}
	return out, nil
}

type fakeWorkerUow struct {
	jobs          *fakeJobRepository
	conversations *fakeConversationRepository
}

func (f *fakeWorkerUow) Begin(ctx context.Context) error { return nil }
func (f *fakeWorkerUow) Commit() error                   { return nil }
func (f *fakeWorkerUow) Rollback() error                 { return nil }

func (f *fakeWorkerUow) UserRepository() contract.UserRepository { return nil }
func (f *fakeWorkerUow) ConversationRepository() contract.ConversationRepository {
	return f.conversations
}
func (f *fakeWorkerUow) MessageRepository() contract.MessageRepository           { return nil }
func (f *fakeWorkerUow) UsageRecordRepository() contract.UsageRecordRepository   { return nil }
func (f *fakeWorkerUow) IngestionJobRepository() contract.IngestionJobRepository { return f.jobs }
func (f *fakeWorkerUow) ChunkEmbeddingRepository() contract.ChunkEmbeddingRepository {
	return nil
}

type fakeWorkerFactory struct {
	uow *fakeWorkerUow
}

func (f *fakeWorkerFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.uow
}

type fakeStore struct {
	collections map[string][]vectorstore.Chunk
	ensured     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: make(map[string][]vectorstore.Chunk)}
}

func (f *fakeStore) Ensure(ctx context.Context, collectionId string) error {
	f.ensured = append(f.ensured, collectionId)
	return nil
}

func (f *fakeStore) Append(ctx context.Context, collectionId string, chunks []vectorstore.Chunk) error {
	f.collections[collectionId] = append(f.collections[collectionId], chunks...)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, collectionId string) error {
	delete(f.collections, collectionId)
	return nil
}

func (f *fakeStore) Retrieve(ctx context.Context, collectionId string, query []float32, limit int) ([]vectorstore.ScoredChunk, error) {
	return nil, nil
}

func (f *fakeStore) Count(ctx context.Context, collectionId string) (int64, error) {
	return int64(len(f.collections[collectionId])), nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, 1536), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, 1536)
	}
	return out, nil
}

type fakeFileExtractor struct {
	doc    *loader.Document
	err    error
	called bool
}

func (f *fakeFileExtractor) Load(path, originalName string) (*loader.Document, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type fakeRepoExtractor struct {
	docs []*loader.Document
	err  error
}

func (f *fakeRepoExtractor) Load(ctx context.Context, url string) ([]*loader.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

// --- helpers ---

type workerFixture struct {
	worker        *Worker
	jobs          *fakeJobRepository
	conversations *fakeConversationRepository
	store         *fakeStore
	fileLoader    *fakeFileExtractor
	repoLoader    *fakeRepoExtractor
}

func newWorkerFixture() *workerFixture {
	jobs := &fakeJobRepository{jobs: make(map[uuid.UUID]*entity.IngestionJob)}
	conversations := &fakeConversationRepository{conversations: make(map[uuid.UUID]*entity.Conversation)}
	uow := &fakeWorkerUow{jobs: jobs, conversations: conversations}
	store := newFakeStore()
	fileLoader := &fakeFileExtractor{}
	repoLoader := &fakeRepoExtractor{}

	worker := NewWorker(
		&fakeWorkerFactory{uow: uow},
		nil, "jobs.ingestion",
		store,
		&fakeEmbedder{},
		fileLoader,
		repoLoader,
		nopLogger{},
	)
	return &workerFixture{
		worker:        worker,
		jobs:          jobs,
		conversations: conversations,
		store:         store,
		fileLoader:    fileLoader,
		repoLoader:    repoLoader,
	}
}

func (fx *workerFixture) addConversation(kind string) *entity.Conversation {
	c := &entity.Conversation{Id: uuid.New(), UserId: uuid.New(), Kind: kind}
	fx.conversations.conversations[c.Id] = c
	return c
}

func (fx *workerFixture) addJob(job *entity.IngestionJob) *entity.IngestionJob {
	fx.jobs.jobs[job.Id] = job
	return job
}

func messageFor(t *testing.T, jobId uuid.UUID) []byte {
	t.Helper()
	payload, err := json.Marshal(jobMessage{JobId: jobId})
	require.NoError(t, err)
	return payload
}

// --- tests ---

func writeUpload(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("uploaded bytes"), 0644))
	return path
}

func TestWorkerProcessesFileJob(t *testing.T) {
	fx := newWorkerFixture()
	conversation := fx.addConversation(entity.ConversationKindDocument)
	fx.fileLoader.doc = &loader.Document{
		Content:  "some extracted document text",
		Source:   "report.pdf",
		Metadata: map[string]string{"type": "pdf"},
	}
	upload := writeUpload(t, "report.pdf")
	job := fx.addJob(&entity.IngestionJob{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		UserId:         conversation.UserId,
		Kind:           entity.JobKindFile,
		FileName:       "report.pdf",
		FilePath:       upload,
		State:          entity.JobStateQueued,
	})

	err := fx.worker.handle(context.Background(), messageFor(t, job.Id))
	require.NoError(t, err)

	assert.Equal(t, entity.JobStateCompleted, job.State)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 1, job.ChunkCount)

	stored := fx.store.collections[conversation.CollectionId()]
	require.Len(t, stored, 1)
	assert.Equal(t, "report.pdf", stored[0].Source)
	assert.Equal(t, "pdf", stored[0].ChunkType)
	assert.Len(t, stored[0].Embedding, 1536)
	assert.Contains(t, fx.store.ensured, conversation.CollectionId())

	_, statErr := os.Stat(upload)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWorkerRemovesUploadWhenJobFails(t *testing.T) {
	fx := newWorkerFixture()
	conversation := fx.addConversation(entity.ConversationKindDocument)
	fx.fileLoader.err = loader.ErrExtractionFailed
	upload := writeUpload(t, "broken.pdf")
	job := fx.addJob(&entity.IngestionJob{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		UserId:         conversation.UserId,
		Kind:           entity.JobKindFile,
		FileName:       "broken.pdf",
		FilePath:       upload,
		State:          entity.JobStateQueued,
	})

	err := fx.worker.handle(context.Background(), messageFor(t, job.Id))
	require.NoError(t, err)

	assert.Equal(t, entity.JobStateFailed, job.State)
	_, statErr := os.Stat(upload)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWorkerProcessesRepositoryJob(t *testing.T) {
	fx := newWorkerFixture()
	conversation := fx.addConversation(entity.ConversationKindRepository)
	fx.repoLoader.docs = []*loader.Document{
		{Content: "package main", Source: "main.go", Metadata: map[string]string{"type": "go"}},
		{Content: "def handler(): pass", Source: "api/handler.py", Metadata: map[string]string{"type": "py"}},
	}
	job := fx.addJob(&entity.IngestionJob{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		UserId:         conversation.UserId,
		Kind:           entity.JobKindRepository,
		RepoURL:        "https://github.com/foo/bar",
		State:          entity.JobStateQueued,
	})

	err := fx.worker.handle(context.Background(), messageFor(t, job.Id))
	require.NoError(t, err)

	assert.Equal(t, entity.JobStateCompleted, job.State)
	assert.Equal(t, 2, job.ChunkCount)
	assert.Len(t, fx.store.collections[conversation.CollectionId()], 2)
}

func TestWorkerMarksJobFailedOnExtractionError(t *testing.T) {
	fx := newWorkerFixture()
	conversation := fx.addConversation(entity.ConversationKindDocument)
	fx.fileLoader.err = loader.ErrExtractionFailed
	job := fx.addJob(&entity.IngestionJob{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		UserId:         conversation.UserId,
		Kind:           entity.JobKindFile,
		State:          entity.JobStateQueued,
	})

	// Failure is terminal: the message is acked, not redelivered.
	err := fx.worker.handle(context.Background(), messageFor(t, job.Id))
	require.NoError(t, err)

	assert.Equal(t, entity.JobStateFailed, job.State)
	assert.Contains(t, job.Error, "text extraction failed")
	assert.Empty(t, fx.store.collections)
}

func TestWorkerFailsJobWhenConversationGone(t *testing.T) {
	fx := newWorkerFixture()
	job := fx.addJob(&entity.IngestionJob{
		Id:             uuid.New(),
		ConversationId: uuid.New(), // never created
		UserId:         uuid.New(),
		Kind:           entity.JobKindFile,
		State:          entity.JobStateQueued,
	})

	err := fx.worker.handle(context.Background(), messageFor(t, job.Id))
	require.NoError(t, err)

	assert.Equal(t, entity.JobStateFailed, job.State)
	assert.Contains(t, job.Error, "no longer exists")
}

func TestWorkerIgnoresAlreadyClaimedJob(t *testing.T) {
	fx := newWorkerFixture()
	conversation := fx.addConversation(entity.ConversationKindDocument)
	job := fx.addJob(&entity.IngestionJob{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		UserId:         conversation.UserId,
		Kind:           entity.JobKindFile,
		State:          entity.JobStateActive, // already claimed elsewhere
		Progress:       50,
	})

	err := fx.worker.handle(context.Background(), messageFor(t, job.Id))
	require.NoError(t, err)

	assert.False(t, fx.fileLoader.called)
	assert.Equal(t, entity.JobStateActive, job.State)
	assert.Equal(t, 50, job.Progress)
}

func TestWorkerDropsUnknownJob(t *testing.T) {
	fx := newWorkerFixture()

	err := fx.worker.handle(context.Background(), messageFor(t, uuid.New()))
	assert.NoError(t, err)
}

func TestWorkerDropsMalformedMessage(t *testing.T) {
	fx := newWorkerFixture()

	err := fx.worker.handle(context.Background(), []byte("not json"))
	assert.NoError(t, err)
}

func TestWorkerEmbeddingFailureMarksFailed(t *testing.T) {
	fx := newWorkerFixture()
	conversation := fx.addConversation(entity.ConversationKindDocument)
	fx.fileLoader.doc = &loader.Document{
		Content:  "content",
		Source:   "a.pdf",
		Metadata: map[string]string{"type": "pdf"},
	}
	fx.worker.embedder = &fakeEmbedder{err: errors.New("provider down")}
	job := fx.addJob(&entity.IngestionJob{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		UserId:         conversation.UserId,
		Kind:           entity.JobKindFile,
		State:          entity.JobStateQueued,
	})

	err := fx.worker.handle(context.Background(), messageFor(t, job.Id))
	require.NoError(t, err)

	assert.Equal(t, entity.JobStateFailed, job.State)
	assert.Contains(t, job.Error, "provider down")
}

func TestStatusService(t *testing.T) {
	jobs := &fakeJobRepository{jobs: make(map[uuid.UUID]*entity.IngestionJob)}
	uow := &fakeWorkerUow{jobs: jobs, conversations: &fakeConversationRepository{conversations: map[uuid.UUID]*entity.Conversation{}}}
	svc := NewStatusService(&fakeWorkerFactory{uow: uow})

	userId := uuid.New()
	job := &entity.IngestionJob{
		Id:             uuid.New(),
		ConversationId: uuid.New(),
		UserId:         userId,
		Kind:           entity.JobKindFile,
		State:          entity.JobStateActive,
		Progress:       70,
	}
	jobs.jobs[job.Id] = job

	status, err := svc.GetStatus(context.Background(), userId, job.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStateActive, status.Status)
	assert.Equal(t, 70, status.Progress)

	// Unknown ids report not_found instead of failing the poll.
	status, err = svc.GetStatus(context.Background(), userId, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, status.Status)
}
