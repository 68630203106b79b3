package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ragchat-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	published [][]byte
	err       error
}

func (p *recordingPublisher) Publish(ctx context.Context, subject string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, payload)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestEnqueueFileCreatesQueuedJobAndPublishes(t *testing.T) {
	jobs := &fakeJobRepository{jobs: make(map[uuid.UUID]*entity.IngestionJob)}
	uow := &fakeWorkerUow{jobs: jobs, conversations: &fakeConversationRepository{conversations: map[uuid.UUID]*entity.Conversation{}}}
	publisher := &recordingPublisher{}
	enqueuer := NewEnqueuer(&fakeWorkerFactory{uow: uow}, publisher, "jobs.ingestion", nopLogger{})

	userId, conversationId := uuid.New(), uuid.New()
	job, err := enqueuer.EnqueueFile(context.Background(), userId, conversationId, "/tmp/up/abc.pdf", "abc.pdf")
	require.NoError(t, err)

	assert.Equal(t, entity.JobStateQueued, job.State)
	assert.Equal(t, entity.JobKindFile, job.Kind)
	require.Len(t, publisher.published, 1)

	var msg jobMessage
	require.NoError(t, json.Unmarshal(publisher.published[0], &msg))
	assert.Equal(t, job.Id, msg.JobId)
}

func TestEnqueueSurvivesPublishFailure(t *testing.T) {
	jobs := &fakeJobRepository{jobs: make(map[uuid.UUID]*entity.IngestionJob)}
	uow := &fakeWorkerUow{jobs: jobs, conversations: &fakeConversationRepository{conversations: map[uuid.UUID]*entity.Conversation{}}}
	publisher := &recordingPublisher{err: errors.New("broker down")}
	enqueuer := NewEnqueuer(&fakeWorkerFactory{uow: uow}, publisher, "jobs.ingestion", nopLogger{})

	// The row is the source of truth; a failed publish leaves it queued
	// for RequeuePending instead of erroring out the submission.
	job, err := enqueuer.EnqueueRepository(context.Background(), uuid.New(), uuid.New(), "https://github.com/foo/bar")
	require.NoError(t, err)
	assert.Equal(t, entity.JobStateQueued, job.State)
}

func TestRequeuePending(t *testing.T) {
	jobs := &fakeJobRepository{jobs: make(map[uuid.UUID]*entity.IngestionJob)}
	uow := &fakeWorkerUow{jobs: jobs, conversations: &fakeConversationRepository{conversations: map[uuid.UUID]*entity.Conversation{}}}
	publisher := &recordingPublisher{}
	enqueuer := NewEnqueuer(&fakeWorkerFactory{uow: uow}, publisher, "jobs.ingestion", nopLogger{})

	queued := &entity.IngestionJob{Id: uuid.New(), Kind: entity.JobKindFile, State: entity.JobStateQueued}
	done := &entity.IngestionJob{Id: uuid.New(), Kind: entity.JobKindFile, State: entity.JobStateCompleted}
	jobs.jobs[queued.Id] = queued
	jobs.jobs[done.Id] = done

	require.NoError(t, enqueuer.RequeuePending(context.Background()))

	require.Len(t, publisher.published, 1)
	var msg jobMessage
	require.NoError(t, json.Unmarshal(publisher.published[0], &msg))
	assert.Equal(t, queued.Id, msg.JobId)
}
