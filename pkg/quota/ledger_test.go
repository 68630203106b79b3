package quota

import (
	"context"
	"testing"
	"time"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/repository/contract"
	"ragchat-be/internal/repository/specification"
	"ragchat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeUserRepository struct {
	users map[uuid.UUID]*entity.User
}

func (f *fakeUserRepository) Create(ctx context.Context, user *entity.User) error {
	f.users[user.Id] = user
	return nil
}

func (f *fakeUserRepository) Update(ctx context.Context, user *entity.User) error {
	f.users[user.Id] = user
	return nil
}

func (f *fakeUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

type fakeUsageRepository struct {
	records []*entity.UsageRecord
}

func (f *fakeUsageRepository) find(userId uuid.UUID, date time.Time) *entity.UsageRecord {
	for _, r := range f.records {
		if r.UserId == userId && r.UsageDate.Equal(date) {
			return r
		}
	}
	return nil
}

func (f *fakeUsageRepository) IncrementCounter(ctx context.Context, userId uuid.UUID, date time.Time, counter string) error {
	day := truncateToDay(date)
	r := f.find(userId, day)
	if r == nil {
		r = &entity.UsageRecord{Id: uuid.New(), UserId: userId, UsageDate: day}
		f.records = append(f.records, r)
	}
	switch counter {
	case "messages":
		r.Messages++
	case "uploads":
		r.Uploads++
	case "repos":
		r.Repos++
	}
	return nil
}

func (f *fakeUsageRepository) FindByUserInRange(ctx context.Context, userId uuid.UUID, from, to time.Time) ([]*entity.UsageRecord, error) {
	var out []*entity.UsageRecord
	for _, r := range f.records {
		if r.UserId == userId && !r.UsageDate.Before(from) && !r.UsageDate.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeUsageRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UsageRecord, error) {
	return f.records, nil
}

type fakeUnitOfWork struct {
	users *fakeUserRepository
	usage *fakeUsageRepository
}

func (f *fakeUnitOfWork) Begin(ctx context.Context) error { return nil }
func (f *fakeUnitOfWork) Commit() error                   { return nil }
func (f *fakeUnitOfWork) Rollback() error                 { return nil }

func (f *fakeUnitOfWork) UserRepository() contract.UserRepository                 { return f.users }
func (f *fakeUnitOfWork) ConversationRepository() contract.ConversationRepository { return nil }
func (f *fakeUnitOfWork) MessageRepository() contract.MessageRepository           { return nil }
func (f *fakeUnitOfWork) UsageRecordRepository() contract.UsageRecordRepository   { return f.usage }
func (f *fakeUnitOfWork) IngestionJobRepository() contract.IngestionJobRepository { return nil }
func (f *fakeUnitOfWork) ChunkEmbeddingRepository() contract.ChunkEmbeddingRepository {
	return nil
}

type fakeFactory struct {
	uow *fakeUnitOfWork
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

// --- helpers ---

var testNow = time.Date(2026, 8, 30, 15, 4, 0, 0, time.UTC)

func newTestLedger(user *entity.User, records []*entity.UsageRecord, defaults Defaults) (*Ledger, *fakeUsageRepository) {
	usage := &fakeUsageRepository{records: records}
	uow := &fakeUnitOfWork{
		users: &fakeUserRepository{users: map[uuid.UUID]*entity.User{user.Id: user}},
		usage: usage,
	}
	ledger := NewLedger(&fakeFactory{uow: uow}, defaults)
	ledger.now = func() time.Time { return testNow }
	return ledger, usage
}

func dayRecord(userId uuid.UUID, daysAgo, messages, uploads, repos int) *entity.UsageRecord {
	return &entity.UsageRecord{
		Id:        uuid.New(),
		UserId:    userId,
		UsageDate: truncateToDay(testNow).AddDate(0, 0, -daysAgo),
		Messages:  messages,
		Uploads:   uploads,
		Repos:     repos,
	}
}

// --- tests ---

func TestAuthorize(t *testing.T) {
	userId := uuid.New()
	five := 5

	tests := []struct {
		name        string
		user        *entity.User
		records     []*entity.UsageRecord
		defaults    Defaults
		wantAllowed bool
		wantReason  string
	}{
		{
			name:        "allowed under both limits",
			user:        &entity.User{Id: userId},
			records:     []*entity.UsageRecord{dayRecord(userId, 0, 3, 1, 0)},
			defaults:    Defaults{DailyLimit: 50, MonthlyLimit: 1000},
			wantAllowed: true,
		},
		{
			name:        "denied when daily exhausted",
			user:        &entity.User{Id: userId},
			records:     []*entity.UsageRecord{dayRecord(userId, 0, 48, 1, 1)},
			defaults:    Defaults{DailyLimit: 50, MonthlyLimit: 1000},
			wantAllowed: false,
			wantReason:  ReasonDailyLimitExceeded,
		},
		{
			name: "denied when monthly exhausted",
			user: &entity.User{Id: userId},
			records: []*entity.UsageRecord{
				dayRecord(userId, 2, 30, 0, 0),
				dayRecord(userId, 1, 30, 0, 0),
			},
			defaults:    Defaults{DailyLimit: 50, MonthlyLimit: 60},
			wantAllowed: false,
			wantReason:  ReasonMonthlyLimitExceeded,
		},
		{
			name: "daily checked before monthly",
			user: &entity.User{Id: userId},
			records: []*entity.UsageRecord{
				dayRecord(userId, 1, 50, 0, 0),
				dayRecord(userId, 0, 50, 0, 0),
			},
			defaults:    Defaults{DailyLimit: 50, MonthlyLimit: 60},
			wantAllowed: false,
			wantReason:  ReasonDailyLimitExceeded,
		},
		{
			name:        "per-user override beats default",
			user:        &entity.User{Id: userId, DailyLimit: &five},
			records:     []*entity.UsageRecord{dayRecord(userId, 0, 5, 0, 0)},
			defaults:    Defaults{DailyLimit: 50, MonthlyLimit: 1000},
			wantAllowed: false,
			wantReason:  ReasonDailyLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, _ := newTestLedger(tt.user, tt.records, tt.defaults)

			decision, err := ledger.Authorize(context.Background(), userId, ActionMessage)
			require.NoError(t, err)

			assert.Equal(t, tt.wantAllowed, decision.Allowed)
			assert.Equal(t, tt.wantReason, decision.Reason)
			require.NotNil(t, decision.Snapshot)
		})
	}
}

func TestAuthorizeUnknownAction(t *testing.T) {
	userId := uuid.New()
	ledger, _ := newTestLedger(&entity.User{Id: userId}, nil, Defaults{DailyLimit: 50, MonthlyLimit: 1000})

	_, err := ledger.Authorize(context.Background(), userId, Action("bogus"))
	assert.Error(t, err)
}

func TestRecordIncrementsCounter(t *testing.T) {
	userId := uuid.New()
	ledger, usage := newTestLedger(&entity.User{Id: userId}, nil, Defaults{DailyLimit: 50, MonthlyLimit: 1000})

	require.NoError(t, ledger.Record(context.Background(), userId, ActionUpload))
	require.NoError(t, ledger.Record(context.Background(), userId, ActionUpload))
	require.NoError(t, ledger.Record(context.Background(), userId, ActionMessage))

	r := usage.find(userId, truncateToDay(testNow))
	require.NotNil(t, r)
	assert.Equal(t, 2, r.Uploads)
	assert.Equal(t, 1, r.Messages)
	assert.Equal(t, 0, r.Repos)
}

func TestSnapshotWeekly(t *testing.T) {
	userId := uuid.New()
	records := []*entity.UsageRecord{
		dayRecord(userId, 6, 2, 0, 0),
		dayRecord(userId, 3, 0, 1, 1),
		dayRecord(userId, 0, 4, 0, 0),
	}
	ledger, _ := newTestLedger(&entity.User{Id: userId}, records, Defaults{DailyLimit: 50, MonthlyLimit: 1000})

	snapshot, err := ledger.Snapshot(context.Background(), userId)
	require.NoError(t, err)

	require.Len(t, snapshot.Weekly, 7)

	// Oldest first, zero-filled where nothing happened.
	assert.Equal(t, "2026-08-24", snapshot.Weekly[0].Date)
	assert.Equal(t, 2, snapshot.Weekly[0].Total)
	assert.Equal(t, "2026-08-25", snapshot.Weekly[1].Date)
	assert.Equal(t, 0, snapshot.Weekly[1].Total)
	assert.Equal(t, "2026-08-27", snapshot.Weekly[3].Date)
	assert.Equal(t, 2, snapshot.Weekly[3].Total)
	assert.Equal(t, Breakdown{Uploads: 1, Repos: 1}, snapshot.Weekly[3].Breakdown)
	assert.Equal(t, "2026-08-30", snapshot.Weekly[6].Date)
	assert.Equal(t, 4, snapshot.Weekly[6].Total)
}

func TestSnapshotWindows(t *testing.T) {
	userId := uuid.New()
	records := []*entity.UsageRecord{
		dayRecord(userId, 10, 7, 0, 0), // in month, outside week
		dayRecord(userId, 0, 1, 0, 0),
	}
	ledger, _ := newTestLedger(&entity.User{Id: userId}, records, Defaults{DailyLimit: 3, MonthlyLimit: 100})

	snapshot, err := ledger.Snapshot(context.Background(), userId)
	require.NoError(t, err)

	assert.Equal(t, 1, snapshot.Daily.Used)
	assert.Equal(t, 3, snapshot.Daily.Limit)
	assert.Equal(t, 2, snapshot.Daily.Remaining)
	assert.Equal(t, 33, snapshot.Daily.Percentage)

	assert.Equal(t, 8, snapshot.Monthly.Used)
	assert.Equal(t, 92, snapshot.Monthly.Remaining)
	assert.Equal(t, 8, snapshot.Monthly.Percentage)
}

func TestSnapshotRemainingNeverNegative(t *testing.T) {
	userId := uuid.New()
	records := []*entity.UsageRecord{dayRecord(userId, 0, 10, 0, 0)}
	ledger, _ := newTestLedger(&entity.User{Id: userId}, records, Defaults{DailyLimit: 5, MonthlyLimit: 100})

	snapshot, err := ledger.Snapshot(context.Background(), userId)
	require.NoError(t, err)

	assert.Equal(t, 0, snapshot.Daily.Remaining)
	assert.Equal(t, 200, snapshot.Daily.Percentage)
}

func TestUpdateLimits(t *testing.T) {
	userId := uuid.New()
	user := &entity.User{Id: userId}
	ledger, _ := newTestLedger(user, nil, Defaults{DailyLimit: 50, MonthlyLimit: 1000})

	ten, hundred := 10, 100
	require.NoError(t, ledger.UpdateLimits(context.Background(), userId, &ten, &hundred))

	snapshot, err := ledger.Snapshot(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, 10, snapshot.Daily.Limit)
	assert.Equal(t, 100, snapshot.Monthly.Limit)

	// Partial update: a nil field keeps its current value.
	twenty := 20
	require.NoError(t, ledger.UpdateLimits(context.Background(), userId, &twenty, nil))
	snapshot, err = ledger.Snapshot(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, 20, snapshot.Daily.Limit)
	assert.Equal(t, 100, snapshot.Monthly.Limit)
}

func TestUpdateLimitsRejectsNonPositive(t *testing.T) {
	userId := uuid.New()
	user := &entity.User{Id: userId}
	ledger, _ := newTestLedger(user, nil, Defaults{DailyLimit: 50, MonthlyLimit: 1000})

	zero := 0
	assert.ErrorIs(t, ledger.UpdateLimits(context.Background(), userId, &zero, nil), ErrInvalidLimit)
	assert.ErrorIs(t, ledger.UpdateLimits(context.Background(), userId, nil, &zero), ErrInvalidLimit)
}
