package quota

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Action is a billable user action.
type Action string

const (
	ActionMessage Action = "message"
	ActionUpload  Action = "upload"
	ActionRepo    Action = "repo"
)

func (a Action) counter() string {
	switch a {
	case ActionMessage:
		return "messages"
	case ActionUpload:
		return "uploads"
	case ActionRepo:
		return "repos"
	}
	return ""
}

const (
	ReasonDailyLimitExceeded   = "daily_limit_exceeded"
	ReasonMonthlyLimitExceeded = "monthly_limit_exceeded"
)

// ErrInvalidLimit rejects limit overrides below one action per window.
var ErrInvalidLimit = errors.New("limit must be at least 1")

// Defaults are the system-wide quota limits applied to users
// without a per-user override.
type Defaults struct {
	DailyLimit   int
	MonthlyLimit int
}

type Breakdown struct {
	Messages int `json:"messages"`
	Uploads  int `json:"uploads"`
	Repos    int `json:"repos"`
}

type Window struct {
	Used       int       `json:"used"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	Percentage int       `json:"percentage"`
	Breakdown  Breakdown `json:"breakdown"`
}

type WeeklyEntry struct {
	Date      string    `json:"date"`
	Total     int       `json:"total"`
	Breakdown Breakdown `json:"breakdown"`
}

// Snapshot is the full usage picture returned to clients: today's window,
// the calendar-month window, and the trailing seven days.
type Snapshot struct {
	Daily   Window        `json:"daily"`
	Monthly Window        `json:"monthly"`
	Weekly  []WeeklyEntry `json:"weekly"`
}

// Decision is the outcome of an authorization check. When denied, Reason
// names the exhausted window and Snapshot carries the usage state that
// produced the denial.
type Decision struct {
	Allowed  bool
	Reason   string
	Snapshot *Snapshot
}

// Ledger meters billable actions against per-user daily and monthly limits.
// Counting is delegated to an atomic per-day upsert, so concurrent actions
// never lose increments; authorization is a read-only check and is therefore
// advisory under races (a burst may briefly overshoot the limit by the
// number of in-flight requests).
type Ledger struct {
	uowFactory unitofwork.RepositoryFactory
	defaults   Defaults
	now        func() time.Time
}

func NewLedger(uowFactory unitofwork.RepositoryFactory, defaults Defaults) *Ledger {
	return &Ledger{
		uowFactory: uowFactory,
		defaults:   defaults,
		now:        time.Now,
	}
}

func (l *Ledger) limitsFor(user *entity.User) (daily, monthly int) {
	daily = l.defaults.DailyLimit
	monthly = l.defaults.MonthlyLimit
	if user.DailyLimit != nil {
		daily = *user.DailyLimit
	}
	if user.MonthlyLimit != nil {
		monthly = *user.MonthlyLimit
	}
	return daily, monthly
}

// Authorize checks whether the user may perform one more action right now.
// The daily window is checked before the monthly one, so a user who has
// exhausted both is reported against the daily limit.
func (l *Ledger) Authorize(ctx context.Context, userId uuid.UUID, action Action) (*Decision, error) {
	if action.counter() == "" {
		return nil, fmt.Errorf("unknown quota action: %s", action)
	}

	uow := l.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindByID(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", userId)
	}

	snapshot, err := l.buildSnapshot(ctx, uow, user)
	if err != nil {
		return nil, err
	}

	if snapshot.Daily.Used >= snapshot.Daily.Limit {
		return &Decision{Allowed: false, Reason: ReasonDailyLimitExceeded, Snapshot: snapshot}, nil
	}
	if snapshot.Monthly.Used >= snapshot.Monthly.Limit {
		return &Decision{Allowed: false, Reason: ReasonMonthlyLimitExceeded, Snapshot: snapshot}, nil
	}

	return &Decision{Allowed: true, Snapshot: snapshot}, nil
}

// Record counts one completed action against today's window.
func (l *Ledger) Record(ctx context.Context, userId uuid.UUID, action Action) error {
	counter := action.counter()
	if counter == "" {
		return fmt.Errorf("unknown quota action: %s", action)
	}

	uow := l.uowFactory.NewUnitOfWork(ctx)
	return uow.UsageRecordRepository().IncrementCounter(ctx, userId, l.now().UTC(), counter)
}

// Snapshot returns the user's current usage across all three windows.
func (l *Ledger) Snapshot(ctx context.Context, userId uuid.UUID) (*Snapshot, error) {
	uow := l.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindByID(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", userId)
	}

	return l.buildSnapshot(ctx, uow, user)
}

// UpdateLimits sets per-user limit overrides. It is a partial update: nil
// fields keep their current value.
func (l *Ledger) UpdateLimits(ctx context.Context, userId uuid.UUID, daily, monthly *int) error {
	if daily != nil && *daily < 1 {
		return ErrInvalidLimit
	}
	if monthly != nil && *monthly < 1 {
		return ErrInvalidLimit
	}

	uow := l.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().FindByID(ctx, userId)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %s not found", userId)
	}

	if daily != nil {
		user.DailyLimit = daily
	}
	if monthly != nil {
		user.MonthlyLimit = monthly
	}
	if err := uow.UserRepository().Update(ctx, user); err != nil {
		return fmt.Errorf("update limits: %w", err)
	}

	return uow.Commit()
}

func (l *Ledger) buildSnapshot(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User) (*Snapshot, error) {
	today := truncateToDay(l.now().UTC())
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	weekStart := today.AddDate(0, 0, -6)

	from := monthStart
	if weekStart.Before(from) {
		from = weekStart
	}

	records, err := uow.UsageRecordRepository().FindByUserInRange(ctx, user.Id, from, today)
	if err != nil {
		return nil, fmt.Errorf("load usage records: %w", err)
	}

	byDay := make(map[string]*entity.UsageRecord, len(records))
	for _, r := range records {
		byDay[r.UsageDate.Format("2006-01-02")] = r
	}

	dailyLimit, monthlyLimit := l.limitsFor(user)

	var daily Breakdown
	if r, ok := byDay[today.Format("2006-01-02")]; ok {
		daily = Breakdown{Messages: r.Messages, Uploads: r.Uploads, Repos: r.Repos}
	}

	var monthly Breakdown
	for _, r := range records {
		if r.UsageDate.Before(monthStart) {
			continue
		}
		monthly.Messages += r.Messages
		monthly.Uploads += r.Uploads
		monthly.Repos += r.Repos
	}

	// Exactly seven entries, oldest first, zero-filled for silent days.
	weekly := make([]WeeklyEntry, 0, 7)
	for d := weekStart; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		entry := WeeklyEntry{Date: key}
		if r, ok := byDay[key]; ok {
			entry.Breakdown = Breakdown{Messages: r.Messages, Uploads: r.Uploads, Repos: r.Repos}
			entry.Total = r.Total()
		}
		weekly = append(weekly, entry)
	}

	return &Snapshot{
		Daily:   makeWindow(daily, dailyLimit),
		Monthly: makeWindow(monthly, monthlyLimit),
		Weekly:  weekly,
	}, nil
}

func makeWindow(b Breakdown, limit int) Window {
	used := b.Messages + b.Uploads + b.Repos
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	percentage := 0
	if limit > 0 {
		percentage = int(math.Round(float64(used) / float64(limit) * 100))
	}
	return Window{
		Used:       used,
		Limit:      limit,
		Remaining:  remaining,
		Percentage: percentage,
		Breakdown:  b,
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
