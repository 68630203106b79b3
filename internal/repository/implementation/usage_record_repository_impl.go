package implementation

import (
	"context"
	"fmt"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/mapper"
	"ragchat-be/internal/model"
	"ragchat-be/internal/repository/contract"
	"ragchat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"time"
)

// counter column allow-list. Guards against injecting arbitrary SQL through the
// counter name used in the upsert expression.
var usageCounters = map[string]bool{
	"messages": true,
	"uploads":  true,
	"repos":    true,
}

type UsageRecordRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UsageRecordMapper
}

func NewUsageRecordRepository(db *gorm.DB) contract.UsageRecordRepository {
	return &UsageRecordRepositoryImpl{
		db:     db,
		mapper: mapper.NewUsageRecordMapper(),
	}
}

func (r *UsageRecordRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *UsageRecordRepositoryImpl) IncrementCounter(ctx context.Context, userId uuid.UUID, date time.Time, counter string) error {
	if !usageCounters[counter] {
		return fmt.Errorf("unknown usage counter: %s", counter)
	}

	record := model.UsageRecord{
		Id:        uuid.New(),
		UserId:    userId,
		UsageDate: truncateToDay(date),
	}
	switch counter {
	case "messages":
		record.Messages = 1
	case "uploads":
		record.Uploads = 1
	case "repos":
		record.Repos = 1
	}

	// Single-statement upsert: first action of the day inserts, later ones bump
	// the counter in place. Safe under concurrent calls for the same user.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "usage_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			counter: gorm.Expr(fmt.Sprintf("usage_records.%s + 1", counter)),
		}),
	}).Create(&record).Error
}

func (r *UsageRecordRepositoryImpl) FindByUserInRange(ctx context.Context, userId uuid.UUID, from, to time.Time) ([]*entity.UsageRecord, error) {
	var models []*model.UsageRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Where("usage_date >= ? AND usage_date <= ?", truncateToDay(from), truncateToDay(to)).
		Order("usage_date ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *UsageRecordRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UsageRecord, error) {
	var models []*model.UsageRecord
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
