package implementation

import (
	"context"
	"errors"
	"time"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/mapper"
	"ragchat-be/internal/model"
	"ragchat-be/internal/repository/contract"
	"ragchat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IngestionJobRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.IngestionJobMapper
}

func NewIngestionJobRepository(db *gorm.DB) contract.IngestionJobRepository {
	return &IngestionJobRepositoryImpl{
		db:     db,
		mapper: mapper.NewIngestionJobMapper(),
	}
}

func (r *IngestionJobRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *IngestionJobRepositoryImpl) Create(ctx context.Context, job *entity.IngestionJob) error {
	m := r.mapper.ToModel(job)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*job = *r.mapper.ToEntity(m)
	return nil
}

func (r *IngestionJobRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.IngestionJob, error) {
	var m model.IngestionJob
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *IngestionJobRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IngestionJob, error) {
	var models []*model.IngestionJob
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *IngestionJobRepositoryImpl) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.IngestionJob{}).
		Where("id = ? AND state = ?", id, entity.JobStateQueued).
		Updates(map[string]interface{}{
			"state":      entity.JobStateActive,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *IngestionJobRepositoryImpl) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	// Progress never regresses. GREATEST keeps the invariant even if updates
	// arrive out of order.
	return r.db.WithContext(ctx).Model(&model.IngestionJob{}).
		Where("id = ? AND state = ?", id, entity.JobStateActive).
		Updates(map[string]interface{}{
			"progress":   gorm.Expr("GREATEST(progress, ?)", progress),
			"updated_at": time.Now(),
		}).Error
}

func (r *IngestionJobRepositoryImpl) Complete(ctx context.Context, id uuid.UUID, chunkCount int) error {
	return r.db.WithContext(ctx).Model(&model.IngestionJob{}).
		Where("id = ? AND state = ?", id, entity.JobStateActive).
		Updates(map[string]interface{}{
			"state":       entity.JobStateCompleted,
			"progress":    100,
			"chunk_count": chunkCount,
			"updated_at":  time.Now(),
		}).Error
}

func (r *IngestionJobRepositoryImpl) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	return r.db.WithContext(ctx).Model(&model.IngestionJob{}).
		Where("id = ? AND state IN ?", id, []string{entity.JobStateQueued, entity.JobStateActive}).
		Updates(map[string]interface{}{
			"state":      entity.JobStateFailed,
			"error":      errMsg,
			"updated_at": time.Now(),
		}).Error
}
