package repository

import (
	"context"
	"time"

	"github.com/lamisoft/wadispatch/internal/domain"
	"gorm.io/gorm"
)

type DeliveryLogListParams struct {
	Phone     *string
	Operation *domain.Operation
	Success   *bool
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

type DeliveryLogRepository interface {
	AppendRows(ctx context.Context, rows []domain.DeliveryLog) error
	List(ctx context.Context, params DeliveryLogListParams) ([]domain.DeliveryLog, int64, error)
}

type GormDeliveryLogRepo struct {
	db *gorm.DB
}

func NewGormDeliveryLogRepo(db *gorm.DB) *GormDeliveryLogRepo {
	return &GormDeliveryLogRepo{db: db}
}

func (r *GormDeliveryLogRepo) AppendRows(ctx context.Context, rows []domain.DeliveryLog) error {
	models := make([]DeliveryLogModel, 0, len(rows))
	for i := range rows {
		model := deliveryLogModelFromDomain(&rows[i])
		if model != nil {
			models = append(models, *model)
		}
	}

	if len(models) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).CreateInBatches(&models, 100).Error
}

func (r *GormDeliveryLogRepo) List(ctx context.Context, params DeliveryLogListParams) ([]domain.DeliveryLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&DeliveryLogModel{})

	if params.Phone != nil {
		query = query.Where("phone = ?", *params.Phone)
	}
	if params.Operation != nil {
		query = query.Where("operation = ?", *params.Operation)
	}
	if params.Success != nil {
		query = query.Where("success = ?", *params.Success)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []DeliveryLogModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	logs := make([]domain.DeliveryLog, 0, len(models))
	for i := range models {
		logs = append(logs, *deliveryLogModelToDomain(&models[i]))
	}

	return logs, total, nil
}
