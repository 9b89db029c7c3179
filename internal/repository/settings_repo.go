package repository

import (
	"context"
	"errors"

	"github.com/lamisoft/wadispatch/internal/domain"
	"gorm.io/gorm"
)

// settingsRowID pins the whatsapp_settings table to a single row.
const settingsRowID = 1

type SettingsRepository interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Upsert(ctx context.Context, settings *domain.Settings) error
}

type GormSettingsRepo struct {
	db *gorm.DB
}

func NewGormSettingsRepo(db *gorm.DB) *GormSettingsRepo {
	return &GormSettingsRepo{db: db}
}

func (r *GormSettingsRepo) Get(ctx context.Context) (*domain.Settings, error) {
	var model SettingsModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", settingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return settingsModelToDomain(&model), nil
}

func (r *GormSettingsRepo) Upsert(ctx context.Context, settings *domain.Settings) error {
	if settings == nil {
		return domain.ErrValidation
	}

	model := SettingsModel{
		ID:                  settingsRowID,
		APIKey:              settings.APIKey,
		CompanyName:         settings.CompanyName,
		MessageDelayMillis:  settings.MessageDelayMillis,
		MessageJitterMillis: settings.MessageJitterMillis,
		BatchSize:           settings.BatchSize,
		BatchPauseMillis:    settings.BatchPauseMillis,
		DefaultTemplate:     settings.DefaultTemplate,
		ReminderTemplate:    settings.ReminderTemplate,
	}

	return r.db.WithContext(ctx).Save(&model).Error
}
