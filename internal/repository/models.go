package repository

import (
	"time"

	"github.com/lamisoft/wadispatch/internal/domain"
)

// DeliveryLogModel is the persistence model for the delivery_logs table.
type DeliveryLogModel struct {
	ID           string            `gorm:"type:uuid;primaryKey"`
	ActorID      *string           `gorm:"type:varchar(64)"`
	Operation    domain.Operation  `gorm:"type:varchar(20);not null"`
	Phone        string            `gorm:"type:varchar(32);not null"`
	Success      bool              `gorm:"not null"`
	ErrorMessage *string           `gorm:"type:text"`
	MediaURL     *string           `gorm:"type:text"`
	Caption      *string           `gorm:"type:text"`
	Meta         map[string]string `gorm:"type:jsonb;serializer:json"`
	CreatedAt    time.Time
}

func (DeliveryLogModel) TableName() string {
	return "delivery_logs"
}

// SettingsModel is the persistence model for the single-row
// whatsapp_settings table.
type SettingsModel struct {
	ID                  int    `gorm:"primaryKey"`
	APIKey              string `gorm:"type:varchar(255);not null"`
	CompanyName         string `gorm:"type:varchar(255)"`
	MessageDelayMillis  int    `gorm:"not null;default:5000"`
	MessageJitterMillis int    `gorm:"not null;default:2000"`
	BatchSize           int    `gorm:"not null;default:50"`
	BatchPauseMillis    int    `gorm:"not null;default:30000"`
	DefaultTemplate     string `gorm:"type:text"`
	ReminderTemplate    string `gorm:"type:text"`
	UpdatedAt           time.Time
}

func (SettingsModel) TableName() string {
	return "whatsapp_settings"
}

// SessionModel is the persistence model for login sessions, read here only
// to annotate delivery logs with the acting user.
type SessionModel struct {
	Token     string `gorm:"type:varchar(128);primaryKey"`
	UserID    string `gorm:"type:varchar(64);not null"`
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func (SessionModel) TableName() string {
	return "sessions"
}

func deliveryLogModelFromDomain(row *domain.DeliveryLog) *DeliveryLogModel {
	if row == nil {
		return nil
	}

	return &DeliveryLogModel{
		ID:           row.ID,
		ActorID:      row.ActorID,
		Operation:    row.Operation,
		Phone:        row.Phone,
		Success:      row.Success,
		ErrorMessage: row.ErrorMessage,
		MediaURL:     row.MediaURL,
		Caption:      row.Caption,
		Meta:         row.Meta,
		CreatedAt:    row.CreatedAt,
	}
}

func deliveryLogModelToDomain(m *DeliveryLogModel) *domain.DeliveryLog {
	if m == nil {
		return nil
	}

	return &domain.DeliveryLog{
		ID:           m.ID,
		ActorID:      m.ActorID,
		Operation:    m.Operation,
		Phone:        m.Phone,
		Success:      m.Success,
		ErrorMessage: m.ErrorMessage,
		MediaURL:     m.MediaURL,
		Caption:      m.Caption,
		Meta:         m.Meta,
		CreatedAt:    m.CreatedAt,
	}
}

func settingsModelToDomain(m *SettingsModel) *domain.Settings {
	if m == nil {
		return nil
	}

	return &domain.Settings{
		APIKey:              m.APIKey,
		CompanyName:         m.CompanyName,
		MessageDelayMillis:  m.MessageDelayMillis,
		MessageJitterMillis: m.MessageJitterMillis,
		BatchSize:           m.BatchSize,
		BatchPauseMillis:    m.BatchPauseMillis,
		DefaultTemplate:     m.DefaultTemplate,
		ReminderTemplate:    m.ReminderTemplate,
	}
}
