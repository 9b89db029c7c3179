package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lamisoft/wadispatch/internal/domain"
	"gorm.io/gorm"
)

type SessionRepository interface {
	ResolveActor(ctx context.Context, token string) (string, error)
}

type GormSessionRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormSessionRepo(db *gorm.DB) *GormSessionRepo {
	return &GormSessionRepo{db: db, now: time.Now}
}

// ResolveActor maps a session token to the user it belongs to. Expired
// sessions resolve the same as missing ones.
func (r *GormSessionRepo) ResolveActor(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrNotFound
	}

	var model SessionModel
	err := r.db.WithContext(ctx).First(&model, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if model.ExpiresAt != nil && model.ExpiresAt.Before(r.now()) {
		return "", domain.ErrNotFound
	}

	return model.UserID, nil
}
