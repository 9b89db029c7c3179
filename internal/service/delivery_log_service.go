package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lamisoft/wadispatch/internal/domain"
	"github.com/lamisoft/wadispatch/internal/observability"
	"github.com/lamisoft/wadispatch/internal/repository"
	"go.uber.org/zap"
)

// DeliveryLogService appends audit rows for finished sends and serves the
// operator-facing log queries. Recording is best effort: a failed append is
// logged for operators and otherwise swallowed, because the messages are
// already out and the batch response must not fail retroactively.
type DeliveryLogService struct {
	logs     repository.DeliveryLogRepository
	sessions repository.SessionRepository
	logger   *zap.Logger
	newID    func() string
	now      func() time.Time
}

func NewDeliveryLogService(
	logs repository.DeliveryLogRepository,
	sessions repository.SessionRepository,
	logger *zap.Logger,
) (*DeliveryLogService, error) {
	if logs == nil {
		return nil, fmt.Errorf("delivery log repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryLogService{
		logs:     logs,
		sessions: sessions,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}, nil
}

// Record persists one row per outcome with a non-empty phone. It never
// returns an error.
func (s *DeliveryLogService) Record(ctx context.Context, sessionToken string, op domain.Operation, outcomes []domain.SendOutcome) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows := make([]domain.DeliveryLog, 0, len(outcomes))
	for _, outcome := range outcomes {
		phone := strings.TrimSpace(outcome.Phone)
		if phone == "" {
			continue
		}

		row := domain.DeliveryLog{
			ID:        s.newID(),
			Operation: op,
			Phone:     phone,
			Success:   outcome.Success,
			CreatedAt: s.now().UTC(),
		}
		if outcome.Error != "" {
			row.ErrorMessage = &outcome.Error
		}
		if outcome.MediaURL != "" {
			row.MediaURL = &outcome.MediaURL
		}
		if outcome.Caption != "" {
			row.Caption = &outcome.Caption
		}
		if batchID, ok := observability.BatchIDFromContext(ctx); ok {
			row.Meta = map[string]string{"batchId": batchID}
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return
	}

	actorID := s.resolveActor(ctx, sessionToken)
	for i := range rows {
		rows[i].ActorID = actorID
	}

	if err := s.logs.AppendRows(ctx, rows); err != nil {
		observability.WithContextLogger(s.logger, ctx).Error("failed to append delivery logs",
			zap.String("operation", op.String()),
			zap.Int("rows", len(rows)),
			zap.Error(err),
		)
	}
}

// List returns stored rows, newest first, with the total match count.
func (s *DeliveryLogService) List(ctx context.Context, params repository.DeliveryLogListParams) ([]domain.DeliveryLog, int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.logs.List(ctx, params)
}

// resolveActor maps the session token to a user id. A missing, expired, or
// unreadable session leaves the rows anonymous; the send already happened.
func (s *DeliveryLogService) resolveActor(ctx context.Context, sessionToken string) *string {
	if s.sessions == nil || strings.TrimSpace(sessionToken) == "" {
		return nil
	}

	userID, err := s.sessions.ResolveActor(ctx, sessionToken)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		observability.WithContextLogger(s.logger, ctx).Warn("failed to resolve session actor", zap.Error(err))
		return nil
	}

	return &userID
}
