package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lamisoft/wadispatch/internal/dispatch"
	"github.com/lamisoft/wadispatch/internal/domain"
	"github.com/lamisoft/wadispatch/internal/media"
	"github.com/lamisoft/wadispatch/internal/observability"
	"github.com/lamisoft/wadispatch/internal/repository"
	"go.uber.org/zap"
)

// SendService owns one batch call end to end: validate the request, snapshot
// the gateway settings, run the sequential dispatch, and record the audit
// rows. One call, one snapshot; settings edits land on the next call.
type SendService struct {
	dispatcher *dispatch.Dispatcher
	resolver   *media.Resolver
	settings   repository.SettingsRepository
	logs       *DeliveryLogService
	defaults   domain.Settings
	logger     *zap.Logger
	metrics    *observability.Metrics
	newBatchID func() string
}

func NewSendService(
	dispatcher *dispatch.Dispatcher,
	resolver *media.Resolver,
	settings repository.SettingsRepository,
	logs *DeliveryLogService,
	defaults domain.Settings,
	logger *zap.Logger,
) (*SendService, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("media resolver is required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings repository is required")
	}
	if logs == nil {
		return nil, fmt.Errorf("delivery log service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SendService{
		dispatcher: dispatcher,
		resolver:   resolver,
		settings:   settings,
		logs:       logs,
		defaults:   defaults,
		logger:     logger,
		newBatchID: uuid.NewString,
	}, nil
}

func (s *SendService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// SendBulkText runs one text batch. The returned result covers every
// recipient; per-recipient failures are outcomes, not errors.
func (s *SendService) SendBulkText(ctx context.Context, sessionToken string, recipients []domain.Recipient) (domain.BatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(recipients) == 0 {
		return domain.BatchResult{}, fmt.Errorf("%w: recipients is required", domain.ErrValidation)
	}
	for i := range recipients {
		if err := recipients[i].ValidateForText(); err != nil {
			return domain.BatchResult{}, fmt.Errorf("recipient %d: %w", i, err)
		}
	}

	settings, err := s.snapshot(ctx)
	if err != nil {
		return domain.BatchResult{}, err
	}

	ctx = observability.WithBatchID(ctx, s.newBatchID())
	observability.WithContextLogger(s.logger, ctx).Info("bulk text accepted",
		zap.Int("recipients", len(recipients)),
	)

	result := s.dispatcher.DispatchText(ctx, settings, recipients)
	s.logs.Record(ctx, sessionToken, domain.OperationSendText, result.Outcomes)

	return result, nil
}

// SendBulkMedia runs one media batch. startIndex is the count of sends an
// earlier interrupted run already issued; it only affects pause cadence.
func (s *SendService) SendBulkMedia(ctx context.Context, sessionToken string, recipients []domain.Recipient, startIndex int) (domain.BatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(recipients) == 0 {
		return domain.BatchResult{}, fmt.Errorf("%w: recipients is required", domain.ErrValidation)
	}
	for i := range recipients {
		if err := recipients[i].ValidateForMedia(); err != nil {
			return domain.BatchResult{}, fmt.Errorf("recipient %d: %w", i, err)
		}
	}
	if startIndex < 0 {
		return domain.BatchResult{}, fmt.Errorf("%w: startIndex must be >= 0", domain.ErrValidation)
	}

	settings, err := s.snapshot(ctx)
	if err != nil {
		return domain.BatchResult{}, err
	}

	ctx = observability.WithBatchID(ctx, s.newBatchID())
	observability.WithContextLogger(s.logger, ctx).Info("bulk media accepted",
		zap.Int("recipients", len(recipients)),
		zap.Int("startIndex", startIndex),
	)

	result := s.dispatcher.DispatchMedia(ctx, settings, recipients, startIndex)
	s.logs.Record(ctx, sessionToken, domain.OperationSendMedia, result.Outcomes)

	return result, nil
}

// PrepareMedia resolves raw media references into gateway-hosted public
// URLs ahead of a bulk-media call.
func (s *SendService) PrepareMedia(ctx context.Context, refs []string) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	urls, err := s.resolver.Resolve(ctx, settings.APIKey, refs)
	if err != nil {
		if s.metrics != nil && !errors.Is(err, domain.ErrValidation) {
			s.metrics.IncMediaUpload("failure")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncMediaUpload("success")
	}
	return urls, nil
}

// GetSettings returns the effective settings snapshot, after defaults.
func (s *SendService) GetSettings(ctx context.Context) (domain.Settings, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.snapshot(ctx)
}

// UpdateSettings validates and stores the gateway settings row. Running
// batch calls keep their snapshot; the change applies from the next call.
func (s *SendService) UpdateSettings(ctx context.Context, settings domain.Settings) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := settings.Validate(); err != nil {
		return err
	}

	return s.settings.Upsert(ctx, &settings)
}

// snapshot loads the stored gateway settings, falling back to the configured
// defaults when no row exists yet. Blank identity fields in the stored row
// also fall back, so a half-filled settings screen cannot blank the API key.
func (s *SendService) snapshot(ctx context.Context) (domain.Settings, error) {
	settings := s.defaults

	stored, err := s.settings.Get(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Settings{}, fmt.Errorf("failed to load gateway settings: %w", err)
	}
	if stored != nil {
		settings = *stored
		if strings.TrimSpace(settings.APIKey) == "" {
			settings.APIKey = s.defaults.APIKey
		}
		if strings.TrimSpace(settings.CompanyName) == "" {
			settings.CompanyName = s.defaults.CompanyName
		}
		if settings.DefaultTemplate == "" {
			settings.DefaultTemplate = s.defaults.DefaultTemplate
		}
		if settings.ReminderTemplate == "" {
			settings.ReminderTemplate = s.defaults.ReminderTemplate
		}
	}

	if err := settings.Validate(); err != nil {
		// Misconfiguration, not a caller mistake; do not surface as 400.
		return domain.Settings{}, fmt.Errorf("gateway is not configured: %v", err)
	}

	return settings, nil
}
