package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lamisoft/wadispatch/internal/domain"
	"github.com/lamisoft/wadispatch/internal/media"
	"github.com/lamisoft/wadispatch/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100

	sessionTokenHeader = "X-Session-Token"
)

type SendService interface {
	SendBulkText(ctx context.Context, sessionToken string, recipients []domain.Recipient) (domain.BatchResult, error)
	SendBulkMedia(ctx context.Context, sessionToken string, recipients []domain.Recipient, startIndex int) (domain.BatchResult, error)
	PrepareMedia(ctx context.Context, refs []string) ([]string, error)
	GetSettings(ctx context.Context) (domain.Settings, error)
	UpdateSettings(ctx context.Context, settings domain.Settings) error
}

type DeliveryLogService interface {
	List(ctx context.Context, params repository.DeliveryLogListParams) ([]domain.DeliveryLog, int64, error)
}

type SendHandler struct {
	sends SendService
	logs  DeliveryLogService
}

func NewSendHandler(sends SendService, logs DeliveryLogService) (*SendHandler, error) {
	if sends == nil {
		return nil, fmt.Errorf("send service is required")
	}
	if logs == nil {
		return nil, fmt.Errorf("delivery log service is required")
	}
	return &SendHandler{sends: sends, logs: logs}, nil
}

func RegisterSendRoutes(router fiber.Router, sends SendService, logs DeliveryLogService) error {
	h, err := NewSendHandler(sends, logs)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/messages/bulk-text", h.SendBulkText)
	v1.Post("/messages/bulk-media", h.SendBulkMedia)
	v1.Post("/media/prepare", h.PrepareMedia)
	v1.Get("/delivery-logs", h.ListDeliveryLogs)
	v1.Get("/settings", h.GetSettings)
	v1.Put("/settings", h.UpdateSettings)

	return nil
}

type recipientRequest struct {
	Phone             string  `json:"phone"`
	Message           string  `json:"message,omitempty"`
	MediaURL          string  `json:"mediaUrl,omitempty"`
	Caption           string  `json:"caption,omitempty"`
	CustomerName      string  `json:"customerName,omitempty"`
	LastPaymentDate   string  `json:"lastPaymentDate,omitempty"`
	LastPaymentAmount float64 `json:"lastPaymentAmount,omitempty"`
	BalanceIQD        float64 `json:"balanceIQD,omitempty"`
	BalanceUSD        float64 `json:"balanceUSD,omitempty"`
}

type bulkTextRequest struct {
	Recipients []recipientRequest `json:"recipients"`
}

type bulkMediaRequest struct {
	Recipients []recipientRequest `json:"recipients"`
	StartIndex int                `json:"startIndex"`
}

type prepareMediaRequest struct {
	MediaURLs []string `json:"mediaUrls"`
}

type sendResultItem struct {
	Phone   string `json:"phone"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type sendErrorItem struct {
	Phone string `json:"phone"`
	Error string `json:"error"`
}

type batchResponse struct {
	Success     bool             `json:"success"`
	TotalSent   int              `json:"totalSent"`
	TotalFailed int              `json:"totalFailed"`
	Results     []sendResultItem `json:"results"`
	Errors      []sendErrorItem  `json:"errors"`
}

type prepareMediaResponse struct {
	Success    bool     `json:"success"`
	PublicURLs []string `json:"publicUrls"`
}

type settingsPayload struct {
	APIKey              string `json:"apiKey"`
	CompanyName         string `json:"companyName"`
	MessageDelayMillis  int    `json:"messageDelayMillis"`
	MessageJitterMillis int    `json:"messageJitterMillis"`
	BatchSize           int    `json:"batchSize"`
	BatchPauseMillis    int    `json:"batchPauseMillis"`
	DefaultTemplate     string `json:"defaultTemplate"`
	ReminderTemplate    string `json:"reminderTemplate"`
}

type deliveryLogItem struct {
	ID           string            `json:"id"`
	ActorID      *string           `json:"actorId,omitempty"`
	Operation    string            `json:"operation"`
	Phone        string            `json:"phone"`
	Success      bool              `json:"success"`
	ErrorMessage *string           `json:"errorMessage,omitempty"`
	MediaURL     *string           `json:"mediaUrl,omitempty"`
	Caption      *string           `json:"caption,omitempty"`
	Meta         map[string]string `json:"meta,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

type listDeliveryLogsResponse struct {
	Data []deliveryLogItem `json:"data"`
	Meta listMeta          `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *SendHandler) SendBulkText(c *fiber.Ctx) error {
	var req bulkTextRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.sends.SendBulkText(c.Context(), c.Get(sessionTokenHeader), toDomainRecipients(req.Recipients))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toBatchResponse(result))
}

func (h *SendHandler) SendBulkMedia(c *fiber.Ctx) error {
	var req bulkMediaRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.sends.SendBulkMedia(c.Context(), c.Get(sessionTokenHeader), toDomainRecipients(req.Recipients), req.StartIndex)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toBatchResponse(result))
}

func (h *SendHandler) PrepareMedia(c *fiber.Ctx) error {
	var req prepareMediaRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	urls, err := h.sends.PrepareMedia(c.Context(), req.MediaURLs)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(prepareMediaResponse{
		Success:    true,
		PublicURLs: urls,
	})
}

func (h *SendHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.sends.GetSettings(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toSettingsPayload(settings))
}

func (h *SendHandler) UpdateSettings(c *fiber.Ctx) error {
	var req settingsPayload
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.sends.UpdateSettings(c.Context(), toDomainSettings(req)); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *SendHandler) ListDeliveryLogs(c *fiber.Ctx) error {
	params, err := parseDeliveryLogParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	logs, total, err := h.logs.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	items := make([]deliveryLogItem, 0, len(logs))
	for i := range logs {
		items = append(items, toDeliveryLogItem(&logs[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listDeliveryLogsResponse{
		Data: items,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseDeliveryLogParams(c *fiber.Ctx) (repository.DeliveryLogListParams, error) {
	params := repository.DeliveryLogListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}
	if params.Page < 1 {
		return params, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return params, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if phone := strings.TrimSpace(c.Query("phone")); phone != "" {
		params.Phone = &phone
	}
	if raw := strings.TrimSpace(c.Query("operation")); raw != "" {
		op, err := domain.ParseOperationFromString(raw)
		if err != nil {
			return params, err
		}
		params.Operation = &op
	}
	if raw := strings.TrimSpace(c.Query("success")); raw != "" {
		success := raw == "true"
		if !success && raw != "false" {
			return params, fmt.Errorf("%w: success must be true or false", domain.ErrValidation)
		}
		params.Success = &success
	}
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, fmt.Errorf("%w: from must be RFC3339", domain.ErrValidation)
		}
		params.From = &from
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, fmt.Errorf("%w: to must be RFC3339", domain.ErrValidation)
		}
		params.To = &to
	}

	return params, nil
}

func toDomainRecipients(reqs []recipientRequest) []domain.Recipient {
	recipients := make([]domain.Recipient, 0, len(reqs))
	for _, r := range reqs {
		recipients = append(recipients, domain.Recipient{
			Phone:             r.Phone,
			Message:           r.Message,
			MediaURL:          r.MediaURL,
			Caption:           r.Caption,
			CustomerName:      r.CustomerName,
			LastPaymentDate:   r.LastPaymentDate,
			LastPaymentAmount: r.LastPaymentAmount,
			BalanceIQD:        r.BalanceIQD,
			BalanceUSD:        r.BalanceUSD,
		})
	}
	return recipients
}

func toBatchResponse(result domain.BatchResult) batchResponse {
	results := make([]sendResultItem, 0, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		results = append(results, sendResultItem{
			Phone:   outcome.Phone,
			Success: outcome.Success,
			Error:   outcome.Error,
		})
	}

	failed := result.FailedOutcomes()
	errorItems := make([]sendErrorItem, 0, len(failed))
	for _, outcome := range failed {
		errorItems = append(errorItems, sendErrorItem{
			Phone: outcome.Phone,
			Error: outcome.Error,
		})
	}

	// Success marks that the batch call ran to completion; per-recipient
	// failures are reported through totalFailed and errors, not here.
	return batchResponse{
		Success:     true,
		TotalSent:   result.Success,
		TotalFailed: result.Failed,
		Results:     results,
		Errors:      errorItems,
	}
}

func toSettingsPayload(s domain.Settings) settingsPayload {
	return settingsPayload{
		APIKey:              s.APIKey,
		CompanyName:         s.CompanyName,
		MessageDelayMillis:  s.MessageDelayMillis,
		MessageJitterMillis: s.MessageJitterMillis,
		BatchSize:           s.BatchSize,
		BatchPauseMillis:    s.BatchPauseMillis,
		DefaultTemplate:     s.DefaultTemplate,
		ReminderTemplate:    s.ReminderTemplate,
	}
}

func toDomainSettings(p settingsPayload) domain.Settings {
	return domain.Settings{
		APIKey:              p.APIKey,
		CompanyName:         p.CompanyName,
		MessageDelayMillis:  p.MessageDelayMillis,
		MessageJitterMillis: p.MessageJitterMillis,
		BatchSize:           p.BatchSize,
		BatchPauseMillis:    p.BatchPauseMillis,
		DefaultTemplate:     p.DefaultTemplate,
		ReminderTemplate:    p.ReminderTemplate,
	}
}

func toDeliveryLogItem(log *domain.DeliveryLog) deliveryLogItem {
	return deliveryLogItem{
		ID:           log.ID,
		ActorID:      log.ActorID,
		Operation:    log.Operation.String(),
		Phone:        log.Phone,
		Success:      log.Success,
		ErrorMessage: log.ErrorMessage,
		MediaURL:     log.MediaURL,
		Caption:      log.Caption,
		Meta:         log.Meta,
		CreatedAt:    log.CreatedAt,
	}
}

// toHTTPError keeps the failing step visible to the caller: their media
// source failing to fetch is a 400, the gateway refusing an upload is a 502.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, media.ErrFetchFailed):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, media.ErrUploadFailed):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return err
	}
}
