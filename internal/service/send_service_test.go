package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lamisoft/wadispatch/internal/dispatch"
	"github.com/lamisoft/wadispatch/internal/domain"
	"github.com/lamisoft/wadispatch/internal/gateway"
	"github.com/lamisoft/wadispatch/internal/media"
	"github.com/lamisoft/wadispatch/internal/phone"
	"github.com/lamisoft/wadispatch/internal/repository"
)

const hostedPrefix = "https://wasenderapi.com"

type fakeSender struct {
	sendTextFn  func(ctx context.Context, apiKey, to, text string) (*gateway.SendResponse, error)
	sendMediaFn func(ctx context.Context, apiKey, to, mediaURL, caption string) (*gateway.SendResponse, error)
}

func (f *fakeSender) SendText(ctx context.Context, apiKey, to, text string) (*gateway.SendResponse, error) {
	if f.sendTextFn == nil {
		return &gateway.SendResponse{StatusCode: 200}, nil
	}
	return f.sendTextFn(ctx, apiKey, to, text)
}

func (f *fakeSender) SendMedia(ctx context.Context, apiKey, to, mediaURL, caption string) (*gateway.SendResponse, error) {
	if f.sendMediaFn == nil {
		return &gateway.SendResponse{StatusCode: 200}, nil
	}
	return f.sendMediaFn(ctx, apiKey, to, mediaURL, caption)
}

type fakeUploader struct {
	uploadFn func(ctx context.Context, apiKey, payload string) (string, error)
}

func (f *fakeUploader) UploadMedia(ctx context.Context, apiKey, payload string) (string, error) {
	if f.uploadFn == nil {
		return hostedPrefix + "/uploads/generated", nil
	}
	return f.uploadFn(ctx, apiKey, payload)
}

type fakeSettingsRepo struct {
	getFn    func(ctx context.Context) (*domain.Settings, error)
	upsertFn func(ctx context.Context, settings *domain.Settings) error
}

func (f *fakeSettingsRepo) Get(ctx context.Context) (*domain.Settings, error) {
	if f.getFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getFn(ctx)
}

func (f *fakeSettingsRepo) Upsert(ctx context.Context, settings *domain.Settings) error {
	if f.upsertFn == nil {
		return nil
	}
	return f.upsertFn(ctx, settings)
}

func testDefaults() domain.Settings {
	return domain.Settings{
		APIKey:      "default-key",
		CompanyName: "Lami Soft",
	}
}

func newTestSendService(
	t *testing.T,
	sender gateway.Sender,
	uploader gateway.Uploader,
	settings repository.SettingsRepository,
	logs repository.DeliveryLogRepository,
) *SendService {
	t.Helper()

	dispatcher, err := dispatch.NewDispatcher(sender, phone.NewNormalizer("964"), nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	resolver, err := media.NewResolver(uploader, hostedPrefix)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	logSvc, err := NewDeliveryLogService(logs, &fakeSessionRepo{}, nil)
	if err != nil {
		t.Fatalf("NewDeliveryLogService() error = %v", err)
	}

	svc, err := NewSendService(dispatcher, resolver, settings, logSvc, testDefaults(), nil)
	if err != nil {
		t.Fatalf("NewSendService() error = %v", err)
	}
	return svc
}

func TestSendServiceBulkTextHappyPath(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{
		sendTextFn: func(ctx context.Context, apiKey, to, text string) (*gateway.SendResponse, error) {
			if apiKey != "default-key" {
				t.Fatalf("api key = %q, want default-key", apiKey)
			}
			if to != "+9647701234567" {
				t.Fatalf("to = %q, want +9647701234567", to)
			}
			if !strings.Contains(text, "Ali") || !strings.Contains(text, "Lami Soft") {
				t.Fatalf("rendered text = %q, want customer and company names substituted", text)
			}
			return &gateway.SendResponse{StatusCode: 200}, nil
		},
	}

	var appended []domain.DeliveryLog
	logs := &fakeDeliveryLogRepo{
		appendFn: func(ctx context.Context, rows []domain.DeliveryLog) error {
			appended = rows
			return nil
		},
	}

	svc := newTestSendService(t, sender, &fakeUploader{}, &fakeSettingsRepo{}, logs)

	result, err := svc.SendBulkText(context.Background(), "", []domain.Recipient{
		{Phone: "07701234567", Message: "Dear {CustomerName}, regards {CompanyName}", CustomerName: "Ali"},
	})
	if err != nil {
		t.Fatalf("SendBulkText() error = %v", err)
	}

	if result.Total != 1 || result.Success != 1 || result.Failed != 0 {
		t.Fatalf("result = %+v, want 1 total, 1 success", result)
	}
	if len(appended) != 1 {
		t.Fatalf("appended %d delivery rows, want 1", len(appended))
	}
	if appended[0].Operation != domain.OperationSendText {
		t.Fatalf("logged operation = %s, want SEND_TEXT", appended[0].Operation)
	}
	if appended[0].Meta["batchId"] == "" {
		t.Fatal("delivery row should carry the generated batch id")
	}
}

func TestSendServiceBulkTextValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		recipients []domain.Recipient
	}{
		{name: "no recipients", recipients: nil},
		{name: "missing phone", recipients: []domain.Recipient{{Message: "hi"}}},
		{name: "missing message", recipients: []domain.Recipient{{Phone: "07701234567"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sender := &fakeSender{
				sendTextFn: func(ctx context.Context, apiKey, to, text string) (*gateway.SendResponse, error) {
					t.Fatal("gateway must not be called for an invalid request")
					return nil, nil
				},
			}
			svc := newTestSendService(t, sender, &fakeUploader{}, &fakeSettingsRepo{}, &fakeDeliveryLogRepo{})

			_, err := svc.SendBulkText(context.Background(), "", tt.recipients)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestSendServiceBulkTextSettingsLoadFailure(t *testing.T) {
	t.Parallel()

	settings := &fakeSettingsRepo{
		getFn: func(ctx context.Context) (*domain.Settings, error) {
			return nil, errors.New("connection refused")
		},
	}
	sender := &fakeSender{
		sendTextFn: func(ctx context.Context, apiKey, to, text string) (*gateway.SendResponse, error) {
			t.Fatal("gateway must not be called when settings cannot be loaded")
			return nil, nil
		},
	}

	svc := newTestSendService(t, sender, &fakeUploader{}, settings, &fakeDeliveryLogRepo{})

	_, err := svc.SendBulkText(context.Background(), "", []domain.Recipient{
		{Phone: "07701234567", Message: "hi"},
	})
	if err == nil {
		t.Fatal("expected settings load error")
	}
	if errors.Is(err, domain.ErrValidation) {
		t.Fatalf("settings load failure must not look like a caller mistake: %v", err)
	}
}

func TestSendServiceStoredSettingsFallBackToDefaults(t *testing.T) {
	t.Parallel()

	settings := &fakeSettingsRepo{
		getFn: func(ctx context.Context) (*domain.Settings, error) {
			return &domain.Settings{APIKey: "  ", CompanyName: "Stored Co"}, nil
		},
	}
	sender := &fakeSender{
		sendTextFn: func(ctx context.Context, apiKey, to, text string) (*gateway.SendResponse, error) {
			if apiKey != "default-key" {
				t.Fatalf("api key = %q, want fallback to default-key", apiKey)
			}
			if !strings.Contains(text, "Stored Co") {
				t.Fatalf("text = %q, want stored company name", text)
			}
			return &gateway.SendResponse{StatusCode: 200}, nil
		},
	}

	svc := newTestSendService(t, sender, &fakeUploader{}, settings, &fakeDeliveryLogRepo{})

	if _, err := svc.SendBulkText(context.Background(), "", []domain.Recipient{
		{Phone: "07701234567", Message: "from {CompanyName}"},
	}); err != nil {
		t.Fatalf("SendBulkText() error = %v", err)
	}
}

func TestSendServiceBulkMedia(t *testing.T) {
	t.Parallel()

	mediaURL := hostedPrefix + "/uploads/img-1"
	sender := &fakeSender{
		sendMediaFn: func(ctx context.Context, apiKey, to, url, caption string) (*gateway.SendResponse, error) {
			if url != mediaURL {
				t.Fatalf("media url = %q, want %q", url, mediaURL)
			}
			if caption != "invoice" {
				t.Fatalf("caption = %q, want invoice", caption)
			}
			return &gateway.SendResponse{StatusCode: 200}, nil
		},
	}

	var appended []domain.DeliveryLog
	logs := &fakeDeliveryLogRepo{
		appendFn: func(ctx context.Context, rows []domain.DeliveryLog) error {
			appended = rows
			return nil
		},
	}

	svc := newTestSendService(t, sender, &fakeUploader{}, &fakeSettingsRepo{}, logs)

	result, err := svc.SendBulkMedia(context.Background(), "", []domain.Recipient{
		{Phone: "07701234567", MediaURL: mediaURL, Caption: "invoice"},
	}, 0)
	if err != nil {
		t.Fatalf("SendBulkMedia() error = %v", err)
	}

	if result.Success != 1 {
		t.Fatalf("success = %d, want 1", result.Success)
	}
	if len(appended) != 1 || appended[0].Operation != domain.OperationSendMedia {
		t.Fatalf("logged rows = %+v, want one SEND_MEDIA row", appended)
	}
	if appended[0].MediaURL == nil || *appended[0].MediaURL != mediaURL {
		t.Fatalf("logged media url = %v, want %q", appended[0].MediaURL, mediaURL)
	}
}

func TestSendServiceBulkMediaRejectsNegativeStartIndex(t *testing.T) {
	t.Parallel()

	svc := newTestSendService(t, &fakeSender{}, &fakeUploader{}, &fakeSettingsRepo{}, &fakeDeliveryLogRepo{})

	_, err := svc.SendBulkMedia(context.Background(), "", []domain.Recipient{
		{Phone: "07701234567", MediaURL: hostedPrefix + "/uploads/img-1"},
	}, -1)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestSendServicePrepareMedia(t *testing.T) {
	t.Parallel()

	uploadCalls := 0
	uploader := &fakeUploader{
		uploadFn: func(ctx context.Context, apiKey, payload string) (string, error) {
			uploadCalls++
			if apiKey != "default-key" {
				t.Fatalf("api key = %q, want default-key", apiKey)
			}
			return hostedPrefix + "/uploads/new", nil
		},
	}

	svc := newTestSendService(t, &fakeSender{}, uploader, &fakeSettingsRepo{}, &fakeDeliveryLogRepo{})

	hosted := hostedPrefix + "/uploads/existing"
	urls, err := svc.PrepareMedia(context.Background(), []string{hosted, "aGVsbG8gd29ybGQ="})
	if err != nil {
		t.Fatalf("PrepareMedia() error = %v", err)
	}

	if len(urls) != 2 {
		t.Fatalf("resolved %d urls, want 2", len(urls))
	}
	if urls[0] != hosted {
		t.Fatalf("hosted url should pass through unchanged, got %q", urls[0])
	}
	if urls[1] != hostedPrefix+"/uploads/new" {
		t.Fatalf("uploaded url = %q, want %q", urls[1], hostedPrefix+"/uploads/new")
	}
	if uploadCalls != 1 {
		t.Fatalf("upload calls = %d, want 1 (hosted ref must not re-upload)", uploadCalls)
	}
}

func TestSendServiceSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	var stored *domain.Settings
	settings := &fakeSettingsRepo{
		getFn: func(ctx context.Context) (*domain.Settings, error) {
			if stored == nil {
				return nil, domain.ErrNotFound
			}
			return stored, nil
		},
		upsertFn: func(ctx context.Context, s *domain.Settings) error {
			stored = s
			return nil
		},
	}

	svc := newTestSendService(t, &fakeSender{}, &fakeUploader{}, settings, &fakeDeliveryLogRepo{})

	initial, err := svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if initial.APIKey != "default-key" {
		t.Fatalf("api key = %q, want configured default before any row exists", initial.APIKey)
	}

	if err := svc.UpdateSettings(context.Background(), domain.Settings{
		APIKey:      "rotated-key",
		CompanyName: "Lami Soft",
		BatchSize:   25,
	}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	updated, err := svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if updated.APIKey != "rotated-key" || updated.BatchSize != 25 {
		t.Fatalf("updated settings = %+v, want stored row", updated)
	}

	err = svc.UpdateSettings(context.Background(), domain.Settings{CompanyName: "No Key"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation for missing api key", err)
	}
}

func TestSendServicePrepareMediaTooManyRefs(t *testing.T) {
	t.Parallel()

	svc := newTestSendService(t, &fakeSender{}, &fakeUploader{}, &fakeSettingsRepo{}, &fakeDeliveryLogRepo{})

	_, err := svc.PrepareMedia(context.Background(), []string{"a", "b", "c"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}
