package dispatch

import (
	"context"
	"time"

	"github.com/lamisoft/wadispatch/internal/domain"
	"github.com/lamisoft/wadispatch/internal/gateway"
	"github.com/lamisoft/wadispatch/internal/message"
	"github.com/lamisoft/wadispatch/internal/observability"
	"github.com/lamisoft/wadispatch/internal/phone"
	"go.uber.org/zap"
)

// InvalidPhoneError is the fixed outcome text for recipients whose phone
// normalizes to the bare country-code prefix. No gateway call is made for
// them.
const InvalidPhoneError = "invalid phone number"

// Dispatcher runs one batch call as a single sequential loop: normalize,
// render, send, then sleep per the scheduler. One recipient's failure never
// stops the loop; every recipient yields exactly one outcome, in input
// order.
type Dispatcher struct {
	sender     gateway.Sender
	normalizer *phone.Normalizer
	logger     *zap.Logger
	metrics    *observability.Metrics
	sleep      func(ctx context.Context, d time.Duration)
	now        func() time.Time
}

func NewDispatcher(sender gateway.Sender, normalizer *phone.Normalizer, logger *zap.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		sender:     sender,
		normalizer: normalizer,
		logger:     logger,
		sleep:      sleepWithContext,
		now:        time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// DispatchText sends a rendered text message to every recipient.
func (d *Dispatcher) DispatchText(ctx context.Context, settings domain.Settings, recipients []domain.Recipient) domain.BatchResult {
	renderer := message.NewRenderer(settings.CompanyName)

	return d.run(ctx, settings, recipients, 0, domain.OperationSendText,
		func(ctx context.Context, to string, r domain.Recipient) (domain.SendOutcome, error) {
			text := renderer.Render(r.Message, renderContext(r))
			_, err := d.sender.SendText(ctx, settings.APIKey, to, text)
			return domain.SendOutcome{Phone: to}, err
		})
}

// DispatchMedia sends a gateway-hosted media URL with an optional caption to
// every recipient. startIndex is the number of sends a previously
// interrupted batch already issued; pause cadence stays aligned with it.
func (d *Dispatcher) DispatchMedia(ctx context.Context, settings domain.Settings, recipients []domain.Recipient, startIndex int) domain.BatchResult {
	return d.run(ctx, settings, recipients, startIndex, domain.OperationSendMedia,
		func(ctx context.Context, to string, r domain.Recipient) (domain.SendOutcome, error) {
			_, err := d.sender.SendMedia(ctx, settings.APIKey, to, r.MediaURL, r.Caption)
			return domain.SendOutcome{Phone: to, MediaURL: r.MediaURL, Caption: r.Caption}, err
		})
}

type sendFunc func(ctx context.Context, to string, r domain.Recipient) (domain.SendOutcome, error)

func (d *Dispatcher) run(ctx context.Context, settings domain.Settings, recipients []domain.Recipient, startIndex int, op domain.Operation, send sendFunc) domain.BatchResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if startIndex < 0 {
		startIndex = 0
	}

	scheduler := NewScheduler(settings)
	logger := observability.WithContextLogger(d.logger, ctx)
	operation := op.String()

	if d.metrics != nil {
		d.metrics.IncBatchInFlight(operation)
		defer d.metrics.DecBatchInFlight(operation)
	}

	var result domain.BatchResult
	for i, recipient := range recipients {
		result.Add(d.sendOne(ctx, recipient, op, send))

		// Pace every gap between sends, but not after the last one. The
		// pause index is absolute so resumed batches keep their cadence.
		if i < len(recipients)-1 {
			d.sleep(ctx, scheduler.NextDelay())
			if scheduler.ShouldPause(startIndex + i + 1) {
				logger.Info("batch pause",
					zap.String("operation", operation),
					zap.Int("sentSoFar", startIndex+i+1),
				)
				d.sleep(ctx, scheduler.PauseDuration())
			}
		}
	}

	logger.Info("batch finished",
		zap.String("operation", operation),
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
	)

	return result
}

func (d *Dispatcher) sendOne(ctx context.Context, recipient domain.Recipient, op domain.Operation, send sendFunc) domain.SendOutcome {
	operation := op.String()

	to := d.normalizer.Normalize(recipient.Phone)
	if !d.normalizer.IsValid(to) {
		if d.metrics != nil {
			d.metrics.IncMessageFailed(operation, "invalid_phone")
		}
		return domain.SendOutcome{
			Phone:   recipient.Phone,
			Success: false,
			Error:   InvalidPhoneError,
		}
	}

	sendStart := d.now()
	outcome, err := send(ctx, to, recipient)
	if d.metrics != nil {
		d.metrics.ObserveGatewaySendDuration(operation, d.now().Sub(sendStart))
	}

	if err != nil {
		outcome.Success = false
		outcome.Error = err.Error()

		reason := "gateway"
		if gateway.IsNetwork(err) {
			reason = "network"
		}
		if d.metrics != nil {
			d.metrics.IncMessageFailed(operation, reason)
		}
		d.logger.Warn("send failed",
			zap.String("operation", operation),
			zap.String("phone", to),
			zap.Error(err),
		)
		return outcome
	}

	outcome.Success = true
	if d.metrics != nil {
		d.metrics.IncMessageSent(operation)
	}
	return outcome
}

func renderContext(r domain.Recipient) message.RenderContext {
	return message.RenderContext{
		CustomerName:      r.CustomerName,
		LastPaymentDate:   r.LastPaymentDate,
		LastPaymentAmount: r.LastPaymentAmount,
		BalanceIQD:        r.BalanceIQD,
		BalanceUSD:        r.BalanceUSD,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
