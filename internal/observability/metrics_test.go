package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMessageCounters(t *testing.T) {
	t.Parallel()

	m := NewMetrics()

	m.IncMessageSent("SEND_TEXT")
	m.IncMessageSent("send_text")
	m.IncMessageFailed("SEND_MEDIA", "Network")
	m.IncMessageFailed("SEND_MEDIA", "")

	if got := testutil.ToFloat64(m.messagesSentTotal.WithLabelValues("send_text")); got != 2 {
		t.Fatalf("messages_sent_total{send_text} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.messagesFailedTotal.WithLabelValues("send_media", "network")); got != 1 {
		t.Fatalf("messages_failed_total{send_media,network} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.messagesFailedTotal.WithLabelValues("send_media", "unknown")); got != 1 {
		t.Fatalf("messages_failed_total{send_media,unknown} = %v, want 1", got)
	}
}

func TestMetricsBatchInflightGauge(t *testing.T) {
	t.Parallel()

	m := NewMetrics()

	m.IncBatchInFlight("SEND_TEXT")
	m.IncBatchInFlight("SEND_TEXT")
	m.DecBatchInFlight("SEND_TEXT")

	if got := testutil.ToFloat64(m.batchesInflight.WithLabelValues("send_text")); got != 1 {
		t.Fatalf("batches_inflight{send_text} = %v, want 1", got)
	}
}

func TestMetricsRateLimitedAndUploads(t *testing.T) {
	t.Parallel()

	m := NewMetrics()

	m.IncRateLimited("/v1/messages/bulk-text")
	m.IncRateLimited("")
	m.IncMediaUpload("ok")
	m.IncMediaUpload("error")

	if got := testutil.ToFloat64(m.rateLimitedTotal.WithLabelValues("/v1/messages/bulk-text")); got != 1 {
		t.Fatalf("rate_limited_total{path} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.rateLimitedTotal.WithLabelValues("unmatched")); got != 1 {
		t.Fatalf("rate_limited_total{unmatched} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.mediaUploadsTotal.WithLabelValues("ok")); got != 1 {
		t.Fatalf("media_uploads_total{ok} = %v, want 1", got)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.IncMessageSent("send_text")
	m.IncMessageFailed("send_text", "gateway")
	m.ObserveGatewaySendDuration("send_text", time.Second)
	m.IncBatchInFlight("send_text")
	m.DecBatchInFlight("send_text")
	m.IncMediaUpload("ok")
	m.IncRateLimited("/v1/otp")

	if m.Handler() == nil {
		t.Fatal("nil metrics should still return a handler")
	}
}
