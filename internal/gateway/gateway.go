// Package gateway is the HTTP client for the third-party WhatsApp messaging
// provider: text sends, media sends and media uploads.
package gateway

import "context"

// Sender is the outbound message delivery port used by the dispatcher.
type Sender interface {
	SendText(ctx context.Context, apiKey, to, text string) (*SendResponse, error)
	SendMedia(ctx context.Context, apiKey, to, mediaURL, caption string) (*SendResponse, error)
}

// Uploader turns a media payload (base64 or data URI) into a gateway-hosted
// public URL.
type Uploader interface {
	UploadMedia(ctx context.Context, apiKey, payload string) (string, error)
}

// SendResponse stores gateway call metadata for audit and persistence.
type SendResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}
