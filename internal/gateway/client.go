package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultGatewayTimeout = 15 * time.Second

	sendMessagePath = "/api/send-message"
	uploadMediaPath = "/api/upload-media"
)

type sendMessageRequest struct {
	To       string `json:"to"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type sendMessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		MessageID string `json:"msgId"`
	} `json:"data"`
}

type uploadMediaRequest struct {
	Media string `json:"media"`
}

type uploadMediaResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PublicURL string `json:"publicUrl"`
}

// Client talks to a wasenderapi-compatible gateway. The API key is passed
// per call because it comes from the per-batch settings snapshot, not from
// process configuration.
type Client struct {
	client  *resty.Client
	baseURL string
}

var (
	_ Sender   = (*Client)(nil)
	_ Uploader = (*Client)(nil)
)

func NewClient(baseURL string) (*Client, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)

	return NewClientWithRestyClient(baseURL, client)
}

func NewClientWithRestyClient(baseURL string, client *resty.Client) (*Client, error) {
	trimmedBaseURL := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if trimmedBaseURL == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}
	if _, err := url.ParseRequestURI(trimmedBaseURL); err != nil {
		return nil, fmt.Errorf("invalid gateway base url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &Client{
		client:  client,
		baseURL: trimmedBaseURL,
	}, nil
}

func (c *Client) SendText(ctx context.Context, apiKey, to, text string) (*SendResponse, error) {
	return c.send(ctx, apiKey, sendMessageRequest{To: to, Text: text})
}

func (c *Client) SendMedia(ctx context.Context, apiKey, to, mediaURL, caption string) (*SendResponse, error) {
	return c.send(ctx, apiKey, sendMessageRequest{To: to, ImageURL: mediaURL, Text: caption})
}

func (c *Client) send(ctx context.Context, apiKey string, reqBody sendMessageRequest) (*SendResponse, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("gateway client is not initialized")
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey).
		SetBody(reqBody).
		Post(c.baseURL + sendMessagePath)
	if err != nil {
		return nil, &GatewayError{
			Message: "send request failed",
			Network: true,
			Cause:   err,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		var parsed sendMessageResponse
		_ = json.Unmarshal(response.Body(), &parsed)

		return &SendResponse{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  strings.TrimSpace(parsed.Data.MessageID),
		}, nil
	}

	return nil, &GatewayError{
		StatusCode: statusCode,
		Message:    sendErrorMessage(statusCode, response.Body()),
	}
}

func (c *Client) UploadMedia(ctx context.Context, apiKey, payload string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("gateway client is not initialized")
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey).
		SetBody(uploadMediaRequest{Media: payload}).
		Post(c.baseURL + uploadMediaPath)
	if err != nil {
		return "", &GatewayError{
			Message: "upload request failed",
			Network: true,
			Cause:   err,
		}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return "", &GatewayError{
			StatusCode: statusCode,
			Message:    sendErrorMessage(statusCode, response.Body()),
		}
	}

	var parsed uploadMediaResponse
	_ = json.Unmarshal(response.Body(), &parsed)

	publicURL := strings.TrimSpace(parsed.PublicURL)
	if publicURL == "" {
		return "", ErrMissingPublicURL
	}

	return publicURL, nil
}

// sendErrorMessage extracts the gateway's structured error message when the
// body carries one, else falls back to a generic text with the status.
func sendErrorMessage(statusCode int, body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if msg := strings.TrimSpace(parsed.Message); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("send failed with status %d", statusCode)
}
