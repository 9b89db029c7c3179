package gateway

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrMissingPublicURL is returned when an upload succeeds at the HTTP level
// but the response body carries no hosted URL.
var ErrMissingPublicURL = errors.New("upload response missing public url")

// GatewayError classifies gateway call failures. Network is true when the
// connection itself failed and no HTTP response was received; callers keep
// the two classes apart in user-facing error text, but both count as plain
// failures in batch accounting.
type GatewayError struct {
	StatusCode int
	Message    string
	Network    bool
	Cause      error
}

func (e *GatewayError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 3)
	if e.Network {
		parts = append(parts, "gateway unreachable")
	} else if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("gateway error (status %d)", e.StatusCode))
	} else {
		parts = append(parts, "gateway error")
	}

	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsNetwork reports whether an error came from a failed connection rather
// than a gateway-returned status.
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}

	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.Network
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
