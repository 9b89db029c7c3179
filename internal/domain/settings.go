package domain

import (
	"fmt"
	"strings"
)

// Settings is the gateway configuration snapshot a batch call runs with.
// It is read once per call and treated as immutable for the call's
// duration; no component writes settings.
type Settings struct {
	APIKey              string
	CompanyName         string
	MessageDelayMillis  int
	MessageJitterMillis int
	BatchSize           int
	BatchPauseMillis    int
	DefaultTemplate     string
	ReminderTemplate    string
}

func (s *Settings) Validate() error {
	if strings.TrimSpace(s.APIKey) == "" {
		return fmt.Errorf("%w: gateway api key is required", ErrValidation)
	}
	if s.MessageDelayMillis < 0 {
		return fmt.Errorf("%w: message delay must be >= 0", ErrValidation)
	}
	if s.MessageJitterMillis < 0 {
		return fmt.Errorf("%w: message jitter must be >= 0", ErrValidation)
	}
	if s.BatchSize < 0 {
		return fmt.Errorf("%w: batch size must be >= 0", ErrValidation)
	}
	if s.BatchPauseMillis < 0 {
		return fmt.Errorf("%w: batch pause must be >= 0", ErrValidation)
	}
	return nil
}
