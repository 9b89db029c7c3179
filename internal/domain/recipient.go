package domain

import (
	"fmt"
	"strings"
)

// Operation identifies the kind of gateway send an outcome or log row
// belongs to.
type Operation string

const (
	OperationSendText  Operation = "SEND_TEXT"
	OperationSendMedia Operation = "SEND_MEDIA"
)

func (o Operation) String() string { return string(o) }

func (o Operation) IsValid() bool {
	switch o {
	case OperationSendText, OperationSendMedia:
		return true
	}
	return false
}

func ParseOperationFromString(s string) (Operation, error) {
	op := Operation(strings.ToUpper(strings.TrimSpace(s)))
	if !op.IsValid() {
		return "", fmt.Errorf("%w: invalid operation %q", ErrValidation, s)
	}
	return op, nil
}

// Recipient is one entry of a batch call: a raw phone number plus the
// message context used to render its text. For media sends Message is empty
// and MediaURL/Caption carry the payload instead.
type Recipient struct {
	Phone             string
	Message           string
	MediaURL          string
	Caption           string
	CustomerName      string
	LastPaymentDate   string
	LastPaymentAmount float64
	BalanceIQD        float64
	BalanceUSD        float64
}

// ValidateForText checks the fields a bulk-text send requires. The phone is
// only checked for presence here; canonical-format validation happens during
// dispatch and yields a per-recipient outcome, not a request error.
func (r *Recipient) ValidateForText() error {
	if strings.TrimSpace(r.Phone) == "" {
		return fmt.Errorf("%w: recipient phone is required", ErrValidation)
	}
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("%w: recipient message is required", ErrValidation)
	}
	return nil
}

// ValidateForMedia checks the fields a bulk-media send requires. Caption is
// optional.
func (r *Recipient) ValidateForMedia() error {
	if strings.TrimSpace(r.Phone) == "" {
		return fmt.Errorf("%w: recipient phone is required", ErrValidation)
	}
	if strings.TrimSpace(r.MediaURL) == "" {
		return fmt.Errorf("%w: recipient mediaUrl is required", ErrValidation)
	}
	return nil
}
