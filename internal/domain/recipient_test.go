package domain

import (
	"errors"
	"testing"
)

func TestParseOperationFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Operation
		wantErr bool
	}{
		{input: "SEND_TEXT", want: OperationSendText},
		{input: "send_media", want: OperationSendMedia},
		{input: "  Send_Text  ", want: OperationSendText},
		{input: "SEND_SMOKE", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseOperationFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("operation = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRecipientValidateForText(t *testing.T) {
	t.Parallel()

	valid := Recipient{Phone: "07701234567", Message: "hello"}
	if err := valid.ValidateForText(); err != nil {
		t.Fatalf("ValidateForText() error = %v", err)
	}

	missingPhone := Recipient{Message: "hello"}
	if err := missingPhone.ValidateForText(); !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation for missing phone", err)
	}

	missingMessage := Recipient{Phone: "07701234567", Message: "   "}
	if err := missingMessage.ValidateForText(); !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation for blank message", err)
	}
}

func TestRecipientValidateForMedia(t *testing.T) {
	t.Parallel()

	valid := Recipient{Phone: "07701234567", MediaURL: "https://wasenderapi.com/u/1"}
	if err := valid.ValidateForMedia(); err != nil {
		t.Fatalf("ValidateForMedia() error = %v", err)
	}

	// Caption stays optional.
	if err := (&Recipient{Phone: "0770", MediaURL: "https://wasenderapi.com/u/1", Caption: ""}).ValidateForMedia(); err != nil {
		t.Fatalf("ValidateForMedia() error = %v", err)
	}

	missingMedia := Recipient{Phone: "07701234567"}
	if err := missingMedia.ValidateForMedia(); !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation for missing mediaUrl", err)
	}
}

func TestBatchResultAdd(t *testing.T) {
	t.Parallel()

	var result BatchResult
	result.Add(SendOutcome{Phone: "+9647701234567", Success: true})
	result.Add(SendOutcome{Phone: "+964", Success: false, Error: "invalid phone number"})
	result.Add(SendOutcome{Phone: "+9647709999999", Success: true})

	if result.Total != 3 {
		t.Fatalf("total = %d, want 3", result.Total)
	}
	if result.Success != 2 || result.Failed != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", result.Success, result.Failed)
	}
	if result.Success+result.Failed != result.Total {
		t.Fatal("success + failed must equal total")
	}

	failed := result.FailedOutcomes()
	if len(failed) != 1 || failed[0].Error != "invalid phone number" {
		t.Fatalf("failed outcomes = %+v, want the invalid phone entry", failed)
	}

	if result.Outcomes[0].Phone != "+9647701234567" || result.Outcomes[2].Phone != "+9647709999999" {
		t.Fatal("outcomes must preserve input order")
	}
}
