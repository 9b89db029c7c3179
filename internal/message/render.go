// Package message renders recipient-facing WhatsApp texts from stored
// templates. Substitution is plain text: each named token is replaced by its
// value, in any order, and re-rendering an already-rendered string is a
// no-op.
package message

import (
	"strconv"
	"strings"
	"time"
)

// noneSentinel is what an all-zero amount renders as instead of "0".
// Deployments targeting another locale change these two constants.
const (
	noneSentinel    = "لا يوجد"
	amountSeparator = " و "
	dateLayout      = "2006-01-02"
	timeLayout      = "15:04"
)

// RenderContext carries the per-recipient fields templates can reference.
type RenderContext struct {
	CustomerName      string
	LastPaymentDate   string
	LastPaymentAmount float64
	BalanceIQD        float64
	BalanceUSD        float64
}

// Renderer substitutes named tokens into message templates. Date and time
// tokens are evaluated at render time, not at batch creation.
type Renderer struct {
	companyName string
	now         func() time.Time
}

func NewRenderer(companyName string) *Renderer {
	return &Renderer{
		companyName: companyName,
		now:         time.Now,
	}
}

func (r *Renderer) Render(template string, ctx RenderContext) string {
	now := r.now()

	replacements := map[string]string{
		"CustomerName":      ctx.CustomerName,
		"CompanyName":       r.companyName,
		"Date":              now.Format(dateLayout),
		"Time":              now.Format(timeLayout),
		"LastPaymentDate":   ctx.LastPaymentDate,
		"LastPaymentAmount": FormatAmounts(Amount{Value: ctx.LastPaymentAmount, Unit: "IQD"}),
		"Balance": FormatAmounts(
			Amount{Value: ctx.BalanceIQD, Unit: "IQD"},
			Amount{Value: ctx.BalanceUSD, Unit: "USD"},
		),
	}

	// Stored templates exist in two spellings; both are replaced so legacy
	// templates keep rendering.
	pairs := make([]string, 0, len(replacements)*4)
	for token, value := range replacements {
		pairs = append(pairs,
			"{"+token+"}", value,
			"["+token+"]", value,
		)
	}

	return strings.NewReplacer(pairs...).Replace(template)
}

// Amount is one currency contribution to a rendered amount token.
type Amount struct {
	Value float64
	Unit  string
}

// FormatAmounts joins the non-zero amounts with the fixed separator. When
// every contribution is zero it returns the localized none sentinel.
func FormatAmounts(amounts ...Amount) string {
	parts := make([]string, 0, len(amounts))
	for _, a := range amounts {
		if a.Value == 0 {
			continue
		}
		parts = append(parts, formatValue(a.Value)+" "+a.Unit)
	}
	if len(parts) == 0 {
		return noneSentinel
	}
	return strings.Join(parts, amountSeparator)
}

// formatValue renders a number with thousands grouping and without a
// trailing ".00" for whole amounts.
func formatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	return sign + b.String() + fracPart
}
