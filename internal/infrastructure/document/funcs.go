package document

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leasegen/backend/internal/domain/lease"
)

func toDecimal(v any) (decimal.Decimal, bool) {
	switch m := v.(type) {
	case lease.Money:
		return m.Decimal, true
	case *lease.Money:
		if m == nil {
			return decimal.Zero, false
		}
		return m.Decimal, true
	case decimal.Decimal:
		return m, true
	case int:
		return decimal.NewFromInt(int64(m)), true
	default:
		return decimal.Zero, false
	}
}

// formatMoney renders an amount as "$1,234.50".
func formatMoney(v any) string {
	d, ok := toDecimal(v)
	if !ok {
		return ""
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	intPart, decPart, _ := strings.Cut(d.StringFixed(2), ".")
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + "$" + b.String() + "." + decPart
}

// formatDate renders an ISO date as "January 2, 2006" and passes anything
// else through.
func formatDate(iso string) string {
	t, err := time.Parse(time.DateOnly, iso)
	if err != nil {
		return iso
	}
	return t.Format("January 2, 2006")
}

func tenantNames(t lease.Tenants) string {
	names := make([]string, 0, len(t))
	for _, tenant := range t {
		names = append(names, tenant.Name)
	}
	return strings.Join(names, ", ")
}

func place(j lease.Jurisdiction) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{j.City, j.State, j.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// xmlEscape escapes text for WordprocessingML runs.
func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
