package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/leasegen/backend/internal/domain/lease"
)

// EchoCompleter drafts the lease locally from fixed clause templates. It
// backs development and tests where no model credentials exist, and its
// output is deterministic for a given input.
type EchoCompleter struct{}

func (EchoCompleter) Complete(ctx context.Context, system, user string) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var terms lease.Terms
	if err := json.Unmarshal([]byte(user), &terms); err != nil {
		return nil, errors.Wrap(err, "echo: decode prompt")
	}

	out := lease.Output{
		Terms:       terms,
		Clauses:     draftClauses(&terms),
		Disclaimers: []string{disclaimer(terms.Jurisdiction)},
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "echo: encode lease")
	}

	prompt := approxTokens(system) + approxTokens(user)
	completion := approxTokens(string(data))
	return &Completion{
		Content: string(data),
		Usage: TokenUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}, nil
}

// approxTokens uses the common four-characters-per-token estimate.
func approxTokens(s string) int {
	return (len(s) + 3) / 4
}

func draftClauses(t *lease.Terms) []lease.Clause {
	names := make([]string, 0, len(t.Tenants))
	for _, tenant := range t.Tenants {
		names = append(names, tenant.Name)
	}

	clauses := []lease.Clause{
		{
			Heading: "Parties",
			Body: fmt.Sprintf("This lease is made between %s (\"Landlord\"), of %s, and %s (\"Tenant\").",
				t.Landlord.Name, t.Landlord.Address, strings.Join(names, ", ")),
		},
		{
			Heading: "Premises",
			Body:    fmt.Sprintf("Landlord leases to Tenant the premises located at %s.", premises(&t.Property)),
		},
		{Heading: "Term", Body: term(&t.LeaseTerm)},
		{Heading: "Rent", Body: rent(&t.Financials)},
		{
			Heading: "Security Deposit",
			Body: fmt.Sprintf("Tenant shall pay a security deposit of %s, held and returned as required by law.",
				t.Financials.SecurityDeposit.Format()),
		},
	}

	if len(t.Financials.UtilitiesIncluded) > 0 {
		labels := make([]string, 0, len(t.Financials.UtilitiesIncluded))
		for _, u := range t.Financials.UtilitiesIncluded {
			labels = append(labels, strings.ToLower(lease.Label(u)))
		}
		clauses = append(clauses, lease.Clause{
			Heading: "Utilities",
			Body:    fmt.Sprintf("Landlord provides the following utilities: %s. Tenant pays all others.", strings.Join(labels, ", ")),
		})
	}

	if fee := t.Financials.LateFee; fee != nil {
		amount := fee.Amount.Format()
		if fee.Type == lease.LateFeePercent {
			amount = fee.Amount.String() + "% of the monthly rent"
		}
		clauses = append(clauses, lease.Clause{
			Heading: "Late Fees",
			Body:    fmt.Sprintf("Rent not received within %d days of the due date incurs a late fee of %s.", fee.GraceDays, amount),
		})
	}

	clauses = append(clauses,
		lease.Clause{Heading: "Pets", Body: pets(&t.Pets)},
		lease.Clause{Heading: "House Rules", Body: rules(&t.Rules)},
		lease.Clause{
			Heading: "Notices",
			Body:    fmt.Sprintf("Notices under this lease are delivered by %s.", strings.ToLower(lease.Label(t.NoticeDelivery))),
		},
		lease.Clause{
			Heading: "Signatures",
			Body:    fmt.Sprintf("The parties sign this lease by %s signature.", strings.ToLower(lease.Label(t.SignatureMethod))),
		},
	)
	return clauses
}

func premises(p *lease.Property) string {
	s := p.Address
	if p.Zip != "" {
		s += " " + p.Zip
	}
	if p.Type != "" {
		s += fmt.Sprintf(" (%s)", strings.ToLower(lease.Label(p.Type)))
	}
	return s
}

func term(lt *lease.LeaseTerm) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The lease begins on %s", lt.StartDate)
	switch {
	case lt.EndDate != "":
		fmt.Fprintf(&b, " and ends on %s", lt.EndDate)
	case lt.DurationMonths != nil:
		fmt.Fprintf(&b, " and runs for %d months", *lt.DurationMonths)
	default:
		b.WriteString(" and continues month to month")
	}
	b.WriteString(".")

	switch lt.Renewal {
	case lease.RenewalAuto:
		b.WriteString(" It renews automatically unless either party gives notice.")
	case lease.RenewalMutual:
		b.WriteString(" It may be renewed by mutual written agreement.")
	default:
		b.WriteString(" It does not renew.")
	}
	return b.String()
}

func rent(f *lease.Financials) string {
	s := fmt.Sprintf("Tenant shall pay monthly rent of %s, due on the first day of each month.", f.MonthlyRent.Format())
	switch f.Proration {
	case lease.ProrationDaily:
		s += " Rent for a partial month is prorated by the actual number of days."
	case lease.ProrationThirtyDay:
		s += " Rent for a partial month is prorated on a thirty-day month."
	}
	return s
}

func pets(p *lease.PetPolicy) string {
	if !p.Allowed {
		return "No pets are permitted on the premises."
	}
	s := "Pets are permitted."
	if p.Fee != nil {
		s += fmt.Sprintf(" A one-time pet fee of %s applies.", p.Fee.Format())
	}
	if p.Deposit != nil {
		s += fmt.Sprintf(" A pet deposit of %s is required.", p.Deposit.Format())
	}
	if p.MonthlyRent != nil {
		s += fmt.Sprintf(" Monthly pet rent is %s.", p.MonthlyRent.Format())
	}
	return s
}

func rules(r *lease.HouseRules) string {
	s := fmt.Sprintf("Smoking: %s. Subletting: %s. Alterations: %s.",
		strings.ToLower(lease.Label(r.Smoking)),
		strings.ToLower(lease.Label(r.Subletting)),
		strings.ToLower(lease.Label(r.Alterations)))
	if r.InsuranceRequired {
		s += " Tenant shall maintain renter's insurance."
	}
	if r.Parking != "" {
		s += " Parking: " + r.Parking + "."
	}
	return s
}

func disclaimer(j lease.Jurisdiction) string {
	place := j.Country
	if j.State != "" {
		place = j.State + ", " + place
	}
	return fmt.Sprintf("This document was drafted automatically and is not legal advice. Review it against the laws of %s before signing.", place)
}
