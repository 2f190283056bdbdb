package document

import (
	"fmt"
	"strings"

	"github.com/leasegen/backend/internal/domain/lease"
)

// view is the format-neutral layout both templates fill.
type view struct {
	Title           string
	Place           string
	Parties         string
	Summary         []row
	Clauses         []lease.Clause
	Disclaimers     []string
	Signers         []string
	SignatureMethod string
}

type row struct {
	Label string
	Value string
}

func newView(doc *lease.Output) *view {
	v := &view{
		Title:       "Residential Lease Agreement",
		Place:       place(doc.Jurisdiction),
		Clauses:     doc.Clauses,
		Disclaimers: doc.Disclaimers,
		Parties: fmt.Sprintf("%s (Landlord) and %s (Tenant)",
			doc.Landlord.Name, tenantNames(doc.Tenants)),
		SignatureMethod: lease.Label(doc.SignatureMethod),
	}

	v.Signers = append(v.Signers, doc.Landlord.Name+", Landlord")
	for _, t := range doc.Tenants {
		v.Signers = append(v.Signers, t.Name+", Tenant")
	}

	v.Summary = summary(&doc.Terms)
	return v
}

func summary(t *lease.Terms) []row {
	p := t.Property
	address := p.Address
	if p.Zip != "" {
		address += " " + p.Zip
	}

	rows := []row{
		{"Premises", address},
		{"Start date", formatDate(t.LeaseTerm.StartDate)},
	}
	if p.Type != "" {
		rows = append(rows, row{"Property type", lease.Label(p.Type)})
	}
	if p.Bedrooms != nil {
		rows = append(rows, row{"Bedrooms", fmt.Sprint(*p.Bedrooms)})
	}
	if p.Bathrooms != nil {
		rows = append(rows, row{"Bathrooms", fmt.Sprint(*p.Bathrooms)})
	}

	switch {
	case t.LeaseTerm.EndDate != "":
		rows = append(rows, row{"End date", formatDate(t.LeaseTerm.EndDate)})
	case t.LeaseTerm.DurationMonths != nil:
		rows = append(rows, row{"Duration", fmt.Sprintf("%d months", *t.LeaseTerm.DurationMonths)})
	}

	rows = append(rows,
		row{"Renewal", lease.Label(t.LeaseTerm.Renewal)},
		row{"Monthly rent", formatMoney(t.Financials.MonthlyRent)},
		row{"Security deposit", formatMoney(t.Financials.SecurityDeposit)},
		row{"Proration", lease.Label(t.Financials.Proration)},
	)

	if len(t.Financials.UtilitiesIncluded) > 0 {
		names := make([]string, 0, len(t.Financials.UtilitiesIncluded))
		for _, u := range t.Financials.UtilitiesIncluded {
			names = append(names, lease.Label(u))
		}
		rows = append(rows, row{"Utilities included", strings.Join(names, ", ")})
	}

	if fee := t.Financials.LateFee; fee != nil {
		amount := formatMoney(fee.Amount)
		if fee.Type == lease.LateFeePercent {
			amount = fee.Amount.String() + "% of rent"
		}
		rows = append(rows, row{"Late fee", fmt.Sprintf("%s after %d days", amount, fee.GraceDays)})
	}

	pets := "Not allowed"
	if t.Pets.Allowed {
		pets = "Allowed"
		var extras []string
		if t.Pets.Fee != nil {
			extras = append(extras, "fee "+formatMoney(t.Pets.Fee))
		}
		if t.Pets.Deposit != nil {
			extras = append(extras, "deposit "+formatMoney(t.Pets.Deposit))
		}
		if t.Pets.MonthlyRent != nil {
			extras = append(extras, "pet rent "+formatMoney(t.Pets.MonthlyRent)+"/month")
		}
		if len(extras) > 0 {
			pets += " (" + strings.Join(extras, ", ") + ")"
		}
	}
	rows = append(rows,
		row{"Pets", pets},
		row{"Smoking", lease.Label(t.Rules.Smoking)},
		row{"Subletting", lease.Label(t.Rules.Subletting)},
		row{"Alterations", lease.Label(t.Rules.Alterations)},
	)

	insurance := "Not required"
	if t.Rules.InsuranceRequired {
		insurance = "Required"
	}
	rows = append(rows, row{"Renter's insurance", insurance})
	if t.Rules.Parking != "" {
		rows = append(rows, row{"Parking", t.Rules.Parking})
	}

	rows = append(rows,
		row{"Notices", lease.Label(t.NoticeDelivery)},
		row{"Landlord address", t.Landlord.Address},
	)
	return rows
}
