// Package lease defines the residential lease records exchanged between the
// caller, the generation backend and the document renderer.
package lease

// Terms holds the semantic lease fields shared by Input and Output.
type Terms struct {
	Jurisdiction    Jurisdiction    `json:"jurisdiction"`
	LeaseTerm       LeaseTerm       `json:"leaseTerm"`
	Financials      Financials      `json:"financials"`
	Pets            PetPolicy       `json:"pets"`
	Rules           HouseRules      `json:"rules"`
	NoticeDelivery  NoticeDelivery  `json:"noticeDelivery"`
	SignatureMethod SignatureMethod `json:"signatureMethod"`
	Property        Property        `json:"property"`
	Landlord        Landlord        `json:"landlord"`
	Tenants         Tenants         `json:"tenants" validate:"dive"`
}

// Input is the caller-supplied lease description.
type Input struct {
	Terms
	CaptchaToken string `json:"captchaToken,omitempty"`
}

// Output is the generator-elaborated lease handed to the document renderer.
type Output struct {
	Terms
	Clauses     []Clause `json:"clauses"`
	Disclaimers []string `json:"disclaimers,omitempty"`
}

type Jurisdiction struct {
	Country string `json:"country"`
	State   string `json:"state,omitempty"`
	City    string `json:"city,omitempty"`
}

// LeaseTerm dates are ISO calendar dates (YYYY-MM-DD).
type LeaseTerm struct {
	StartDate      string      `json:"startDate" validate:"isodate"`
	EndDate        string      `json:"endDate,omitempty" validate:"omitempty,isodate"`
	DurationMonths *int        `json:"durationMonths,omitempty"`
	Renewal        RenewalMode `json:"renewal"`
}

type Financials struct {
	MonthlyRent       Money        `json:"monthlyRent"`
	SecurityDeposit   Money        `json:"securityDeposit"`
	Proration         Proration    `json:"proration"`
	UtilitiesIncluded []Utility    `json:"utilitiesIncluded,omitempty"`
	LateFee           *LateFeeRule `json:"lateFee,omitempty"`
}

// LateFeeRule charges Amount (a currency value for flat, a percentage of
// rent for percent) once GraceDays have passed.
type LateFeeRule struct {
	Type      LateFeeType `json:"type"`
	Amount    Money       `json:"amount"`
	GraceDays int         `json:"graceDays"`
}

type PetPolicy struct {
	Allowed     bool   `json:"allowed"`
	Fee         *Money `json:"fee,omitempty"`
	Deposit     *Money `json:"deposit,omitempty"`
	MonthlyRent *Money `json:"monthlyRent,omitempty"`
}

type HouseRules struct {
	Smoking           SmokingPolicy `json:"smoking"`
	Subletting        ConsentPolicy `json:"subletting"`
	Alterations       ConsentPolicy `json:"alterations"`
	InsuranceRequired bool          `json:"insuranceRequired"`
	Parking           string        `json:"parking,omitempty"`
}

type Property struct {
	Address   string       `json:"address"`
	Type      PropertyType `json:"type,omitempty"`
	Bedrooms  *int         `json:"bedrooms,omitempty"`
	Bathrooms *float64     `json:"bathrooms,omitempty"`
	Zip       string       `json:"zip,omitempty"`
}

type Landlord struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
}

type Tenant struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// Clause is one generated section of the lease body.
type Clause struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}
