package tkp

import (
	json "github.com/goccy/go-json"

	"github.com/noah-isme/tkp-service/internal/pricing"
	"github.com/noah-isme/tkp-service/internal/state"
)

// Supported proposal currencies.
const (
	CurrencyRUB = "RUB"
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
)

// Data is a validated commercial proposal.
type Data struct {
	Client     Client      `json:"client"`
	Project    Project     `json:"project"`
	Scope      []ScopeItem `json:"scope"`
	Commercial Commercial  `json:"commercial"`
	Legal      Legal       `json:"legal"`
	Signatures Signatures  `json:"signatures"`
}

// Client describes the customer the proposal is addressed to.
type Client struct {
	Name        string  `json:"name"`
	INN         *string `json:"inn"`
	KPP         *string `json:"kpp"`
	ContactName string  `json:"contact_name"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone"`
}

// Project describes the work being proposed.
type Project struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Deadline string `json:"deadline"`
}

// ScopeItem is a single priced line of work.
type ScopeItem struct {
	Item  string  `json:"item"`
	Desc  *string `json:"desc"`
	Qty   float64 `json:"qty"`
	Unit  string  `json:"unit"`
	Price float64 `json:"price"`
}

// Commercial holds currency and payment conditions.
type Commercial struct {
	Currency        string   `json:"currency"`
	VATIncluded     bool     `json:"vat_included"`
	DiscountPercent *float64 `json:"discount_percent"`
	PaymentTerms    string   `json:"payment_terms"`
}

// Legal holds validity and warranty terms.
type Legal struct {
	ValidUntil string  `json:"valid_until"`
	Warranty   string  `json:"warranty"`
	Liability  *string `json:"liability"`
}

// Signatures holds optional signature placeholders.
type Signatures struct {
	SupplierSign *string `json:"supplier_sign"`
	ClientSign   *string `json:"client_sign"`
}

// Line converts the item into a pricing line.
func (s ScopeItem) Line() pricing.Line {
	return pricing.Line{Qty: s.Qty, UnitPrice: s.Price}
}

// Lines returns the pricing lines of the scope in order.
func (d Data) Lines() []pricing.Line {
	lines := make([]pricing.Line, len(d.Scope))
	for i, item := range d.Scope {
		lines[i] = item.Line()
	}
	return lines
}

// Summary computes the totals breakdown for the proposal.
func (d Data) Summary() pricing.Summary {
	return pricing.Summarize(d.Lines(), d.Commercial.DiscountPercent, d.Commercial.Currency)
}

// State converts the typed record back into its accumulated-state form.
func (d Data) State() (state.Map, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return state.Decode(raw)
}
