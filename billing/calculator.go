// Package billing computes service totals. It does no I/O.
package billing

import (
	"taller-backend/models"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the workshop IVA rate when the config does not set one.
const DefaultTaxRate = 0.13

// Totals is the financial summary of a service. Profit figures are only
// filled for actors allowed to see them.
type Totals struct {
	PartsTotal     decimal.Decimal  `json:"partsTotal"`
	LaborTotal     decimal.Decimal  `json:"laborTotal"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	TaxRate        decimal.Decimal  `json:"taxRate"`
	Tax            decimal.Decimal  `json:"tax"`
	Discount       decimal.Decimal  `json:"discount"`
	Total          decimal.Decimal  `json:"total"`
	PaidLaborTotal *decimal.Decimal `json:"paidLaborTotal,omitempty"`
	Profit         *decimal.Decimal `json:"profit,omitempty"`
}

type Calculator struct {
	taxRate decimal.Decimal
}

// NewCalculator returns a calculator applying taxRate to services without their own
// rate. Zero is a valid rate.
func NewCalculator(taxRate float64) *Calculator {
	return &Calculator{taxRate: decimal.NewFromFloat(taxRate)}
}

// TaxRate returns the rate applied to svc.
func (c *Calculator) TaxRate(svc *models.Service) decimal.Decimal {
	if svc.IVARate != nil {
		return decimal.NewFromFloat(*svc.IVARate)
	}
	return c.taxRate
}

// Subtotal is parts plus labor.
func (c *Calculator) Subtotal(svc *models.Service) decimal.Decimal {
	return PartsTotal(svc.Parts).Add(LaborTotal(svc.Labors))
}

// Compute returns the totals of svc as seen by actor. A discount above the
// subtotal, or a negative one, is rejected rather than clamped.
func (c *Calculator) Compute(svc *models.Service, actor models.Actor) (*Totals, error) {
	parts := PartsTotal(svc.Parts)
	labor := LaborTotal(svc.Labors)
	subtotal := parts.Add(labor)
	discount := decimal.NewFromFloat(svc.Discount)

	if err := CheckDiscount(discount, subtotal); err != nil {
		return nil, err
	}

	rate := c.TaxRate(svc)
	tax := subtotal.Mul(rate)

	totals := &Totals{
		PartsTotal: parts.Round(2),
		LaborTotal: labor.Round(2),
		Subtotal:   subtotal.Round(2),
		TaxRate:    rate,
		Tax:        tax.Round(2),
		Discount:   discount.Round(2),
		Total:      subtotal.Add(tax).Sub(discount).Round(2),
	}

	if actor.Capabilities.CanSeeProfit {
		paid := PaidLaborTotal(svc.PaidLabors)
		profit := labor.Sub(paid).Round(2)
		paid = paid.Round(2)
		totals.PaidLaborTotal = &paid
		totals.Profit = &profit
	}

	return totals, nil
}

// CheckDiscount rejects a discount outside [0, subtotal].
func CheckDiscount(discount, subtotal decimal.Decimal) error {
	if discount.IsNegative() {
		return models.NewValidationError("discount", "discount cannot be negative")
	}
	if discount.GreaterThan(subtotal) {
		return models.NewValidationError("discount",
			"discount "+discount.StringFixed(2)+" exceeds subtotal "+subtotal.StringFixed(2))
	}
	return nil
}

func PartsTotal(parts []models.Part) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range parts {
		sum = sum.Add(decimal.NewFromFloat(p.Quantity).Mul(decimal.NewFromFloat(p.UnitPrice)))
	}
	return sum
}

func LaborTotal(labors []models.Labor) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range labors {
		sum = sum.Add(decimal.NewFromFloat(l.Quantity).Mul(decimal.NewFromFloat(l.UnitPrice)))
	}
	return sum
}

func PaidLaborTotal(paid []models.PaidLabor) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range paid {
		sum = sum.Add(decimal.NewFromFloat(p.Price))
	}
	return sum
}
