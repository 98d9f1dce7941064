// Package cost prices simulated fills: slippage-adjusted execution
// price plus commission and transaction tax. All arithmetic runs on
// decimals so repeated fills never accumulate float drift; results are
// converted to float64 at the boundary.
package cost

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	one        = decimal.NewFromInt(1)
	tenK       = decimal.NewFromInt(10_000)
	hundredPct = decimal.NewFromInt(100)
)

// Model carries the fee schedule for one venue.
type Model struct {
	CommissionRate float64 // per side, on gross amount
	TaxRate        float64 // sell-side transaction tax, on gross amount
	SurchargeRate  float64 // secondary levy applied to the tax amount
	SlippageBps    float64 // adverse move in basis points
}

// Fill is the priced result of one simulated execution. Net is the cash
// delta: negative for buys, positive for sells.
type Fill struct {
	Shares     int64
	Price      float64 // slippage-adjusted execution price
	Gross      float64 // Price × Shares
	Commission float64
	Tax        float64
	Net        float64
}

func (m Model) check(shares int64, price float64) error {
	if shares <= 0 {
		return fmt.Errorf("cost: shares must be positive, got %d", shares)
	}
	if price <= 0 {
		return fmt.Errorf("cost: price must be positive, got %v", price)
	}
	return nil
}

// Buy prices a purchase of shares at the reference price. Slippage
// moves the execution price up; commission is charged on gross.
func (m Model) Buy(shares int64, price float64) (Fill, error) {
	if err := m.check(shares, price); err != nil {
		return Fill{}, err
	}

	slip := decimal.NewFromFloat(m.SlippageBps).Div(tenK)
	px := decimal.NewFromFloat(price).Mul(one.Add(slip))
	gross := px.Mul(decimal.NewFromInt(shares))
	comm := gross.Mul(decimal.NewFromFloat(m.CommissionRate))

	return Fill{
		Shares:     shares,
		Price:      px.InexactFloat64(),
		Gross:      gross.InexactFloat64(),
		Commission: comm.InexactFloat64(),
		Net:        gross.Add(comm).Neg().InexactFloat64(),
	}, nil
}

// Sell prices a sale of shares at the reference price. Slippage moves
// the execution price down; commission and transaction tax (plus the
// surcharge on the tax) are deducted from proceeds.
func (m Model) Sell(shares int64, price float64) (Fill, error) {
	if err := m.check(shares, price); err != nil {
		return Fill{}, err
	}

	slip := decimal.NewFromFloat(m.SlippageBps).Div(tenK)
	px := decimal.NewFromFloat(price).Mul(one.Sub(slip))
	gross := px.Mul(decimal.NewFromInt(shares))
	comm := gross.Mul(decimal.NewFromFloat(m.CommissionRate))

	tax := gross.Mul(decimal.NewFromFloat(m.TaxRate))
	tax = tax.Add(tax.Mul(decimal.NewFromFloat(m.SurchargeRate)))

	return Fill{
		Shares:     shares,
		Price:      px.InexactFloat64(),
		Gross:      gross.InexactFloat64(),
		Commission: comm.InexactFloat64(),
		Tax:        tax.InexactFloat64(),
		Net:        gross.Sub(comm).Sub(tax).InexactFloat64(),
	}, nil
}

// RoundTripPct is the percentage of notional lost to fees on an
// immediate buy-and-sell at the same price with zero slippage. Useful
// as a sanity bound in reports.
func (m Model) RoundTripPct() float64 {
	comm := decimal.NewFromFloat(m.CommissionRate).Mul(decimal.NewFromInt(2))
	tax := decimal.NewFromFloat(m.TaxRate).Mul(one.Add(decimal.NewFromFloat(m.SurchargeRate)))
	return comm.Add(tax).Mul(hundredPct).InexactFloat64()
}
