package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"shopledger/internal/domain"
	"shopledger/internal/store"
)

var (
	oneHundred = decimal.NewFromInt(100)
)

type LineTotals struct {
	Base           decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	LineTotal      decimal.Decimal
}

type OrderTotals struct {
	SubTotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	GrandTotal    decimal.Decimal
	Lines         []LineTotals
}

// ComputeTotals validates the line items and derives the financial
// totals. Per line: base = price * qty, discount = base * discount_pct /
// 100, tax = (base - discount) * tax_pct / 100. Only line_total and the
// four aggregates are rounded, each to two decimal places, so the sum of
// rounded line totals may drift from grand_total by a cent.
func ComputeTotals(items []domain.LineItemInput) (OrderTotals, error) {
	if len(items) == 0 {
		return OrderTotals{}, fmt.Errorf("%w: at least one line item is required", store.ErrInvalidOrder)
	}

	var totals OrderTotals
	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return OrderTotals{}, fmt.Errorf("%w: item %d is missing product_id", store.ErrInvalidOrder, i)
		}
		if item.Qty <= 0 {
			return OrderTotals{}, fmt.Errorf("%w: item %d qty must be positive", store.ErrInvalidOrder, i)
		}
		if item.Price.IsNegative() {
			return OrderTotals{}, fmt.Errorf("%w: item %d price must not be negative", store.ErrInvalidOrder, i)
		}
		if item.DiscountPct.IsNegative() || item.DiscountPct.GreaterThan(oneHundred) {
			return OrderTotals{}, fmt.Errorf("%w: item %d discount_pct must be between 0 and 100", store.ErrInvalidOrder, i)
		}
		if item.TaxPct.IsNegative() || item.TaxPct.GreaterThan(oneHundred) {
			return OrderTotals{}, fmt.Errorf("%w: item %d tax_pct must be between 0 and 100", store.ErrInvalidOrder, i)
		}

		base := item.Price.Mul(decimal.NewFromInt(int64(item.Qty)))
		discount := base.Mul(item.DiscountPct).Div(oneHundred)
		tax := base.Sub(discount).Mul(item.TaxPct).Div(oneHundred)

		line := LineTotals{
			Base:           base,
			DiscountAmount: discount,
			TaxAmount:      tax,
			LineTotal:      base.Sub(discount).Add(tax).Round(2),
		}
		totals.Lines = append(totals.Lines, line)

		totals.SubTotal = totals.SubTotal.Add(base)
		totals.DiscountTotal = totals.DiscountTotal.Add(discount)
		totals.TaxTotal = totals.TaxTotal.Add(tax)
	}

	totals.GrandTotal = totals.SubTotal.Sub(totals.DiscountTotal).Add(totals.TaxTotal).Round(2)
	totals.SubTotal = totals.SubTotal.Round(2)
	totals.DiscountTotal = totals.DiscountTotal.Round(2)
	totals.TaxTotal = totals.TaxTotal.Round(2)
	return totals, nil
}
