package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	StockQty  int             `json:"stock_qty"`
	CreatedAt time.Time       `json:"created_at"`
}

type ProductCreateRequest struct {
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	InitialStock int             `json:"initial_stock"`
}

// Counterparty is a customer (sales) or vendor (purchases). The two are
// stored separately but share a shape.
type Counterparty struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CounterpartyCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type OrderKind string

const (
	OrderKindSale     OrderKind = "sale"
	OrderKindPurchase OrderKind = "purchase"
)

// DocPrefix returns the document-number prefix for the kind.
func (k OrderKind) DocPrefix() string {
	if k == OrderKindPurchase {
		return "PUR"
	}
	return "INV"
}

type LineItemInput struct {
	ProductID   string          `json:"product_id"`
	Qty         int             `json:"qty"`
	Price       decimal.Decimal `json:"price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	TaxPct      decimal.Decimal `json:"tax_pct"`
}

type SaleCreateRequest struct {
	CustomerID string          `json:"customer_id"`
	Items      []LineItemInput `json:"items"`
}

type PurchaseCreateRequest struct {
	VendorID string          `json:"vendor_id"`
	Items    []LineItemInput `json:"items"`
}

// OrderLine is a persisted line item. UnitPrice is the price as submitted
// at post time, never re-read from the catalog.
type OrderLine struct {
	ProductID   string
	Qty         int
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	TaxPct      decimal.Decimal
	LineTotal   decimal.Decimal
}

// Order is the persistence model for a sale or purchase header with its
// lines. Once posted it is immutable.
type Order struct {
	ID             string
	Kind           OrderKind
	DocNumber      string
	CounterpartyID string
	SubTotal       decimal.Decimal
	DiscountTotal  decimal.Decimal
	TaxTotal       decimal.Decimal
	GrandTotal     decimal.Decimal
	CreatedAt      time.Time
	Lines          []OrderLine
}

// OrderSummary is the wire shape of an order header. InvoiceNo is set for
// sales, BillNo for purchases.
type OrderSummary struct {
	ID            string          `json:"id"`
	InvoiceNo     string          `json:"invoice_no,omitempty"`
	BillNo        string          `json:"bill_no,omitempty"`
	CustomerID    string          `json:"customer_id,omitempty"`
	VendorID      string          `json:"vendor_id,omitempty"`
	SubTotal      decimal.Decimal `json:"sub_total"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	CreatedAt     time.Time       `json:"created_at"`
}

type OrderLineDetail struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	TaxPct      decimal.Decimal `json:"tax_pct"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderDetail is the read-back shape: header, lines joined with product
// name/SKU, and the resolved counterparty (nil for walk-in/no-vendor).
type OrderDetail struct {
	Order    OrderSummary      `json:"order"`
	Items    []OrderLineDetail `json:"items"`
	Customer *Counterparty     `json:"customer,omitempty"`
	Vendor   *Counterparty     `json:"vendor,omitempty"`
}

// Summary converts the persistence model to its wire shape.
func (o Order) Summary() OrderSummary {
	summary := OrderSummary{
		ID:            o.ID,
		SubTotal:      o.SubTotal,
		DiscountTotal: o.DiscountTotal,
		TaxTotal:      o.TaxTotal,
		GrandTotal:    o.GrandTotal,
		CreatedAt:     o.CreatedAt,
	}
	if o.Kind == OrderKindPurchase {
		summary.BillNo = o.DocNumber
		summary.VendorID = o.CounterpartyID
	} else {
		summary.InvoiceNo = o.DocNumber
		summary.CustomerID = o.CounterpartyID
	}
	return summary
}
