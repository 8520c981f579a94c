package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shopledger/internal/docnum"
	"shopledger/internal/domain"
	"shopledger/internal/store"
)

// Run against a disposable database:
//
//	SHOPLEDGER_TEST_DATABASE_URL=postgres://... go test ./internal/store/postgres
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("SHOPLEDGER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SHOPLEDGER_TEST_DATABASE_URL not set")
	}
	s, err := New(context.Background(), url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedProduct(t *testing.T, s *Store, stock int) domain.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), domain.Product{
		ID:        docnum.ID("prod"),
		Name:      "Integration Widget",
		SKU:       docnum.ID("sku"),
		UnitPrice: decimal.NewFromInt(500),
		StockQty:  stock,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return *p
}

func TestPostOrderCommitsAtomically(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	product := seedProduct(t, s, 10)
	customer, err := s.CreateCustomer(ctx, domain.Counterparty{ID: docnum.ID("cust"), Name: "Integration Customer"})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	order := domain.Order{
		ID:             docnum.ID("sale"),
		Kind:           domain.OrderKindSale,
		DocNumber:      docnum.ForOrder("INV", time.Now()),
		CounterpartyID: customer.ID,
		SubTotal:       decimal.NewFromInt(1000),
		DiscountTotal:  decimal.Zero,
		TaxTotal:       decimal.Zero,
		GrandTotal:     decimal.NewFromInt(1000),
		Lines: []domain.OrderLine{{
			ProductID: product.ID,
			Qty:       2,
			UnitPrice: decimal.NewFromInt(500),
			LineTotal: decimal.NewFromInt(1000),
		}},
	}
	posted, err := s.PostOrder(ctx, order)
	if err != nil {
		t.Fatalf("PostOrder: %v", err)
	}
	if posted.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}

	got, err := s.GetProductByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProductByID: %v", err)
	}
	if got.StockQty != 8 {
		t.Fatalf("stock = %d, want 8", got.StockQty)
	}

	detail, err := s.GetOrderByID(ctx, domain.OrderKindSale, posted.ID)
	if err != nil {
		t.Fatalf("GetOrderByID: %v", err)
	}
	if len(detail.Items) != 1 || !detail.Order.GrandTotal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("detail = %+v", detail)
	}
}

func TestPostOrderUnknownProductRollsBack(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	product := seedProduct(t, s, 10)
	order := domain.Order{
		ID:        docnum.ID("sale"),
		Kind:      domain.OrderKindSale,
		DocNumber: docnum.ForOrder("INV", time.Now()),
		SubTotal:  decimal.NewFromInt(500),
		GrandTotal: decimal.NewFromInt(500),
		Lines: []domain.OrderLine{
			{ProductID: product.ID, Qty: 1, UnitPrice: decimal.NewFromInt(500), LineTotal: decimal.NewFromInt(500)},
			{ProductID: "prod-missing", Qty: 1, UnitPrice: decimal.NewFromInt(100), LineTotal: decimal.NewFromInt(100)},
		},
	}
	if _, err := s.PostOrder(ctx, order); !errors.Is(err, store.ErrUnknownReference) {
		t.Fatalf("err = %v, want ErrUnknownReference", err)
	}

	got, err := s.GetProductByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProductByID: %v", err)
	}
	if got.StockQty != 10 {
		t.Fatalf("stock = %d, want untouched 10", got.StockQty)
	}
	if _, err := s.GetOrderByID(ctx, domain.OrderKindSale, order.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no committed header, got err %v", err)
	}
}

func TestPostOrderDuplicateDocNumber(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	product := seedProduct(t, s, 10)
	doc := docnum.ForOrder("INV", time.Now())
	base := domain.Order{
		Kind:       domain.OrderKindSale,
		DocNumber:  doc,
		SubTotal:   decimal.NewFromInt(500),
		GrandTotal: decimal.NewFromInt(500),
		Lines: []domain.OrderLine{
			{ProductID: product.ID, Qty: 1, UnitPrice: decimal.NewFromInt(500), LineTotal: decimal.NewFromInt(500)},
		},
	}

	first := base
	first.ID = docnum.ID("sale")
	if _, err := s.PostOrder(ctx, first); err != nil {
		t.Fatalf("first PostOrder: %v", err)
	}

	second := base
	second.ID = docnum.ID("sale")
	if _, err := s.PostOrder(ctx, second); !errors.Is(err, store.ErrDuplicateDocNumber) {
		t.Fatalf("err = %v, want ErrDuplicateDocNumber", err)
	}
}
