// Package memory provides a mutex guarded in-memory repository used for
// local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"shopledger/internal/domain"
	"shopledger/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	products  map[string]domain.Product
	customers map[string]domain.Counterparty
	vendors   map[string]domain.Counterparty
	orders    map[string]domain.Order
	docTaken  map[string]bool
}

func New() *Store {
	return &Store{
		products:  make(map[string]domain.Product),
		customers: make(map[string]domain.Counterparty),
		vendors:   make(map[string]domain.Counterparty),
		orders:    make(map[string]domain.Order),
		docTaken:  make(map[string]bool),
	}
}

// NewSeeded returns a store preloaded with a small catalog so the server
// is usable out of the box without a database.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	seedProducts := []domain.Product{
		{ID: "prod-lap14", Name: `Laptop 14"`, SKU: "LAP-14", UnitPrice: decimal.NewFromInt(50000), StockQty: 10, CreatedAt: now},
		{ID: "prod-mou001", Name: "Wireless Mouse", SKU: "MOU-001", UnitPrice: decimal.NewFromInt(500), StockQty: 50, CreatedAt: now},
		{ID: "prod-key101", Name: "Keyboard", SKU: "KEY-101", UnitPrice: decimal.NewFromInt(1200), StockQty: 20, CreatedAt: now},
	}
	for _, p := range seedProducts {
		s.products[p.ID] = p
	}
	s.customers["cust-john"] = domain.Counterparty{ID: "cust-john", Name: "John Doe", Phone: "9999999999", Address: "Bangalore", CreatedAt: now}
	s.customers["cust-acme"] = domain.Counterparty{ID: "cust-acme", Name: "Acme Corp", Phone: "080-123456", Address: "Chennai", CreatedAt: now}
	s.vendors["vend-gadget"] = domain.Counterparty{ID: "vend-gadget", Name: "Gadget Supplies", Phone: "080-777777", Address: "Mumbai", CreatedAt: now}
	return s
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.products {
		if existing.SKU == product.SKU {
			return nil, fmt.Errorf("%w: sku %q already exists", store.ErrInvalidOrder, product.SKU)
		}
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Counterparty, error) {
	return s.listParties(s.customers), nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Counterparty) (*domain.Counterparty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Counterparty, error) {
	return s.getParty(s.customers, id)
}

func (s *Store) ListVendors(ctx context.Context) ([]domain.Counterparty, error) {
	return s.listParties(s.vendors), nil
}

func (s *Store) CreateVendor(ctx context.Context, vendor domain.Counterparty) (*domain.Counterparty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if vendor.CreatedAt.IsZero() {
		vendor.CreatedAt = time.Now().UTC()
	}
	s.vendors[vendor.ID] = vendor
	return &vendor, nil
}

func (s *Store) GetVendorByID(ctx context.Context, id string) (*domain.Counterparty, error) {
	return s.getParty(s.vendors, id)
}

func (s *Store) listParties(m map[string]domain.Counterparty) []domain.Counterparty {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Counterparty, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) getParty(m map[string]domain.Counterparty, id string) (*domain.Counterparty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := m[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

// PostOrder validates every reference before mutating anything, then
// applies the stock deltas and stores the order under a single lock so a
// failing order leaves no trace.
func (s *Store) PostOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.CounterpartyID != "" {
		parties := s.customers
		if order.Kind == domain.OrderKindPurchase {
			parties = s.vendors
		}
		if _, ok := parties[order.CounterpartyID]; !ok {
			return nil, fmt.Errorf("%w: counterparty %q", store.ErrUnknownReference, order.CounterpartyID)
		}
	}
	for _, line := range order.Lines {
		if _, ok := s.products[line.ProductID]; !ok {
			return nil, fmt.Errorf("%w: product %q", store.ErrUnknownReference, line.ProductID)
		}
	}
	if s.docTaken[order.DocNumber] {
		return nil, store.ErrDuplicateDocNumber
	}

	for _, line := range order.Lines {
		p := s.products[line.ProductID]
		if order.Kind == domain.OrderKindPurchase {
			p.StockQty += line.Qty
		} else {
			p.StockQty -= line.Qty
		}
		s.products[line.ProductID] = p
	}

	stored := order
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.Lines = append([]domain.OrderLine(nil), order.Lines...)
	s.orders[order.ID] = stored
	s.docTaken[order.DocNumber] = true
	return &stored, nil
}

func (s *Store) GetOrderByID(ctx context.Context, kind domain.OrderKind, id string) (*domain.OrderDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok || order.Kind != kind {
		return nil, store.ErrNotFound
	}

	detail := &domain.OrderDetail{Order: order.Summary()}
	for _, line := range order.Lines {
		item := domain.OrderLineDetail{
			ProductID:   line.ProductID,
			Qty:         line.Qty,
			UnitPrice:   line.UnitPrice,
			DiscountPct: line.DiscountPct,
			TaxPct:      line.TaxPct,
			LineTotal:   line.LineTotal,
		}
		if p, ok := s.products[line.ProductID]; ok {
			item.ProductName = p.Name
			item.ProductSKU = p.SKU
		}
		detail.Items = append(detail.Items, item)
	}
	if order.CounterpartyID != "" {
		if kind == domain.OrderKindPurchase {
			if v, ok := s.vendors[order.CounterpartyID]; ok {
				detail.Vendor = &v
			}
		} else if c, ok := s.customers[order.CounterpartyID]; ok {
			detail.Customer = &c
		}
	}
	return detail, nil
}

func (s *Store) ListOrders(ctx context.Context, kind domain.OrderKind) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, 0)
	for _, o := range s.orders {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
