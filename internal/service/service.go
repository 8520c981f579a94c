// Package service holds the business rules for posting orders and
// maintaining the catalog on top of a store.Repository.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopledger/internal/cache"
	"shopledger/internal/docnum"
	"shopledger/internal/domain"
	"shopledger/internal/store"
)

// maxDocNumberAttempts bounds the regenerate-and-retry loop when a
// generated document number collides with an existing one.
const maxDocNumberAttempts = 5

type Service struct {
	repo        store.Repository
	cache       cache.OrderCache
	cacheTTL    time.Duration
	postTimeout time.Duration
}

func New(repo store.Repository, orderCache cache.OrderCache, cacheTTL, postTimeout time.Duration) *Service {
	if orderCache == nil {
		orderCache = cache.NoopOrderCache{}
	}
	return &Service{
		repo:        repo,
		cache:       orderCache,
		cacheTTL:    cacheTTL,
		postTimeout: postTimeout,
	}
}

func (s *Service) PostSale(ctx context.Context, req domain.SaleCreateRequest) (*domain.Order, error) {
	return s.post(ctx, domain.OrderKindSale, req.CustomerID, req.Items)
}

func (s *Service) PostPurchase(ctx context.Context, req domain.PurchaseCreateRequest) (*domain.Order, error) {
	return s.post(ctx, domain.OrderKindPurchase, req.VendorID, req.Items)
}

func (s *Service) post(ctx context.Context, kind domain.OrderKind, counterpartyID string, items []domain.LineItemInput) (*domain.Order, error) {
	totals, err := ComputeTotals(items)
	if err != nil {
		return nil, err
	}

	order := domain.Order{
		ID:             docnum.ID(string(kind)),
		Kind:           kind,
		CounterpartyID: strings.TrimSpace(counterpartyID),
		SubTotal:       totals.SubTotal,
		DiscountTotal:  totals.DiscountTotal,
		TaxTotal:       totals.TaxTotal,
		GrandTotal:     totals.GrandTotal,
	}
	for i, item := range items {
		order.Lines = append(order.Lines, domain.OrderLine{
			ProductID:   item.ProductID,
			Qty:         item.Qty,
			UnitPrice:   item.Price,
			DiscountPct: item.DiscountPct,
			TaxPct:      item.TaxPct,
			LineTotal:   totals.Lines[i].LineTotal,
		})
	}

	for attempt := 0; attempt < maxDocNumberAttempts; attempt++ {
		order.DocNumber = docnum.ForOrder(kind.DocPrefix(), time.Now())

		postCtx, cancel := context.WithTimeout(ctx, s.postTimeout)
		posted, err := s.repo.PostOrder(postCtx, order)
		cancel()
		if errors.Is(err, store.ErrDuplicateDocNumber) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return posted, nil
	}
	return nil, fmt.Errorf("post %s: document number collisions on %d attempts", kind, maxDocNumberAttempts)
}

func (s *Service) GetSale(ctx context.Context, id string) (*domain.OrderDetail, error) {
	return s.getOrder(ctx, domain.OrderKindSale, id)
}

func (s *Service) GetPurchase(ctx context.Context, id string) (*domain.OrderDetail, error) {
	return s.getOrder(ctx, domain.OrderKindPurchase, id)
}

func (s *Service) getOrder(ctx context.Context, kind domain.OrderKind, id string) (*domain.OrderDetail, error) {
	key := fmt.Sprintf("order:%s:%s", kind, id)
	if detail, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		return detail, nil
	}

	detail, err := s.repo.GetOrderByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	// Best effort: a cache write failure never fails the read.
	_ = s.cache.Set(ctx, key, detail, s.cacheTTL)
	return detail, nil
}

func (s *Service) ListSales(ctx context.Context) ([]domain.OrderSummary, error) {
	return s.listOrders(ctx, domain.OrderKindSale)
}

func (s *Service) ListPurchases(ctx context.Context) ([]domain.OrderSummary, error) {
	return s.listOrders(ctx, domain.OrderKindPurchase)
}

func (s *Service) listOrders(ctx context.Context, kind domain.OrderKind) ([]domain.OrderSummary, error) {
	orders, err := s.repo.ListOrders(ctx, kind)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.OrderSummary, 0, len(orders))
	for _, o := range orders {
		summaries = append(summaries, o.Summary())
	}
	return summaries, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	sku := strings.TrimSpace(req.SKU)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", store.ErrInvalidOrder)
	}
	if sku == "" {
		return nil, fmt.Errorf("%w: product sku is required", store.ErrInvalidOrder)
	}
	if req.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: unit_price must not be negative", store.ErrInvalidOrder)
	}
	return s.repo.CreateProduct(ctx, domain.Product{
		ID:        docnum.ID("prod"),
		Name:      name,
		SKU:       sku,
		UnitPrice: req.UnitPrice,
		StockQty:  req.InitialStock,
	})
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Counterparty, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CounterpartyCreateRequest) (*domain.Counterparty, error) {
	party, err := partyFromRequest("cust", req)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateCustomer(ctx, party)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (*domain.Counterparty, error) {
	return s.repo.GetCustomerByID(ctx, id)
}

func (s *Service) ListVendors(ctx context.Context) ([]domain.Counterparty, error) {
	return s.repo.ListVendors(ctx)
}

func (s *Service) CreateVendor(ctx context.Context, req domain.CounterpartyCreateRequest) (*domain.Counterparty, error) {
	party, err := partyFromRequest("vend", req)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateVendor(ctx, party)
}

func (s *Service) GetVendor(ctx context.Context, id string) (*domain.Counterparty, error) {
	return s.repo.GetVendorByID(ctx, id)
}

func partyFromRequest(idPrefix string, req domain.CounterpartyCreateRequest) (domain.Counterparty, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Counterparty{}, fmt.Errorf("%w: name is required", store.ErrInvalidOrder)
	}
	return domain.Counterparty{
		ID:      docnum.ID(idPrefix),
		Name:    name,
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	}, nil
}
