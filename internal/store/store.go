// Package store defines the persistence contract shared by the postgres
// and in-memory repositories.
package store

import (
	"context"
	"errors"

	"shopledger/internal/domain"
)

var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidOrder means the order payload failed validation.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrUnknownReference means the order names a product or counterparty
	// that does not exist.
	ErrUnknownReference = errors.New("unknown reference")
	// ErrDuplicateDocNumber means the generated document number is already
	// taken. Callers regenerate and retry.
	ErrDuplicateDocNumber = errors.New("duplicate document number")
)

// Repository is the storage contract. PostOrder is atomic: either the
// header, every line, and every stock adjustment are committed together,
// or nothing is.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)

	ListCustomers(ctx context.Context) ([]domain.Counterparty, error)
	CreateCustomer(ctx context.Context, customer domain.Counterparty) (*domain.Counterparty, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Counterparty, error)

	ListVendors(ctx context.Context) ([]domain.Counterparty, error)
	CreateVendor(ctx context.Context, vendor domain.Counterparty) (*domain.Counterparty, error)
	GetVendorByID(ctx context.Context, id string) (*domain.Counterparty, error)

	PostOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrderByID(ctx context.Context, kind domain.OrderKind, id string) (*domain.OrderDetail, error)
	ListOrders(ctx context.Context, kind domain.OrderKind) ([]domain.Order, error)
}
