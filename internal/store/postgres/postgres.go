// Package postgres implements the repository on PostgreSQL via the pgx
// stdlib driver. Order posting runs in a serializable transaction with
// the touched product rows locked.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"shopledger/internal/domain"
	"shopledger/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			sku TEXT NOT NULL,
			unit_price NUMERIC(12,2) NOT NULL,
			stock_qty INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS products_sku_key ON products (sku)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT,
			address TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS vendors (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT,
			address TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			invoice_no TEXT NOT NULL,
			customer_id TEXT REFERENCES customers (id),
			sub_total NUMERIC(12,2) NOT NULL,
			discount_total NUMERIC(12,2) NOT NULL,
			tax_total NUMERIC(12,2) NOT NULL,
			grand_total NUMERIC(12,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS sales_invoice_no_key ON sales (invoice_no)`,
		`CREATE TABLE IF NOT EXISTS sale_items (
			id BIGSERIAL PRIMARY KEY,
			sale_id TEXT NOT NULL REFERENCES sales (id),
			product_id TEXT NOT NULL REFERENCES products (id),
			qty INTEGER NOT NULL,
			unit_price NUMERIC(12,2) NOT NULL,
			discount_pct NUMERIC(5,2) NOT NULL DEFAULT 0,
			tax_pct NUMERIC(5,2) NOT NULL DEFAULT 0,
			line_total NUMERIC(12,2) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS purchases (
			id TEXT PRIMARY KEY,
			bill_no TEXT NOT NULL,
			vendor_id TEXT REFERENCES vendors (id),
			sub_total NUMERIC(12,2) NOT NULL,
			discount_total NUMERIC(12,2) NOT NULL,
			tax_total NUMERIC(12,2) NOT NULL,
			grand_total NUMERIC(12,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS purchases_bill_no_key ON purchases (bill_no)`,
		`CREATE TABLE IF NOT EXISTS purchase_items (
			id BIGSERIAL PRIMARY KEY,
			purchase_id TEXT NOT NULL REFERENCES purchases (id),
			product_id TEXT NOT NULL REFERENCES products (id),
			qty INTEGER NOT NULL,
			unit_price NUMERIC(12,2) NOT NULL,
			discount_pct NUMERIC(5,2) NOT NULL DEFAULT 0,
			tax_pct NUMERIC(5,2) NOT NULL DEFAULT 0,
			line_total NUMERIC(12,2) NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, sku, unit_price, stock_qty, created_at FROM products ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.UnitPrice, &p.StockQty, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO products (id, name, sku, unit_price, stock_qty)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		product.ID, product.Name, product.SKU, product.UnitPrice, product.StockQty,
	).Scan(&product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: sku %q already exists", store.ErrInvalidOrder, product.SKU)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	return &product, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, sku, unit_price, stock_qty, created_at FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.SKU, &p.UnitPrice, &p.StockQty, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Counterparty, error) {
	return s.listParties(ctx, "customers")
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Counterparty) (*domain.Counterparty, error) {
	return s.createParty(ctx, "customers", customer)
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Counterparty, error) {
	return s.getParty(ctx, "customers", id)
}

func (s *Store) ListVendors(ctx context.Context) ([]domain.Counterparty, error) {
	return s.listParties(ctx, "vendors")
}

func (s *Store) CreateVendor(ctx context.Context, vendor domain.Counterparty) (*domain.Counterparty, error) {
	return s.createParty(ctx, "vendors", vendor)
}

func (s *Store) GetVendorByID(ctx context.Context, id string) (*domain.Counterparty, error) {
	return s.getParty(ctx, "vendors", id)
}

func (s *Store) listParties(ctx context.Context, table string) ([]domain.Counterparty, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(phone, ''), COALESCE(address, ''), created_at FROM `+table+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var out []domain.Counterparty
	for rows.Next() {
		var c domain.Counterparty
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) createParty(ctx context.Context, table string, party domain.Counterparty) (*domain.Counterparty, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO `+table+` (id, name, phone, address)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		party.ID, party.Name, nullIfEmpty(party.Phone), nullIfEmpty(party.Address),
	).Scan(&party.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create %s row: %w", table, err)
	}
	return &party, nil
}

func (s *Store) getParty(ctx context.Context, table, id string) (*domain.Counterparty, error) {
	var c domain.Counterparty
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(phone, ''), COALESCE(address, ''), created_at FROM `+table+` WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s row: %w", table, err)
	}
	return &c, nil
}

// PostOrder commits the header, every line, and every stock adjustment in
// one serializable transaction. Product rows are locked up front so the
// stock update cannot race a concurrent posting.
func (s *Store) PostOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	headerTable, itemTable, docColumn, partyColumn, partyTable := tableNames(order.Kind)

	if order.CounterpartyID != "" {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM `+partyTable+` WHERE id = $1`, order.CounterpartyID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: counterparty %q", store.ErrUnknownReference, order.CounterpartyID)
		}
		if err != nil {
			return nil, fmt.Errorf("verify counterparty: %w", err)
		}
	}

	productIDs := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		productIDs = append(productIDs, line.ProductID)
	}
	rows, err := tx.QueryContext(ctx, `SELECT id FROM products WHERE id = ANY($1) FOR UPDATE`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	locked := make(map[string]bool, len(productIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan locked product: %w", err)
		}
		locked[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	for _, id := range productIDs {
		if !locked[id] {
			return nil, fmt.Errorf("%w: product %q", store.ErrUnknownReference, id)
		}
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO `+headerTable+` (id, `+docColumn+`, `+partyColumn+`, sub_total, discount_total, tax_total, grand_total)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		order.ID, order.DocNumber, nullIfEmpty(order.CounterpartyID),
		order.SubTotal, order.DiscountTotal, order.TaxTotal, order.GrandTotal,
	).Scan(&order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateDocNumber
		}
		return nil, fmt.Errorf("insert %s header: %w", headerTable, err)
	}

	for _, line := range order.Lines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+itemTable+` (`+headerColumn(order.Kind)+`, product_id, qty, unit_price, discount_pct, tax_pct, line_total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			order.ID, line.ProductID, line.Qty, line.UnitPrice, line.DiscountPct, line.TaxPct, line.LineTotal,
		); err != nil {
			return nil, fmt.Errorf("insert %s row: %w", itemTable, err)
		}

		delta := -line.Qty
		if order.Kind == domain.OrderKindPurchase {
			delta = line.Qty
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock_qty = stock_qty + $1 WHERE id = $2`,
			delta, line.ProductID,
		); err != nil {
			return nil, fmt.Errorf("adjust stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}
	return &order, nil
}

func (s *Store) GetOrderByID(ctx context.Context, kind domain.OrderKind, id string) (*domain.OrderDetail, error) {
	headerTable, itemTable, docColumn, partyColumn, partyTable := tableNames(kind)

	order := domain.Order{ID: id, Kind: kind}
	var partyID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT `+docColumn+`, `+partyColumn+`, sub_total, discount_total, tax_total, grand_total, created_at
		 FROM `+headerTable+` WHERE id = $1`, id,
	).Scan(&order.DocNumber, &partyID, &order.SubTotal, &order.DiscountTotal, &order.TaxTotal, &order.GrandTotal, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s header: %w", headerTable, err)
	}
	order.CounterpartyID = partyID.String

	detail := &domain.OrderDetail{Order: order.Summary()}

	rows, err := s.db.QueryContext(ctx,
		`SELECT i.product_id, p.name, p.sku, i.qty, i.unit_price, i.discount_pct, i.tax_pct, i.line_total
		 FROM `+itemTable+` i
		 JOIN products p ON p.id = i.product_id
		 WHERE i.`+headerColumn(kind)+` = $1
		 ORDER BY i.id`, id)
	if err != nil {
		return nil, fmt.Errorf("list %s rows: %w", itemTable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.OrderLineDetail
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.ProductSKU,
			&item.Qty, &item.UnitPrice, &item.DiscountPct, &item.TaxPct, &item.LineTotal); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", itemTable, err)
		}
		detail.Items = append(detail.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s rows: %w", itemTable, err)
	}

	if order.CounterpartyID != "" {
		party, err := s.getParty(ctx, partyTable, order.CounterpartyID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if kind == domain.OrderKindPurchase {
			detail.Vendor = party
		} else {
			detail.Customer = party
		}
	}
	return detail, nil
}

func (s *Store) ListOrders(ctx context.Context, kind domain.OrderKind) ([]domain.Order, error) {
	headerTable, _, docColumn, partyColumn, _ := tableNames(kind)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, `+docColumn+`, `+partyColumn+`, sub_total, discount_total, tax_total, grand_total, created_at
		 FROM `+headerTable+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", headerTable, err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		order := domain.Order{Kind: kind}
		var partyID sql.NullString
		if err := rows.Scan(&order.ID, &order.DocNumber, &partyID,
			&order.SubTotal, &order.DiscountTotal, &order.TaxTotal, &order.GrandTotal, &order.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s header: %w", headerTable, err)
		}
		order.CounterpartyID = partyID.String
		out = append(out, order)
	}
	return out, rows.Err()
}

func tableNames(kind domain.OrderKind) (headerTable, itemTable, docColumn, partyColumn, partyTable string) {
	if kind == domain.OrderKindPurchase {
		return "purchases", "purchase_items", "bill_no", "vendor_id", "vendors"
	}
	return "sales", "sale_items", "invoice_no", "customer_id", "customers"
}

func headerColumn(kind domain.OrderKind) string {
	if kind == domain.OrderKindPurchase {
		return "purchase_id"
	}
	return "sale_id"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
