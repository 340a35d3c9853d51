package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colmado-pos/colmado-pos/internal/platform/db"
)

// Repository persists sales and the daily rollup.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetSale(ctx context.Context, id uuid.UUID) (Sale, error)
	ListSales(ctx context.Context, limit, offset int) ([]Sale, error)
	ListSalesByDate(ctx context.Context, date string) ([]Sale, error)
	GetDailySales(ctx context.Context, date string) (DailySales, error)
	ListDailySales(ctx context.Context) ([]DailySales, error)
}

// TxRepository is the write surface available inside a checkout transaction.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (stock float64, active bool, err error)
	AdjustProductStock(ctx context.Context, id uuid.UUID, delta float64) error
	InsertSale(ctx context.Context, sale Sale) error
	RefoldDailySales(ctx context.Context, date string) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (t *pgTxRepository) GetProductForUpdate(ctx context.Context, id uuid.UUID) (float64, bool, error) {
	var (
		stock  float64
		active bool
	)
	err := t.tx.QueryRow(ctx,
		`SELECT stock, is_active FROM products WHERE id = $1 FOR UPDATE`, id,
	).Scan(&stock, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, ErrProductUnavailable
	}
	if err != nil {
		return 0, false, fmt.Errorf("lock product %s: %w", id, err)
	}
	return stock, active, nil
}

func (t *pgTxRepository) AdjustProductStock(ctx context.Context, id uuid.UUID, delta float64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("adjust stock for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductUnavailable
	}
	return nil
}

func (t *pgTxRepository) InsertSale(ctx context.Context, sale Sale) error {
	var (
		customerID     *uuid.UUID
		customerName   *string
		customerEmail  *string
		customerPhone  *string
		customerIDCard *string
	)
	if sale.Customer != nil {
		c := sale.Customer
		customerID = &c.ID
		customerName = &c.Name
		customerEmail = &c.Email
		customerPhone = &c.Phone
		customerIDCard = &c.IDCard
	}

	_, err := t.tx.Exec(ctx, `
		INSERT INTO sales (id, subtotal, tax, total, payment_method, amount_paid, change,
			cashier_id, cashier_name, customer_id, customer_name, customer_email,
			customer_phone, customer_id_card, business_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		sale.ID, sale.Subtotal, sale.Tax, sale.Total, string(sale.PaymentMethod),
		sale.AmountPaid, sale.Change, sale.CashierID, sale.CashierName,
		customerID, customerName, customerEmail, customerPhone, customerIDCard,
		sale.BusinessDate, sale.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	for _, item := range sale.Items {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, product_code, product_name,
				product_category, product_unit, quantity, weight, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			item.ID, sale.ID, item.ProductID, item.Product.Code, item.Product.Name,
			item.Product.Category, item.Product.Unit, item.Quantity, item.Weight,
			item.UnitPrice, item.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
	}
	return nil
}

// RefoldDailySales recomputes the rollup for one date from the sales table.
// Folding from scratch keeps the counters drift-free no matter how the row
// got there.
func (t *pgTxRepository) RefoldDailySales(ctx context.Context, date string) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO daily_sales (business_date, total_sales, total_amount,
			cash_sales, card_sales, credit_sales, updated_at)
		SELECT business_date,
		       COUNT(*),
		       COALESCE(SUM(total), 0),
		       COALESCE(SUM(total) FILTER (WHERE payment_method = 'cash'), 0),
		       COALESCE(SUM(total) FILTER (WHERE payment_method = 'card'), 0),
		       COALESCE(SUM(total) FILTER (WHERE payment_method = 'credit'), 0),
		       NOW()
		FROM sales
		WHERE business_date = $1
		GROUP BY business_date
		ON CONFLICT (business_date) DO UPDATE
		SET total_sales = EXCLUDED.total_sales,
		    total_amount = EXCLUDED.total_amount,
		    cash_sales = EXCLUDED.cash_sales,
		    card_sales = EXCLUDED.card_sales,
		    credit_sales = EXCLUDED.credit_sales,
		    updated_at = NOW()`,
		date,
	)
	if err != nil {
		return fmt.Errorf("refold daily sales for %s: %w", date, err)
	}
	return nil
}

const saleColumns = `id, subtotal, tax, total, payment_method, amount_paid, change,
	cashier_id, cashier_name, customer_id, customer_name, customer_email,
	customer_phone, customer_id_card, business_date, created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var (
		s              Sale
		method         string
		customerID     *uuid.UUID
		customerName   *string
		customerEmail  *string
		customerPhone  *string
		customerIDCard *string
	)
	err := row.Scan(
		&s.ID, &s.Subtotal, &s.Tax, &s.Total, &method, &s.AmountPaid, &s.Change,
		&s.CashierID, &s.CashierName, &customerID, &customerName, &customerEmail,
		&customerPhone, &customerIDCard, &s.BusinessDate, &s.Timestamp,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrNotFound
	}
	if err != nil {
		return Sale{}, fmt.Errorf("scan sale: %w", err)
	}
	s.PaymentMethod = PaymentMethod(method)
	if customerID != nil {
		s.Customer = &CustomerInfo{
			ID:     *customerID,
			Name:   deref(customerName),
			Email:  deref(customerEmail),
			Phone:  deref(customerPhone),
			IDCard: deref(customerIDCard),
		}
	}
	return s, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *pgRepository) GetSale(ctx context.Context, id uuid.UUID) (Sale, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	s, err := scanSale(row)
	if err != nil {
		return Sale{}, err
	}
	if err := r.attachItems(ctx, []*Sale{&s}); err != nil {
		return Sale{}, err
	}
	return s, nil
}

func (r *pgRepository) ListSales(ctx context.Context, limit, offset int) ([]Sale, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+saleColumns+` FROM sales ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return r.collectSales(ctx, rows)
}

func (r *pgRepository) ListSalesByDate(ctx context.Context, date string) ([]Sale, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE business_date = $1 ORDER BY created_at ASC`,
		date)
	if err != nil {
		return nil, fmt.Errorf("list sales by date: %w", err)
	}
	return r.collectSales(ctx, rows)
}

func (r *pgRepository) collectSales(ctx context.Context, rows pgx.Rows) ([]Sale, error) {
	defer rows.Close()

	var out []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*Sale, len(out))
	for i := range out {
		refs[i] = &out[i]
	}
	if err := r.attachItems(ctx, refs); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pgRepository) attachItems(ctx context.Context, sales []*Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(sales))
	byID := make(map[uuid.UUID]*Sale, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
		byID[s.ID] = s
	}

	rows, err := r.pool.Query(ctx, `
		SELECT sale_id, id, product_id, product_code, product_name, product_category,
		       product_unit, quantity, weight, unit_price, subtotal
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, id`,
		ids)
	if err != nil {
		return fmt.Errorf("load sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			saleID uuid.UUID
			item   SaleItem
		)
		err := rows.Scan(
			&saleID, &item.ID, &item.ProductID, &item.Product.Code, &item.Product.Name,
			&item.Product.Category, &item.Product.Unit, &item.Quantity, &item.Weight,
			&item.UnitPrice, &item.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("scan sale item: %w", err)
		}
		if s, ok := byID[saleID]; ok {
			s.Items = append(s.Items, item)
		}
	}
	return rows.Err()
}

func (r *pgRepository) GetDailySales(ctx context.Context, date string) (DailySales, error) {
	var agg DailySales
	err := r.pool.QueryRow(ctx, `
		SELECT business_date, total_sales, total_amount, cash_sales, card_sales, credit_sales
		FROM daily_sales WHERE business_date = $1`,
		date,
	).Scan(&agg.Date, &agg.TotalSales, &agg.TotalAmount, &agg.CashSales, &agg.CardSales, &agg.CreditSales)
	if errors.Is(err, pgx.ErrNoRows) {
		return DailySales{}, ErrNotFound
	}
	if err != nil {
		return DailySales{}, fmt.Errorf("load daily sales: %w", err)
	}

	agg.Sales, err = r.ListSalesByDate(ctx, date)
	if err != nil {
		return DailySales{}, err
	}
	return agg, nil
}

// ListDailySales returns counters for every recorded business date, newest
// first, without loading the per-date sale lists.
func (r *pgRepository) ListDailySales(ctx context.Context) ([]DailySales, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT business_date, total_sales, total_amount, cash_sales, card_sales, credit_sales
		FROM daily_sales ORDER BY business_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list daily sales: %w", err)
	}
	defer rows.Close()

	var out []DailySales
	for rows.Next() {
		var agg DailySales
		if err := rows.Scan(&agg.Date, &agg.TotalSales, &agg.TotalAmount, &agg.CashSales, &agg.CardSales, &agg.CreditSales); err != nil {
			return nil, fmt.Errorf("scan daily sales: %w", err)
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}
