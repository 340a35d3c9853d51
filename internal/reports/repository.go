package reports

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads report aggregates straight from the sales tables.
type Repository interface {
	RangeTotals(ctx context.Context, from, to string) (RangeTotals, error)
	TopProducts(ctx context.Context, from, to string, limit int) ([]ProductStat, error)
	DailyBreakdown(ctx context.Context, from, to string) ([]DayTotals, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) RangeTotals(ctx context.Context, from, to string) (RangeTotals, error) {
	var t RangeTotals
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total), 0),
		       COALESCE(SUM(total) FILTER (WHERE payment_method = 'cash'), 0),
		       COALESCE(SUM(total) FILTER (WHERE payment_method = 'card'), 0),
		       COALESCE(SUM(total) FILTER (WHERE payment_method = 'credit'), 0)
		FROM sales
		WHERE business_date BETWEEN $1 AND $2`,
		from, to,
	).Scan(&t.TotalSales, &t.TotalAmount, &t.CashSales, &t.CardSales, &t.CreditSales)
	if err != nil {
		return RangeTotals{}, fmt.Errorf("range totals: %w", err)
	}
	return t, nil
}

func (r *pgRepository) TopProducts(ctx context.Context, from, to string, limit int) ([]ProductStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.product_id, i.product_code, i.product_name,
		       SUM(CASE WHEN i.product_unit IN ('weight', 'bulk') AND i.weight IS NOT NULL
		                THEN i.weight ELSE i.quantity END),
		       SUM(i.subtotal)
		FROM sale_items i
		JOIN sales s ON s.id = i.sale_id
		WHERE s.business_date BETWEEN $1 AND $2
		GROUP BY i.product_id, i.product_code, i.product_name
		ORDER BY SUM(i.subtotal) DESC
		LIMIT $3`,
		from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	var out []ProductStat
	for rows.Next() {
		var p ProductStat
		if err := rows.Scan(&p.ProductID, &p.Code, &p.Name, &p.UnitsSold, &p.Revenue); err != nil {
			return nil, fmt.Errorf("scan product stat: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgRepository) DailyBreakdown(ctx context.Context, from, to string) ([]DayTotals, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT business_date, total_sales, total_amount, cash_sales, card_sales, credit_sales
		FROM daily_sales
		WHERE business_date BETWEEN $1 AND $2
		ORDER BY business_date ASC`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("daily breakdown: %w", err)
	}
	defer rows.Close()

	var out []DayTotals
	for rows.Next() {
		var d DayTotals
		if err := rows.Scan(&d.Date, &d.TotalSales, &d.TotalAmount, &d.CashSales, &d.CardSales, &d.CreditSales); err != nil {
			return nil, fmt.Errorf("scan day totals: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
