package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("customers: not found")
	ErrDuplicate = errors.New("customers: email or id card already registered")
)

// Repository persists customers. Deletion is physical; completed sales keep
// their own snapshot of the customer.
type Repository interface {
	List(ctx context.Context, search string, limit, offset int) ([]Customer, error)
	Get(ctx context.Context, id uuid.UUID) (Customer, error)
	GetByEmail(ctx context.Context, email string) (Customer, error)
	Create(ctx context.Context, c Customer) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (Customer, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecordPurchase(ctx context.Context, id uuid.UUID, amount float64, onCredit bool, at time.Time) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const customerColumns = `id, name, email, phone, address, id_card, password_hash,
	credit_limit, balance, total_spent, purchase_count, last_purchase, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.IDCard, &c.PasswordHash,
		&c.CreditLimit, &c.Balance, &c.TotalSpent, &c.PurchaseCount, &c.LastPurchase,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, fmt.Errorf("scan customer: %w", err)
	}
	return c, nil
}

func (r *pgRepository) List(ctx context.Context, search string, limit, offset int) ([]Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	args := []any{}
	argCount := 0

	if search != "" {
		argCount++
		query += fmt.Sprintf(` WHERE name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d OR id_card ILIKE $%d`,
			argCount, argCount, argCount, argCount)
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name ASC`
	if limit > 0 {
		argCount++
		query += fmt.Sprintf(` LIMIT $%d`, argCount)
		args = append(args, limit)
	}
	if offset > 0 {
		argCount++
		query += fmt.Sprintf(` OFFSET $%d`, argCount)
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

func (r *pgRepository) GetByEmail(ctx context.Context, email string) (Customer, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE LOWER(email) = LOWER($1)`, email)
	return scanCustomer(row)
}

func (r *pgRepository) Create(ctx context.Context, c Customer) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO customers (id, name, email, phone, address, id_card, password_hash,
			credit_limit, balance, total_spent, purchase_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, 0, NOW(), NOW())`,
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.IDCard, c.PasswordHash, c.CreditLimit,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (r *pgRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (Customer, error) {
	if len(updates) == 0 {
		return r.Get(ctx, id)
	}

	setClauses := make([]string, 0, len(updates)+1)
	args := make([]any, 0, len(updates)+1)
	argCount := 0
	for col, val := range updates {
		argCount++
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, argCount))
		args = append(args, val)
	}
	setClauses = append(setClauses, "updated_at = NOW()")
	argCount++
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE customers SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argCount, customerColumns)

	c, err := scanCustomer(r.pool.QueryRow(ctx, query, args...))
	if isUniqueViolation(err) {
		return Customer{}, ErrDuplicate
	}
	return c, err
}

func (r *pgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepository) RecordPurchase(ctx context.Context, id uuid.UUID, amount float64, onCredit bool, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers
		SET total_spent = total_spent + $2,
		    purchase_count = purchase_count + 1,
		    balance = balance + CASE WHEN $3 THEN $2 ELSE 0 END,
		    last_purchase = $4,
		    updated_at = NOW()
		WHERE id = $1`,
		id, amount, onCredit, at,
	)
	if err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
