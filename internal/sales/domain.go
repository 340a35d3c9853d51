package sales

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is how a sale is settled.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentCredit PaymentMethod = "credit"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentCredit:
		return true
	}
	return false
}

// ProductSnapshot freezes the product details a line item was sold under.
// Later catalog edits never rewrite history.
type ProductSnapshot struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

// SaleItem is one priced line of a cart. Subtotal is always
// UnitPrice * EffectiveQuantity.
type SaleItem struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Product   ProductSnapshot `json:"product"`
	Quantity  int             `json:"quantity"`
	Weight    *float64        `json:"weight,omitempty"`
	UnitPrice float64         `json:"unit_price"`
	Subtotal  float64         `json:"subtotal"`
}

// EffectiveQuantity is the quantity actually priced: the weight override for
// weight and bulk units, the integer count otherwise.
func (i SaleItem) EffectiveQuantity() float64 {
	if i.Weight != nil && (i.Product.Unit == "weight" || i.Product.Unit == "bulk") {
		return *i.Weight
	}
	return float64(i.Quantity)
}

// CustomerInfo is the customer snapshot embedded in credit sales. It survives
// deletion of the customer record.
type CustomerInfo struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Phone  string    `json:"phone"`
	IDCard string    `json:"id_card"`
}

// Sale is an immutable, completed transaction.
type Sale struct {
	ID            uuid.UUID     `json:"id"`
	Items         []SaleItem    `json:"items"`
	Subtotal      float64       `json:"subtotal"`
	Tax           float64       `json:"tax"`
	Total         float64       `json:"total"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	AmountPaid    float64       `json:"amount_paid"`
	Change        float64       `json:"change"`
	CashierID     string        `json:"cashier_id"`
	CashierName   string        `json:"cashier_name"`
	Customer      *CustomerInfo `json:"customer,omitempty"`
	BusinessDate  string        `json:"business_date"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Totals is the result of pricing a cart.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// DailySales is the derived rollup for one business date. Counters are always
// recomputable by folding over the date's sales.
type DailySales struct {
	Date        string  `json:"date"`
	TotalSales  int     `json:"total_sales"`
	TotalAmount float64 `json:"total_amount"`
	CashSales   float64 `json:"cash_sales"`
	CardSales   float64 `json:"card_sales"`
	CreditSales float64 `json:"credit_sales"`
	Sales       []Sale  `json:"sales"`
}

var (
	ErrNotFound            = errors.New("sales: not found")
	ErrEmptyCart           = errors.New("sales: cart is empty")
	ErrInsufficientPayment = errors.New("sales: amount paid is below the total")
	ErrMissingCustomer     = errors.New("sales: credit sale requires a customer")
	ErrProductUnavailable  = errors.New("sales: product not found or inactive")
)

// InsufficientStockError reports how much stock is actually available so the
// operator can reduce the quantity.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested float64
	Available float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("sales: insufficient stock for product %s: requested %.3f, available %.3f",
		e.ProductID, e.Requested, e.Available)
}

// BusinessCalendar maps instants onto business dates. The tills settle on the
// store's local calendar, not UTC.
type BusinessCalendar struct {
	loc *time.Location
}

func NewBusinessCalendar(loc *time.Location) *BusinessCalendar {
	if loc == nil {
		loc = time.UTC
	}
	return &BusinessCalendar{loc: loc}
}

// DateOf returns the business date key for an instant, formatted 2006-01-02.
func (c *BusinessCalendar) DateOf(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}
