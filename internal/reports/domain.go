package reports

import "github.com/google/uuid"

// RangeTotals are the headline numbers for a date range.
type RangeTotals struct {
	TotalSales  int     `json:"total_sales"`
	TotalAmount float64 `json:"total_amount"`
	CashSales   float64 `json:"cash_sales"`
	CardSales   float64 `json:"card_sales"`
	CreditSales float64 `json:"credit_sales"`
}

// ProductStat ranks one product's movement over a range. Units are pieces or
// kilograms depending on the product's unit type.
type ProductStat struct {
	ProductID uuid.UUID `json:"product_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	UnitsSold float64   `json:"units_sold"`
	Revenue   float64   `json:"revenue"`
}

// DayTotals is one day's line in a range breakdown.
type DayTotals struct {
	Date        string  `json:"date"`
	TotalSales  int     `json:"total_sales"`
	TotalAmount float64 `json:"total_amount"`
	CashSales   float64 `json:"cash_sales"`
	CardSales   float64 `json:"card_sales"`
	CreditSales float64 `json:"credit_sales"`
}

// Summary is the full report for a date range.
type Summary struct {
	From          string        `json:"from"`
	To            string        `json:"to"`
	Totals        RangeTotals   `json:"totals"`
	AverageTicket float64       `json:"average_ticket"`
	TopProducts   []ProductStat `json:"top_products"`
	Daily         []DayTotals   `json:"daily"`
}
