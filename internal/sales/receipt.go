package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/colmado-pos/colmado-pos/internal/settings"
	"github.com/colmado-pos/colmado-pos/internal/shared"
)

// SettingsPort supplies the business identity and receipt options.
type SettingsPort interface {
	Get(ctx context.Context) (settings.POSSettings, error)
}

// ReceiptLine is one printable line of a receipt with amounts already
// formatted in the configured currency.
type ReceiptLine struct {
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

// Receipt is the print-ready payload for one sale. Rendering to paper or
// HTML is the client's job.
type Receipt struct {
	BusinessName    string        `json:"business_name"`
	BusinessAddress string        `json:"business_address"`
	BusinessPhone   string        `json:"business_phone"`
	TaxID           string        `json:"tax_id"`
	SaleID          string        `json:"sale_id"`
	CashierName     string        `json:"cashier_name"`
	CustomerName    string        `json:"customer_name,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
	Lines           []ReceiptLine `json:"lines"`
	Subtotal        string        `json:"subtotal"`
	Tax             string        `json:"tax"`
	Total           string        `json:"total"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	AmountPaid      string        `json:"amount_paid"`
	Change          string        `json:"change"`
	Footer          string        `json:"footer"`
}

// BuildReceipt assembles the receipt payload for a completed sale.
func BuildReceipt(sale Sale, cfg settings.POSSettings) Receipt {
	code := cfg.System.Currency

	lines := make([]ReceiptLine, 0, len(sale.Items))
	for _, item := range sale.Items {
		qty := fmt.Sprintf("%d", item.Quantity)
		if item.Weight != nil {
			qty = fmt.Sprintf("%.3f", *item.Weight)
		}
		lines = append(lines, ReceiptLine{
			Name:      item.Product.Name,
			Quantity:  qty,
			UnitPrice: shared.FormatCurrency(item.UnitPrice, code),
			Subtotal:  shared.FormatCurrency(item.Subtotal, code),
		})
	}

	receipt := Receipt{
		BusinessName:    cfg.Business.Name,
		BusinessAddress: cfg.Business.Address,
		BusinessPhone:   cfg.Business.Phone,
		TaxID:           cfg.Business.TaxID,
		SaleID:          sale.ID.String(),
		CashierName:     sale.CashierName,
		Timestamp:       sale.Timestamp,
		Lines:           lines,
		Subtotal:        shared.FormatCurrency(sale.Subtotal, code),
		Tax:             shared.FormatCurrency(sale.Tax, code),
		Total:           shared.FormatCurrency(sale.Total, code),
		PaymentMethod:   sale.PaymentMethod,
		AmountPaid:      shared.FormatCurrency(sale.AmountPaid, code),
		Change:          shared.FormatCurrency(sale.Change, code),
		Footer:          cfg.System.ReceiptFooter,
	}
	if sale.Customer != nil {
		receipt.CustomerName = sale.Customer.Name
	}
	return receipt
}
