package settings

// BusinessSettings describes the business identity printed on receipts and
// reports.
type BusinessSettings struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	TaxID   string `json:"tax_id"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
	Logo    string `json:"logo,omitempty"`
}

// SystemSettings holds behaviour toggles and the tax rate applied to every
// sale.
type SystemSettings struct {
	Currency          string  `json:"currency"`
	TaxRate           float64 `json:"tax_rate"`
	ReceiptFooter     string  `json:"receipt_footer"`
	AutoBackup        bool    `json:"auto_backup"`
	SoundEnabled      bool    `json:"sound_enabled"`
	KeyboardShortcuts bool    `json:"keyboard_shortcuts"`
	BarcodeEnabled    bool    `json:"barcode_enabled"`
	LowStockThreshold float64 `json:"low_stock_threshold"`
}

// POSSettings bundles both settings groups.
type POSSettings struct {
	Business BusinessSettings `json:"business"`
	System   SystemSettings   `json:"system"`
}

// DefaultTaxRate is the ITBIS rate applied when no settings row exists yet.
const DefaultTaxRate = 0.18

// Defaults returns the out-of-the-box configuration.
func Defaults() POSSettings {
	return POSSettings{
		Business: BusinessSettings{
			Name:    "Mi Negocio POS",
			Address: "Calle Principal #123, Santo Domingo, República Dominicana",
			Phone:   "(809) 123-4567",
			TaxID:   "RNC123456789",
			Email:   "contacto@minegocio.com",
			Website: "www.minegocio.com",
		},
		System: SystemSettings{
			Currency:          "DOP",
			TaxRate:           DefaultTaxRate,
			ReceiptFooter:     "¡Gracias por su compra!\nConserve su ticket",
			AutoBackup:        true,
			SoundEnabled:      true,
			KeyboardShortcuts: true,
			BarcodeEnabled:    true,
			LowStockThreshold: 10,
		},
	}
}

type UpdateBusinessRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=300"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	TaxID   *string `json:"tax_id,omitempty" validate:"omitempty,max=50"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Website *string `json:"website,omitempty" validate:"omitempty,max=200"`
	Logo    *string `json:"logo,omitempty"`
}

type UpdateSystemRequest struct {
	Currency          *string  `json:"currency,omitempty" validate:"omitempty,len=3"`
	TaxRate           *float64 `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=1"`
	ReceiptFooter     *string  `json:"receipt_footer,omitempty" validate:"omitempty,max=500"`
	AutoBackup        *bool    `json:"auto_backup,omitempty"`
	SoundEnabled      *bool    `json:"sound_enabled,omitempty"`
	KeyboardShortcuts *bool    `json:"keyboard_shortcuts,omitempty"`
	BarcodeEnabled    *bool    `json:"barcode_enabled,omitempty"`
	LowStockThreshold *float64 `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
}
