package customers

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a registered credit customer. PasswordHash protects credit
// purchases and never leaves the server.
type Customer struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Address       string     `json:"address,omitempty"`
	IDCard        string     `json:"id_card"`
	PasswordHash  string     `json:"-"`
	CreditLimit   float64    `json:"credit_limit"`
	Balance       float64    `json:"balance"`
	TotalSpent    float64    `json:"total_spent"`
	PurchaseCount int        `json:"purchase_count"`
	LastPurchase  *time.Time `json:"last_purchase,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type CreateCustomerRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       string  `json:"phone" validate:"required,max=50"`
	Address     string  `json:"address" validate:"max=300"`
	IDCard      string  `json:"id_card" validate:"required,max=50"`
	Password    string  `json:"password" validate:"required,min=4,max=72"`
	CreditLimit float64 `json:"credit_limit" validate:"gte=0"`
}

type UpdateCustomerRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Email       *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string  `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address     *string  `json:"address,omitempty" validate:"omitempty,max=300"`
	IDCard      *string  `json:"id_card,omitempty" validate:"omitempty,max=50"`
	Password    *string  `json:"password,omitempty" validate:"omitempty,min=4,max=72"`
	CreditLimit *float64 `json:"credit_limit,omitempty" validate:"omitempty,gte=0"`
}

type VerifyPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}
