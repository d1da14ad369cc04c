package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRequest status lattice: draft -> submitted -> approved -> paid -> reconciled,
// with rejected as a terminal side branch from submitted.
const (
	PaymentDraft      = "draft"
	PaymentSubmitted  = "submitted"
	PaymentApproved   = "approved"
	PaymentPaid       = "paid"
	PaymentReconciled = "reconciled"
	PaymentRejected   = "rejected"
)

// PaymentRequest is a finance-module payment demand raised against a contract
// or supplier invoice.
type PaymentRequest struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Vendor      string          `gorm:"type:varchar(255)" json:"vendor"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"amount"`
	Currency    string          `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`
	Status      string          `gorm:"type:varchar(30);not null;index" json:"status"`
	RequestedBy *uuid.UUID      `gorm:"type:uuid;index" json:"requested_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *PaymentRequest) EntityID() uuid.UUID      { return p.ID }
func (p *PaymentRequest) EntityKind() Kind         { return KindPaymentRequest }
func (p *PaymentRequest) CurrentStatus() string    { return p.Status }
func (p *PaymentRequest) ApplyStatus(status string) { p.Status = status }
func (p *PaymentRequest) DisplayName() string      { return p.Title }
func (p *PaymentRequest) RefCode() string          { return p.Code }
