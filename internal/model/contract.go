package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Contract status lattice: draft -> review -> signed -> active -> closed,
// with void as a terminal side branch from review.
const (
	ContractDraft  = "draft"
	ContractReview = "review"
	ContractSigned = "signed"
	ContractActive = "active"
	ContractClosed = "closed"
	ContractVoid   = "void"
)

// Contract is a legal-module agreement with a client or subcontractor.
type Contract struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code         string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Counterparty string          `gorm:"type:varchar(255);not null" json:"counterparty"`
	Title        string          `gorm:"type:varchar(255);not null" json:"title"`
	Value        decimal.Decimal `gorm:"type:numeric(18,4)" json:"value"`
	Status       string          `gorm:"type:varchar(30);not null;index" json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (c *Contract) EntityID() uuid.UUID       { return c.ID }
func (c *Contract) EntityKind() Kind          { return KindContract }
func (c *Contract) CurrentStatus() string     { return c.Status }
func (c *Contract) ApplyStatus(status string) { c.Status = status }
func (c *Contract) DisplayName() string       { return c.Title }
func (c *Contract) RefCode() string           { return c.Code }
