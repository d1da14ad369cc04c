package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tender status lattice branches at negotiating into the terminal pair won/lost:
// lead -> preparation -> submitted -> negotiating -> { won | lost }.
const (
	TenderLead        = "lead"
	TenderPreparation = "preparation"
	TenderSubmitted   = "submitted"
	TenderNegotiating = "negotiating"
	TenderWon         = "won"
	TenderLost        = "lost"
)

// Tender is a legal/bidding-module pursuit of a construction contract.
type Tender struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code      string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Client    string          `gorm:"type:varchar(255);not null" json:"client"`
	Title     string          `gorm:"type:varchar(255);not null" json:"title"`
	BidValue  decimal.Decimal `gorm:"type:numeric(18,4)" json:"bid_value"`
	Status    string          `gorm:"type:varchar(30);not null;index" json:"status"`
	OwnerID   *uuid.UUID      `gorm:"type:uuid;index" json:"owner_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (t *Tender) EntityID() uuid.UUID       { return t.ID }
func (t *Tender) EntityKind() Kind          { return KindTender }
func (t *Tender) CurrentStatus() string     { return t.Status }
func (t *Tender) ApplyStatus(status string) { t.Status = status }
func (t *Tender) DisplayName() string       { return t.Title }
func (t *Tender) RefCode() string           { return t.Code }
