package model

import (
	"time"

	"github.com/google/uuid"
)

// Employee status lattice: onboarding -> active -> offboarded. Status changes
// are manual nudges only; employees never go through the approval ledger.
const (
	EmployeeOnboarding = "onboarding"
	EmployeeActive     = "active"
	EmployeeOffboarded = "offboarded"
)

// Employee is an HR-module personnel record.
type Employee struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StaffNo   string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"staff_no"`
	FullName  string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Position  string    `gorm:"type:varchar(100)" json:"position"`
	Status    string    `gorm:"type:varchar(30);not null;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Employee) EntityID() uuid.UUID       { return e.ID }
func (e *Employee) EntityKind() Kind          { return KindEmployee }
func (e *Employee) CurrentStatus() string     { return e.Status }
func (e *Employee) ApplyStatus(status string) { e.Status = status }
func (e *Employee) DisplayName() string       { return e.FullName }
func (e *Employee) RefCode() string           { return e.StaffNo }
