package model

import (
	"time"

	"github.com/google/uuid"
)

// Allocation status lattice mirrors the item tri-state:
// proposed -> approved -> locked. Locked allocations refuse every further
// mutation; there is no unlock path.
const (
	AllocationProposed = "proposed"
	AllocationApproved = "approved"
	AllocationLocked   = "locked"
)

// Allocation assigns people or plant to a work package for a period.
type Allocation struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title       string           `gorm:"type:varchar(255);not null" json:"title"`
	ProjectCode string           `gorm:"type:varchar(50);index" json:"project_code"`
	Status      string           `gorm:"type:varchar(30);not null;index" json:"status"`
	Items       []AllocationItem `gorm:"foreignKey:AllocationID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// AllocationItem assigns a single resource at a percentage of its capacity.
// Percent is validated to 0..100 before any write.
type AllocationItem struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AllocationID uuid.UUID `gorm:"type:uuid;not null;index" json:"allocation_id"`
	ResourceName string    `gorm:"type:varchar(255);not null" json:"resource_name"`
	Percent      int       `gorm:"not null" json:"percent"`
	State        string    `gorm:"type:varchar(30);not null;default:'proposed'" json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a *Allocation) EntityID() uuid.UUID       { return a.ID }
func (a *Allocation) EntityKind() Kind          { return KindAllocation }
func (a *Allocation) CurrentStatus() string     { return a.Status }
func (a *Allocation) ApplyStatus(status string) { a.Status = status }
func (a *Allocation) DisplayName() string       { return a.Title }
func (a *Allocation) RefCode() string           { return a.ProjectCode }
