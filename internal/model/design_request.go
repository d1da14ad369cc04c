package model

import (
	"time"

	"github.com/google/uuid"
)

// DesignRequest status lattice is linear in both directions:
// new -> in_progress -> review -> approved. Submitting for approval jumps the
// request to review regardless of where it sits on the chain.
const (
	DesignNew        = "new"
	DesignInProgress = "in_progress"
	DesignReview     = "review"
	DesignApproved   = "approved"
)

// DesignRequest is an engineering-module request for design work or a design change.
type DesignRequest struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Discipline  string     `gorm:"type:varchar(100)" json:"discipline"` // structural, MEP, architectural...
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"type:varchar(30);not null;index" json:"status"`
	RequestedBy *uuid.UUID `gorm:"type:uuid;index" json:"requested_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (d *DesignRequest) EntityID() uuid.UUID       { return d.ID }
func (d *DesignRequest) EntityKind() Kind          { return KindDesignRequest }
func (d *DesignRequest) CurrentStatus() string     { return d.Status }
func (d *DesignRequest) ApplyStatus(status string) { d.Status = status }
func (d *DesignRequest) DisplayName() string       { return d.Title }
func (d *DesignRequest) RefCode() string           { return d.Code }
