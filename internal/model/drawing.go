package model

import (
	"time"

	"github.com/google/uuid"
)

// Drawing status lattice: draft -> review -> approved -> released. Linear;
// a rejection reverts one step.
const (
	DrawingDraft    = "draft"
	DrawingReview   = "review"
	DrawingApproved = "approved"
	DrawingReleased = "released"
)

// Drawing is an engineering drawing revision moving through review and release.
type Drawing struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Number    string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"number"`
	Title     string     `gorm:"type:varchar(255);not null" json:"title"`
	Revision  string     `gorm:"type:varchar(10);not null;default:'A'" json:"revision"`
	Status    string     `gorm:"type:varchar(30);not null;index" json:"status"`
	AuthorID  *uuid.UUID `gorm:"type:uuid;index" json:"author_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (d *Drawing) EntityID() uuid.UUID       { return d.ID }
func (d *Drawing) EntityKind() Kind          { return KindDrawing }
func (d *Drawing) CurrentStatus() string     { return d.Status }
func (d *Drawing) ApplyStatus(status string) { d.Status = status }
func (d *Drawing) DisplayName() string       { return d.Number + " " + d.Title }
func (d *Drawing) RefCode() string           { return d.Number }
