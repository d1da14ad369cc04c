package model

import (
	"time"

	"github.com/google/uuid"
)

// WorkPackage status lattice: planned -> in_progress -> completed.
const (
	WorkPackagePlanned    = "planned"
	WorkPackageInProgress = "in_progress"
	WorkPackageCompleted  = "completed"
)

// WorkPackage is a construction-module unit of site work with its own schedule.
type WorkPackage struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	ProjectCode string     `gorm:"type:varchar(50);index" json:"project_code"`
	Status      string     `gorm:"type:varchar(30);not null;index" json:"status"`
	ForemanID   *uuid.UUID `gorm:"type:uuid;index" json:"foreman_id"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (w *WorkPackage) EntityID() uuid.UUID       { return w.ID }
func (w *WorkPackage) EntityKind() Kind          { return KindWorkPackage }
func (w *WorkPackage) CurrentStatus() string     { return w.Status }
func (w *WorkPackage) ApplyStatus(status string) { w.Status = status }
func (w *WorkPackage) DisplayName() string       { return w.Title }
func (w *WorkPackage) RefCode() string           { return w.Code }
