package models

import (
	"time"

	"github.com/google/uuid"
)

// Paperwork is a research-paper assignment. Status is never stored; see DeriveStatus.
type Paperwork struct {
	Base
	Title        string     `gorm:"not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description,omitempty"`
	ResearcherID uuid.UUID  `gorm:"type:uuid;not null;index" json:"researcher_id"`
	AssignedBy   uuid.UUID  `gorm:"type:uuid;not null" json:"assigned_by"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

func (Paperwork) TableName() string {
	return "paperworks"
}

// Overdue reports whether the advisory deadline has passed without approval.
func (p *Paperwork) Overdue(status Status, now time.Time) bool {
	if p.Deadline == nil || status == StatusApproved {
		return false
	}
	return now.After(*p.Deadline)
}
