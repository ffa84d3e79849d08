package models

import "github.com/google/uuid"

// Review is an immutable decision recorded against the latest version of a paperwork.
type Review struct {
	Base
	PaperworkID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_paperwork_sequence" json:"paperwork_id"`
	Sequence      int       `gorm:"not null;uniqueIndex:idx_review_paperwork_sequence" json:"sequence"`
	VersionID     uuid.UUID `gorm:"type:uuid;not null;index" json:"version_id"`
	VersionNumber int       `gorm:"not null" json:"version_no"`
	Decision      Decision  `gorm:"type:varchar(32);not null" json:"decision"`
	Feedback      string    `gorm:"type:text" json:"feedback,omitempty"`
	ReviewerID    uuid.UUID `gorm:"type:uuid;not null" json:"reviewer_id"`
}

func (Review) TableName() string {
	return "reviews"
}
