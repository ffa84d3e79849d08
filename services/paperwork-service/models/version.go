package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Version is one immutable, numbered submission of a paperwork.
type Version struct {
	Base
	PaperworkID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_version_paperwork_number" json:"paperwork_id"`
	Number      int        `gorm:"not null;uniqueIndex:idx_version_paperwork_number" json:"version_no"`
	SubmittedBy uuid.UUID  `gorm:"type:uuid;not null" json:"submitted_by"`
	SubmittedAt time.Time  `gorm:"not null" json:"submitted_at"`
	Comments    string     `gorm:"type:text" json:"comments,omitempty"`
	Artifacts   []Artifact `gorm:"foreignKey:VersionID" json:"artifacts"`
}

func (Version) TableName() string {
	return "versions"
}

// Artifact returns the artifact filling role, if any.
func (v *Version) Artifact(role ArtifactRole) (*Artifact, bool) {
	for i := range v.Artifacts {
		if v.Artifacts[i].Role == role {
			return &v.Artifacts[i], true
		}
	}
	return nil, false
}

// Artifact is one write-once uploaded file belonging to a version.
type Artifact struct {
	Base
	VersionID        uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_artifact_version_role" json:"version_id"`
	Role             ArtifactRole      `gorm:"type:varchar(32);not null;uniqueIndex:idx_artifact_version_role" json:"role"`
	MediaKind        MediaKind         `gorm:"type:varchar(8);not null" json:"media_kind"`
	StorageKey       string            `gorm:"not null;uniqueIndex" json:"-"`
	SizeBytes        int64             `gorm:"not null" json:"size_bytes"`
	OriginalFilename string            `json:"original_filename,omitempty"`
	Checksum         string            `gorm:"type:varchar(64)" json:"checksum"`
	Metadata         datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (Artifact) TableName() string {
	return "artifacts"
}
