package models

import (
	"path/filepath"
	"strings"

	"github.com/RigelNana/arkpaper/services/paperwork-service/apperr"
)

// ArtifactRole is the slot an artifact fills inside a version.
type ArtifactRole string

const (
	RolePrimaryDocument   ArtifactRole = "primary_document"
	RoleSource            ArtifactRole = "source"
	RoleCodeBundle        ArtifactRole = "code_bundle"
	RoleAuxiliaryDocument ArtifactRole = "auxiliary_document"
)

// ArtifactRoles lists every role in display order.
var ArtifactRoles = []ArtifactRole{RolePrimaryDocument, RoleSource, RoleCodeBundle, RoleAuxiliaryDocument}

// MediaKind is the declared file format of an artifact.
type MediaKind string

const (
	MediaPDF  MediaKind = "pdf"
	MediaDOCX MediaKind = "docx"
	MediaTeX  MediaKind = "tex"
	MediaZIP  MediaKind = "zip"
)

// Decision is the outcome of a review.
type Decision string

const (
	DecisionApproved         Decision = "APPROVED"
	DecisionChangesRequested Decision = "CHANGES_REQUESTED"
)

// UserRole is the privilege level of an authenticated principal.
type UserRole string

const (
	UserRoleResearcher UserRole = "researcher"
	UserRoleReviewer   UserRole = "reviewer"
	UserRoleAdmin      UserRole = "admin"
)

// Status is the derived lifecycle state of a paperwork.
type Status string

const (
	StatusAssigned         Status = "ASSIGNED"
	StatusSubmitted        Status = "SUBMITTED"
	StatusApproved         Status = "APPROVED"
	StatusChangesRequested Status = "CHANGES_REQUESTED"
)

var allowedKinds = map[ArtifactRole][]MediaKind{
	RolePrimaryDocument:   {MediaPDF, MediaDOCX},
	RoleSource:            {MediaTeX, MediaZIP},
	RoleCodeBundle:        {MediaZIP},
	RoleAuxiliaryDocument: {MediaPDF, MediaDOCX, MediaTeX},
}

func canonical(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

// ParseRole normalizes raw into a known artifact role.
func ParseRole(raw string) (ArtifactRole, error) {
	role := ArtifactRole(strings.ToLower(canonical(raw)))
	if _, ok := allowedKinds[role]; !ok {
		return "", apperr.New(apperr.KindInvalidInput, "unknown artifact role %q", raw)
	}
	return role, nil
}

// Accepts reports whether the role may hold an artifact of the given kind.
func (r ArtifactRole) Accepts(kind MediaKind) bool {
	for _, k := range allowedKinds[r] {
		if k == kind {
			return true
		}
	}
	return false
}

// ParseMediaKind normalizes raw (a kind name or a file extension) into a media kind.
func ParseMediaKind(raw string) (MediaKind, error) {
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), ".")
	switch s {
	case "pdf":
		return MediaPDF, nil
	case "docx":
		return MediaDOCX, nil
	case "tex", "latex":
		return MediaTeX, nil
	case "zip":
		return MediaZIP, nil
	}
	return "", apperr.New(apperr.KindInvalidInput, "unsupported media kind %q", raw)
}

// MediaKindFromFilename infers the media kind from a file name extension.
func MediaKindFromFilename(name string) (MediaKind, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		return "", apperr.New(apperr.KindInvalidInput, "cannot infer media kind of %q", name)
	}
	return ParseMediaKind(ext)
}

// Extension is the canonical file extension for downloads.
func (k MediaKind) Extension() string {
	return "." + string(k)
}

// ContentType is the MIME type served for whole-file downloads.
func (k MediaKind) ContentType() string {
	switch k {
	case MediaPDF:
		return "application/pdf"
	case MediaDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case MediaTeX:
		return "application/x-tex"
	case MediaZIP:
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

// IsArchive reports whether the kind supports entry listing and extraction.
func (k MediaKind) IsArchive() bool {
	return k == MediaZIP
}

// ParseDecision normalizes raw into a review decision.
func ParseDecision(raw string) (Decision, error) {
	switch Decision(strings.ToUpper(canonical(raw))) {
	case DecisionApproved:
		return DecisionApproved, nil
	case DecisionChangesRequested:
		return DecisionChangesRequested, nil
	}
	return "", apperr.New(apperr.KindInvalidInput, "unknown review decision %q", raw)
}

// Status maps a decision onto the paperwork status it produces.
func (d Decision) Status() Status {
	if d == DecisionApproved {
		return StatusApproved
	}
	return StatusChangesRequested
}

// ParseUserRole normalizes raw into a principal role.
func ParseUserRole(raw string) (UserRole, error) {
	switch UserRole(strings.ToLower(canonical(raw))) {
	case UserRoleResearcher, "user":
		return UserRoleResearcher, nil
	case UserRoleReviewer:
		return UserRoleReviewer, nil
	case UserRoleAdmin:
		return UserRoleAdmin, nil
	}
	return "", apperr.New(apperr.KindInvalidInput, "unknown user role %q", raw)
}
