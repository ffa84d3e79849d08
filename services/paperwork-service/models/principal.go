package models

import "github.com/google/uuid"

// Principal is the authenticated caller supplied by the identity collaborator.
type Principal struct {
	UserID uuid.UUID `json:"user_id"`
	Role   UserRole  `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleAdmin
}

// CanReview reports reviewer privilege; admins hold it implicitly.
func (p Principal) CanReview() bool {
	return p.Role == UserRoleReviewer || p.Role == UserRoleAdmin
}

// CanAccess reports whether p may read the paperwork's ledgers and artifacts.
func (p Principal) CanAccess(pw *Paperwork) bool {
	if p.CanReview() {
		return true
	}
	return pw != nil && pw.ResearcherID == p.UserID
}
