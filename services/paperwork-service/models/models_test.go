package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RigelNana/arkpaper/services/paperwork-service/apperr"
)

func TestParseRoleNormalizes(t *testing.T) {
	tests := []struct {
		input    string
		expected ArtifactRole
	}{
		{"primary_document", RolePrimaryDocument},
		{"Primary-Document", RolePrimaryDocument},
		{" source ", RoleSource},
		{"CODE_BUNDLE", RoleCodeBundle},
		{"auxiliary document", RoleAuxiliaryDocument},
	}
	for _, tc := range tests {
		role, err := ParseRole(tc.input)
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.expected, role)
	}

	_, err := ParseRole("python_path")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestParseMediaKind(t *testing.T) {
	for input, expected := range map[string]MediaKind{
		"pdf": MediaPDF, ".PDF": MediaPDF, "latex": MediaTeX, ".tex": MediaTeX,
		"docx": MediaDOCX, "ZIP": MediaZIP,
	} {
		kind, err := ParseMediaKind(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, kind)
	}

	kind, err := MediaKindFromFilename("thesis_final.Docx")
	require.NoError(t, err)
	assert.Equal(t, MediaDOCX, kind)

	_, err = MediaKindFromFilename("README")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = ParseMediaKind("exe")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestRoleAcceptsKinds(t *testing.T) {
	assert.True(t, RolePrimaryDocument.Accepts(MediaPDF))
	assert.True(t, RolePrimaryDocument.Accepts(MediaDOCX))
	assert.False(t, RolePrimaryDocument.Accepts(MediaZIP))
	assert.True(t, RoleCodeBundle.Accepts(MediaZIP))
	assert.False(t, RoleCodeBundle.Accepts(MediaTeX))
	assert.True(t, RoleSource.Accepts(MediaTeX))
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision("approved")
	require.NoError(t, err)
	assert.Equal(t, DecisionApproved, d)

	d, err = ParseDecision("changes-requested")
	require.NoError(t, err)
	assert.Equal(t, DecisionChangesRequested, d)

	_, err = ParseDecision("rejected")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestParseUserRole(t *testing.T) {
	r, err := ParseUserRole("Admin")
	require.NoError(t, err)
	assert.Equal(t, UserRoleAdmin, r)

	r, err = ParseUserRole("user")
	require.NoError(t, err)
	assert.Equal(t, UserRoleResearcher, r)

	_, err = ParseUserRole("root")
	assert.Error(t, err)
}

func TestPrincipalAccess(t *testing.T) {
	owner := uuid.New()
	pw := &Paperwork{ResearcherID: owner}

	assert.True(t, Principal{UserID: owner, Role: UserRoleResearcher}.CanAccess(pw))
	assert.False(t, Principal{UserID: uuid.New(), Role: UserRoleResearcher}.CanAccess(pw))
	assert.True(t, Principal{UserID: uuid.New(), Role: UserRoleReviewer}.CanAccess(pw))
	assert.True(t, Principal{UserID: uuid.New(), Role: UserRoleAdmin}.CanAccess(nil))
	assert.False(t, Principal{Role: UserRoleReviewer}.IsAdmin())
}

func TestDeriveStatus(t *testing.T) {
	v1 := &Version{Number: 1}
	v2 := &Version{Number: 2}

	assert.Equal(t, StatusAssigned, DeriveStatus(nil, nil))
	assert.Equal(t, StatusSubmitted, DeriveStatus(v1, nil))
	assert.Equal(t, StatusChangesRequested, DeriveStatus(v1, &Review{VersionNumber: 1, Decision: DecisionChangesRequested}))
	assert.Equal(t, StatusApproved, DeriveStatus(v1, &Review{VersionNumber: 1, Decision: DecisionApproved}))
	// a newer version supersedes an approval
	assert.Equal(t, StatusSubmitted, DeriveStatus(v2, &Review{VersionNumber: 1, Decision: DecisionApproved}))
}

func TestReplayMatchesDerivation(t *testing.T) {
	versions := []*Version{{Number: 1}, {Number: 2}, {Number: 3}}
	reviews := []*Review{
		{Sequence: 1, VersionNumber: 1, Decision: DecisionChangesRequested},
		{Sequence: 2, VersionNumber: 2, Decision: DecisionChangesRequested},
		{Sequence: 3, VersionNumber: 3, Decision: DecisionApproved},
	}

	for nv := 0; nv <= len(versions); nv++ {
		for nr := 0; nr <= len(reviews); nr++ {
			vs := versions[:nv]
			var rs []*Review
			for _, r := range reviews[:nr] {
				if r.VersionNumber <= nv {
					rs = append(rs, r)
				}
			}
			derived := DeriveStatus(LatestVersion(vs), LatestReview(rs))
			replayed := ReplayStatus(History(vs, rs))
			assert.Equal(t, derived, replayed, "versions=%d reviews=%d", nv, len(rs))
		}
	}
}

func TestHistoryOrdersReviewsBetweenVersions(t *testing.T) {
	versions := []*Version{{Number: 2}, {Number: 1}}
	reviews := []*Review{{Sequence: 1, VersionNumber: 1, Decision: DecisionChangesRequested}}

	events := History(versions, reviews)
	require.Len(t, events, 3)
	assert.Equal(t, 1, events[0].Version.Number)
	assert.NotNil(t, events[1].Review)
	assert.Equal(t, 2, events[2].Version.Number)
}

func TestOverdue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&Paperwork{}).Overdue(StatusSubmitted, now))
	assert.True(t, (&Paperwork{Deadline: &past}).Overdue(StatusSubmitted, now))
	assert.False(t, (&Paperwork{Deadline: &past}).Overdue(StatusApproved, now))
	assert.False(t, (&Paperwork{Deadline: &future}).Overdue(StatusAssigned, now))
}

func TestVersionArtifactLookup(t *testing.T) {
	v := &Version{Artifacts: []Artifact{{Role: RolePrimaryDocument}, {Role: RoleCodeBundle}}}

	a, ok := v.Artifact(RoleCodeBundle)
	require.True(t, ok)
	assert.Equal(t, RoleCodeBundle, a.Role)

	_, ok = v.Artifact(RoleSource)
	assert.False(t, ok)
}

func TestMediaKindContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", MediaPDF.ContentType())
	assert.Equal(t, ".tex", MediaTeX.Extension())
	assert.True(t, MediaZIP.IsArchive())
	assert.False(t, MediaPDF.IsArchive())
}
