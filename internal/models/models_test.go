package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentTypeFromTitle(t *testing.T) {
	cases := map[string]string{
		"Passport Copy":              "passport_copy",
		"  High School   Diploma ":   "high_school_diploma",
		"Transcript":                 "transcript",
		"Language\tCertificate (B2)": "language_certificate_(b2)",
	}
	for title, want := range cases {
		assert.Equal(t, want, DocumentTypeFromTitle(title), title)
	}
}

func TestApplicationStatusTransitions(t *testing.T) {
	assert.True(t, ApplicationPending.CanTransitionTo(ApplicationSubmitted))
	assert.True(t, ApplicationPendingPayment.CanTransitionTo(ApplicationSubmitted))
	assert.True(t, ApplicationUnderReview.CanTransitionTo(ApplicationAccepted))
	assert.False(t, ApplicationSubmitted.CanTransitionTo(ApplicationAccepted))
	assert.False(t, ApplicationAccepted.CanTransitionTo(ApplicationRejected))
	assert.False(t, ApplicationRejected.CanTransitionTo(ApplicationUnderReview))
	assert.True(t, ApplicationAccepted.Terminal())
	assert.False(t, ApplicationPending.Terminal())
	assert.False(t, ApplicationStatus("draft").Valid())
}

func TestPersonalInfoMissingFields(t *testing.T) {
	info := PersonalInfo{FullName: "Ada", Email: "ada@example.com", Phone: " "}
	assert.Equal(t, []string{"phone", "nationality", "date_of_birth", "passport_number"}, info.MissingFields())

	complete := PersonalInfo{FullName: "Ada", Email: "a@b.c", Phone: "1", Nationality: "TR", DateOfBirth: "2000-01-01", PassportNumber: "X1"}
	assert.Empty(t, complete.MissingFields())
}

func TestPersonalInfoScanValue(t *testing.T) {
	in := PersonalInfo{FullName: "Ada", Nationality: "TR"}
	raw, err := in.Value()
	require.NoError(t, err)

	var out PersonalInfo
	require.NoError(t, out.Scan(raw))
	assert.Equal(t, in, out)
	require.NoError(t, out.Scan(nil))
	assert.Equal(t, PersonalInfo{}, out)
	assert.Error(t, out.Scan(42))
}

func TestPermissionSet(t *testing.T) {
	set := NewPermissionSet([]Permission{{Module: ModulePrograms, Action: ActionView}})
	assert.True(t, set.Has(ModulePrograms, ActionView))
	assert.False(t, set.Has(ModulePrograms, ActionDelete))
	assert.True(t, IsSystemRole(RoleStudent))
	assert.False(t, IsSystemRole("editor"))
}

func TestFavoriteItemTypeValid(t *testing.T) {
	assert.True(t, FavoriteProgram.Valid())
	assert.False(t, FavoriteItemType("city").Valid())
}
