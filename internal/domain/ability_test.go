package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAbility(t *testing.T) {
	tests := []struct {
		name    string
		value   int16
		want    Ability
		wantErr bool
	}{
		{name: "view", value: 1, want: AbilityView},
		{name: "comment", value: 2, want: AbilityComment},
		{name: "edit", value: 3, want: AbilityEdit},
		{name: "zero is invalid", value: 0, wantErr: true},
		{name: "above range", value: 4, wantErr: true},
		{name: "negative", value: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAbility(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidOperation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAbilityAllows(t *testing.T) {
	assert.True(t, AbilityEdit.Allows(AbilityView))
	assert.True(t, AbilityEdit.Allows(AbilityComment))
	assert.True(t, AbilityEdit.Allows(AbilityEdit))
	assert.True(t, AbilityComment.Allows(AbilityView))
	assert.False(t, AbilityComment.Allows(AbilityEdit))
	assert.False(t, AbilityView.Allows(AbilityComment))
	assert.True(t, AbilityView.Allows(AbilityView))
}

func TestMaxAbility(t *testing.T) {
	assert.Nil(t, MaxAbility(nil))
	assert.Nil(t, MaxAbility([]Ability{}))

	got := MaxAbility([]Ability{AbilityView})
	if assert.NotNil(t, got) {
		assert.Equal(t, AbilityView, *got)
	}

	got = MaxAbility([]Ability{AbilityView, AbilityEdit, AbilityComment})
	if assert.NotNil(t, got) {
		assert.Equal(t, AbilityEdit, *got)
	}
}

func TestResourceValidate(t *testing.T) {
	fileID := int64(1)
	folderID := int64(2)

	assert.NoError(t, FileResource(fileID).Validate())
	assert.NoError(t, FolderResource(folderID).Validate())
	assert.ErrorIs(t, Resource{}.Validate(), ErrInvalidOperation)
	assert.ErrorIs(t, Resource{FileID: &fileID, FolderID: &folderID}.Validate(), ErrInvalidOperation)
}

func TestPrincipalValidate(t *testing.T) {
	userID := int64(1)
	teamID := int64(2)

	assert.NoError(t, UserPrincipal(userID).Validate())
	assert.NoError(t, TeamPrincipal(teamID).Validate())
	assert.ErrorIs(t, Principal{}.Validate(), ErrInvalidOperation)
	assert.ErrorIs(t, Principal{UserID: &userID, TeamID: &teamID}.Validate(), ErrInvalidOperation)
}
