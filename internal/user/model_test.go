package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPassword(t *testing.T) {
	u := &User{}
	require.NoError(t, u.SetPassword("sample123"))

	assert.NotEqual(t, "sample123", u.PasswordHash)
	assert.True(t, u.CheckPassword("sample123"))
	assert.False(t, u.CheckPassword("sample124"))
}

func TestLoginID(t *testing.T) {
	u := &User{Email: "alice@example.com"}
	assert.Equal(t, "alice@example.com", u.LoginID())
}

func TestCanAuthenticate(t *testing.T) {
	assert.True(t, (&User{IsActive: true}).CanAuthenticate())
	assert.False(t, (&User{IsActive: false}).CanAuthenticate())
}

func TestPermissions(t *testing.T) {
	cases := []struct {
		name      string
		active    bool
		staff     bool
		superuser bool
		hasPerm   bool
		isAdmin   bool
	}{
		{"regular user", true, false, false, false, false},
		{"staff member", true, true, false, false, true},
		{"superuser", true, true, true, true, true},
		{"deactivated superuser", false, true, true, false, false},
		{"deactivated staff", false, true, false, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := &User{IsActive: tc.active, IsStaff: tc.staff, IsSuperuser: tc.superuser}
			assert.Equal(t, tc.hasPerm, u.HasPerm("users.manage"))
			assert.Equal(t, tc.isAdmin, u.IsAdmin())
		})
	}
}
