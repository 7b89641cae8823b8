package v1

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminBody struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    admins.Admin `json:"data"`
}

func TestAdmins_RequireSuperAdmin(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.json(http.MethodGet, "/admins", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.json(http.MethodGet, "/admins", nil, f.adminToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Super admin only", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodPost, "/admins", admins.CreateInput{Email: "new@drukhealth.bt", Password: "new-pass1"}, f.adminToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdmins_List(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.json(http.MethodGet, "/admins", nil, f.superToken)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Success bool           `json:"success"`
		Count   int            `json:"count"`
		Data    []admins.Admin `json:"data"`
	}](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Data, 2)
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func TestAdmins_Create(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("success", func(t *testing.T) {
		rec := f.json(http.MethodPost, "/admins", admins.CreateInput{
			Name:     "Sonam Wangmo",
			Email:    "Sonam@DrukHealth.bt",
			Password: "sonam-pass1",
		}, f.superToken)

		require.Equal(t, http.StatusCreated, rec.Code)
		body := decode[adminBody](t, rec)
		assert.Equal(t, "Admin created", body.Message)
		assert.Equal(t, "sonam@drukhealth.bt", body.Data.Email)
		assert.Equal(t, admins.RoleAdmin, body.Data.Role)

		rec = f.json(http.MethodPost, "/auth/login", LoginRequest{Email: "sonam@drukhealth.bt", Password: "sonam-pass1"}, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := f.json(http.MethodPost, "/admins", admins.CreateInput{Email: f.admin.Email, Password: "other-pass1"}, f.superToken)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Admin already exists with this email", decode[MessageResponse](t, rec).Message)
	})

	tests := []struct {
		name    string
		input   admins.CreateInput
		message string
	}{
		{"missing email", admins.CreateInput{Password: "abc-pass1"}, "email is required"},
		{"invalid email", admins.CreateInput{Email: "not-an-email", Password: "abc-pass1"}, "email must be a valid email address"},
		{"missing password", admins.CreateInput{Email: "x@drukhealth.bt"}, "password is required"},
		{"invalid role", admins.CreateInput{Email: "x@drukhealth.bt", Password: "abc-pass1", Role: "root"}, "role must be one of: admin, super_admin"},
		{"weak password", admins.CreateInput{Email: "x@drukhealth.bt", Password: "abc"}, "Password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.json(http.MethodPost, "/admins", tt.input, f.superToken)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decode[MessageResponse](t, rec).Message)
		})
	}
}

func TestAdmins_GetUpdateDelete(t *testing.T) {
	f := newAPIFixture(t)
	path := fmt.Sprintf("/admins/%d", f.admin.ID)

	rec := f.json(http.MethodGet, path, nil, f.superToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.admin.Email, decode[adminBody](t, rec).Data.Email)

	rec = f.json(http.MethodGet, "/admins/abc", nil, f.superToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid admin ID", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodGet, "/admins/999", nil, f.superToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Admin not found", decode[MessageResponse](t, rec).Message)

	name := "Pema C."
	role := admins.RoleSuperAdmin
	rec = f.json(http.MethodPut, path, admins.UpdateInput{Name: &name, Role: &role}, f.superToken)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[adminBody](t, rec)
	assert.Equal(t, "Admin updated", body.Message)
	assert.Equal(t, "Pema C.", body.Data.Name)
	assert.Equal(t, admins.RoleSuperAdmin, body.Data.Role)

	taken := f.super.Email
	rec = f.json(http.MethodPut, path, admins.UpdateInput{Email: &taken}, f.superToken)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.json(http.MethodDelete, fmt.Sprintf("/admins/%d", f.super.ID), nil, f.superToken)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "You cannot delete your own account", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodDelete, path, nil, f.superToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Admin deleted", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodGet, path, nil, f.superToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.json(http.MethodGet, "/auth/me", nil, f.adminToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
