package v1

import (
	"errors"
	"net/http"
	"testing"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/drukhealth/ctgadmin/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.json(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
}

func TestLogin(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("success", func(t *testing.T) {
		rec := f.json(http.MethodPost, "/auth/login", LoginRequest{
			Email:    "PEMA@drukhealth.bt",
			Password: testutils.TestAdmins.Admin.Password,
		}, "")

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[LoginResponse](t, rec)
		assert.True(t, body.Success)
		assert.Equal(t, "Login successful", body.Message)
		assert.NotEmpty(t, body.Token)
		assert.Equal(t, 900, body.ExpiresIn)
		assert.Equal(t, f.admin.ID, body.Data.ID)
		assert.Equal(t, admins.RoleAdmin, body.Data.Role)
		assert.NotContains(t, rec.Body.String(), "passwordHash")
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := f.json(http.MethodPost, "/auth/login", LoginRequest{Email: "pema@drukhealth.bt"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email & password required", decode[MessageResponse](t, rec).Message)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := f.json(http.MethodPost, "/auth/login", LoginRequest{Email: "pema@drukhealth.bt", Password: "nope-nope"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decode[MessageResponse](t, rec)
		assert.False(t, body.Success)
		assert.Equal(t, "Invalid credentials", body.Message)
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := f.json(http.MethodPost, "/auth/login", LoginRequest{Email: "ghost@drukhealth.bt", Password: "whatever"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogin_RateLimitedOnFailures(t *testing.T) {
	f := newAPIFixture(t, func(cfg *config.Config) {
		cfg.RateLimit.LoginRate = 2
	})
	bad := LoginRequest{Email: "pema@drukhealth.bt", Password: "wrong-pass"}

	assert.Equal(t, http.StatusUnauthorized, f.json(http.MethodPost, "/auth/login", bad, "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.json(http.MethodPost, "/auth/login", bad, "").Code)

	rec := f.json(http.MethodPost, "/auth/login", LoginRequest{
		Email:    "pema@drukhealth.bt",
		Password: testutils.TestAdmins.Admin.Password,
	}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAPIFixture(t)
	f.mailer.On("SendTemplate", mock.Anything, mock.Anything, []string{f.admin.Email}, mock.Anything, mock.Anything).Return(nil)

	rec := f.json(http.MethodPost, "/auth/reset-password", ResetPasswordRequest{Email: f.admin.Email, NewPassword: "fresh-pass1"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please verify OTP first", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodPost, "/auth/forgot-password", EmailRequest{Email: f.admin.Email}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MessageResponse{Success: true, Message: "OTP sent"}, decode[MessageResponse](t, rec))

	rec = f.json(http.MethodPost, "/auth/forgot-password", EmailRequest{Email: f.admin.Email}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Please wait 60s before requesting another OTP", decode[MessageResponse](t, rec).Message)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	rec = f.json(http.MethodPost, "/auth/verify-otp", VerifyOTPRequest{Email: f.admin.Email, OTP: "000000"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid OTP", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodPost, "/auth/verify-otp", VerifyOTPRequest{Email: f.admin.Email, OTP: "123456"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OTP verified", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodPost, "/auth/verify-otp", VerifyOTPRequest{Email: f.admin.Email, OTP: "123456"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "OTP already used", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodPost, "/auth/reset-password", ResetPasswordRequest{Email: f.admin.Email, NewPassword: testutils.TestPasswords.TooShort}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password must be at least 6 characters", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodPost, "/auth/reset-password", ResetPasswordRequest{Email: f.admin.Email, NewPassword: "fresh-pass1"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password reset successful", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodPost, "/auth/reset-password", ResetPasswordRequest{Email: f.admin.Email, NewPassword: "fresh-pass2"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.json(http.MethodPost, "/auth/login", LoginRequest{Email: f.admin.Email, Password: "fresh-pass1"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestForgotPassword_Errors(t *testing.T) {
	t.Run("email required", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.json(http.MethodPost, "/auth/forgot-password", EmailRequest{}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email required", decode[MessageResponse](t, rec).Message)
	})

	t.Run("unknown admin", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.json(http.MethodPost, "/auth/forgot-password", EmailRequest{Email: "ghost@drukhealth.bt"}, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "No admin found with this email", decode[MessageResponse](t, rec).Message)
	})

	t.Run("mail failure", func(t *testing.T) {
		f := newAPIFixture(t)
		f.mailer.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("smtp unavailable"))

		rec := f.json(http.MethodPost, "/auth/forgot-password", EmailRequest{Email: f.admin.Email}, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to send OTP", decode[MessageResponse](t, rec).Message)
		assert.NotContains(t, rec.Body.String(), "smtp")
	})
}

func TestVerifyOTP_Errors(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.json(http.MethodPost, "/auth/verify-otp", VerifyOTPRequest{Email: f.admin.Email}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email & OTP required", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodPost, "/auth/verify-otp", VerifyOTPRequest{Email: f.admin.Email, OTP: "123456"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "OTP expired or not requested", decode[MessageResponse](t, rec).Message)
}

func TestVerifyOTP_TooManyAttempts(t *testing.T) {
	f := newAPIFixture(t)
	f.mailer.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	require.Equal(t, http.StatusOK, f.json(http.MethodPost, "/auth/forgot-password", EmailRequest{Email: f.admin.Email}, "").Code)

	for i := 1; i < f.cfg.OTP.MaxAttempts; i++ {
		rec := f.json(http.MethodPost, "/auth/verify-otp", VerifyOTPRequest{Email: f.admin.Email, OTP: "999999"}, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := f.json(http.MethodPost, "/auth/verify-otp", VerifyOTPRequest{Email: f.admin.Email, OTP: "999999"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many invalid attempts, request a new OTP", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodPost, "/auth/verify-otp", VerifyOTPRequest{Email: f.admin.Email, OTP: "123456"}, "")
	assert.Equal(t, "OTP expired or not requested", decode[MessageResponse](t, rec).Message)
}

func TestMe(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.json(http.MethodGet, "/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization header required", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodGet, "/auth/me", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.json(http.MethodGet, "/auth/me", nil, f.adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Success bool         `json:"success"`
		Data    admins.Admin `json:"data"`
	}](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, f.admin.Email, body.Data.Email)
}

func TestChangePassword(t *testing.T) {
	f := newAPIFixture(t)
	f.mailer.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rec := f.json(http.MethodPost, "/auth/change-password", ChangePasswordRequest{OldPassword: "x", NewPassword: "y"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.json(http.MethodPost, "/auth/change-password", ChangePasswordRequest{NewPassword: "fresh-pass1"}, f.adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Old & new password required", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodPost, "/auth/change-password", ChangePasswordRequest{OldPassword: "wrong-pass", NewPassword: "fresh-pass1"}, f.adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Old password incorrect", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodPost, "/auth/change-password", ChangePasswordRequest{
		OldPassword: testutils.TestAdmins.Admin.Password,
		NewPassword: "fresh-pass1",
	}, f.adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password changed", decode[MessageResponse](t, rec).Message)

	rec = f.json(http.MethodPost, "/auth/login", LoginRequest{Email: f.admin.Email, Password: "fresh-pass1"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
