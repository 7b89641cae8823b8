package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	mwjwt "github.com/drukhealth/ctgadmin/middleware/jwt"
	"github.com/drukhealth/ctgadmin/middleware/jwtshared"
	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/drukhealth/ctgadmin/services/auth"
	"github.com/drukhealth/ctgadmin/services/otp"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{auth: authService}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Token     string         `json:"token"`
	ExpiresIn int            `json:"expiresIn"`
	Data      admins.Profile `json:"data"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}

	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return authError(err)
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Success:   true,
		Message:   "Login successful",
		Token:     result.Token,
		ExpiresIn: result.ExpiresIn,
		Data:      result.Admin,
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	admin := jwtshared.GetCurrentAdmin(c)
	if admin == nil {
		var err error
		admin, err = h.auth.Me(c.Request().Context(), mwjwt.GetAdminID(c))
		if err != nil {
			return authError(err)
		}
	}
	return c.JSON(http.StatusOK, DataResponse{Success: true, Data: admin})
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}

	err := h.auth.ForgotPassword(c.Request().Context(), req.Email)
	var cooldown *otp.CooldownError
	switch {
	case err == nil:
		return ok(c, "OTP sent")
	case errors.As(err, &cooldown):
		c.Response().Header().Set("Retry-After", strconv.Itoa(cooldown.Seconds()))
		return echo.NewHTTPError(http.StatusTooManyRequests,
			fmt.Sprintf("Please wait %ds before requesting another OTP", cooldown.Seconds()))
	case errors.Is(err, auth.ErrAdminNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "No admin found with this email")
	default:
		return authError(err)
	}
}

func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}

	if err := h.auth.VerifyOTP(c.Request().Context(), req.Email, req.OTP); err != nil {
		return authError(err)
	}
	return ok(c, "OTP verified")
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}

	if err := h.auth.ResetPassword(c.Request().Context(), req.Email, req.NewPassword); err != nil {
		return authError(err)
	}
	return ok(c, "Password reset successful")
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}

	err := h.auth.ChangePassword(c.Request().Context(), mwjwt.GetAdminID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		return authError(err)
	}
	return ok(c, "Password changed")
}

// authError maps auth and otp failures to the status and message clients expect.
func authError(err error) error {
	var policy *auth.PolicyError
	switch {
	case errors.As(err, &policy):
		return badRequest(sentence(policy))
	case errors.Is(err, auth.ErrMissingCredentials):
		return badRequest("Email & password required")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, auth.ErrEmailRequired), errors.Is(err, otp.ErrEmailRequired):
		return badRequest("Email required")
	case errors.Is(err, auth.ErrAdminNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Admin not found")
	case errors.Is(err, auth.ErrOTPDelivery):
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to send OTP").SetInternal(err)
	case errors.Is(err, auth.ErrEmailAndOTPRequired), errors.Is(err, otp.ErrCodeRequired):
		return badRequest("Email & OTP required")
	case errors.Is(err, otp.ErrNotRequested):
		return badRequest("OTP expired or not requested")
	case errors.Is(err, otp.ErrExpired):
		return badRequest("OTP expired")
	case errors.Is(err, otp.ErrInvalidCode):
		return badRequest("Invalid OTP")
	case errors.Is(err, otp.ErrAlreadyVerified):
		return badRequest("OTP already used")
	case errors.Is(err, otp.ErrTooManyAttempts):
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many invalid attempts, request a new OTP")
	case errors.Is(err, auth.ErrEmailAndPasswordRequired):
		return badRequest("Email & new password required")
	case errors.Is(err, auth.ErrPasswordResetNotAuthorized):
		return badRequest("Please verify OTP first")
	case errors.Is(err, auth.ErrOldAndNewPasswordRequired):
		return badRequest("Old & new password required")
	case errors.Is(err, auth.ErrOldPasswordIncorrect):
		return badRequest("Old password incorrect")
	default:
		return err
	}
}
