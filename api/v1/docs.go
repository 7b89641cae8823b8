package v1

import (
	"net/http"

	"github.com/drukhealth/ctgadmin/apidoc"
	"github.com/drukhealth/ctgadmin/server"
	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/drukhealth/ctgadmin/services/scans"
)

const Version = "1.0.0"

// Envelopes below only shape the API document; handlers build the same JSON.
type adminEnvelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    admins.Admin `json:"data"`
}

type adminListEnvelope struct {
	Success bool           `json:"success"`
	Count   int            `json:"count"`
	Data    []admins.Admin `json:"data"`
}

type scanEnvelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    scans.Scan `json:"data"`
}

type scanUpdateRequest struct {
	Classification string `json:"ctgDetected,omitempty" doc:"Normal, Suspect or Pathological"`
	Notes          string `json:"notes,omitempty"`
	Date           string `json:"date,omitempty" doc:"RFC 3339 timestamp"`
}

type adminUpdateRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty" doc:"Empty keeps the current password"`
	Role     string `json:"role,omitempty" doc:"admin or super_admin"`
}

// NewDocument describes every route RegisterRoutes serves.
func NewDocument(appName string) *apidoc.Document {
	doc := apidoc.New(appName+" CTG Admin API", Version).
		Description("Admin authentication, OTP password reset, admin management and CTG scan records.").
		Server(BasePath, "API base path").
		Tag("auth", "Login and password management").
		Tag("admins", "Admin accounts (super admin only)").
		Tag("scans", "CTG scan uploads and statistics").
		Tag("system", "Health and documentation").
		BearerAuth("Token returned by POST /auth/login").
		ErrorBody(server.ErrorResponse{})

	describeSystem(doc)
	describeAuth(doc)
	describeAdmins(doc)
	describeScans(doc)
	return doc
}

func describeSystem(doc *apidoc.Document) {
	doc.Route(http.MethodGet, "/health").
		ID("health").Tags("system").
		Summary("Service and database health").
		Response(http.StatusOK, HealthResponse{}, "Healthy").
		Response(http.StatusServiceUnavailable, HealthResponse{}, "Database unreachable").
		Add()

	doc.Route(http.MethodGet, "/docs/openapi.json").
		ID("openapiJSON").Tags("system").
		Summary("This document as JSON").
		Raw(http.StatusOK, "application/json", "OpenAPI document").
		Add()

	doc.Route(http.MethodGet, "/docs/openapi.yaml").
		ID("openapiYAML").Tags("system").
		Summary("This document as YAML").
		Raw(http.StatusOK, "application/yaml", "OpenAPI document").
		Add()
}

func describeAuth(doc *apidoc.Document) {
	doc.Route(http.MethodPost, "/auth/login").
		ID("login").Tags("auth").
		Summary("Log in with email and password").
		JSONBody(LoginRequest{}, "Credentials").
		Response(http.StatusOK, LoginResponse{}, "Token and admin profile").
		Response(http.StatusBadRequest, MessageResponse{}, "Email & password required").
		Response(http.StatusUnauthorized, MessageResponse{}, "Invalid credentials").
		Response(http.StatusTooManyRequests, MessageResponse{}, "Too many failed attempts").
		Add()

	doc.Route(http.MethodPost, "/auth/forgot-password").
		ID("forgotPassword").Tags("auth").
		Summary("Mail a one-time code to the admin").
		JSONBody(EmailRequest{}, "Admin email").
		Response(http.StatusOK, MessageResponse{}, "OTP sent").
		Response(http.StatusNotFound, MessageResponse{}, "No admin found with this email").
		Response(http.StatusTooManyRequests, MessageResponse{}, "Cooldown active").
		Response(http.StatusInternalServerError, MessageResponse{}, "Failed to send OTP").
		Add()

	doc.Route(http.MethodPost, "/auth/verify-otp").
		ID("verifyOTP").Tags("auth").
		Summary("Verify the mailed code").
		JSONBody(VerifyOTPRequest{}, "Email and code").
		Response(http.StatusOK, MessageResponse{}, "OTP verified").
		Response(http.StatusBadRequest, MessageResponse{}, "Missing, expired, invalid or used code").
		Response(http.StatusTooManyRequests, MessageResponse{}, "Too many invalid attempts").
		Add()

	doc.Route(http.MethodPost, "/auth/reset-password").
		ID("resetPassword").Tags("auth").
		Summary("Set a new password after OTP verification").
		JSONBody(ResetPasswordRequest{}, "Email and new password").
		Response(http.StatusOK, MessageResponse{}, "Password reset successful").
		Response(http.StatusBadRequest, MessageResponse{}, "Please verify OTP first").
		Response(http.StatusNotFound, MessageResponse{}, "Admin not found").
		Add()

	doc.Route(http.MethodPost, "/auth/change-password").
		ID("changePassword").Tags("auth").
		Summary("Change the password of the logged in admin").
		Secured().
		JSONBody(ChangePasswordRequest{}, "Old and new password").
		Response(http.StatusOK, MessageResponse{}, "Password changed").
		Response(http.StatusBadRequest, MessageResponse{}, "Old password incorrect").
		Response(http.StatusUnauthorized, MessageResponse{}, "Missing or invalid token").
		Add()

	doc.Route(http.MethodGet, "/auth/me").
		ID("me").Tags("auth").
		Summary("Current admin").
		Secured().
		Response(http.StatusOK, adminEnvelope{}, "Admin").
		Response(http.StatusUnauthorized, MessageResponse{}, "Missing or invalid token").
		Add()
}

func describeAdmins(doc *apidoc.Document) {
	doc.Route(http.MethodGet, "/admins").
		ID("listAdmins").Tags("admins").
		Summary("List admins, newest first").
		Secured().
		Response(http.StatusOK, adminListEnvelope{}, "Admins").
		Response(http.StatusForbidden, MessageResponse{}, "Super admin only").
		Add()

	doc.Route(http.MethodPost, "/admins").
		ID("createAdmin").Tags("admins").
		Summary("Create an admin").
		Secured().
		JSONBody(admins.CreateInput{}, "New admin").
		Response(http.StatusCreated, adminEnvelope{}, "Admin created").
		Response(http.StatusConflict, MessageResponse{}, "Admin already exists with this email").
		Add()

	doc.Route(http.MethodGet, "/admins/:id").
		ID("getAdmin").Tags("admins").
		Summary("Get one admin").
		Secured().
		Response(http.StatusOK, adminEnvelope{}, "Admin").
		Response(http.StatusNotFound, MessageResponse{}, "Admin not found").
		Add()

	doc.Route(http.MethodPut, "/admins/:id").
		ID("updateAdmin").Tags("admins").
		Summary("Update an admin").
		Secured().
		JSONBody(adminUpdateRequest{}, "Fields to change").
		Response(http.StatusOK, adminEnvelope{}, "Admin updated").
		Response(http.StatusNotFound, MessageResponse{}, "Admin not found").
		Response(http.StatusConflict, MessageResponse{}, "Email taken or last super admin").
		Add()

	doc.Route(http.MethodDelete, "/admins/:id").
		ID("deleteAdmin").Tags("admins").
		Summary("Delete an admin").
		Secured().
		Response(http.StatusOK, MessageResponse{}, "Admin deleted").
		Response(http.StatusConflict, MessageResponse{}, "Cannot delete self or the last super admin").
		Add()
}

func describeScans(doc *apidoc.Document) {
	classifications := []string{string(scans.Normal), string(scans.Suspect), string(scans.Pathological)}

	doc.Route(http.MethodPost, "/postCTG").
		ID("uploadScan").Tags("scans").
		Summary("Upload a CTG scan image").
		Secured().
		MultipartBody("JPEG or PNG image with its classification",
			apidoc.FormField{Name: "ctgImage", File: true, Required: true, Description: "Scan image"},
			apidoc.FormField{Name: "ctgDetected", Enum: classifications, Description: "Defaults to Normal"},
			apidoc.FormField{Name: "notes"},
			apidoc.FormField{Name: "date", Description: "RFC 3339 timestamp or YYYY-MM-DD"}).
		Response(http.StatusCreated, scanEnvelope{}, "CTG Scan uploaded successfully!").
		Response(http.StatusBadRequest, MessageResponse{}, "No file or unsupported type").
		Response(http.StatusRequestEntityTooLarge, MessageResponse{}, "File too large").
		Add()

	doc.Route(http.MethodGet, "/scans").
		ID("listScans").Tags("scans").
		Summary("List scans, latest scan date first").
		Secured().
		Query("classification", "Only this classification", classifications...).
		Query("from", "Earliest scan date (RFC 3339 or YYYY-MM-DD)").
		Query("to", "Latest scan date (RFC 3339 or YYYY-MM-DD)").
		Query("search", "Matches classification or notes").
		QueryInt("page", "Page number, from 1").
		QueryInt("limit", "Page size; all records when omitted").
		Response(http.StatusOK, ScanListResponse{}, "Matching scans").
		Add()

	doc.Route(http.MethodGet, "/scans/stats").
		ID("scanStats").Tags("scans").
		Summary("Counts per period and per classification").
		Secured().
		Response(http.StatusOK, StatsResponse{}, "Statistics").
		Add()

	doc.Route(http.MethodGet, "/scans/stream").
		ID("scanStream").Tags("scans").
		Summary("Server-sent events for new, updated and deleted scans").
		Description("EventSource clients may pass the token as ?token= instead of the Authorization header.").
		Secured().
		Query(TokenQueryParam, "Access token").
		Stream("Event stream (new-scan, scan-updated, scan-deleted)").
		Add()

	doc.Route(http.MethodGet, "/scans/:id").
		ID("getScan").Tags("scans").
		Summary("Get one scan").
		Secured().
		Response(http.StatusOK, scanEnvelope{}, "Scan").
		Response(http.StatusNotFound, MessageResponse{}, "Scan not found").
		Add()

	doc.Route(http.MethodPut, "/scans/:id").
		ID("updateScan").Tags("scans").
		Summary("Change classification, notes or date").
		Secured().
		JSONBody(scanUpdateRequest{}, "Fields to change").
		Response(http.StatusOK, scanEnvelope{}, "Scan updated").
		Response(http.StatusNotFound, MessageResponse{}, "Scan not found").
		Add()

	doc.Route(http.MethodDelete, "/scans/:id").
		ID("deleteScan").Tags("scans").
		Summary("Delete a scan and its image").
		Secured().
		Response(http.StatusOK, MessageResponse{}, "Scan deleted").
		Response(http.StatusNotFound, MessageResponse{}, "Scan not found").
		Add()
}
