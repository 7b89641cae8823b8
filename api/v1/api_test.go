package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/middleware/ratelimit"
	"github.com/drukhealth/ctgadmin/server"
	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/drukhealth/ctgadmin/services/auth"
	jwtservice "github.com/drukhealth/ctgadmin/services/jwt"
	"github.com/drukhealth/ctgadmin/services/otp"
	"github.com/drukhealth/ctgadmin/services/scanfeed"
	"github.com/drukhealth/ctgadmin/services/scans"
	"github.com/drukhealth/ctgadmin/services/storage"
	"github.com/drukhealth/ctgadmin/testutils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	t      *testing.T
	cfg    *config.Config
	echo   *echo.Echo
	admins *admins.Service
	otp    *otp.Service
	scans  *scans.Service
	feed   *scanfeed.Hub
	mailer *testutils.MockMailSender

	super      *admins.Admin
	admin      *admins.Admin
	superToken string
	adminToken string
}

func newAPIFixture(t *testing.T, tweak ...func(*config.Config)) *apiFixture {
	t.Helper()
	ctx := context.Background()

	cfg := testutils.GetTestConfig()
	cfg.Storage.LocalDir = t.TempDir()
	for _, fn := range tweak {
		fn(cfg)
	}

	db := testutils.SetupTestDB(t, &admins.Admin{}, &scans.Scan{})

	passwords := auth.NewPasswords(cfg.Auth, nil)
	adminService := admins.NewService(admins.NewRepository(db), passwords, nil)

	otpService := otp.NewService(cfg.OTP, otp.NewMemoryStore(), nil)
	otpService.SetGenerator(&testutils.FixedCodeGenerator{Codes: []string{"123456"}})

	tokens := jwtservice.NewService(cfg, nil)
	mailer := &testutils.MockMailSender{}
	authService := auth.NewService(cfg, passwords, adminService, otpService, tokens, mailer, nil)

	images, err := storage.NewImageStore(ctx, cfg.Storage, nil)
	require.NoError(t, err)
	feed := scanfeed.NewHub(nil)
	t.Cleanup(feed.Close)
	scanService := scans.NewService(cfg, scans.NewRepository(db), images, feed, nil)

	limitStore := ratelimit.NewMemoryStore()
	t.Cleanup(limitStore.Close)

	srv := server.New(cfg, nil)
	RegisterRoutes(srv, Dependencies{
		Config:         cfg,
		Auth:           authService,
		Admins:         adminService,
		Scans:          scanService,
		Feed:           feed,
		Tokens:         tokens,
		RateLimitStore: limitStore,
		DB:             db,
		Doc:            NewDocument(cfg.App.Name),
	})

	f := &apiFixture{
		t:      t,
		cfg:    cfg,
		echo:   srv.Echo(),
		admins: adminService,
		otp:    otpService,
		scans:  scanService,
		feed:   feed,
		mailer: mailer,
	}

	f.super, err = adminService.Create(ctx, admins.CreateInput{
		Name:     testutils.TestAdmins.SuperAdmin.Name,
		Email:    testutils.TestAdmins.SuperAdmin.Email,
		Password: testutils.TestAdmins.SuperAdmin.Password,
		Role:     admins.RoleSuperAdmin,
	})
	require.NoError(t, err)
	f.admin, err = adminService.Create(ctx, admins.CreateInput{
		Name:     testutils.TestAdmins.Admin.Name,
		Email:    testutils.TestAdmins.Admin.Email,
		Password: testutils.TestAdmins.Admin.Password,
	})
	require.NoError(t, err)

	f.superToken = f.tokenFor(tokens, f.super)
	f.adminToken = f.tokenFor(tokens, f.admin)
	return f
}

func (f *apiFixture) tokenFor(tokens *jwtservice.Service, admin *admins.Admin) string {
	token, err := tokens.GenerateToken(jwtservice.Subject{ID: admin.ID, Email: admin.Email, Role: admin.Role})
	require.NoError(f.t, err)
	return token
}

func (f *apiFixture) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) json(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, BasePath+path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return f.serve(req, token)
}

// upload posts a multipart form; a nil file omits the file part.
func (f *apiFixture) upload(file []byte, fields map[string]string, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if file != nil {
		part, err := w.CreateFormFile(f.cfg.Upload.FieldName, "scan.png")
		require.NoError(f.t, err)
		_, err = part.Write(file)
		require.NoError(f.t, err)
	}
	for k, v := range fields {
		require.NoError(f.t, w.WriteField(k, v))
	}
	require.NoError(f.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, BasePath+"/postCTG", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return f.serve(req, token)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func pngImage(size int) []byte {
	img := make([]byte, size)
	copy(img, testutils.PNGHeader)
	return img
}
