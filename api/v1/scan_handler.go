package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/drukhealth/ctgadmin/config"
	mwjwt "github.com/drukhealth/ctgadmin/middleware/jwt"
	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/drukhealth/ctgadmin/services/scanfeed"
	"github.com/drukhealth/ctgadmin/services/scans"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// multipartOverhead is allowed on top of the image for boundaries and form fields.
const multipartOverhead = 1 << 20

const streamKeepAlive = 25 * time.Second

type ScanHandler struct {
	scans     *scans.Service
	feed      *scanfeed.Hub
	upload    config.UploadConfig
	logger    *logging.Service
	keepAlive time.Duration
}

func NewScanHandler(cfg *config.Config, scanService *scans.Service, feed *scanfeed.Hub, logger *logging.Service) *ScanHandler {
	return &ScanHandler{
		scans:     scanService,
		feed:      feed,
		upload:    cfg.Upload,
		logger:    logger,
		keepAlive: streamKeepAlive,
	}
}

type StatsResponse struct {
	Success bool `json:"success"`
	*scans.Stats
}

type ScanListResponse struct {
	Success bool `json:"success"`
	*scans.ListResult
}

func (h *ScanHandler) Upload(c echo.Context) error {
	if h.upload.MaxSize > 0 {
		req := c.Request()
		req.Body = http.MaxBytesReader(c.Response(), req.Body, h.upload.MaxSize+multipartOverhead)
	}

	field := h.upload.FieldName
	if field == "" {
		field = "ctgImage"
	}

	fh, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "File too large")
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return badRequest("No file uploaded")
		default:
			return badRequest("No file uploaded").SetInternal(err)
		}
	}

	scannedAt, err := parseTime(c.FormValue("date"), false, h.scans.Location())
	if err != nil {
		return badRequest("Invalid date")
	}

	file, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	scan, err := h.scans.Upload(c.Request().Context(), scans.UploadInput{
		File:           file,
		Filename:       fh.Filename,
		Size:           fh.Size,
		Classification: firstNonEmpty(c.FormValue("ctgDetected"), c.FormValue("classification")),
		Notes:          c.FormValue("notes"),
		ScannedAt:      scannedAt,
		UploadedBy:     mwjwt.GetAdminID(c),
	})
	if err != nil {
		return scanError(err)
	}

	return c.JSON(http.StatusCreated, DataResponse{
		Success: true,
		Message: "CTG Scan uploaded successfully!",
		Data:    scan,
	})
}

func (h *ScanHandler) List(c echo.Context) error {
	filter, err := parseListFilter(c, h.scans.Location())
	if err != nil {
		return err
	}

	result, err := h.scans.List(c.Request().Context(), filter)
	if err != nil {
		return scanError(err)
	}
	return c.JSON(http.StatusOK, ScanListResponse{Success: true, ListResult: result})
}

func (h *ScanHandler) Stats(c echo.Context) error {
	stats, err := h.scans.Stats(c.Request().Context(), time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, StatsResponse{Success: true, Stats: stats})
}

func (h *ScanHandler) Get(c echo.Context) error {
	id, err := parseID(c, "scan")
	if err != nil {
		return err
	}

	scan, err := h.scans.Get(c.Request().Context(), id)
	if err != nil {
		return scanError(err)
	}
	return c.JSON(http.StatusOK, DataResponse{Success: true, Data: scan})
}

func (h *ScanHandler) Update(c echo.Context) error {
	id, err := parseID(c, "scan")
	if err != nil {
		return err
	}

	var in scans.UpdateInput
	if err := c.Bind(&in); err != nil {
		return badRequest("Invalid request body")
	}

	scan, err := h.scans.Update(c.Request().Context(), id, in)
	if err != nil {
		return scanError(err)
	}
	return c.JSON(http.StatusOK, DataResponse{Success: true, Message: "Scan updated", Data: scan})
}

func (h *ScanHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "scan")
	if err != nil {
		return err
	}

	if err := h.scans.Delete(c.Request().Context(), id); err != nil {
		return scanError(err)
	}
	return ok(c, "Scan deleted")
}

// Stream pushes scan feed events to the client as server-sent events until it disconnects.
func (h *ScanHandler) Stream(c echo.Context) error {
	events, cancel := h.feed.Subscribe()
	defer cancel()

	res := c.Response()
	// the server write timeout would otherwise cut the stream
	if err := http.NewResponseController(res).SetWriteDeadline(time.Time{}); err != nil && h.logger != nil {
		h.logger.Debug("could not clear write deadline for event stream", zap.Error(err))
	}

	header := res.Header()
	header.Set(echo.HeaderContentType, "text/event-stream")
	header.Set(echo.HeaderCacheControl, "no-cache")
	header.Set(echo.HeaderConnection, "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(res, ": connected\n\n"); err != nil {
		return nil
	}
	res.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, open := <-events:
			if !open {
				return nil
			}
			if err := scanfeed.WriteSSE(res, event); err != nil {
				if h.logger != nil {
					h.logger.Debug("event stream closed", zap.Error(err))
				}
				return nil
			}
			res.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func scanError(err error) error {
	switch {
	case errors.Is(err, scans.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Scan not found")
	case errors.Is(err, scans.ErrNoFile):
		return badRequest("No file uploaded")
	case errors.Is(err, scans.ErrUnsupportedType):
		return badRequest("Only JPEG and PNG images are allowed")
	case errors.Is(err, scans.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, scans.ErrInvalidClassification), errors.Is(err, scans.ErrInvalidRange):
		return badRequest(sentence(err))
	default:
		return err
	}
}

func parseListFilter(c echo.Context, loc *time.Location) (scans.ListFilter, error) {
	var filter scans.ListFilter

	if raw := firstNonEmpty(c.QueryParam("classification"), c.QueryParam("ctgDetected")); raw != "" {
		classification, err := scans.ParseClassification(raw)
		if err != nil {
			return filter, badRequest(sentence(err))
		}
		filter.Classification = classification
	}

	from, err := parseTime(c.QueryParam("from"), false, loc)
	if err != nil {
		return filter, badRequest("Invalid from date")
	}
	to, err := parseTime(c.QueryParam("to"), true, loc)
	if err != nil {
		return filter, badRequest("Invalid to date")
	}
	filter.From, filter.To = from, to

	filter.Search = strings.TrimSpace(c.QueryParam("search"))

	if filter.Page, err = parsePositive(c.QueryParam("page")); err != nil {
		return filter, badRequest("Invalid page")
	}
	if filter.Limit, err = parsePositive(c.QueryParam("limit")); err != nil {
		return filter, badRequest("Invalid limit")
	}
	return filter, nil
}

// parseTime accepts RFC 3339 or a bare date. A bare date used as an upper
// bound covers the whole day.
func parseTime(raw string, endOfDay bool, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

func parsePositive(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return n, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
