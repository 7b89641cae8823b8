package scans

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/drukhealth/ctgadmin/services/scanfeed"
	"github.com/drukhealth/ctgadmin/services/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound              = errors.New("scan not found")
	ErrNoFile                = errors.New("no file uploaded")
	ErrUnsupportedType       = errors.New("only JPEG and PNG images are allowed")
	ErrFileTooLarge          = errors.New("file too large")
	ErrInvalidClassification = errors.New("classification must be Normal, Suspect or Pathological")
	ErrInvalidRange          = errors.New("from must not be after to")
)

const sniffLen = 512

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

type UploadInput struct {
	File           io.Reader
	Filename       string
	Size           int64
	Classification string
	Notes          string
	ScannedAt      *time.Time
	UploadedBy     uint
}

type UpdateInput struct {
	Classification *string    `json:"ctgDetected"`
	Notes          *string    `json:"notes"`
	ScannedAt      *time.Time `json:"date"`
}

type Service struct {
	repo   *Repository
	images storage.ImageStore
	feed   *scanfeed.Hub
	upload config.UploadConfig
	prefix string
	loc    *time.Location
	logger *logging.Service
	now    func() time.Time
}

func NewService(cfg *config.Config, repo *Repository, images storage.ImageStore, feed *scanfeed.Hub, logger *logging.Service) *Service {
	loc := time.Local
	if cfg.App.Timezone != "" {
		if l, err := time.LoadLocation(cfg.App.Timezone); err == nil {
			loc = l
		} else if logger != nil {
			logger.Warn("unknown timezone, using local time", zap.String("timezone", cfg.App.Timezone), zap.Error(err))
		}
	}

	return &Service{
		repo:   repo,
		images: images,
		feed:   feed,
		upload: cfg.Upload,
		prefix: cfg.Storage.KeyPrefix,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// Upload validates the image by its content, stores it and records the scan.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Scan, error) {
	if in.File == nil {
		return nil, ErrNoFile
	}
	if s.upload.MaxSize > 0 && in.Size > s.upload.MaxSize {
		return nil, ErrFileTooLarge
	}

	classification, err := ParseClassification(in.Classification)
	if err != nil {
		return nil, err
	}

	body, size, err := s.readBounded(in.File, in.Size)
	if err != nil {
		return nil, err
	}

	contentType := http.DetectContentType(body[:min(len(body), sniffLen)])
	if !slices.Contains(s.upload.AllowedTypes, contentType) {
		if s.logger != nil {
			s.logger.Warn("rejected upload", zap.String("filename", in.Filename), zap.String("detected_type", contentType))
		}
		return nil, ErrUnsupportedType
	}
	ext, ok := extensions[contentType]
	if !ok {
		return nil, ErrUnsupportedType
	}

	scannedAt := s.now()
	if in.ScannedAt != nil && !in.ScannedAt.IsZero() {
		scannedAt = *in.ScannedAt
	}

	key := s.prefix + scannedAt.UTC().Format("2006/01/") + uuid.NewString() + ext
	url, err := s.images.Put(ctx, key, contentType, bytes.NewReader(body), size)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	scan := &Scan{
		ImageURL:       url,
		ImageKey:       key,
		ContentType:    contentType,
		Size:           size,
		Classification: classification,
		Notes:          strings.TrimSpace(in.Notes),
		UploadedBy:     in.UploadedBy,
		ScannedAt:      scannedAt.UTC(),
	}
	if err := s.repo.Create(ctx, scan); err != nil {
		if delErr := s.images.Delete(ctx, key); delErr != nil && s.logger != nil {
			s.logger.Error("failed to remove orphaned image", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("CTG scan uploaded",
			zap.Uint("scan_id", scan.ID),
			zap.String("classification", string(scan.Classification)),
			zap.Int64("bytes", size),
			zap.Uint("uploaded_by", in.UploadedBy))
	}
	s.publish(scanfeed.EventNewScan, scan)
	return scan, nil
}

// readBounded reads the whole upload, failing once it exceeds the size limit.
func (s *Service) readBounded(r io.Reader, declared int64) ([]byte, int64, error) {
	limit := s.upload.MaxSize
	if limit <= 0 {
		limit = math.MaxInt64 - 1
	}

	var buf bytes.Buffer
	if declared > 0 {
		buf.Grow(int(declared))
	}
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read upload: %w", err)
	}
	if n == 0 {
		return nil, 0, ErrNoFile
	}
	if n > limit {
		return nil, 0, ErrFileTooLarge
	}
	return buf.Bytes(), n, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, ErrInvalidRange
	}
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{Total: total, Records: records}, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*Scan, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*Scan, error) {
	scan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Classification != nil {
		classification, err := ParseClassification(*in.Classification)
		if err != nil {
			return nil, err
		}
		scan.Classification = classification
	}
	if in.Notes != nil {
		scan.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.ScannedAt != nil && !in.ScannedAt.IsZero() {
		scan.ScannedAt = in.ScannedAt.UTC()
	}

	if err := s.repo.Save(ctx, scan); err != nil {
		return nil, err
	}

	s.publish(scanfeed.EventScanUpdated, scan)
	return scan, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	scan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.images.Delete(ctx, scan.ImageKey); err != nil && s.logger != nil {
		s.logger.Error("failed to delete scan image", zap.Uint("scan_id", id), zap.String("key", scan.ImageKey), zap.Error(err))
	}

	if s.logger != nil {
		s.logger.Info("CTG scan deleted", zap.Uint("scan_id", id))
	}
	s.publish(scanfeed.EventScanDeleted, map[string]uint{"id": id})
	return nil
}

// Stats counts scans for the calendar periods containing now, in the service time zone.
func (s *Service) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	periods := Periods(now.In(s.loc))

	stats := &Stats{}
	counts := []*int64{&stats.Daily, &stats.Weekly, &stats.Monthly, &stats.Yearly}
	for i, p := range periods {
		n, err := s.repo.CountBetween(ctx, p.Start, p.End)
		if err != nil {
			return nil, err
		}
		*counts[i] = n
	}

	nsp, err := s.repo.CountByClassification(ctx)
	if err != nil {
		return nil, err
	}
	stats.NSPStats = nsp
	stats.NSPPercentages = Percentages(nsp)

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalScans = total

	return stats, nil
}

func (s *Service) publish(name string, data any) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(scanfeed.Event{Name: name, Data: data})
}

type Period struct {
	Start time.Time
	End   time.Time
}

// Periods returns the day, ISO week (Monday start), month and year containing t.
func Periods(t time.Time) [4]Period {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	weekStart := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	month := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	year := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())

	return [4]Period{
		{Start: day, End: day.AddDate(0, 0, 1)},
		{Start: weekStart, End: weekStart.AddDate(0, 0, 7)},
		{Start: month, End: month.AddDate(0, 1, 0)},
		{Start: year, End: year.AddDate(1, 0, 0)},
	}
}

// Percentages rounds each share to one decimal. All zero when there are no scans.
func Percentages(c NSPCounts) NSPPercentages {
	total := c.Total()
	if total == 0 {
		return NSPPercentages{}
	}
	pct := func(n int64) float64 {
		return math.Round(float64(n)*1000/float64(total)) / 10
	}
	return NSPPercentages{
		Normal:       pct(c.Normal),
		Suspect:      pct(c.Suspect),
		Pathological: pct(c.Pathological),
	}
}
