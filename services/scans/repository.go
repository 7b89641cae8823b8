package scans

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type ListFilter struct {
	Classification Classification
	From           *time.Time
	To             *time.Time
	Search         string
	Page           int
	Limit          int
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, scan *Scan) error {
	if err := r.db.WithContext(ctx).Create(scan).Error; err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uint) (*Scan, error) {
	var scan Scan
	if err := r.db.WithContext(ctx).First(&scan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load scan: %w", err)
	}
	return &scan, nil
}

func (r *Repository) Save(ctx context.Context, scan *Scan) error {
	if err := r.db.WithContext(ctx).Save(scan).Error; err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&Scan{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete scan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Scan, int64, error) {
	query := r.db.WithContext(ctx).Model(&Scan{})

	if filter.Classification != "" {
		query = query.Where("classification = ?", filter.Classification)
	}
	if filter.From != nil {
		query = query.Where("scanned_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("scanned_at <= ?", filter.To.UTC())
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(classification) LIKE ? OR LOWER(notes) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count scans: %w", err)
	}

	query = query.Order("scanned_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		page := max(filter.Page, 1)
		query = query.Limit(filter.Limit).Offset((page - 1) * filter.Limit)
	}

	records := []Scan{}
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list scans: %w", err)
	}
	return records, total, nil
}

// CountBetween counts scans with from <= scanned_at < to.
func (r *Repository) CountBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Scan{}).
		Where("scanned_at >= ? AND scanned_at < ?", from.UTC(), to.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count scans: %w", err)
	}
	return count, nil
}

func (r *Repository) CountByClassification(ctx context.Context) (NSPCounts, error) {
	var rows []struct {
		Classification Classification
		Count          int64
	}
	err := r.db.WithContext(ctx).Model(&Scan{}).
		Select("classification, COUNT(*) AS count").
		Group("classification").
		Scan(&rows).Error
	if err != nil {
		return NSPCounts{}, fmt.Errorf("failed to count scans by classification: %w", err)
	}

	var counts NSPCounts
	for _, row := range rows {
		switch row.Classification {
		case Normal:
			counts.Normal = row.Count
		case Suspect:
			counts.Suspect = row.Count
		case Pathological:
			counts.Pathological = row.Count
		}
	}
	return counts, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Scan{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count scans: %w", err)
	}
	return count, nil
}
