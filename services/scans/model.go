package scans

import (
	"strings"
	"time"
)

type Classification string

const (
	Normal       Classification = "Normal"
	Suspect      Classification = "Suspect"
	Pathological Classification = "Pathological"
)

var Classifications = []Classification{Normal, Suspect, Pathological}

// ParseClassification accepts any casing. An empty value means Normal.
func ParseClassification(raw string) (Classification, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Normal, nil
	}
	for _, c := range Classifications {
		if strings.EqualFold(raw, string(c)) {
			return c, nil
		}
	}
	return "", ErrInvalidClassification
}

type Scan struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ImageURL       string         `gorm:"size:1024;not null" json:"imageUrl"`
	ImageKey       string         `gorm:"size:512;not null" json:"-"`
	ContentType    string         `gorm:"size:40" json:"contentType"`
	Size           int64          `json:"size"`
	Classification Classification `gorm:"size:20;not null;default:Normal;index" json:"ctgDetected"`
	Notes          string         `gorm:"size:2000" json:"notes"`
	UploadedBy     uint           `gorm:"index" json:"uploadedBy"`
	ScannedAt      time.Time      `gorm:"index;not null" json:"date"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

type NSPCounts struct {
	Normal       int64 `json:"Normal"`
	Suspect      int64 `json:"Suspect"`
	Pathological int64 `json:"Pathological"`
}

func (c NSPCounts) Total() int64 {
	return c.Normal + c.Suspect + c.Pathological
}

type NSPPercentages struct {
	Normal       float64 `json:"Normal"`
	Suspect      float64 `json:"Suspect"`
	Pathological float64 `json:"Pathological"`
}

type Stats struct {
	Daily          int64          `json:"daily"`
	Weekly         int64          `json:"weekly"`
	Monthly        int64          `json:"monthly"`
	Yearly         int64          `json:"yearly"`
	NSPStats       NSPCounts      `json:"nspStats"`
	NSPPercentages NSPPercentages `json:"nspPercentages"`
	TotalScans     int64          `json:"totalScans"`
}

type ListResult struct {
	Total   int64  `json:"total"`
	Records []Scan `json:"records"`
}
