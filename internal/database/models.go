package database

import (
	"time"
)

// AssetStatus is the lifecycle state of an upload
type AssetStatus string

const (
	AssetStatusProcessing AssetStatus = "processing"
	AssetStatusCompleted  AssetStatus = "completed"
	AssetStatusFailed     AssetStatus = "failed"
)

// VideoAsset is the job record of one upload
type VideoAsset struct {
	ID              string      `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Status          AssetStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	SourceExtension string      `gorm:"type:varchar(16)" json:"source_extension"`
	SourceWidth     int         `json:"source_width"`
	SourceHeight    int         `json:"source_height"`
	LadderMode      string      `gorm:"type:varchar(16)" json:"ladder_mode"`
	ProbeFailed     bool        `json:"probe_failed"`
	ManifestKey     string      `gorm:"type:varchar(512)" json:"manifest_key"`
	Error           string      `gorm:"type:text" json:"error,omitempty"`
	Report          string      `gorm:"type:text" json:"report,omitempty"`
	ProcessingMS    int64       `json:"processing_ms"`
	CompletedAt     *time.Time  `gorm:"index" json:"completed_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`

	Renditions []VideoRendition `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"renditions,omitempty"`
}

// TableName returns the table name for GORM
func (VideoAsset) TableName() string {
	return "video_assets"
}

// VideoRendition is one completed rendition of an upload
type VideoRendition struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	VideoID     string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_video_label" json:"video_id"`
	Label       string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_video_label" json:"label"`
	Position    int       `gorm:"not null" json:"position"`
	Bandwidth   int       `json:"bandwidth"`
	Resolution  string    `gorm:"type:varchar(32)" json:"resolution"`
	Passthrough bool      `json:"passthrough"`
	TranscodeMS int64     `json:"transcode_ms"`
	SegmentMS   int64     `json:"segment_ms"`
	UploadMS    int64     `json:"upload_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the table name for GORM
func (VideoRendition) TableName() string {
	return "video_renditions"
}

// AllModels lists every model managed by AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&VideoAsset{},
		&VideoRendition{},
	}
}
