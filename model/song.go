package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Song is a catalog entry: the uploaded audio file plus its artwork.
type Song struct {
	ID       string `json:"_id" gorm:"primaryKey;size:36"`
	Name     string `json:"name" gorm:"size:255;not null;index"`
	Desc     string `json:"desc" gorm:"column:description;size:1024;not null"`
	Album    string `json:"album" gorm:"size:255;not null;index"`
	Image    string `json:"image" gorm:"size:1024;not null"`
	File     string `json:"file" gorm:"size:1024;not null"`
	URL      string `json:"url" gorm:"size:1024"`
	Duration string `json:"duration" gorm:"size:16;not null"` // "m:ss", see FormatDuration

	// Object keys in the storage bucket, used to clean up on removal.
	AudioKey string `json:"-" gorm:"size:512"`
	ImageKey string `json:"-" gorm:"size:512"`

	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the gorm table name.
func (Song) TableName() string {
	return "songs"
}

// BeforeCreate assigns an id and mirrors File into URL when URL is unset.
func (s *Song) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.EnsureURL()
	return nil
}

// EnsureURL fills URL from File. Older rows only carry File.
func (s *Song) EnsureURL() {
	if s.URL == "" {
		s.URL = s.File
	}
}
