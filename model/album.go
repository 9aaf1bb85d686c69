package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Album groups songs by name; songs reference it through Song.Album.
type Album struct {
	ID       string `json:"_id" gorm:"primaryKey;size:36"`
	Name     string `json:"name" gorm:"size:255;not null;index"`
	Desc     string `json:"desc" gorm:"column:description;size:1024;not null"`
	BgColour string `json:"bgColour" gorm:"size:32;not null"`
	Image    string `json:"image" gorm:"size:1024;not null"`
	ImageKey string `json:"-" gorm:"size:512"`

	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the gorm table name.
func (Album) TableName() string {
	return "albums"
}

func (a *Album) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
