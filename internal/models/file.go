package models

import (
	"time"

	"gorm.io/datatypes"
)

// File is the durable, shareable artifact. Created exactly once per
// successful assembly (or plain upload) and owned by its creating user.
type File struct {
	BaseModel
	Filename         string `gorm:"size:255;not null"` // stored name, embeds the content hash
	OriginalFilename string `gorm:"size:255;not null"` // sanitized
	RawFilename      string `gorm:"size:255;not null"` // unsanitized, display only
	Path             string `gorm:"size:500;not null"` // storage key
	Size             int64  `gorm:"not null"`
	ContentType      string `gorm:"size:100"`
	UserID           string `gorm:"type:uuid;not null;index"`

	IsPublic      bool      `gorm:"default:false"`
	ShareType     ShareType `gorm:"type:varchar(20);default:'public'"`
	AllowView     bool      `gorm:"default:true"`
	AllowDownload bool      `gorm:"default:true"`
	AllowEdit     bool      `gorm:"default:false"`

	Password   string     `gorm:"size:150"` // optional access password
	ExpiryTime *time.Time

	// AllowedUsers holds a JSON array of usernames; meaningful only when
	// ShareType is specified_users.
	AllowedUsers datatypes.JSON

	Description  string `gorm:"type:text"`
	DiscoveredBy string `gorm:"size:150"`
	Tags         string `gorm:"size:500"` // comma separated

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// Expired reports whether the file's expiry timestamp has passed.
func (f *File) Expired(now time.Time) bool {
	return f.ExpiryTime != nil && now.After(*f.ExpiryTime)
}
