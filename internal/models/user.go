package models

type User struct {
	BaseModel
	Username     string   `gorm:"uniqueIndex;size:150;not null"`
	PasswordHash string   `gorm:"size:150;not null"`
	Role         UserRole `gorm:"type:varchar(20);default:'user'"`
	Nickname     string   `gorm:"size:150"`
	AvatarURL    string   `gorm:"size:500"`

	// Per-user quota, seeded from the site configuration snapshot at
	// registration time.
	MaxFileSize   int64 `gorm:"not null"` // single-file bytes
	MaxTotalFiles int   `gorm:"not null"` // file count
	MaxTotalSize  int64 `gorm:"not null"` // cumulative bytes

	Language string `gorm:"size:10;default:'en'"`
	Theme    string `gorm:"size:10;default:'light'"`
}

// Limits is the quota triple the Quota Guard evaluates against.
type Limits struct {
	MaxFileSize   int64
	MaxTotalFiles int
	MaxTotalSize  int64
}

func (u *User) Limits() Limits {
	return Limits{
		MaxFileSize:   u.MaxFileSize,
		MaxTotalFiles: u.MaxTotalFiles,
		MaxTotalSize:  u.MaxTotalSize,
	}
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
