package database

import "time"

// User is a console account. Role is "admin" or "user"; only admins may open
// terminal sessions or mutate infrastructure.
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:64" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"not null;default:user" json:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Project is a deployed application on the VPS, mapped to one container.
type Project struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"uniqueIndex;not null" json:"name"`
	DisplayName  string    `gorm:"not null" json:"display_name"`
	ContainerRef string    `gorm:"not null" json:"container_ref"`
	Image        string    `json:"image"`
	Domain       string    `json:"domain"`
	Status       string    `gorm:"not null;default:created" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ManagedDatabase is a database instance the console knows how to back up.
// The password is stored fernet-encrypted.
type ManagedDatabase struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string    `gorm:"uniqueIndex;not null" json:"name"`
	Engine            string    `gorm:"not null;default:postgres" json:"engine"`
	Host              string    `gorm:"not null;default:localhost" json:"host"`
	Port              int       `gorm:"not null;default:5432" json:"port"`
	Username          string    `gorm:"not null" json:"username"`
	PasswordEncrypted string    `json:"-"`
	AutoBackup        bool      `gorm:"not null;default:false" json:"auto_backup"`
	ProjectID         *uint     `gorm:"index" json:"project_id,omitempty"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BackupRecord is one backup attempt for a managed database.
type BackupRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DatabaseID uint      `gorm:"not null;index" json:"database_id"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	Status     string    `gorm:"not null" json:"status"` // "ok" or "failed"
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Setting is a key/value row for server-wide configuration.
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
