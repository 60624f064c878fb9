package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hostdeck/hostdeck/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init() error {
	dbPath := config.Cfg.DatabasePath
	if dbDir := filepath.Dir(dbPath); dbDir != "" {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}
	}

	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}

	if err := DB.AutoMigrate(&User{}, &Project{}, &ManagedDatabase{}, &BackupRecord{}, &Setting{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	if err := seedDefaults(); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}

	return nil
}

func seedDefaults() error {
	defaults := map[string]string{
		"backup_retention_days": "14",
		"default_shell":         "/bin/sh",
	}

	for key, value := range defaults {
		var count int64
		DB.Model(&Setting{}).Where("key = ?", key).Count(&count)
		if count == 0 {
			if err := DB.Create(&Setting{Key: key, Value: value}).Error; err != nil {
				return fmt.Errorf("seed setting %s: %w", key, err)
			}
		}
	}

	return nil
}

func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func GetSetting(key string) (string, error) {
	var s Setting
	if err := DB.Where("key = ?", key).First(&s).Error; err != nil {
		return "", err
	}
	return s.Value, nil
}

func SetSetting(key, value string) error {
	return DB.Where("key = ?", key).Assign(Setting{Value: value}).FirstOrCreate(&Setting{Key: key}).Error
}

// User helpers

func GetUserByUsername(username string) (*User, error) {
	var u User
	if err := DB.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByID(id uint) (*User, error) {
	var u User
	if err := DB.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func CreateUser(user *User) error {
	return DB.Create(user).Error
}

func DeleteUser(id uint) error {
	return DB.Delete(&User{}, id).Error
}

func UpdateUserPassword(id uint, hash string) error {
	return DB.Model(&User{}).Where("id = ?", id).Update("password_hash", hash).Error
}

func UpdateUserRole(id uint, role string) error {
	return DB.Model(&User{}).Where("id = ?", id).Update("role", role).Error
}

func ListUsers() ([]User, error) {
	var users []User
	if err := DB.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func UserCount() (int64, error) {
	var count int64
	err := DB.Model(&User{}).Count(&count).Error
	return count, err
}

func GetFirstAdmin() (*User, error) {
	var u User
	if err := DB.Where("role = ?", "admin").Order("id").First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Project helpers

func ListProjects() ([]Project, error) {
	var projects []Project
	if err := DB.Order("id").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func GetProject(id uint) (*Project, error) {
	var p Project
	if err := DB.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func GetProjectByName(name string) (*Project, error) {
	var p Project
	if err := DB.Where("name = ?", name).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func CreateProject(p *Project) error {
	return DB.Create(p).Error
}

func SaveProject(p *Project) error {
	return DB.Save(p).Error
}

func DeleteProject(id uint) error {
	DB.Where("project_id = ?", id).Model(&ManagedDatabase{}).Update("project_id", nil)
	return DB.Delete(&Project{}, id).Error
}

// Managed database helpers

func ListManagedDatabases() ([]ManagedDatabase, error) {
	var dbs []ManagedDatabase
	if err := DB.Order("id").Find(&dbs).Error; err != nil {
		return nil, err
	}
	return dbs, nil
}

func ListAutoBackupDatabases() ([]ManagedDatabase, error) {
	var dbs []ManagedDatabase
	if err := DB.Where("auto_backup = ?", true).Order("id").Find(&dbs).Error; err != nil {
		return nil, err
	}
	return dbs, nil
}

func GetManagedDatabase(id uint) (*ManagedDatabase, error) {
	var d ManagedDatabase
	if err := DB.First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func CreateManagedDatabase(d *ManagedDatabase) error {
	return DB.Create(d).Error
}

func SaveManagedDatabase(d *ManagedDatabase) error {
	return DB.Save(d).Error
}

func DeleteManagedDatabase(id uint) error {
	DB.Where("database_id = ?", id).Delete(&BackupRecord{})
	return DB.Delete(&ManagedDatabase{}, id).Error
}

// Backup record helpers

func CreateBackupRecord(b *BackupRecord) error {
	return DB.Create(b).Error
}

func ListBackupRecords(databaseID uint) ([]BackupRecord, error) {
	var records []BackupRecord
	if err := DB.Where("database_id = ?", databaseID).Order("id desc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
