package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/secondbrainhq/brain-back/internal/config"
)

type (
	GormForkedModel struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	User struct {
		GormForkedModel
		Username  string `gorm:"unique;not null"`
		Password  string `gorm:"not null"` // bcrypt digest, never the raw secret
		Contents  []Content
		ShareLink *ShareLink
	}

	Content struct {
		GormForkedModel
		Link   string `gorm:"not null"`
		Type   string `gorm:"not null"`
		Title  string `gorm:"not null"`
		UserID uint64 `gorm:"not null;index"`
		User   User
		Tags   []Tag `gorm:"many2many:content_tags;"`
	}

	Tag struct {
		GormForkedModel
		Name     string    `gorm:"not null;uniqueIndex:uidx_name_user_id"`
		UserID   uint64    `gorm:"not null;uniqueIndex:uidx_name_user_id"`
		User     User
		Contents []Content `gorm:"many2many:content_tags;"`
	}

	// ShareLink maps a public hash to the user whose collection it exposes.
	// The unique index on UserID keeps enable's check-then-insert honest
	// under concurrent requests; the one on Hash keeps hashes globally
	// resolvable to a single owner.
	ShareLink struct {
		GormForkedModel
		Hash   string `gorm:"uniqueIndex;not null"`
		UserID uint64 `gorm:"uniqueIndex;not null"`
		User   User
	}
)

func NewGormClient(cfg *config.Config) (*gorm.DB, error) {
	newLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Info,
		Colorful:                  true,
		IgnoreRecordNotFoundError: false,
	})

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}); err != nil {
		return errors.Wrap(err, "migrate user")
	}
	if err := db.AutoMigrate(&Content{}); err != nil {
		return errors.Wrap(err, "migrate content")
	}
	if err := db.AutoMigrate(&Tag{}); err != nil {
		return errors.Wrap(err, "migrate tag")
	}
	if err := db.AutoMigrate(&ShareLink{}); err != nil {
		return errors.Wrap(err, "migrate share link")
	}
	return nil
}
