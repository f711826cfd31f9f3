package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blockedby/interview-os/internal/database"
	"github.com/blockedby/interview-os/internal/models"
)

// SessionRecord is the table row holding one encoded session.
type SessionRecord struct {
	Name      string `gorm:"primaryKey;size:128"`
	Data      string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName overrides the default table name.
func (SessionRecord) TableName() string {
	return "session_records"
}

// GormSessionRepository keeps the session in a sqlite or postgres table.
type GormSessionRepository struct {
	db  *database.DB
	key string
}

// NewGormSessionRepository migrates the table and returns a repository for key.
func NewGormSessionRepository(ctx context.Context, db *database.DB, key string) (*GormSessionRepository, error) {
	if key == "" {
		key = DefaultKey
	}
	if err := db.GORM.WithContext(ctx).AutoMigrate(&SessionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate session table: %w", err)
	}
	return &GormSessionRepository{db: db, key: key}, nil
}

// Load returns the stored session, or nil when nothing was saved yet.
func (r *GormSessionRepository) Load(ctx context.Context) (*models.Session, error) {
	var rec SessionRecord
	err := r.db.GORM.WithContext(ctx).Where("name = ?", r.key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return decodeSession([]byte(rec.Data))
}

// Save overwrites the stored session.
func (r *GormSessionRepository) Save(ctx context.Context, s models.Session) error {
	data, err := encodeSession(s)
	if err != nil {
		return err
	}

	rec := SessionRecord{Name: r.key, Data: string(data), UpdatedAt: time.Now().UTC()}
	err = r.db.GORM.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *GormSessionRepository) Close() error {
	return r.db.Close()
}
