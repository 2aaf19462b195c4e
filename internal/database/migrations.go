package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/rooms"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationNormalizeEmptyPageNames = "2026-10-01_normalize_empty_page_names"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeEmptyPageNames, apply: normalizeEmptyPageNames},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// normalizeEmptyPageNames gives unnamed pages their id as a visible name.
func normalizeEmptyPageNames(db *gorm.DB) error {
	return db.Model(&rooms.PageRecord{}).
		Where("name = ''").
		Update("name", gorm.Expr("page_id")).Error
}
