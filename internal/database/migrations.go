package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/roster/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationNormalizeLegacyUserStatus = "2026-10-01_normalize_legacy_user_status"
	migrationTrimUserNames             = "2026-10-01_trim_user_names"
)

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

var migrations = []migrationDefinition{
	{name: migrationNormalizeLegacyUserStatus, apply: normalizeLegacyUserStatus},
	{name: migrationTrimUserNames, apply: trimUserNames},
}

// applyMigrations runs each named data migration once, in order.
func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx); err != nil {
				return err
			}
			appliedAt := time.Now().UTC().Unix()
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error
		})
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// normalizeLegacyUserStatus rewrites every stored status to its canonical spelling.
func normalizeLegacyUserStatus(db *gorm.DB) error {
	canonical := map[users.Status][]string{
		users.StatusActive:   {"active", "ativo"},
		users.StatusInactive: {"inactive", "inativo"},
	}
	for status, spellings := range canonical {
		err := db.Model(&users.User{}).
			Where("lower(trim(status)) IN ? AND status <> ?", spellings, string(status)).
			Update("status", string(status)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func trimUserNames(db *gorm.DB) error {
	return db.Model(&users.User{}).
		Where("name <> trim(name)").
		Update("name", gorm.Expr("trim(name)")).Error
}
